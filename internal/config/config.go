package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Site    SiteConfig    `yaml:"site"`
	Content ContentConfig `yaml:"content"`
	Output  OutputConfig  `yaml:"output"`
	Build   BuildConfig   `yaml:"build"`
	Daemon  DaemonConfig  `yaml:"daemon"`
	Notify  NotifyConfig  `yaml:"notify"`
}

// SiteConfig carries site metadata used by the feed and field defaults.
type SiteConfig struct {
	Title         string `yaml:"title"`
	URL           string `yaml:"url"`
	Description   string `yaml:"description,omitempty"`
	DefaultAuthor string `yaml:"default_author,omitempty"`
}

// ContentConfig lists the content sources the loader walks.
type ContentConfig struct {
	Sources        []SourceConfig `yaml:"sources"`
	BlogPathPrefix string         `yaml:"blog_path_prefix,omitempty"`
}

// SourceConfig is one content root. Category is one of blog, workshop, page.
type SourceConfig struct {
	Name     string `yaml:"name"`
	Path     string `yaml:"path"`
	Category string `yaml:"category"`
}

// OutputConfig represents output configuration.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Clean     bool   `yaml:"clean"` // Clean output directory before build
}

// BuildConfig tunes planning behavior.
type BuildConfig struct {
	StrictSlugs bool   `yaml:"strict_slugs"`
	Feed        *bool  `yaml:"feed,omitempty"`
	FeedPath    string `yaml:"feed_path,omitempty"`
}

// FeedEnabled reports whether the RSS feed is written (default true).
func (b BuildConfig) FeedEnabled() bool {
	return b.Feed == nil || *b.Feed
}

// DaemonConfig configures the long-running watch mode. Durations are Go
// duration strings ("2s", "1h").
type DaemonConfig struct {
	Debounce        string `yaml:"debounce,omitempty"`
	RebuildInterval string `yaml:"rebuild_interval,omitempty"`
	MetricsAddr     string `yaml:"metrics_addr,omitempty"`
	HistoryDB       string `yaml:"history_db,omitempty"`

	// HistoryKeep is how many builds the history database retains.
	HistoryKeep int `yaml:"history_keep,omitempty"`
}

// NotifyConfig configures NATS build notifications.
type NotifyConfig struct {
	Enabled bool   `yaml:"enabled"`
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`

	// RetryBackoff is fixed, linear or exponential; MaxRetries nil keeps
	// the default retry count.
	RetryBackoff string `yaml:"retry_backoff,omitempty"`
	MaxRetries   *int   `yaml:"max_retries,omitempty"`
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse expands environment variables in data, unmarshals it, applies
// defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Default()
	example.Notify = NotifyConfig{Enabled: false, NATSURL: "nats://127.0.0.1:4222", Subject: DefaultNotifySubject}

	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}

	header := "# SiteBuilder configuration\n# Values support ${ENV_VAR} expansion; .env and .env.local are loaded first.\n"
	if err := os.WriteFile(configPath, append([]byte(header), data...), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
