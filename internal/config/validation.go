package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/retry"
	"git.home.luguber.info/inful/sitebuilder/internal/util/sets"
)

var (
	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
	// ErrInvalidConfig indicates a configuration value failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)

var validCategories = sets.New("blog", "workshop", "page")

// Validate checks the configuration after defaults were applied.
func Validate(cfg *Config) error {
	if err := validateSources(cfg.Content.Sources); err != nil {
		return err
	}
	if !strings.HasPrefix(cfg.Content.BlogPathPrefix, "/") {
		return fmt.Errorf("%w: content.blog_path_prefix must start with '/': %q", ErrInvalidConfig, cfg.Content.BlogPathPrefix)
	}
	if strings.HasSuffix(cfg.Content.BlogPathPrefix, "/") && cfg.Content.BlogPathPrefix != "/" {
		return fmt.Errorf("%w: content.blog_path_prefix must not end with '/': %q", ErrInvalidConfig, cfg.Content.BlogPathPrefix)
	}
	if _, err := time.ParseDuration(cfg.Daemon.Debounce); err != nil {
		return fmt.Errorf("%w: daemon.debounce: %w", ErrInvalidConfig, err)
	}
	if cfg.Daemon.RebuildInterval != "" {
		d, err := time.ParseDuration(cfg.Daemon.RebuildInterval)
		if err != nil {
			return fmt.Errorf("%w: daemon.rebuild_interval: %w", ErrInvalidConfig, err)
		}
		if d < time.Minute {
			return fmt.Errorf("%w: daemon.rebuild_interval must be at least 1m, got %s", ErrInvalidConfig, d)
		}
	}
	if cfg.Notify.Enabled && cfg.Notify.NATSURL == "" {
		return fmt.Errorf("%w: notify.nats_url is required when notify is enabled", ErrInvalidConfig)
	}
	if b := cfg.Notify.RetryBackoff; b != "" && !retry.BackoffMode(b).Valid() {
		return fmt.Errorf("%w: notify.retry_backoff %q (want fixed, linear or exponential)", ErrInvalidConfig, b)
	}
	if cfg.Notify.MaxRetries != nil && *cfg.Notify.MaxRetries < 0 {
		return fmt.Errorf("%w: notify.max_retries cannot be negative", ErrInvalidConfig)
	}
	return nil
}

func validateSources(sources []SourceConfig) error {
	seen := sets.New[string]()
	for i, src := range sources {
		if src.Path == "" {
			return fmt.Errorf("%w: content.sources[%d].path is required", ErrInvalidConfig, i)
		}
		if !validCategories.Has(src.Category) {
			return fmt.Errorf("%w: content.sources[%d].category %q (want blog, workshop or page)", ErrInvalidConfig, i, src.Category)
		}
		if seen.Has(src.Name) {
			return fmt.Errorf("%w: duplicate content source name %q", ErrInvalidConfig, src.Name)
		}
		seen.Add(src.Name)
	}
	return nil
}

// DebounceDuration returns the parsed daemon debounce.
func (d DaemonConfig) DebounceDuration() time.Duration {
	dur, err := time.ParseDuration(d.Debounce)
	if err != nil {
		return 2 * time.Second
	}
	return dur
}

// RebuildIntervalDuration returns the parsed periodic rebuild interval, zero when disabled.
func (d DaemonConfig) RebuildIntervalDuration() time.Duration {
	if d.RebuildInterval == "" {
		return 0
	}
	dur, err := time.ParseDuration(d.RebuildInterval)
	if err != nil {
		return 0
	}
	return dur
}

// RetryPolicy returns the policy used for transient publish failures.
func (n NotifyConfig) RetryPolicy() retry.Policy {
	maxRetries := -1
	if n.MaxRetries != nil {
		maxRetries = *n.MaxRetries
	}
	return retry.NewPolicy(retry.BackoffMode(n.RetryBackoff), 0, 0, maxRetries)
}
