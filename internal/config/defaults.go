package config

// Default values applied after loading.
const (
	DefaultTitle          = "Moon Highway - professional web development trainings"
	DefaultSiteURL        = "https://moonhighway.com"
	DefaultAuthor         = "Kent C. Dodds"
	DefaultBlogPathPrefix = "/articles"
	DefaultOutputDir      = "./public"
	DefaultFeedPath       = "rss.xml"
	DefaultDebounce       = "2s"
	DefaultMetricsAddr    = ":9102"
	DefaultHistoryDB      = "./sitebuilder-history.db"
	DefaultHistoryKeep    = 200
	DefaultNotifySubject  = "sitebuilder.builds"
)

// DefaultSources mirrors the three content roots of the site.
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{Name: "blog", Path: "content/blog", Category: "blog"},
		{Name: "workshops", Path: "content/workshops", Category: "workshop"},
		{Name: "pages", Path: "content/pages", Category: "page"},
	}
}

// Default returns a fully defaulted configuration.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Site.Title == "" {
		cfg.Site.Title = DefaultTitle
	}
	if cfg.Site.URL == "" {
		cfg.Site.URL = DefaultSiteURL
	}
	if cfg.Site.DefaultAuthor == "" {
		cfg.Site.DefaultAuthor = DefaultAuthor
	}
	if len(cfg.Content.Sources) == 0 {
		cfg.Content.Sources = DefaultSources()
	}
	for i := range cfg.Content.Sources {
		if cfg.Content.Sources[i].Name == "" {
			cfg.Content.Sources[i].Name = cfg.Content.Sources[i].Category
		}
	}
	if cfg.Content.BlogPathPrefix == "" {
		cfg.Content.BlogPathPrefix = DefaultBlogPathPrefix
	}
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = DefaultOutputDir
		cfg.Output.Clean = true
	}
	if cfg.Build.FeedPath == "" {
		cfg.Build.FeedPath = DefaultFeedPath
	}
	if cfg.Daemon.Debounce == "" {
		cfg.Daemon.Debounce = DefaultDebounce
	}
	if cfg.Daemon.MetricsAddr == "" {
		cfg.Daemon.MetricsAddr = DefaultMetricsAddr
	}
	if cfg.Daemon.HistoryDB == "" {
		cfg.Daemon.HistoryDB = DefaultHistoryDB
	}
	if cfg.Daemon.HistoryKeep <= 0 {
		cfg.Daemon.HistoryKeep = DefaultHistoryKeep
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = DefaultNotifySubject
	}
}
