// Package daemon keeps the site up to date: it rebuilds on content and
// configuration changes, on a fixed schedule, records build history and
// serves metrics.
package daemon

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/eventstore"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/notify"
)

// Trigger reasons recorded on builds.
const (
	TriggerStartup  = "startup"
	TriggerWatch    = "watch"
	TriggerConfig   = "config"
	TriggerSchedule = "schedule"
)

const historySize = 50

// Options wire optional collaborators. Zero values are replaced by the
// configured defaults in New.
type Options struct {
	ConfigPath string
	OutputDir  string
	Store      eventstore.Store
	Publisher  notify.Sender
}

// Daemon owns the long-running build loop.
type Daemon struct {
	configPath string
	outputDir  string

	cfgMu   sync.RWMutex
	cfg     *config.Config
	service *build.Service

	// buildMu serializes builds; triggers only request them.
	buildMu sync.Mutex

	registry   *prom.Registry
	recorder   *metrics.PrometheusRecorder
	store      eventstore.Store
	ownsStore  bool
	projection *eventstore.BuildHistoryProjection
	publisher  notify.Sender
}

// New creates a daemon for cfg. The build history store is opened from
// daemon.history_db unless opts provides one. The daemon owns
// opts.Publisher: Close closes it, and so does New when it fails.
func New(cfg *config.Config, opts Options) (*Daemon, error) {
	registry := prom.NewRegistry()
	registry.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))

	d := &Daemon{
		configPath: opts.ConfigPath,
		outputDir:  opts.OutputDir,
		registry:   registry,
		recorder:   metrics.NewPrometheusRecorder(registry),
		store:      opts.Store,
		publisher:  opts.Publisher,
	}

	if d.store == nil {
		store, err := eventstore.NewSQLiteStore(cfg.Daemon.HistoryDB)
		if err != nil {
			if opts.Publisher != nil {
				_ = opts.Publisher.Close()
			}
			return nil, err
		}
		d.store = store
		d.ownsStore = true
	}
	d.projection = eventstore.NewBuildHistoryProjection(d.store, historySize)

	d.setConfig(cfg)
	return d, nil
}

func (d *Daemon) setConfig(cfg *config.Config) {
	svc := build.NewService(cfg).WithRecorder(d.recorder)
	if d.publisher != nil {
		if obs, err := notify.NewObserver(d.publisher); err == nil {
			svc.WithObserver(obs.WithRetry(cfg.Notify.RetryPolicy()))
		}
	}
	d.cfgMu.Lock()
	d.cfg = cfg
	d.service = svc
	d.cfgMu.Unlock()
}

// Config returns the active configuration.
func (d *Daemon) Config() *config.Config {
	d.cfgMu.RLock()
	defer d.cfgMu.RUnlock()
	return d.cfg
}

// History returns the projection of recorded builds.
func (d *Daemon) History() *eventstore.BuildHistoryProjection { return d.projection }

// TriggerBuild runs one build now, waiting for any running build first, and
// records it in the history.
func (d *Daemon) TriggerBuild(ctx context.Context, reason string) (*build.Result, error) {
	d.buildMu.Lock()
	defer d.buildMu.Unlock()

	d.recorder.IncBuildTrigger(reason)

	d.cfgMu.RLock()
	svc := d.service
	d.cfgMu.RUnlock()

	res, err := svc.Run(ctx, build.Request{OutputDir: d.outputDir, Trigger: reason})
	if res != nil && res.Report != nil {
		d.record(ctx, res.Report)
	}
	if err != nil {
		slog.Error("Build failed", slog.String("trigger", reason), logfields.Error(err))
	}
	return res, err
}

func (d *Daemon) record(ctx context.Context, r *build.Report) {
	events, err := eventstore.RecordBuild(ctx, d.store, r)
	if err != nil {
		slog.Warn("Failed to record build history", logfields.BuildID(r.BuildID), logfields.Error(err))
		return
	}
	for _, e := range events {
		d.projection.Apply(e)
	}
	removed, err := d.store.Prune(ctx, d.Config().Daemon.HistoryKeep)
	if err != nil {
		slog.Warn("Failed to prune build history", logfields.Error(err))
		return
	}
	if removed > 0 {
		slog.Debug("Pruned build history", slog.Int64("events", removed))
	}
}

// ReloadConfig loads the configuration file again and swaps it in for the
// next build. An invalid file keeps the current configuration.
//
// The watcher, scheduler and HTTP server keep the content sources and
// daemon settings they were started with; changes to those are logged and
// take effect on restart.
func (d *Daemon) ReloadConfig() error {
	if d.configPath == "" {
		return ferrors.DaemonError("no configuration file to reload").Build()
	}
	cfg, err := config.Load(d.configPath)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "reload configuration").
			WithContext("path", d.configPath).
			Build()
	}
	if keys := restartRequired(d.Config(), cfg); len(keys) > 0 {
		slog.Warn("Configuration changes need a daemon restart",
			logfields.Path(d.configPath), slog.Any("keys", keys))
	}
	d.setConfig(cfg)
	slog.Info("Configuration reloaded", logfields.Path(d.configPath))
	return nil
}

// restartRequired lists the keys that differ between prev and next but are
// only read when Run starts.
func restartRequired(prev, next *config.Config) []string {
	var keys []string
	if !slices.Equal(prev.Content.Sources, next.Content.Sources) {
		keys = append(keys, "content.sources")
	}
	if prev.Daemon.Debounce != next.Daemon.Debounce {
		keys = append(keys, "daemon.debounce")
	}
	if prev.Daemon.RebuildInterval != next.Daemon.RebuildInterval {
		keys = append(keys, "daemon.rebuild_interval")
	}
	if prev.Daemon.MetricsAddr != next.Daemon.MetricsAddr {
		keys = append(keys, "daemon.metrics_addr")
	}
	if prev.Daemon.HistoryDB != next.Daemon.HistoryDB {
		keys = append(keys, "daemon.history_db")
	}
	return keys
}

func (d *Daemon) onChange(ctx context.Context) func(ChangeKind) {
	return func(kind ChangeKind) {
		reason := TriggerWatch
		if kind&ChangeConfig != 0 {
			if err := d.ReloadConfig(); err != nil {
				slog.Error("Failed to reload configuration", logfields.Error(err))
				return
			}
			reason = TriggerConfig
		}
		_, _ = d.TriggerBuild(ctx, reason)
	}
}

// Run performs a startup build, then watches, schedules and serves metrics
// until ctx is cancelled. A failed startup build does not stop the daemon.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.projection.Rebuild(ctx); err != nil {
		slog.Warn("Failed to load build history", logfields.Error(err))
	}

	cfg := d.Config()
	_, _ = d.TriggerBuild(ctx, TriggerStartup)

	roots := make([]string, 0, len(cfg.Content.Sources))
	for _, s := range cfg.Content.Sources {
		roots = append(roots, s.Path)
	}
	w, err := NewWatcher(d.configPath, roots, cfg.Daemon.DebounceDuration(), d.onChange(ctx))
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryDaemon, "start watcher").Build()
	}
	if err := w.Start(ctx); err != nil {
		_ = w.Stop()
		return ferrors.WrapError(err, ferrors.CategoryDaemon, "start watcher").Build()
	}
	defer func() { _ = w.Stop() }()

	if interval := cfg.Daemon.RebuildIntervalDuration(); interval > 0 {
		sched, err := NewScheduler()
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryDaemon, "start scheduler").Build()
		}
		if _, err := sched.SchedulePeriodicBuild(ctx, interval, func(ctx context.Context) {
			_, _ = d.TriggerBuild(ctx, TriggerSchedule)
		}); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryDaemon, "schedule rebuild").Build()
		}
		sched.Start()
		defer func() { _ = sched.Stop() }()
	}

	srv := &http.Server{
		Addr:              cfg.Daemon.MetricsAddr,
		Handler:           d.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	srvErr := make(chan error, 1)
	go func() {
		slog.Info("Serving metrics", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-srvErr:
		return ferrors.WrapError(err, ferrors.CategoryDaemon, "metrics server").Build()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Metrics server shutdown", logfields.Error(err))
	}
	slog.Info("Daemon stopped")
	return nil
}

// Close releases the history store and the notification connection.
func (d *Daemon) Close() error {
	var errs []error
	if d.publisher != nil {
		errs = append(errs, d.publisher.Close())
	}
	if d.ownsStore && d.store != nil {
		errs = append(errs, d.store.Close())
	}
	return errors.Join(errs...)
}
