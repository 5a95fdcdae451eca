package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/eventstore"
	"git.home.luguber.info/inful/sitebuilder/internal/notify"
)

func newTestSite(t *testing.T) (string, *config.Config) {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Content.Sources = []config.SourceConfig{
		{Name: "blog", Path: filepath.Join(root, "content", "blog"), Category: "blog"},
		{Name: "workshops", Path: filepath.Join(root, "content", "workshops"), Category: "workshop"},
	}
	cfg.Output.Directory = filepath.Join(root, "public")
	for _, s := range cfg.Content.Sources {
		require.NoError(t, os.MkdirAll(s.Path, 0o750))
	}
	writeFile(t, filepath.Join(root, "content", "blog", "hello.md"), "---\ntitle: Hello\ndate: 2020-01-02\n---\nHi.\n")
	writeFile(t, filepath.Join(root, "content", "workshops", "go.md"), "---\ntitle: Go\ndate: 2020-01-01\n---\nGo.\n")
	return root, cfg
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func newTestDaemon(t *testing.T, cfg *config.Config) *Daemon {
	t.Helper()
	store, err := eventstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	d, err := New(cfg, Options{Store: store})
	require.NoError(t, err)
	return d
}

func TestDaemon_TriggerBuildRecordsHistory(t *testing.T) {
	_, cfg := newTestSite(t)
	d := newTestDaemon(t, cfg)

	res, err := d.TriggerBuild(t.Context(), TriggerWatch)
	require.NoError(t, err)
	require.NotNil(t, res.Report)
	assert.FileExists(t, filepath.Join(cfg.Output.Directory, "pages", "hello", "index.json"))

	history := d.History().History()
	require.Len(t, history, 1)
	assert.Equal(t, res.Report.BuildID, history[0].BuildID)
	assert.Equal(t, TriggerWatch, history[0].Trigger)
	assert.Equal(t, "success", history[0].Status)
	assert.Equal(t, 2, history[0].DetailPages)
	assert.Equal(t, 1, history[0].ListingPages)
}

func TestDaemon_FailedBuildIsRecorded(t *testing.T) {
	root, cfg := newTestSite(t)
	require.NoError(t, os.Remove(filepath.Join(root, "content", "workshops", "go.md")))
	d := newTestDaemon(t, cfg)

	_, err := d.TriggerBuild(t.Context(), TriggerSchedule)
	require.Error(t, err)

	history := d.History().History()
	require.Len(t, history, 1)
	assert.Equal(t, "failed", history[0].Status)
	assert.NotEmpty(t, history[0].ErrorStage)
}

func TestDaemon_BuildsAreSerialized(t *testing.T) {
	_, cfg := newTestSite(t)
	d := newTestDaemon(t, cfg)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = d.TriggerBuild(t.Context(), TriggerWatch)
		}()
	}
	wg.Wait()

	require.Len(t, d.History().History(), 4)
}

func TestDaemon_ReloadConfig(t *testing.T) {
	root, cfg := newTestSite(t)
	d := newTestDaemon(t, cfg)

	require.Error(t, d.ReloadConfig(), "no config path")

	path := filepath.Join(root, "sitebuilder.yaml")
	d.configPath = path
	writeFile(t, path, fmt.Sprintf("site:\n  title: Reloaded\n  url: https://example.org\ncontent:\n  sources:\n    - path: %s\n      category: blog\n    - path: %s\n      category: workshop\n",
		cfg.Content.Sources[0].Path, cfg.Content.Sources[1].Path))
	require.NoError(t, d.ReloadConfig())
	assert.Equal(t, "Reloaded", d.Config().Site.Title)

	writeFile(t, path, "content: [not, a, map")
	require.Error(t, d.ReloadConfig())
	assert.Equal(t, "Reloaded", d.Config().Site.Title)
}

type fakeSender struct {
	closed atomic.Bool
}

func (f *fakeSender) Publish(context.Context, notify.BuildNotification) error { return nil }
func (f *fakeSender) Close() error                                            { f.closed.Store(true); return nil }

func TestNew_ClosesPublisherOnFailure(t *testing.T) {
	_, cfg := newTestSite(t)
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	writeFile(t, blocker, "x")
	cfg.Daemon.HistoryDB = filepath.Join(blocker, "history.db")

	sender := &fakeSender{}
	_, err := New(cfg, Options{Publisher: sender})
	require.Error(t, err)
	assert.True(t, sender.closed.Load())
}

func TestDaemon_ClosesPublisher(t *testing.T) {
	_, cfg := newTestSite(t)
	store, err := eventstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	sender := &fakeSender{}
	d, err := New(cfg, Options{Store: store, Publisher: sender})
	require.NoError(t, err)
	assert.False(t, sender.closed.Load())
	require.NoError(t, d.Close())
	assert.True(t, sender.closed.Load())
}

func TestRestartRequired(t *testing.T) {
	_, prev := newTestSite(t)
	next := *prev
	require.Empty(t, restartRequired(prev, &next))

	next.Site.Title = "Only the build reads this"
	require.Empty(t, restartRequired(prev, &next))

	next.Content.Sources = prev.Content.Sources[:1]
	next.Daemon.RebuildInterval = "1h"
	next.Daemon.MetricsAddr = ":9999"
	assert.Equal(t, []string{"content.sources", "daemon.rebuild_interval", "daemon.metrics_addr"}, restartRequired(prev, &next))
}

func TestDaemon_HTTPHandler(t *testing.T) {
	_, cfg := newTestSite(t)
	d := newTestDaemon(t, cfg)
	res, err := d.TriggerBuild(t.Context(), TriggerStartup)
	require.NoError(t, err)

	srv := httptest.NewServer(d.Handler())
	defer srv.Close()

	get := func(path string) (*http.Response, string) {
		req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+path, http.NoBody)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp, string(body)
	}

	resp, body := get("/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok\n", body)

	resp, body = get("/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "sitebuilder_build_triggers_total")

	resp, body = get("/builds")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var builds []eventstore.BuildSummary
	require.NoError(t, json.Unmarshal([]byte(body), &builds))
	require.Len(t, builds, 1)
	assert.Equal(t, res.Report.BuildID, builds[0].BuildID)

	resp, _ = get("/builds/" + res.Report.BuildID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = get("/builds/unknown")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWatcher_DebouncesContentChanges(t *testing.T) {
	root, cfg := newTestSite(t)
	configPath := filepath.Join(root, "sitebuilder.yaml")
	writeFile(t, configPath, "site:\n  title: x\n")

	var calls atomic.Int32
	var kinds atomic.Int32
	w, err := NewWatcher(configPath, []string{cfg.Content.Sources[0].Path}, 50*time.Millisecond, func(k ChangeKind) {
		calls.Add(1)
		kinds.Store(int32(k))
	})
	require.NoError(t, err)
	require.NoError(t, w.Start(t.Context()))
	defer func() { _ = w.Stop() }()

	for i := range 3 {
		writeFile(t, filepath.Join(cfg.Content.Sources[0].Path, fmt.Sprintf("p%d.md", i)), "---\ntitle: p\n---\n")
	}

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(ChangeContent), kinds.Load())

	writeFile(t, configPath, "site:\n  title: y\n")
	require.Eventually(t, func() bool { return ChangeKind(kinds.Load())&ChangeConfig != 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_IgnoresNonContentFiles(t *testing.T) {
	_, cfg := newTestSite(t)

	var calls atomic.Int32
	w, err := NewWatcher("", []string{cfg.Content.Sources[0].Path}, 20*time.Millisecond, func(ChangeKind) { calls.Add(1) })
	require.NoError(t, err)
	require.NoError(t, w.Start(t.Context()))
	defer func() { _ = w.Stop() }()

	writeFile(t, filepath.Join(cfg.Content.Sources[0].Path, "notes.txt"), "x")
	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

func TestScheduler_RunsPeriodicBuild(t *testing.T) {
	s, err := NewScheduler()
	require.NoError(t, err)

	var runs atomic.Int32
	id, err := s.SchedulePeriodicBuild(t.Context(), 20*time.Millisecond, func(context.Context) {
		runs.Add(1)
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	s.Start()
	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Stop())
}
