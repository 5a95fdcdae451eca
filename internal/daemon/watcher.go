package daemon

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// ChangeKind tells what a debounced batch of file events touched.
type ChangeKind int

const (
	ChangeContent ChangeKind = 1 << iota
	ChangeConfig
)

// Watcher monitors the content roots (recursively) and the configuration
// file, coalescing bursts of events into one callback per quiet window.
type Watcher struct {
	configPath string
	roots      []string
	debounce   time.Duration
	onChange   func(ChangeKind)

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	timer   *time.Timer
	pending ChangeKind
	stopped bool
}

// NewWatcher creates a watcher. configPath may be empty.
func NewWatcher(configPath string, roots []string, debounce time.Duration, onChange func(ChangeKind)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	abs := ""
	if configPath != "" {
		if abs, err = filepath.Abs(configPath); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("failed to resolve config path: %w", err)
		}
	}
	absRoots := make([]string, 0, len(roots))
	for _, r := range roots {
		a, err := filepath.Abs(r)
		if err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("failed to resolve content root %s: %w", r, err)
		}
		absRoots = append(absRoots, a)
	}

	return &Watcher{
		configPath: abs,
		roots:      absRoots,
		debounce:   debounce,
		onChange:   onChange,
		watcher:    w,
	}, nil
}

// Start registers the watches and processes events until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	if w.configPath != "" {
		// The directory is watched because editors replace files on save.
		if err := w.watcher.Add(filepath.Dir(w.configPath)); err != nil {
			return fmt.Errorf("failed to watch config directory: %w", err)
		}
	}
	for _, root := range w.roots {
		if err := w.addTree(root); err != nil {
			return err
		}
	}
	slog.Info("Watching for changes", slog.Any("roots", w.roots), slog.String("config_path", w.configPath))

	go w.loop(ctx)
	return nil
}

// Stop closes the watcher and cancels a pending callback.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

func (w *Watcher) addTree(root string) error {
	if _, err := os.Stat(root); err != nil {
		slog.Warn("Content root missing; not watched", logfields.Path(root))
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if kind := w.classify(event); kind != 0 {
				slog.Debug("Change detected", logfields.File(event.Name), slog.String("op", event.Op.String()))
				w.schedule(kind)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) classify(event fsnotify.Event) ChangeKind {
	if event.Op == fsnotify.Chmod {
		return 0
	}
	if w.configPath != "" && event.Name == w.configPath {
		if event.Op&fsnotify.Remove != 0 {
			slog.Warn("Config file removed", logfields.File(event.Name))
			return 0
		}
		return ChangeConfig
	}
	if !w.underRoot(event.Name) {
		return 0
	}
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				slog.Warn("Failed to watch new directory", logfields.Path(event.Name), logfields.Error(err))
			}
			return ChangeContent
		}
	}
	if content.IsContentFile(event.Name) || event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		return ChangeContent
	}
	return 0
}

func (w *Watcher) underRoot(path string) bool {
	for _, root := range w.roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) schedule(kind ChangeKind) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.pending |= kind
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	kind := w.pending
	w.pending = 0
	stopped := w.stopped
	w.mu.Unlock()
	if kind != 0 && !stopped {
		w.onChange(kind)
	}
}
