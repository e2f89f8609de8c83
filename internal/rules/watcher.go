package rules

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Veraticus/studyflow/internal/model"
)

// ReloadFunc receives each successfully parsed rule set.
type ReloadFunc func(*model.RuleSet)

// WatcherStats tracks watcher activity.
type WatcherStats struct {
	LastReload time.Time
	LastError  error
	Events     int
	Reloads    int
	Failures   int
}

// Watcher reloads a rules file when it changes on disk. Parse failures are logged and the
// previous rule set stays in effect.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	onReload    ReloadFunc
	logger      *slog.Logger
	stopCh      chan struct{}
	doneCh      chan struct{}
	pendingAt   time.Time
	path        string
	debounceDur time.Duration
	stats       WatcherStats
	pending     bool
	running     bool
}

// WatcherOption customizes a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long the file must be quiet before it is reloaded.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounceDur = d
		}
	}
}

// WithWatcherLogger sets the logger.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher creates a watcher for the rules file at path.
func NewWatcher(path string, onReload ReloadFunc, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve rules path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		watcher:     fw,
		onReload:    onReload,
		logger:      slog.Default(),
		path:        abs,
		debounceDur: 500 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins watching. It is non-blocking; events are handled on a background goroutine
// until Stop is called or ctx is canceled.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	// Watch the directory: editors often replace the file by rename, which drops a file watch.
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return fmt.Errorf("failed to watch rules directory: %w", err)
	}

	w.logger.Info("Watching rules file", "path", w.path)
	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		_ = w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.logger.Error("Failed to close rules watcher", "error", err)
	}
}

// Stats returns a copy of the watcher statistics.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounceDur / 4
	if tick <= 0 {
		tick = time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Rules watcher error", "error", err)

		case <-ticker.C:
			w.reloadIfQuiet()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return
	}

	w.mu.Lock()
	w.stats.Events++
	w.pending = true
	w.pendingAt = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) reloadIfQuiet() {
	w.mu.Lock()
	if !w.pending || time.Since(w.pendingAt) < w.debounceDur {
		w.mu.Unlock()
		return
	}
	w.pending = false
	w.mu.Unlock()

	rs, err := LoadFile(w.path)

	w.mu.Lock()
	if err != nil {
		w.stats.Failures++
		w.stats.LastError = err
	} else {
		w.stats.Reloads++
		w.stats.LastReload = time.Now()
		w.stats.LastError = nil
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Warn("Rules reload failed, keeping previous rules", "path", w.path, "error", err)
		return
	}

	w.logger.Info("Rules reloaded",
		"path", w.path,
		"version", rs.Version,
		"categories", len(rs.Values()),
		"rules", rs.RuleCount())

	if w.onReload != nil {
		w.onReload(rs)
	}
}
