package theme

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Watcher polls a user theme file and reports new CSS.
type Watcher struct {
	mu     sync.RWMutex
	logger *slog.Logger

	theme        *Theme
	pollInterval time.Duration
	onChange     func(css string)

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewWatcher creates a watcher for theme.
func NewWatcher(theme *Theme, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		logger:       logger,
		theme:        theme,
		pollInterval: time.Second,
	}
}

// SetPollInterval sets the polling interval.
func (w *Watcher) SetPollInterval(interval time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pollInterval = interval
}

// SetChangeCallback sets the callback that receives reloaded CSS. It runs
// on the watcher goroutine.
func (w *Watcher) SetChangeCallback(fn func(css string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start begins polling. Bundled themes are never watched.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running || w.theme.Embedded {
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	go w.loop(ctx, w.pollInterval)
	w.logger.Debug("theme watcher started", "path", w.theme.Path, "interval", w.pollInterval)
}

// Stop stops polling and waits for the goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()
	<-w.doneCh
}

func (w *Watcher) loop(ctx context.Context, interval time.Duration) {
	defer close(w.doneCh)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *Watcher) check() {
	w.mu.RLock()
	theme := w.theme
	fn := w.onChange
	w.mu.RUnlock()

	if _, err := os.Stat(theme.Path); err != nil {
		return
	}
	changed, err := theme.Reload()
	if err != nil {
		w.logger.Warn("failed to reload theme", "path", theme.Path, "error", err)
		return
	}
	if changed && fn != nil {
		w.logger.Info("theme file changed", "path", theme.Path)
		fn(theme.CSS)
	}
}
