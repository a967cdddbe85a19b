package settings

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a FileStore when its file is changed by another process
// (for example the softdim CLI).
type Watcher struct {
	watcher  *fsnotify.Watcher
	store    *FileStore
	logger   *slog.Logger
	dispatch func(func())
	onError  func(error)
	done     chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewWatcher creates a watcher for store's backing file. Reloads are handed
// to dispatch so handlers run on the caller's event loop; a nil dispatch runs
// them on the watcher goroutine.
func NewWatcher(store *FileStore, dispatch func(func()), logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dispatch == nil {
		dispatch = func(fn func()) { fn() }
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:  watcher,
		store:    store,
		logger:   logger,
		dispatch: dispatch,
		done:     make(chan struct{}),
	}, nil
}

// SetErrorCallback sets a function called, through dispatch, when the file
// changed but could not be reloaded.
func (w *Watcher) SetErrorCallback(fn func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = fn
}

// Start begins watching the settings file for changes.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	// Watch the directory: saves replace the file via rename
	dir := filepath.Dir(w.store.Path())
	if err := w.watcher.Add(dir); err != nil {
		return err
	}

	go w.watch()
	w.logger.Debug("settings watcher started", "path", w.store.Path())
	return nil
}

func (w *Watcher) watch() {
	filename := filepath.Base(w.store.Path())

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filename {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.dispatch(func() {
					if err := w.store.Reload(); err != nil {
						w.logger.Warn("settings file changed but reload failed", "error", err)
						w.mu.Lock()
						onError := w.onError
						w.mu.Unlock()
						if onError != nil {
							onError(err)
						}
					}
				})
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("settings watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	close(w.done)
	return w.watcher.Close()
}
