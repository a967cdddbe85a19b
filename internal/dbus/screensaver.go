package dbus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
)

// D-Bus names for the GNOME screensaver.
const (
	ScreenSaverDest      = "org.gnome.ScreenSaver"
	ScreenSaverPath      = "/org/gnome/ScreenSaver"
	ScreenSaverInterface = "org.gnome.ScreenSaver"
)

// LockWatcher tracks whether the session is locked.
type LockWatcher struct {
	mu       sync.RWMutex
	conn     *dbus.Conn
	logger   *slog.Logger
	dispatch func(func())

	locked   bool
	onChange func(locked bool)

	signals chan *dbus.Signal
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
}

// NewLockWatcher creates a lock watcher on conn.
func NewLockWatcher(conn *dbus.Conn, dispatch func(func()), logger *slog.Logger) *LockWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if dispatch == nil {
		dispatch = func(fn func()) { fn() }
	}
	return &LockWatcher{
		conn:     conn,
		logger:   logger,
		dispatch: dispatch,
		signals:  make(chan *dbus.Signal, 4),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// SetChangeHandler sets the callback run on the event loop when the lock
// state changes.
func (w *LockWatcher) SetChangeHandler(fn func(locked bool)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start reads the current state and follows ActiveChanged.
func (w *LockWatcher) Start() error {
	rule := fmt.Sprintf("type='signal',path='%s',interface='%s',member='ActiveChanged'", ScreenSaverPath, ScreenSaverInterface)
	if err := w.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, rule).Err; err != nil {
		return fmt.Errorf("failed to add match rule: %w", err)
	}
	w.conn.Signal(w.signals)

	var active bool
	obj := w.conn.Object(ScreenSaverDest, dbus.ObjectPath(ScreenSaverPath))
	if err := obj.Call(ScreenSaverInterface+".GetActive", 0).Store(&active); err != nil {
		w.logger.Warn("failed to get screensaver state, assuming unlocked", "error", err)
	} else {
		w.set(active)
	}

	w.started = true
	go w.run()
	return nil
}

// Stop stops following changes.
func (w *LockWatcher) Stop() {
	if !w.started {
		return
	}
	select {
	case <-w.stopCh:
		return
	default:
	}
	close(w.stopCh)
	w.conn.RemoveSignal(w.signals)
	<-w.doneCh
}

// Locked reports the last known lock state.
func (w *LockWatcher) Locked() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.locked
}

func (w *LockWatcher) run() {
	defer close(w.doneCh)
	for {
		select {
		case <-w.stopCh:
			return
		case sig, ok := <-w.signals:
			if !ok {
				return
			}
			if active, ok := activeChanged(sig); ok {
				w.set(active)
			}
		}
	}
}

func (w *LockWatcher) set(locked bool) {
	w.mu.Lock()
	changed := w.locked != locked
	w.locked = locked
	fn := w.onChange
	w.mu.Unlock()

	if !changed {
		return
	}
	w.logger.Debug("screensaver state changed", "locked", locked)
	if fn != nil {
		w.dispatch(func() { fn(locked) })
	}
}

// activeChanged decodes an ActiveChanged signal.
func activeChanged(sig *dbus.Signal) (bool, bool) {
	if sig.Name != ScreenSaverInterface+".ActiveChanged" || sig.Path != ScreenSaverPath {
		return false, false
	}
	if len(sig.Body) < 1 {
		return false, false
	}
	active, ok := sig.Body[0].(bool)
	return active, ok
}
