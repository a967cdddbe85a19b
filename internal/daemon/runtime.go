package daemon

import (
	"crypto/rand"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/softdim/internal/config"
	"github.com/jmylchreest/softdim/internal/settings"
)

// LockState reports whether the session is showing the lock screen.
type LockState interface {
	Locked() bool
}

// Runtime owns the single active Controller for the process, plus the
// settings that govern the daemon itself (enabled, debug).
type Runtime struct {
	deps   Deps
	lock   LockState
	level  *slog.LevelVar
	logger *slog.Logger

	controller *Controller
	session    string
	handlers   []settings.HandlerID
}

// NewRuntime creates a runtime. lock and level may be nil.
func NewRuntime(deps Deps, lock LockState, level *slog.LevelVar) *Runtime {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Runtime{
		deps:   deps,
		lock:   lock,
		level:  level,
		logger: deps.Logger,
	}
}

// Start applies the debug setting, follows the enabled and debug keys, and
// enables dimming if the enabled setting is set.
func (r *Runtime) Start() error {
	r.applyDebug()
	r.handlers = append(r.handlers,
		r.deps.Settings.Connect(config.KeyDebug, r.applyDebug),
		r.deps.Settings.Connect(config.KeyEnabled, r.onEnabledChange),
	)
	if !r.deps.Settings.Bool(config.KeyEnabled) {
		r.logger.Info("dimming disabled by settings")
		return nil
	}
	return r.Enable()
}

// Controller returns the active controller, or nil.
func (r *Runtime) Controller() *Controller {
	return r.controller
}

// Session returns the id of the active enable cycle, or "".
func (r *Runtime) Session() string {
	return r.session
}

// Enable creates and enables a controller if none is active.
func (r *Runtime) Enable() error {
	if r.controller != nil {
		return nil
	}

	session := newSessionID()
	deps := r.deps
	deps.Logger = r.logger.With("session", session)

	c := NewController(deps)
	if err := c.Enable(); err != nil {
		return err
	}
	r.controller = c
	r.session = session
	r.logger.Info("dimming enabled", "session", session)
	return nil
}

// Disable tears down the active controller. It does nothing while the
// session is locked so the lock screen is not disturbed.
func (r *Runtime) Disable() {
	if r.Locked() {
		r.logger.Debug("session locked, keeping dimming enabled")
		return
	}
	r.release()
}

// Shutdown disables regardless of lock state and stops following settings.
func (r *Runtime) Shutdown() {
	for _, id := range r.handlers {
		r.deps.Settings.Disconnect(id)
	}
	r.handlers = nil
	r.release()
}

// Locked reports whether the session is currently locked.
func (r *Runtime) Locked() bool {
	return r.lock != nil && r.lock.Locked()
}

// OnLockChanged applies a disable that was skipped while locked.
func (r *Runtime) OnLockChanged(locked bool) {
	r.logger.Debug("lock state changed", "locked", locked)
	if !locked && r.controller != nil && !r.deps.Settings.Bool(config.KeyEnabled) {
		r.release()
	}
}

func (r *Runtime) release() {
	if r.controller == nil {
		return
	}
	r.controller.Disable()
	r.logger.Info("dimming disabled", "session", r.session)
	r.controller = nil
	r.session = ""
}

func (r *Runtime) onEnabledChange() {
	if !r.deps.Settings.Bool(config.KeyEnabled) {
		r.Disable()
		return
	}
	if err := r.Enable(); err != nil {
		r.logger.Warn("failed to enable dimming", "error", err)
	}
}

func (r *Runtime) applyDebug() {
	if r.level == nil {
		return
	}
	if r.deps.Settings.Bool(config.KeyDebug) {
		r.level.Set(slog.LevelDebug)
	} else {
		r.level.Set(slog.LevelInfo)
	}
}

func newSessionID() string {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return ""
	}
	return id.String()
}
