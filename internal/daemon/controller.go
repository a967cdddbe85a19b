package daemon

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jmylchreest/softdim/internal/brightness"
	"github.com/jmylchreest/softdim/internal/config"
	"github.com/jmylchreest/softdim/internal/monitor"
	"github.com/jmylchreest/softdim/internal/overlay"
	"github.com/jmylchreest/softdim/internal/settings"
)

var (
	// ErrNoDisplay is returned by Enable when there is no display to draw on.
	ErrNoDisplay = errors.New("no display available")

	// ErrNoDispatcher is returned by Enable when identities are queried
	// asynchronously but there is no way back onto the event loop.
	ErrNoDispatcher = errors.New("identity source requires a dispatcher")
)

// EventSource delivers change notifications on the event loop.
type EventSource interface {
	// Subscribe registers fn and returns a function that removes it.
	Subscribe(fn func()) (unsubscribe func())
}

// Deps are the collaborators a Controller drives. Settings, Topology and
// Surfaces are required; the rest may be nil.
type Deps struct {
	Settings settings.Store

	Backlight       brightness.Backlight
	BacklightEvents EventSource

	Topology       monitor.Topology
	TopologyEvents EventSource
	Identities     monitor.IdentitySource

	Surfaces overlay.SurfaceHost
	Bypass   overlay.BypassControl

	// Dispatch runs a function on the event loop. Required when Identities
	// is set, since identity queries complete on another goroutine.
	Dispatch func(func())
	Logger   *slog.Logger
}

// Controller reconciles brightness, monitor topology and settings into the
// overlay set. All methods must be called on the event loop.
type Controller struct {
	deps   Deps
	logger *slog.Logger

	// Valid while enabled
	ctx         context.Context
	cancel      context.CancelFunc
	store       *brightness.Store
	resolver    *monitor.Resolver
	overlays    *overlay.Manager
	handlers    []settings.HandlerID
	unsubscribe []func()
	enabled     bool

	// Set while the selected backlight has not reported its first value
	awaitingBacklight bool

	// Coalesces handlers that fire while a pass is running
	reconciling  bool
	pending      bool
	pendingForce bool
}

// NewController creates a disabled controller.
func NewController(deps Deps) *Controller {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Controller{
		deps:   deps,
		logger: deps.Logger,
	}
}

// Enabled reports whether the controller is active.
func (c *Controller) Enabled() bool {
	return c.enabled
}

// Overlays returns the overlay manager, or nil while disabled.
func (c *Controller) Overlays() *overlay.Manager {
	return c.overlays
}

// Brightness returns the brightness store, or nil while disabled.
func (c *Controller) Brightness() *brightness.Store {
	return c.store
}

// Enable subscribes to every change source and runs the first pass. It is a
// no-op when already enabled. ErrNoDisplay is returned before anything is
// subscribed.
func (c *Controller) Enable() error {
	if c.enabled {
		return nil
	}
	if c.deps.Topology == nil || c.deps.Surfaces == nil {
		c.logger.Warn("cannot enable, no display available")
		return ErrNoDisplay
	}
	if c.deps.Identities != nil && c.deps.Dispatch == nil {
		c.logger.Warn("cannot enable, identity source without dispatcher")
		return ErrNoDispatcher
	}

	c.logger.Debug("enable")
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.store = brightness.NewStore(c.deps.Settings, c.deps.Backlight, c.logger)
	c.resolver = monitor.NewResolver(c.deps.Topology, c.deps.Identities, c.deps.Settings, c.deps.Dispatch, c.logger)
	policy := overlay.NewPolicy(c.deps.Bypass, c.deps.Settings, c.logger)
	c.overlays = overlay.NewManager(c.deps.Surfaces, c.resolver, policy, c.logger)

	c.connect(config.KeyMinBrightness, func() { c.OnBrightnessChange(false) })
	c.connect(config.KeyCurrentBrightness, func() { c.OnBrightnessChange(false) })
	c.connect(config.KeyMonitors, func() { c.OnBrightnessChange(true) })
	c.connect(config.KeyBuiltinMonitor, func() { c.OnBrightnessChange(true) })
	c.connect(config.KeyUseBacklight, c.OnBackendToggle)
	c.connect(config.KeyPreventUnredirect, func() { c.OnBrightnessChange(true) })

	if c.deps.BacklightEvents != nil {
		c.unsubscribe = append(c.unsubscribe, c.deps.BacklightEvents.Subscribe(c.onBacklightChange))
	}
	if c.deps.TopologyEvents != nil {
		c.unsubscribe = append(c.unsubscribe, c.deps.TopologyEvents.Subscribe(c.OnTopologyChange))
	}
	c.enabled = true

	// A selected backlight that has not reported yet will emit its first
	// value later and trigger the pass then.
	c.awaitingBacklight = c.store.HardwarePending()
	if c.awaitingBacklight {
		c.logger.Debug("backlight not ready, deferring first pass")
	}

	c.OnTopologyChange()
	c.OnBrightnessChange(false)
	return nil
}

func (c *Controller) onBacklightChange() {
	if c.awaitingBacklight && !c.store.HardwarePending() {
		c.logger.Debug("backlight reported, running deferred pass")
		c.awaitingBacklight = false
		c.OnBrightnessChange(true)
		return
	}
	c.OnBrightnessChange(false)
}

func (c *Controller) connect(key config.Key, fn func()) {
	c.handlers = append(c.handlers, c.deps.Settings.Connect(key, fn))
}

// Disable drops every subscription, then removes all overlays and releases
// bypass suppression. Pending identity queries are discarded.
func (c *Controller) Disable() {
	if !c.enabled {
		return
	}
	c.logger.Debug("disable")

	for _, id := range c.handlers {
		c.deps.Settings.Disconnect(id)
	}
	c.handlers = nil
	for _, unsubscribe := range c.unsubscribe {
		unsubscribe()
	}
	c.unsubscribe = nil
	c.cancel()

	c.overlays.Clear(true)
	c.enabled = false
	c.awaitingBacklight = false
	c.pending = false
	c.pendingForce = false
}

// OnBrightnessChange recomputes the effective brightness and updates the
// overlays. force rebuilds the overlay set. Nothing is rendered until a
// selected backlight has reported.
func (c *Controller) OnBrightnessChange(force bool) {
	if !c.enabled {
		return
	}
	if c.awaitingBacklight {
		c.logger.Debug("backlight not ready, skipping pass")
		return
	}
	if c.reconciling {
		c.pending = true
		c.pendingForce = c.pendingForce || force
		return
	}

	c.reconciling = true
	defer func() { c.reconciling = false }()
	for {
		c.reconcile(force)
		if !c.pending || !c.enabled {
			break
		}
		force = c.pendingForce
		c.pending = false
		c.pendingForce = false
	}
}

func (c *Controller) reconcile(force bool) {
	current := c.store.Get()
	floor := c.store.Minimum()
	c.logger.Debug("brightness change", "current-brightness", current, "min-brightness", floor, "force", force)

	if current < floor {
		c.logger.Debug("brightness below minimum, clamping", "current-brightness", current, "min-brightness", floor)
		c.store.Set(floor)
		current = floor
	}

	if current >= 1 {
		c.overlays.Clear(false)
		return
	}
	c.overlays.Apply(overlay.OpacityFor(current), force)
}

// OnTopologyChange re-resolves monitor identities; the overlay set is
// rebuilt once they arrive.
func (c *Controller) OnTopologyChange() {
	if !c.enabled {
		return
	}
	c.logger.Debug("monitors changed")
	if c.deps.Identities == nil {
		c.OnBrightnessChange(true)
		return
	}
	c.resolver.Resolve(c.ctx, func() { c.OnBrightnessChange(true) })
}

// OnBackendToggle carries brightness across a use-backlight change.
func (c *Controller) OnBackendToggle() {
	if !c.enabled {
		return
	}
	c.store.OnBackendToggle()
	if c.awaitingBacklight && !c.store.HardwarePending() {
		c.awaitingBacklight = false
		c.OnBrightnessChange(true)
		return
	}
	c.OnBrightnessChange(false)
}
