package dbus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
)

// D-Bus names for the GNOME settings daemon power plugin.
const (
	PowerDest            = "org.gnome.SettingsDaemon.Power"
	PowerPath            = "/org/gnome/SettingsDaemon/Power"
	PowerScreenInterface = "org.gnome.SettingsDaemon.Power.Screen"
	brightnessProperty   = "Brightness"
)

// PowerProxy caches the screen brightness property and follows its changes.
// It satisfies both the backlight and event source contracts of the daemon.
type PowerProxy struct {
	mu       sync.RWMutex
	conn     *dbus.Conn
	logger   *slog.Logger
	dispatch func(func())

	percent int
	known   bool

	subs    map[int]func()
	nextSub int

	signals chan *dbus.Signal
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
}

// NewPowerProxy creates a proxy on conn. Change subscribers are called
// through dispatch.
func NewPowerProxy(conn *dbus.Conn, dispatch func(func()), logger *slog.Logger) *PowerProxy {
	if logger == nil {
		logger = slog.Default()
	}
	if dispatch == nil {
		dispatch = func(fn func()) { fn() }
	}
	return &PowerProxy{
		conn:     conn,
		logger:   logger,
		dispatch: dispatch,
		subs:     make(map[int]func()),
		signals:  make(chan *dbus.Signal, 16),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start fetches the initial value and begins following changes. A missing
// settings daemon is not an error; the value stays unknown until it appears.
func (p *PowerProxy) Start() error {
	rules := []string{
		fmt.Sprintf("type='signal',path='%s',interface='org.freedesktop.DBus.Properties',member='PropertiesChanged'", PowerPath),
		fmt.Sprintf("type='signal',interface='org.freedesktop.DBus',member='NameOwnerChanged',arg0='%s'", PowerDest),
	}
	for _, rule := range rules {
		if err := p.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, rule).Err; err != nil {
			return fmt.Errorf("failed to add match rule: %w", err)
		}
	}
	p.conn.Signal(p.signals)

	if err := p.refresh(); err != nil {
		p.logger.Warn("failed to get initial brightness", "error", err)
	}

	p.started = true
	go p.run()
	p.logger.Info("following screen brightness", "dest", PowerDest)
	return nil
}

// Stop stops following changes.
func (p *PowerProxy) Stop() {
	if !p.started {
		return
	}
	select {
	case <-p.stopCh:
		return
	default:
	}
	close(p.stopCh)
	p.conn.RemoveSignal(p.signals)
	<-p.doneCh
}

func (p *PowerProxy) run() {
	defer close(p.doneCh)
	for {
		select {
		case <-p.stopCh:
			return
		case sig, ok := <-p.signals:
			if !ok {
				return
			}
			p.handleSignal(sig)
		}
	}
}

func (p *PowerProxy) handleSignal(sig *dbus.Signal) {
	switch sig.Name {
	case "org.freedesktop.DBus.NameOwnerChanged":
		if len(sig.Body) < 3 {
			return
		}
		name, _ := sig.Body[0].(string)
		owner, _ := sig.Body[2].(string)
		if name != PowerDest {
			return
		}
		if owner == "" {
			p.logger.Info("settings daemon went away, brightness unknown")
			p.update(0, false)
			return
		}
		if err := p.refresh(); err != nil {
			p.logger.Warn("failed to resync brightness", "error", err)
		}

	case "org.freedesktop.DBus.Properties.PropertiesChanged":
		if sig.Path != PowerPath {
			return
		}
		percent, known, relevant := brightnessChange(sig.Body)
		if !relevant {
			return
		}
		if known {
			p.update(percent, percent >= 0)
			return
		}
		// Invalidated without a value
		if err := p.refresh(); err != nil {
			p.logger.Warn("failed to resync brightness", "error", err)
		}
	}
}

// refresh reads the property from the bus.
func (p *PowerProxy) refresh() error {
	obj := p.conn.Object(PowerDest, dbus.ObjectPath(PowerPath))
	variant, err := obj.GetProperty(PowerScreenInterface + "." + brightnessProperty)
	if err != nil {
		p.update(0, false)
		return fmt.Errorf("failed to get brightness property: %w", err)
	}
	percent, ok := variantPercent(variant)
	if !ok {
		p.update(0, false)
		return fmt.Errorf("invalid brightness type: %T", variant.Value())
	}
	p.update(percent, percent >= 0)
	return nil
}

// update stores a new value and notifies subscribers if it changed.
func (p *PowerProxy) update(percent int, known bool) {
	p.mu.Lock()
	if !known {
		percent = 0
	}
	changed := p.known != known || p.percent != percent
	p.percent = percent
	p.known = known
	subs := make([]func(), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	if !changed {
		return
	}
	p.logger.Debug("brightness changed", "percent", percent, "known", known)
	for _, fn := range subs {
		p.dispatch(fn)
	}
}

// Brightness returns the cached percentage and whether it is known.
func (p *PowerProxy) Brightness() (int, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.percent, p.known
}

// SetBrightness writes the property. The cache is updated on success so
// reads in the same pass see the new value.
func (p *PowerProxy) SetBrightness(percent int) error {
	percent = min(100, max(0, percent))
	obj := p.conn.Object(PowerDest, dbus.ObjectPath(PowerPath))
	err := obj.SetProperty(PowerScreenInterface+"."+brightnessProperty, dbus.MakeVariant(int32(percent)))
	if err != nil {
		return fmt.Errorf("failed to set brightness property: %w", err)
	}
	p.update(percent, true)
	return nil
}

// Subscribe registers fn for value changes.
func (p *PowerProxy) Subscribe(fn func()) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

// brightnessChange extracts the brightness from a PropertiesChanged body.
// relevant reports whether the signal concerns the property at all; known
// is false when the property was only invalidated.
func brightnessChange(body []interface{}) (percent int, known, relevant bool) {
	if len(body) < 2 {
		return 0, false, false
	}
	iface, ok := body[0].(string)
	if !ok || iface != PowerScreenInterface {
		return 0, false, false
	}
	if changed, ok := body[1].(map[string]dbus.Variant); ok {
		if v, ok := changed[brightnessProperty]; ok {
			percent, ok := variantPercent(v)
			return percent, ok, ok
		}
	}
	if len(body) > 2 {
		if invalidated, ok := body[2].([]string); ok {
			for _, name := range invalidated {
				if name == brightnessProperty {
					return 0, false, true
				}
			}
		}
	}
	return 0, false, false
}

func variantPercent(v dbus.Variant) (int, bool) {
	switch n := v.Value().(type) {
	case int32:
		return int(n), true
	case uint32:
		return int(n), true
	case int64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}
