package display

import (
	"context"
	"log/slog"
	"unsafe"

	"github.com/diamondburned/gotk4/pkg/core/glib"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"

	"github.com/jmylchreest/softdim/internal/monitor"
)

// Topology is the GDK view of the connected monitors. It must be used on
// the GTK main loop.
type Topology struct {
	display *gdk.Display
	logger  *slog.Logger

	monitors []*gdk.Monitor
	changed  glib.SignalHandle
	watching bool

	subs    map[int]func()
	nextSub int
}

// NewTopology reads the monitors of the default display.
func NewTopology(logger *slog.Logger) (*Topology, error) {
	if logger == nil {
		logger = slog.Default()
	}
	display := gdk.DisplayGetDefault()
	if display == nil {
		return nil, &DisplayError{Message: "no display available"}
	}
	t := &Topology{
		display: display,
		logger:  logger,
		subs:    make(map[int]func()),
	}
	t.refresh()
	return t, nil
}

// Start follows monitor hotplug.
func (t *Topology) Start() {
	if t.watching {
		return
	}
	t.changed = t.display.Monitors().ConnectItemsChanged(func(position, removed, added uint) {
		t.refresh()
		t.logger.Info("monitor configuration changed", "count", len(t.monitors), "added", added, "removed", removed)
		for _, fn := range t.subscribers() {
			fn()
		}
	})
	t.watching = true
}

// Stop stops following monitor hotplug.
func (t *Topology) Stop() {
	if !t.watching {
		return
	}
	t.display.Monitors().HandlerDisconnect(t.changed)
	t.watching = false
}

func (t *Topology) refresh() {
	list := t.display.Monitors()
	n := list.NItems()
	monitors := make([]*gdk.Monitor, 0, n)
	for i := uint(0); i < n; i++ {
		if m := wrapMonitor(list.Item(i)); m != nil {
			monitors = append(monitors, m)
		}
	}
	t.monitors = monitors
}

func (t *Topology) subscribers() []func() {
	subs := make([]func(), 0, len(t.subs))
	for _, fn := range t.subs {
		subs = append(subs, fn)
	}
	return subs
}

// Subscribe registers fn for topology changes.
func (t *Topology) Subscribe(fn func()) func() {
	id := t.nextSub
	t.nextSub++
	t.subs[id] = fn
	return func() { delete(t.subs, id) }
}

// Monitors lists the active monitors ordered by index.
func (t *Topology) Monitors() []monitor.Handle {
	handles := make([]monitor.Handle, 0, len(t.monitors))
	for i, m := range t.monitors {
		geo := m.Geometry()
		handles = append(handles, monitor.Handle{
			Index: i,
			Geometry: monitor.Rect{
				X:      geo.X(),
				Y:      geo.Y(),
				Width:  geo.Width(),
				Height: geo.Height(),
			},
			Connector: m.Connector(),
		})
	}
	return handles
}

// PrimaryIndex returns 0. GDK 4 has no primary monitor, and compositors list
// the built-in panel first.
func (t *Topology) PrimaryIndex() int {
	return 0
}

// MonitorForConnector returns the index of the monitor on connector, or -1.
func (t *Topology) MonitorForConnector(connector string) int {
	for i, m := range t.monitors {
		if m.Connector() == connector {
			return i
		}
	}
	return -1
}

// gdkMonitor returns the GDK monitor at index, or nil.
func (t *Topology) gdkMonitor(index int) *gdk.Monitor {
	if index < 0 || index >= len(t.monitors) {
		return nil
	}
	return t.monitors[index]
}

// QueryMonitors names monitors from their EDID strings. It is the identity
// source when Mutter's DisplayConfig is not on the bus. The GDK calls are
// marshalled onto the main loop.
func (t *Topology) QueryMonitors(ctx context.Context) ([]monitor.Identity, error) {
	result := make(chan []monitor.Identity, 1)
	glib.IdleAdd(func() {
		identities := make([]monitor.Identity, 0, len(t.monitors))
		for _, m := range t.monitors {
			connector := m.Connector()
			identities = append(identities, monitor.Identity{
				Name:      monitor.ModelName(m.Manufacturer(), m.Model(), connector),
				Connector: connector,
			})
		}
		result <- identities
	})

	select {
	case identities := <-result:
		return identities, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// wrapMonitor wraps a glib.Object as a gdk.Monitor.
// gotk4 doesn't export its own wrapper for list model items.
func wrapMonitor(obj *glib.Object) *gdk.Monitor {
	if obj == nil {
		return nil
	}
	type gdkMonitor struct {
		_ [0]func()
		*glib.Object
	}
	m := &gdkMonitor{Object: obj}
	return (*gdk.Monitor)(unsafe.Pointer(m))
}

// DisplayError represents a display-related error.
type DisplayError struct {
	Message string
	Cause   error
}

func (e *DisplayError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *DisplayError) Unwrap() error {
	return e.Cause
}
