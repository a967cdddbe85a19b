package display

import (
	"log/slog"

	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
)

// BypassInhibitor keeps the compositor from scanning a fullscreen client out
// directly by placing a tiny transparent overlay-layer surface on every
// monitor. Direct scanout needs the client to be the only visible surface on
// the output, so the inhibitors force composition and keep the dimming
// overlays on screen.
type BypassInhibitor struct {
	app      *gtk.Application
	topology *Topology
	logger   *slog.Logger

	windows     []*gtk.Window
	active      bool
	unsubscribe func()
}

// NewBypassInhibitor creates an inhibitor. It follows topology changes while
// active.
func NewBypassInhibitor(app *gtk.Application, topology *Topology, logger *slog.Logger) *BypassInhibitor {
	if logger == nil {
		logger = slog.Default()
	}
	b := &BypassInhibitor{
		app:      app,
		topology: topology,
		logger:   logger,
	}
	b.unsubscribe = topology.Subscribe(b.onTopologyChange)
	return b
}

// SuppressBypass creates one inhibitor per monitor.
func (b *BypassInhibitor) SuppressBypass() error {
	b.active = true
	b.rebuild()
	b.logger.Debug("bypass suppressed", "monitors", len(b.windows))
	return nil
}

// AllowBypass removes every inhibitor.
func (b *BypassInhibitor) AllowBypass() error {
	b.active = false
	b.destroy()
	b.logger.Debug("bypass allowed")
	return nil
}

// Close removes inhibitors and stops following the topology.
func (b *BypassInhibitor) Close() {
	b.active = false
	b.destroy()
	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}
}

func (b *BypassInhibitor) onTopologyChange() {
	if b.active {
		b.rebuild()
	}
}

func (b *BypassInhibitor) rebuild() {
	b.destroy()
	for i := range b.topology.Monitors() {
		mon := b.topology.gdkMonitor(i)
		if mon == nil {
			continue
		}
		window := newLayerWindow(b.app, mon, "softdim-inhibitor")
		layershell.SetAnchor(window, layershell.LayerShellEdgeTop, true)
		layershell.SetAnchor(window, layershell.LayerShellEdgeLeft, true)
		layershell.SetExclusiveZone(window, 0)
		window.SetDefaultSize(1, 1)
		window.SetSizeRequest(1, 1)
		window.AddCSSClass("softdim-inhibitor")
		window.Present()
		b.windows = append(b.windows, window)
	}
}

func (b *BypassInhibitor) destroy() {
	for _, w := range b.windows {
		w.Destroy()
	}
	b.windows = nil
}
