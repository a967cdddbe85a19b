package display

import (
	"fmt"
	"log/slog"

	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/cairo"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/softdim/internal/monitor"
	"github.com/jmylchreest/softdim/internal/overlay"
)

// OverlayClass is the CSS class on every dimming surface.
const OverlayClass = "softdim-overlay"

// OverlayHost creates dimming surfaces as layer-shell windows on the overlay
// layer.
type OverlayHost struct {
	app      *gtk.Application
	topology *Topology
	logger   *slog.Logger
}

// NewOverlayHost creates a host for app's windows.
func NewOverlayHost(app *gtk.Application, topology *Topology, logger *slog.Logger) (*OverlayHost, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !layershell.IsSupported() {
		return nil, &DisplayError{Message: "compositor does not support wlr-layer-shell"}
	}
	return &OverlayHost{
		app:      app,
		topology: topology,
		logger:   logger,
	}, nil
}

// CreateSurface covers the monitor with a black, click-through window. It
// starts fully transparent.
func (h *OverlayHost) CreateSurface(m monitor.Handle) (overlay.Surface, error) {
	mon := h.topology.gdkMonitor(m.Index)
	if mon == nil {
		return nil, &DisplayError{Message: fmt.Sprintf("monitor %d not found", m.Index)}
	}

	window := newLayerWindow(h.app, mon, "softdim-overlay")
	for _, edge := range []layershell.LayerShellEdge{
		layershell.LayerShellEdgeTop,
		layershell.LayerShellEdgeBottom,
		layershell.LayerShellEdgeLeft,
		layershell.LayerShellEdgeRight,
	} {
		layershell.SetAnchor(window, edge, true)
	}
	// Cover panels and docks too
	layershell.SetExclusiveZone(window, -1)
	window.SetDefaultSize(m.Geometry.Width, m.Geometry.Height)
	window.AddCSSClass(OverlayClass)
	window.SetOpacity(0)
	window.Present()

	h.logger.Debug("overlay created", "monitor", m.Index, "connector", m.Connector, "geometry", m.Geometry.String())
	return &overlaySurface{window: window}, nil
}

type overlaySurface struct {
	window *gtk.Window
}

func (s *overlaySurface) SetOpacity(alpha float64) {
	s.window.SetOpacity(alpha / overlay.MaxOpacity)
}

func (s *overlaySurface) Destroy() {
	s.window.Destroy()
}

// newLayerWindow creates an undecorated overlay-layer window on mon that
// never takes keyboard focus or pointer input.
func newLayerWindow(app *gtk.Application, mon *gdk.Monitor, namespace string) *gtk.Window {
	window := gtk.NewWindow()
	window.SetApplication(app)
	window.SetDecorated(false)
	window.SetResizable(false)
	window.SetCanTarget(false)
	window.SetFocusable(false)

	layershell.InitForWindow(window)
	layershell.SetLayer(window, layershell.LayerShellLayerOverlay)
	layershell.SetKeyboardMode(window, layershell.LayerShellKeyboardModeNone)
	layershell.SetNamespace(window, namespace)
	layershell.SetMonitor(window, mon)

	// An empty input region lets the pointer pass through to what is below
	window.ConnectRealize(func() {
		surface := gdk.BaseSurface(window.Surface())
		if surface != nil {
			surface.SetInputRegion(cairo.RegionCreate())
		}
	})
	return window
}
