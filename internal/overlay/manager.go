// Package overlay owns the set of dimming surfaces, one per selected monitor,
// and the compositor bypass state that goes with them.
package overlay

import (
	"errors"
	"log/slog"

	"github.com/jmylchreest/softdim/internal/monitor"
)

// MaxOpacity is the fully opaque alpha, matching the compositor's 8-bit scale.
const MaxOpacity = 255.0

// OpacityFor maps an effective brightness to an overlay alpha.
func OpacityFor(brightness float64) float64 {
	return (1 - brightness) * MaxOpacity
}

// Surface is one non-interactive topmost overlay covering a monitor.
type Surface interface {
	// SetOpacity sets the alpha in [0, MaxOpacity].
	SetOpacity(alpha float64)
	Destroy()
}

// SurfaceHost creates overlay surfaces.
type SurfaceHost interface {
	CreateSurface(m monitor.Handle) (Surface, error)
}

// Selector returns the monitors that should carry an overlay.
type Selector interface {
	Select() ([]monitor.Handle, error)
}

// Manager owns the overlay set. It is not safe for concurrent use; every
// call happens on the event loop.
type Manager struct {
	host     SurfaceHost
	selector Selector
	policy   *Policy
	logger   *slog.Logger

	// overlays is nil when no set exists; an empty non-nil slice is a built
	// set for an empty selection.
	overlays []Surface
	opacity  float64
}

// NewManager creates an overlay manager.
func NewManager(host SurfaceHost, selector Selector, policy *Policy, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		host:     host,
		selector: selector,
		policy:   policy,
		logger:   logger,
	}
}

// Count returns the number of live overlays.
func (m *Manager) Count() int {
	return len(m.overlays)
}

// Built reports whether an overlay set currently exists.
func (m *Manager) Built() bool {
	return m.overlays != nil
}

// Opacity returns the alpha last applied, or 0 when no set exists.
func (m *Manager) Opacity() float64 {
	return m.opacity
}

// Apply shows the overlays at alpha. The set is rebuilt when none exists or
// force is set; otherwise only opacity changes. If the selection is not
// ready the call does nothing.
func (m *Manager) Apply(alpha float64, force bool) {
	alpha = min(MaxOpacity, max(0, alpha))
	m.logger.Debug("apply overlays", "opacity", alpha, "force", force)

	if m.overlays == nil || force {
		selected, err := m.selector.Select()
		if err != nil {
			if errors.Is(err, monitor.ErrNotReady) {
				m.logger.Debug("monitor selection not ready, skipping run")
			} else {
				m.logger.Warn("cannot select monitors", "error", err)
			}
			return
		}
		m.rebuild(selected, alpha)
		return
	}

	if alpha == m.opacity {
		return
	}
	m.policy.Evaluate(len(m.overlays) > 0 && alpha > 0, false)
	m.setOpacity(alpha)
}

func (m *Manager) rebuild(selected []monitor.Handle, alpha float64) {
	m.destroyAll()

	overlays := make([]Surface, 0, len(selected))
	for i, mon := range selected {
		m.logger.Debug("create overlay", "overlay", i, "monitor", mon.Index, "geometry", mon.Geometry.String())
		surface, err := m.host.CreateSurface(mon)
		if err != nil {
			m.logger.Warn("failed to create overlay", "monitor", mon.Index, "connector", mon.Connector, "error", err)
			continue
		}
		overlays = append(overlays, surface)
	}
	m.overlays = overlays

	// New surfaces are transparent, so suppression still lands before any
	// dimming is visible.
	m.policy.Evaluate(len(overlays) > 0 && alpha > 0, false)
	m.setOpacity(alpha)
}

func (m *Manager) setOpacity(alpha float64) {
	for i, s := range m.overlays {
		m.logger.Debug("set opacity", "overlay", i, "opacity", alpha)
		s.SetOpacity(alpha)
	}
	m.opacity = alpha
}

// Clear destroys every overlay and re-evaluates bypass suppression with
// dimming inactive. forceRelease turns suppression off whatever the mode.
func (m *Manager) Clear(forceRelease bool) {
	m.destroyAll()
	m.policy.Evaluate(false, forceRelease)
}

func (m *Manager) destroyAll() {
	if m.overlays != nil {
		m.logger.Debug("drop overlays", "count", len(m.overlays))
	}
	for _, s := range m.overlays {
		s.Destroy()
	}
	m.overlays = nil
	m.opacity = 0
}
