// Package monitor maps transient per-session monitor handles to stable
// monitor identities and selects which monitors should be dimmed.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotReady means classification needs identities that are not
	// available yet. The caller should skip this pass.
	ErrNotReady = errors.New("monitor identities not ready")

	// ErrUnknownSelection means the monitors setting holds an unknown value.
	ErrUnknownSelection = errors.New("unknown monitor selection")
)

// Rect is a monitor's geometry in layout coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d@%d,%d", r.Width, r.Height, r.X, r.Y)
}

// Handle is an in-session monitor reference. Indices are reassigned whenever
// the topology changes.
type Handle struct {
	Index     int
	Geometry  Rect
	Connector string
}

// Identity is a stable monitor identity.
type Identity struct {
	Name      string // e.g. "Built-in display" or "Dell Inc. 27\""
	Connector string // e.g. "eDP-1"
}

// Topology is the synchronous view of the active monitors.
type Topology interface {
	// Monitors lists the active monitors ordered by index.
	Monitors() []Handle
	// PrimaryIndex returns the index of the primary monitor.
	PrimaryIndex() int
	// MonitorForConnector returns the index for a connector name, or -1.
	MonitorForConnector(connector string) int
}

// IdentitySource resolves the identities of the connected monitors.
// QueryMonitors may block and is always called off the event loop.
type IdentitySource interface {
	QueryMonitors(ctx context.Context) ([]Identity, error)
}

// ModelName builds a monitor name from EDID manufacturer and model strings,
// falling back to the connector when both are empty.
func ModelName(manufacturer, model, connector string) string {
	name := strings.TrimSpace(strings.TrimSpace(manufacturer) + " " + strings.TrimSpace(model))
	if name == "" {
		return connector
	}
	return name
}
