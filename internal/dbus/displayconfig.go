package dbus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/softdim/internal/monitor"
)

// D-Bus names for Mutter's display configuration service.
const (
	DisplayConfigDest      = "org.gnome.Mutter.DisplayConfig"
	DisplayConfigPath      = "/org/gnome/Mutter/DisplayConfig"
	DisplayConfigInterface = "org.gnome.Mutter.DisplayConfig"
)

// monitorSpec is (connector, vendor, product, serial).
type monitorSpec struct {
	Connector string
	Vendor    string
	Product   string
	Serial    string
}

type monitorMode struct {
	ID              string
	Width           int32
	Height          int32
	Refresh         float64
	PreferredScale  float64
	SupportedScales []float64
	Properties      map[string]dbus.Variant
}

type physicalMonitor struct {
	Spec       monitorSpec
	Modes      []monitorMode
	Properties map[string]dbus.Variant
}

type logicalMonitor struct {
	X          int32
	Y          int32
	Scale      float64
	Transform  uint32
	Primary    bool
	Monitors   []monitorSpec
	Properties map[string]dbus.Variant
}

// DisplayConfig resolves monitor identities from Mutter.
type DisplayConfig struct {
	conn   *dbus.Conn
	logger *slog.Logger
}

// NewDisplayConfig creates a DisplayConfig client on conn.
func NewDisplayConfig(conn *dbus.Conn, logger *slog.Logger) *DisplayConfig {
	if logger == nil {
		logger = slog.Default()
	}
	return &DisplayConfig{
		conn:   conn,
		logger: logger,
	}
}

// Available reports whether Mutter's DisplayConfig has an owner on the bus.
func (d *DisplayConfig) Available() bool {
	var has bool
	err := d.conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, DisplayConfigDest).Store(&has)
	if err != nil {
		d.logger.Debug("failed to query DisplayConfig owner", "error", err)
		return false
	}
	return has
}

// QueryMonitors calls GetCurrentState and returns one identity per
// connected monitor.
func (d *DisplayConfig) QueryMonitors(ctx context.Context) ([]monitor.Identity, error) {
	obj := d.conn.Object(DisplayConfigDest, dbus.ObjectPath(DisplayConfigPath))
	call := obj.CallWithContext(ctx, DisplayConfigInterface+".GetCurrentState", 0)
	if call.Err != nil {
		return nil, fmt.Errorf("failed to get current display state: %w", call.Err)
	}

	var (
		serial   uint32
		monitors []physicalMonitor
		logical  []logicalMonitor
		props    map[string]dbus.Variant
	)
	if err := call.Store(&serial, &monitors, &logical, &props); err != nil {
		return nil, fmt.Errorf("failed to parse display state: %w", err)
	}
	d.logger.Debug("display state", "serial", serial, "monitors", len(monitors), "logical_monitors", len(logical))
	return identitiesFromState(monitors), nil
}

// identitiesFromState names each monitor by its display-name property,
// falling back to vendor and product.
func identitiesFromState(monitors []physicalMonitor) []monitor.Identity {
	identities := make([]monitor.Identity, 0, len(monitors))
	for _, m := range monitors {
		identities = append(identities, monitor.Identity{
			Name:      displayName(m),
			Connector: m.Spec.Connector,
		})
	}
	return identities
}

func displayName(m physicalMonitor) string {
	if v, ok := m.Properties["display-name"]; ok {
		if name, ok := v.Value().(string); ok && name != "" {
			return name
		}
	}
	name := strings.TrimSpace(m.Spec.Vendor + " " + m.Spec.Product)
	if name == "" {
		return m.Spec.Connector
	}
	return name
}
