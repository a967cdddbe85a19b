package dbus

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"

	"github.com/jmylchreest/softdim/internal/monitor"
)

func TestIdentitiesFromState(t *testing.T) {
	monitors := []physicalMonitor{
		{
			Spec: monitorSpec{Connector: "eDP-1", Vendor: "BOE", Product: "0x0a5d", Serial: "0x00000000"},
			Properties: map[string]dbus.Variant{
				"display-name": dbus.MakeVariant("Built-in display"),
				"is-builtin":   dbus.MakeVariant(true),
			},
		},
		{
			Spec: monitorSpec{Connector: "DP-2", Vendor: "DEL", Product: "DELL U2720Q", Serial: "ABC123"},
		},
		{
			Spec:       monitorSpec{Connector: "HDMI-1", Vendor: "GSM", Product: "LG TV"},
			Properties: map[string]dbus.Variant{"display-name": dbus.MakeVariant("")},
		},
		{
			Spec: monitorSpec{Connector: "DP-3"},
		},
	}

	got := identitiesFromState(monitors)

	assert.Equal(t, []monitor.Identity{
		{Name: "Built-in display", Connector: "eDP-1"},
		{Name: "DEL DELL U2720Q", Connector: "DP-2"},
		{Name: "GSM LG TV", Connector: "HDMI-1"},
		{Name: "DP-3", Connector: "DP-3"},
	}, got)
}

func TestIdentitiesFromState_Empty(t *testing.T) {
	assert.Empty(t, identitiesFromState(nil))
}
