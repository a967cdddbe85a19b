package main

import (
	"fmt"
	"strconv"
	"strings"

	godbus "github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/softdim/internal/brightness"
	"github.com/jmylchreest/softdim/internal/config"
	"github.com/jmylchreest/softdim/internal/dbus"
)

var brightnessCmd = &cobra.Command{
	Use:   "brightness [value]",
	Short: "Show or change the brightness",
	Long: `Show or change the brightness level, in percent.

A plain number sets the level; a leading + or - adjusts it. Put "--" before
a negative adjustment so it is not read as a flag. The result never
goes below min-brightness. When use-backlight is set and the settings daemon
is reachable, the hardware backlight is changed instead of the overlay.

Examples:
  softdim brightness          # print the current level
  softdim brightness 40
  softdim brightness +10
  softdim brightness -- -5%`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBrightness,
}

func init() {
	rootCmd.AddCommand(brightnessCmd)
}

func runBrightness(cmd *cobra.Command, args []string) error {
	store, _, closeFn := openBrightness()
	defer closeFn()

	if len(args) == 1 {
		value, err := parseBrightness(args[0], store.Get(), store.Minimum())
		if err != nil {
			return err
		}
		store.Set(value)
	}

	backend := "overlay"
	if store.UsingHardware() {
		backend = "backlight"
	}
	fmt.Printf("%d%% (%s)\n", int(store.Get()*100+0.5), backend)
	return nil
}

// openBrightness returns a brightness store over the settings file, backed
// by the hardware proxy when use-backlight asks for it. The proxy is nil when
// the store is software only.
func openBrightness() (*brightness.Store, *dbus.PowerProxy, func()) {
	if !settingsStore.Bool(config.KeyUseBacklight) {
		return brightness.NewStore(settingsStore, nil, logger), nil, func() {}
	}

	conn, err := godbus.SessionBus()
	if err != nil {
		logger.Warn("session bus unavailable, using software brightness", "error", err)
		return brightness.NewStore(settingsStore, nil, logger), nil, func() {}
	}

	power := dbus.NewPowerProxy(conn, nil, logger)
	if err := power.Start(); err != nil {
		logger.Warn("failed to reach backlight proxy, using software brightness", "error", err)
		return brightness.NewStore(settingsStore, nil, logger), nil, func() {}
	}
	return brightness.NewStore(settingsStore, power, logger), power, power.Stop
}

// parseBrightness resolves an absolute ("40", "40%") or relative ("+10",
// "-5%") percentage against current, clamped to [floor, 1].
func parseBrightness(arg string, current, floor float64) (float64, error) {
	s := strings.TrimSuffix(strings.TrimSpace(arg), "%")
	relative := strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-")

	percent, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid brightness %q: %w", arg, err)
	}

	value := percent / 100
	if relative {
		value += current
	} else if percent < 0 || percent > 100 {
		return 0, fmt.Errorf("brightness must be between 0 and 100, got %g", percent)
	}
	return min(1, max(floor, value)), nil
}
