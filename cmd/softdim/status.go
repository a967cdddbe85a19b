package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/softdim/internal/config"
)

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text       string `json:"text"`
	Alt        string `json:"alt,omitempty"`
	Tooltip    string `json:"tooltip,omitempty"`
	Class      string `json:"class,omitempty"`
	Percentage int    `json:"percentage"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Output Waybar-compatible JSON status",
	Long: `Output dimming status in Waybar's custom module JSON format.

This is designed to be used with Waybar's custom module:

  "custom/softdim": {
    "exec": "softdim status",
    "interval": 5,
    "return-type": "json",
    "on-click": "softdim toggle",
    "on-scroll-up": "softdim brightness +5",
    "on-scroll-down": "softdim brightness -- -5"
  }

The output includes:
  - text: software brightness percentage
  - alt/class: disabled, full, or dimmed
  - tooltip: floor, backend, monitor selection and when settings last changed`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	snapshot := settingsStore.Snapshot()

	var modified time.Time
	if info, err := os.Stat(settingsStore.Path()); err == nil {
		modified = info.ModTime()
	}

	encoder := json.NewEncoder(os.Stdout)
	return encoder.Encode(generateStatus(&snapshot, modified))
}

// generateStatus builds the Waybar status for the given settings. A zero
// modified time leaves the "changed" line out of the tooltip.
func generateStatus(s *config.Settings, modified time.Time) WaybarStatus {
	percent := int(s.CurrentBrightness*100 + 0.5)

	class := "dimmed"
	switch {
	case !s.Enabled:
		class = "disabled"
	case s.CurrentBrightness >= 1:
		class = "full"
	}

	backend := "overlay"
	if s.UseBacklight {
		backend = "backlight"
	}

	lines := []string{
		fmt.Sprintf("Brightness: %d%% (min %d%%)", percent, int(s.MinBrightness*100+0.5)),
		fmt.Sprintf("Backend: %s", backend),
		fmt.Sprintf("Monitors: %s", s.Monitors),
	}
	if !s.Enabled {
		lines = append([]string{"Dimming disabled"}, lines...)
	}
	if !modified.IsZero() {
		lines = append(lines, "Changed "+humanize.Time(modified))
	}

	return WaybarStatus{
		Text:       fmt.Sprintf("%d%%", percent),
		Alt:        class,
		Tooltip:    strings.Join(lines, "\n"),
		Class:      class,
		Percentage: percent,
	}
}
