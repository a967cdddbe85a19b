package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/softdim/internal/settings"
	"github.com/jmylchreest/softdim/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive brightness slider",
	Long: `Launch the interactive terminal brightness slider.

Changes made elsewhere (another softdim, or an edit to the settings file) are
shown as they happen.

Key bindings:
  ←/→, h/l    Dimmer/brighter by 5%
  H/L         Dimmer/brighter by 1%
  home/end    Minimum/full brightness
  b           Toggle the hardware backlight
  m           Cycle monitor selection
  u           Cycle unredirect prevention
  e           Toggle dimming
  ?           Show help
  q           Quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	store, power, closeBrightness := openBrightness()
	defer closeBrightness()

	// Reloads run on the watcher goroutine; the model only reads the store.
	watcher, err := settings.NewWatcher(settingsStore, nil, logger)
	if err != nil {
		logger.Warn("failed to create settings watcher", "error", err)
	} else {
		if err := watcher.Start(); err != nil {
			logger.Warn("failed to start settings watcher", "error", err)
		}
		defer func() { _ = watcher.Stop() }()
	}

	// The proxy reports on its own goroutine; the model only signals a refresh.
	var backlight tui.EventSource
	if power != nil {
		backlight = power
	}
	model := tui.New(settingsStore, store, backlight)
	defer model.Close()

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}
