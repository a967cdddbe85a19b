package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/softdim/internal/config"
)

// enableCmd turns dimming on.
var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Turn dimming on",
	Long:  `Turn dimming on. The daemon recreates its overlays at the stored brightness.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(true)
	},
}

// disableCmd turns dimming off.
var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Turn dimming off",
	Long: `Turn dimming off. The daemon removes its overlays and stops suppressing
the compositor's fullscreen bypass. While the screen is locked the daemon
waits for the unlock before releasing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(false)
	},
}

// toggleCmd flips the enabled setting.
var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Toggle dimming",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(!settingsStore.Bool(config.KeyEnabled))
	},
}

func init() {
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
	rootCmd.AddCommand(toggleCmd)
}

func setEnabled(enabled bool) error {
	if err := settingsStore.SetBool(config.KeyEnabled, enabled); err != nil {
		return fmt.Errorf("failed to update enabled: %w", err)
	}
	if enabled {
		fmt.Println("dimming enabled")
	} else {
		fmt.Println("dimming disabled")
	}
	return nil
}
