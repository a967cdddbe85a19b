// Package main provides the CLI entrypoint for softdim.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/softdim/internal/config"
	"github.com/jmylchreest/softdim/internal/settings"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	globalOpts struct {
		verbose      bool
		settingsPath string
	}
	logger *slog.Logger

	// settingsStore is shared with the running daemon through the settings file
	settingsStore *settings.FileStore
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "softdim",
	Short: "Software display dimming for Wayland desktops",
	Long: `softdim controls softdimd, a daemon that dims displays below their
hardware minimum by drawing translucent overlays above all windows.

Settings are shared with the daemon through ~/.config/softdim/settings.toml;
the daemon picks up changes as soon as they are written.

Running softdim without a subcommand launches the interactive slider.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		path := globalOpts.settingsPath
		if path == "" {
			var err error
			path, err = config.SettingsPath()
			if err != nil {
				return fmt.Errorf("failed to get settings path: %w", err)
			}
		}

		var err error
		settingsStore, err = settings.NewFileStore(path, logger)
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}
		return nil
	},
	// Default to TUI when no subcommand is provided
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.settingsPath, "settings", "",
		"Path to settings file (default: ~/.config/softdim/settings.toml)")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

func main() {
	Execute()
}
