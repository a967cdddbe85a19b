package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/softdim/internal/config"
)

var getOpts struct {
	format string
}

var getCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Show settings",
	Long: `Show one setting, or all of them.

Keys:
  min-brightness       brightness floor, 0.0-1.0
  current-brightness   software brightness, 0.0-1.0
  monitors             all, built-in, external
  builtin-monitor      name of the built-in monitor (empty = auto)
  use-backlight        drive the hardware backlight when available
  prevent-unredirect   always, when-correcting, never
  debug                verbose daemon logging
  enabled              dimming on or off

Examples:
  softdim get
  softdim get monitors
  softdim get --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)

	getCmd.Flags().StringVarP(&getOpts.format, "format", "f", "plain",
		"Output format: plain, json, yaml")
}

func runGet(cmd *cobra.Command, args []string) error {
	snapshot := settingsStore.Snapshot()

	keys := config.Keys()
	if len(args) == 1 {
		key := config.Key(args[0])
		if _, ok := snapshot.Value(key); !ok {
			return fmt.Errorf("unknown setting %q", args[0])
		}
		keys = []config.Key{key}
	}

	return writeSettings(os.Stdout, &snapshot, keys, getOpts.format)
}

// writeSettings prints keys from s in the requested format. A single key in
// plain format prints only the value, for use in scripts.
func writeSettings(w io.Writer, s *config.Settings, keys []config.Key, format string) error {
	values := make(map[string]any, len(keys))
	for _, key := range keys {
		v, _ := s.Value(key)
		values[string(key)] = v
	}

	switch format {
	case "plain", "":
		if len(keys) == 1 {
			_, err := fmt.Fprintln(w, values[string(keys[0])])
			return err
		}
		for _, key := range keys {
			if _, err := fmt.Fprintf(w, "%s = %v\n", key, values[string(key)]); err != nil {
				return err
			}
		}
		return nil
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(values)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer func() { _ = encoder.Close() }()
		return encoder.Encode(values)
	default:
		return fmt.Errorf("unknown format %q (valid: plain, json, yaml)", format)
	}
}
