package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/softdim/internal/config"
)

var setCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Long: `Change a setting. The running daemon applies it immediately.

Examples:
  softdim set min-brightness 0.2
  softdim set monitors external
  softdim set prevent-unredirect never
  softdim set builtin-monitor ""   # re-detect the built-in monitor`,
	Args: cobra.ExactArgs(2),
	RunE: runSet,
}

func init() {
	rootCmd.AddCommand(setCmd)
}

func runSet(cmd *cobra.Command, args []string) error {
	key := config.Key(args[0])
	if err := settingsStore.SetFromString(key, args[1]); err != nil {
		return err
	}

	snapshot := settingsStore.Snapshot()
	v, _ := snapshot.Value(key)
	fmt.Printf("%s = %v\n", key, v)
	return nil
}
