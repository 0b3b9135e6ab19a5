package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/apptracker/internal/watcher"
)

var wakeCmd = &cobra.Command{
	Use:   "wake",
	Short: "Ask a running watcher to refresh the summary",
	Long: `Touch the wake file so a running watcher rewrites the summary file
from the current counters. This is the hook for screen-on events.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := watcher.Wake(cfg.WakeFile); err != nil {
			return fmt.Errorf("failed to signal watcher: %w", err)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(wakeCmd)
}
