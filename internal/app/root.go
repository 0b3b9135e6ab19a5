package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/apptracker/internal/config"
	"github.com/blackwell-systems/apptracker/internal/logger"
)

var (
	dbPath string

	// RootCmd is the root command for apptracker
	RootCmd = &cobra.Command{
		Use:   "apptracker",
		Short: "Count Android app launches from the device log",
		Long: `apptracker follows the Android activity log and counts how often each
app is launched by the user. Counts live in a local SQLite database and a
plain-text summary of the most launched apps is rewritten as launches arrive.

Only user launches are counted: MAIN intents without extras that start a
new task and carry no NO_USER_ACTION flag. Returning to the home screen is
never counted.

Examples:
  # Follow the device log in the foreground
  apptracker watch

  # Run in the background
  apptracker watch --daemon

  # Feed a captured log
  adb logcat -v brief | apptracker watch --stdin

  # Show the most launched apps
  apptracker stats`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(logger.FromEnv())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err == nil {
				if _, statErr := os.Stat(cfg.DBPath); statErr == nil {
					fmt.Println("apptracker: Android app launch counter")
					fmt.Println()
					fmt.Println("Tip: Run 'apptracker stats' to see the most launched apps.")
					fmt.Println("     Run 'apptracker --help' for all commands.")
					return nil
				}
			}
			fmt.Println("apptracker: Android app launch counter")
			fmt.Println()
			fmt.Println("Run 'apptracker watch' to start counting launches.")
			fmt.Println("Run 'apptracker --help' for the full reference.")
			return nil
		},
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default: ~/.apptracker/apptracker.db)")

	RootCmd.SuggestionsMinimumDistance = 2

	RootCmd.AddCommand(watchCmd)
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// loadConfig resolves settings from the environment and applies --db.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}
