package app

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/apptracker/internal/output"
	"github.com/blackwell-systems/apptracker/internal/store"
)

var (
	statsLimit   int
	statsPackage string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the most launched apps",
	Long: `Display recorded launch counts.

Without flags, lists apps by launch count, most launched first. Ties are
broken by the most recent launch. Use --package to view a single app.`,
	Example: `  # Show the ten most launched apps
  apptracker stats

  # Show every recorded app
  apptracker stats --limit 0

  # Show one app
  apptracker stats --package com.android.chrome`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsLimit, "limit", 10, "Number of apps to list (0 for all)")
	statsCmd.Flags().StringVar(&statsPackage, "package", "", "Show stats for specific package")

	RootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	if statsLimit < 0 {
		return fmt.Errorf("invalid limit: %d (must be zero or positive)", statsLimit)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	opts := output.TableOptions{Color: output.IsColorEnabled()}

	if statsPackage != "" {
		a, err := st.GetApp(statsPackage)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no launches recorded for %s", statsPackage)
		}
		if err != nil {
			return fmt.Errorf("failed to get stats for %s: %w", statsPackage, err)
		}
		fmt.Print(output.RenderAppDetail(a, opts))
		return nil
	}

	apps, err := st.ListApps(statsLimit)
	if err != nil {
		return fmt.Errorf("failed to list apps: %w", err)
	}
	if len(apps) == 0 {
		fmt.Println("No launches recorded. Run 'apptracker watch' to start counting.")
		return nil
	}
	fmt.Print(output.RenderAppTable(apps, opts))

	total, err := st.TotalLaunches()
	if err != nil {
		return fmt.Errorf("failed to count launches: %w", err)
	}
	fmt.Printf("\nSummary: %s launches recorded\n", humanize.Comma(total))

	return nil
}
