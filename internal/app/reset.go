package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/apptracker/internal/store"
)

var resetCmd = &cobra.Command{
	Use:   "reset <package>",
	Short: "Forget the launch count of one app",
	Args:  cobra.ExactArgs(1),
	RunE:  runReset,
}

func init() {
	RootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	pkg := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.DeleteApp(pkg); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no launches recorded for %s", pkg)
		}
		return fmt.Errorf("failed to reset %s: %w", pkg, err)
	}
	fmt.Printf("✓ Reset launch count for %s\n", pkg)
	return nil
}
