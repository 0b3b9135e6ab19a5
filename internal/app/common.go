package app

import (
	"fmt"

	"github.com/blackwell-systems/apptracker/internal/config"
	"github.com/blackwell-systems/apptracker/internal/store"
)

// openStore opens the configured database, creating the schema if needed.
func openStore(cfg *config.Config) (*store.Store, error) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return st, nil
}
