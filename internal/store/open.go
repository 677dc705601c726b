package store

import (
	"context"
	"fmt"

	"github.com/couchcryptid/coastal-alert-service/internal/config"
)

// Open returns the Store selected by cfg.StoreDriver.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		return NewMemory(), nil
	case config.StorePostgres:
		return OpenPostgres(ctx, cfg.DatabaseURL)
	case config.StoreSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
