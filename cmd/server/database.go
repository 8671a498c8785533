package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskmanager-api/internal/config"
	"github.com/phrazzld/taskmanager-api/internal/platform/memstore"
	"github.com/phrazzld/taskmanager-api/internal/platform/sqlstore"
	"github.com/phrazzld/taskmanager-api/internal/store"
)

const driverMemory = "memory"

// stores groups the persistence dependencies chosen by database.driver.
type stores struct {
	backend store.Backend
	users   store.UserStore
	db      *sql.DB // nil for the memory driver
}

// setupStores opens the configured database, applies migrations when
// auto_migrate is set and builds the task backend and user store on it.
func setupStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	if cfg.Database.Driver == driverMemory {
		logger.Warn("using in-memory database; data is lost on restart")
		return &stores{
			backend: memstore.New(logger),
			users:   memstore.NewUserStore(cfg.Auth.BCryptCost),
		}, nil
	}

	db, dialect, err := sqlstore.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := sqlstore.Migrate(ctx, db, dialect, logger, "up"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	return &stores{
		backend: sqlstore.NewBackend(db, dialect, logger),
		users:   sqlstore.NewUserStore(db, dialect, cfg.Auth.BCryptCost, logger),
		db:      db,
	}, nil
}
