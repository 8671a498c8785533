package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskmanager-api/internal/config"
	"github.com/phrazzld/taskmanager-api/internal/platform/sqlstore"
)

// handleMigrations runs a goose command against the configured database.
// The memory driver has no schema, so any command is rejected.
func handleMigrations(ctx context.Context, cfg *config.Config, logger *slog.Logger, command string) error {
	if cfg.Database.Driver == driverMemory {
		return fmt.Errorf("migrations are not supported by the %q database driver", driverMemory)
	}

	db, dialect, err := sqlstore.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("error closing database connection", "error", err)
		}
	}()

	logger.Info("executing migrations", "command", command, "driver", dialect.Name)
	if err := sqlstore.Migrate(ctx, db, dialect, logger, command); err != nil {
		return err
	}
	logger.Info("migrations completed", "command", command)
	return nil
}
