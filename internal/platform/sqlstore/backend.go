package sqlstore

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/phrazzld/taskmanager-api/internal/domain"
	"github.com/phrazzld/taskmanager-api/internal/store"
)

// Backend implements store.Backend on a *sql.DB.
type Backend struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
	tasks   *taskTable
}

var _ store.Backend = (*Backend)(nil)

// NewBackend creates a Backend. The caller owns db and must close it.
func NewBackend(db *sql.DB, dialect Dialect, logger *slog.Logger) *Backend {
	b := &Backend{
		db:      db,
		dialect: dialect,
		logger:  logger.With(slog.String("component", "sqlstore"), slog.String("driver", dialect.Name)),
	}
	b.tasks = &taskTable{backend: b}
	return b
}

// Transact implements store.Backend by running fn inside one SQL transaction.
func (b *Backend) Transact(ctx context.Context, fn func(ctx context.Context, b store.Batch) error) error {
	return store.RunInTransaction(ctx, b.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, &batch{owner: b, tx: tx})
	})
}

// Tasks implements store.Backend.
func (b *Backend) Tasks() store.Table[domain.TaskItem] {
	return b.tasks
}

type batch struct {
	owner *Backend
	tx    *sql.Tx
}

func (b *batch) Driver() string { return b.owner.dialect.Name }
