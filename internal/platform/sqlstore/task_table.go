package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/taskmanager-api/internal/domain"
	"github.com/phrazzld/taskmanager-api/internal/platform/logger"
	"github.com/phrazzld/taskmanager-api/internal/store"
)

const taskColumns = "id, title, description, status, created_at, owner_id, version"

// filterColumns whitelists the store filter fields the task table can push
// down into SQL.
var filterColumns = map[string]string{
	store.FieldOwnerID: "owner_id",
}

type taskTable struct {
	backend *Backend
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.TaskItem, error) {
	var (
		task        domain.TaskItem
		description sql.NullString
		ownerID     sql.NullString
		status      int
	)
	err := row.Scan(&task.ID, &task.Title, &description, &status, &task.CreatedAt, &ownerID, &task.Version)
	if err != nil {
		return nil, err
	}

	task.Status = domain.TaskStatus(status)
	task.CreatedAt = task.CreatedAt.UTC()
	if description.Valid {
		task.Description = &description.String
	}
	if ownerID.Valid {
		task.OwnerID = &ownerID.String
	}
	return &task, nil
}

func (t *taskTable) Get(ctx context.Context, id int64) (*domain.TaskItem, error) {
	query := t.backend.dialect.Rebind("SELECT " + taskColumns + " FROM tasks WHERE id = ?")

	task, err := scanTask(t.backend.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrTaskNotFound
	}
	if err != nil {
		logger.FromContextOrDefault(ctx, t.backend.logger).Error("failed to get task",
			slog.Int64("task_id", id),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return task, nil
}

func (t *taskTable) Scan(ctx context.Context, filters ...store.Filter) ([]*domain.TaskItem, error) {
	var (
		where []string
		args  []any
	)
	for _, f := range filters {
		column, ok := filterColumns[f.Field]
		if !ok {
			return nil, fmt.Errorf("sqlstore: unsupported filter field %q", f.Field)
		}
		where = append(where, column+" = ?")
		args = append(args, f.Value)
	}

	query := "SELECT " + taskColumns + " FROM tasks"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := t.backend.db.QueryContext(ctx, t.backend.dialect.Rebind(query), args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, t.backend.logger).Error("failed to scan tasks",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	tasks := []*domain.TaskItem{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, MapError(err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return tasks, nil
}

func (t *taskTable) Writer(b store.Batch) (store.Writer[domain.TaskItem], error) {
	tx, ok := b.(*batch)
	if !ok || tx.owner != t.backend {
		return nil, store.ErrForeignBatch
	}
	return &taskWriter{db: tx.tx, dialect: t.backend.dialect}, nil
}

type taskWriter struct {
	db      store.DBTX
	dialect Dialect
}

func (w *taskWriter) Insert(ctx context.Context, task *domain.TaskItem) error {
	query := w.dialect.Rebind(`
		INSERT INTO tasks (title, description, status, created_at, owner_id, version)
		VALUES (?, ?, ?, ?, ?, 1)
		RETURNING id`)

	var id int64
	err := w.db.QueryRowContext(ctx, query,
		task.Title,
		nullString(task.Description),
		int(task.Status),
		task.CreatedAt.UTC(),
		nullString(task.OwnerID),
	).Scan(&id)
	if err != nil {
		return MapError(err)
	}

	task.ID = id
	task.Version = 1
	return nil
}

func (w *taskWriter) Update(ctx context.Context, task *domain.TaskItem) error {
	// owner_id and created_at are deliberately not in the SET list
	query := w.dialect.Rebind(`
		UPDATE tasks
		SET title = ?, description = ?, status = ?, version = version + 1
		WHERE id = ? AND version = ?`)

	result, err := w.db.ExecContext(ctx, query,
		task.Title,
		nullString(task.Description),
		int(task.Status),
		task.ID,
		task.Version,
	)
	if err != nil {
		return MapError(err)
	}
	if err := checkRowsAffected(result); err != nil {
		return err
	}

	task.Version++
	return nil
}

func (w *taskWriter) Delete(ctx context.Context, task *domain.TaskItem) error {
	query := w.dialect.Rebind("DELETE FROM tasks WHERE id = ? AND version = ?")

	result, err := w.db.ExecContext(ctx, query, task.ID, task.Version)
	if err != nil {
		return MapError(err)
	}
	return checkRowsAffected(result)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
