package memstore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/phrazzld/taskmanager-api/internal/domain"
	"github.com/phrazzld/taskmanager-api/internal/store"
)

const driverName = "memory"

// Backend implements store.Backend in memory. Writers are serialized; readers
// see only committed state.
type Backend struct {
	mu     sync.RWMutex
	tasks  map[int64]*domain.TaskItem
	lastID int64
	logger *slog.Logger

	table *taskTable
}

var _ store.Backend = (*Backend)(nil)

// New creates an empty Backend.
func New(logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Backend{
		tasks:  make(map[int64]*domain.TaskItem),
		logger: logger.With(slog.String("component", "memstore")),
	}
	b.table = &taskTable{backend: b}
	return b
}

// batch is a copy-on-write view of the task table. Rows are never mutated in
// place, so copying the map is enough to isolate the batch.
type batch struct {
	owner  *Backend
	tasks  map[int64]*domain.TaskItem
	lastID int64
}

func (b *batch) Driver() string { return driverName }

// Transact implements store.Backend.
func (b *Backend) Transact(ctx context.Context, fn func(ctx context.Context, b store.Batch) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	tx := &batch{
		owner:  b,
		tasks:  make(map[int64]*domain.TaskItem, len(b.tasks)),
		lastID: b.lastID,
	}
	for id, t := range b.tasks {
		tx.tasks[id] = t
	}

	if err := fn(ctx, tx); err != nil {
		b.logger.Debug("batch discarded", slog.String("error", err.Error()))
		return err
	}
	if err := ctx.Err(); err != nil {
		b.logger.Debug("batch discarded, context done", slog.String("error", err.Error()))
		return err
	}

	b.tasks = tx.tasks
	b.lastID = tx.lastID
	return nil
}

// Tasks implements store.Backend.
func (b *Backend) Tasks() store.Table[domain.TaskItem] {
	return b.table
}

type taskTable struct {
	backend *Backend
}

func (t *taskTable) Get(ctx context.Context, id int64) (*domain.TaskItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.backend.mu.RLock()
	defer t.backend.mu.RUnlock()

	row, ok := t.backend.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return row.Clone(), nil
}

func (t *taskTable) Scan(ctx context.Context, filters ...store.Filter) ([]*domain.TaskItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, f := range filters {
		if f.Field != store.FieldOwnerID {
			return nil, fmt.Errorf("memstore: unsupported filter field %q", f.Field)
		}
	}

	t.backend.mu.RLock()
	defer t.backend.mu.RUnlock()

	rows := make([]*domain.TaskItem, 0, len(t.backend.tasks))
	for _, row := range t.backend.tasks {
		if matches(row, filters) {
			rows = append(rows, row.Clone())
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

func matches(row *domain.TaskItem, filters []store.Filter) bool {
	for _, f := range filters {
		owner, ok := f.Value.(string)
		if !ok || !row.IsOwnedBy(owner) {
			return false
		}
	}
	return true
}

func (t *taskTable) Writer(b store.Batch) (store.Writer[domain.TaskItem], error) {
	tx, ok := b.(*batch)
	if !ok || tx.owner != t.backend {
		return nil, store.ErrForeignBatch
	}
	return &taskWriter{tx: tx}, nil
}

type taskWriter struct {
	tx *batch
}

func (w *taskWriter) Insert(_ context.Context, task *domain.TaskItem) error {
	w.tx.lastID++
	task.ID = w.tx.lastID
	task.Version = 1
	w.tx.tasks[task.ID] = task.Clone()
	return nil
}

func (w *taskWriter) Update(_ context.Context, task *domain.TaskItem) error {
	current, ok := w.tx.tasks[task.ID]
	if !ok || current.Version != task.Version {
		return store.ErrStaleEntity
	}

	next := task.Clone()
	// owner and creation time are immutable once stored
	next.OwnerID = current.Clone().OwnerID
	next.CreatedAt = current.CreatedAt
	next.Version = current.Version + 1
	w.tx.tasks[task.ID] = next

	task.Version = next.Version
	return nil
}

func (w *taskWriter) Delete(_ context.Context, task *domain.TaskItem) error {
	current, ok := w.tx.tasks[task.ID]
	if !ok || current.Version != task.Version {
		return store.ErrStaleEntity
	}
	delete(w.tx.tasks, task.ID)
	return nil
}
