package store

import (
	"context"
	"sort"
	"time"

	"github.com/phrazzld/taskmanager-api/internal/domain"
)

// FieldOwnerID is the filter field for a task's owner identity.
const FieldOwnerID = "owner_id"

// TaskRepository adds owner-scoped queries to the generic task repository.
type TaskRepository interface {
	Repository[domain.TaskItem]

	// GetByOwner returns the owner's tasks, newest first with ties broken by
	// descending ID. It returns an empty slice when the owner has none.
	GetByOwner(ctx context.Context, ownerID string) ([]*domain.TaskItem, error)

	// GetByIDForOwner returns the task only if it belongs to ownerID.
	// A task owned by someone else is reported exactly like a missing one,
	// with ErrTaskNotFound.
	GetByIDForOwner(ctx context.Context, id int64, ownerID string) (*domain.TaskItem, error)
}

// TaskMapping is the explicit identity mapping for domain.TaskItem.
var TaskMapping = Mapping[domain.TaskItem]{
	Entity:     "task",
	NotFound:   ErrTaskNotFound,
	ID:         func(t *domain.TaskItem) int64 { return t.ID },
	SetID:      func(t *domain.TaskItem, id int64) { t.ID = id },
	Version:    func(t *domain.TaskItem) int64 { return t.Version },
	SetVersion: func(t *domain.TaskItem, v int64) { t.Version = v },
	Clone:      (*domain.TaskItem).Clone,
	Validate:   validateTaskRow,
	OnInsert:   func(t *domain.TaskItem, now time.Time) { t.CreatedAt = now },
}

func validateTaskRow(t *domain.TaskItem) error {
	if t.OwnerID == nil {
		return domain.ErrEmptyOwnerID
	}
	return t.Validate()
}

type taskRepository struct {
	*Set[domain.TaskItem]
}

// NewTaskRepository creates a staged task repository over table. Most callers
// should obtain one from a UnitOfWork instead.
func NewTaskRepository(table Table[domain.TaskItem]) TaskRepository {
	return &taskRepository{Set: NewSet(table, TaskMapping)}
}

func (r *taskRepository) GetByOwner(ctx context.Context, ownerID string) ([]*domain.TaskItem, error) {
	if ownerID == "" {
		return []*domain.TaskItem{}, nil
	}

	tasks, err := r.query(ctx,
		[]Filter{{Field: FieldOwnerID, Value: ownerID}},
		func(t *domain.TaskItem) bool { return t.IsOwnedBy(ownerID) },
	)
	if err != nil {
		return nil, err
	}

	SortNewestFirst(tasks)
	return tasks, nil
}

func (r *taskRepository) GetByIDForOwner(
	ctx context.Context,
	id int64,
	ownerID string,
) (*domain.TaskItem, error) {
	task, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !task.IsOwnedBy(ownerID) {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// SortNewestFirst orders tasks by CreatedAt descending, then ID descending.
func SortNewestFirst(tasks []*domain.TaskItem) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}
