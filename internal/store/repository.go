package store

import (
	"context"
	"time"

	"github.com/phrazzld/taskmanager-api/internal/domain"
)

// Repository is the owner-agnostic CRUD surface over a single entity type.
// Reads reflect operations staged earlier in the same UnitOfWork. Writes are
// staged only; nothing reaches the backend until SaveChanges.
type Repository[T any] interface {
	// GetByID returns a copy of the entity, or an error wrapping ErrNotFound.
	GetByID(ctx context.Context, id int64) (*T, error)

	// GetAll returns copies of every visible entity.
	GetAll(ctx context.Context) ([]*T, error)

	// Find returns copies of the visible entities for which pred is true.
	Find(ctx context.Context, pred func(*T) bool) ([]*T, error)

	// Add stages an insert. The entity receives a provisional negative ID so
	// it can be looked up before commit; the store-assigned ID replaces it
	// when SaveChanges succeeds.
	Add(entity *T) error

	// Update stages a full replace keyed by the entity's ID. Entities without
	// an ID are ignored.
	Update(entity *T)

	// Remove stages a delete keyed by the entity's ID. It returns an error
	// wrapping ErrNotFound if the entity has no ID or is already staged for
	// removal; the unit of work is unaffected either way.
	Remove(entity *T) error
}

// Mapping describes how the generic repository reads and writes the identity
// of T. It replaces any runtime inspection of the entity type.
type Mapping[T any] struct {
	Entity     string // name used in errors, e.g. "task"
	NotFound   error  // returned for missing entities; must wrap ErrNotFound
	ID         func(*T) int64
	SetID      func(*T, int64)
	Version    func(*T) int64
	SetVersion func(*T, int64)
	Clone      func(*T) *T

	// Validate is optional and runs on Add and again before each write.
	Validate func(*T) error

	// OnInsert is optional and runs with the commit time just before insert.
	OnInsert func(entity *T, now time.Time)
}

// Filter is an equality predicate a backend can evaluate natively.
type Filter struct {
	Field string
	Value any
}

// Source reads committed state.
type Source[T any] interface {
	// Get returns a fresh copy of the row, or an error wrapping ErrNotFound.
	Get(ctx context.Context, id int64) (*T, error)

	// Scan returns fresh copies of every row matching all filters, ordered by ID.
	Scan(ctx context.Context, filters ...Filter) ([]*T, error)
}

// Writer applies changes inside an open Batch.
type Writer[T any] interface {
	// Insert writes a new row and sets the entity's ID and initial version.
	Insert(ctx context.Context, entity *T) error

	// Update replaces the row whose ID and version match the entity and then
	// advances the entity's version. It returns ErrStaleEntity when no such
	// row exists.
	Update(ctx context.Context, entity *T) error

	// Delete removes the row whose ID and version match the entity. It
	// returns ErrStaleEntity when no such row exists.
	Delete(ctx context.Context, entity *T) error
}

// Table combines committed reads with batch-scoped writes for one entity type.
type Table[T any] interface {
	Source[T]

	// Writer binds the table to b. It returns ErrForeignBatch if b was opened
	// by another backend.
	Writer(b Batch) (Writer[T], error)
}

// Batch is an open write transaction owned by a Backend.
type Batch interface {
	// Driver names the backend that opened the batch.
	Driver() string
}

// Backend is a transactional entity store.
type Backend interface {
	// Transact runs fn inside one atomic batch. The batch commits only if fn
	// returns nil and ctx is still live; otherwise every write fn made is
	// discarded.
	Transact(ctx context.Context, fn func(ctx context.Context, b Batch) error) error

	// Tasks returns the task table.
	Tasks() Table[domain.TaskItem]
}
