package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/taskmanager-api/internal/platform/logger"
)

// UnitOfWork aggregates the repositories used by one request and commits
// their staged changes atomically. It must not be shared between requests or
// goroutines. Staged changes that are never saved are simply dropped.
type UnitOfWork struct {
	backend Backend
	now     func() time.Time
	logger  *slog.Logger

	tasks *taskRepository
}

// UnitOfWorkOption configures a UnitOfWork.
type UnitOfWorkOption func(*UnitOfWork)

// WithClock overrides the clock used to stamp inserted entities.
func WithClock(now func() time.Time) UnitOfWorkOption {
	return func(u *UnitOfWork) { u.now = now }
}

// WithLogger sets the logger used when the request context carries none.
func WithLogger(l *slog.Logger) UnitOfWorkOption {
	return func(u *UnitOfWork) { u.logger = l }
}

// NewUnitOfWork creates a unit of work over backend.
func NewUnitOfWork(backend Backend, opts ...UnitOfWorkOption) *UnitOfWork {
	u := &UnitOfWork{
		backend: backend,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	u.tasks = &taskRepository{Set: NewSet(backend.Tasks(), TaskMapping)}
	return u
}

// Tasks returns the unit of work's task repository.
func (u *UnitOfWork) Tasks() TaskRepository {
	return u.tasks
}

func (u *UnitOfWork) changeSets() []changeSet {
	return []changeSet{u.tasks.Set}
}

// HasChanges reports whether any repository has staged operations.
func (u *UnitOfWork) HasChanges() bool {
	for _, cs := range u.changeSets() {
		if cs.hasChanges() {
			return true
		}
	}
	return false
}

// Discard drops every staged operation.
func (u *UnitOfWork) Discard() {
	for _, cs := range u.changeSets() {
		cs.reset()
	}
}

// SaveChanges flushes every staged operation in one backend transaction and
// returns the number of rows written. Either every operation becomes visible
// or none does.
//
// A version conflict is reported as ErrStaleEntity and a backend failure as
// ErrPersistence; cancellation of ctx is returned as the context error. After
// a failure the staged operations are kept so the caller can inspect or
// Discard them. Inserted entities passed to Add receive their store-assigned
// ID and the commit time as CreatedAt.
func (u *UnitOfWork) SaveChanges(ctx context.Context) (int, error) {
	log := logger.FromContextOrDefault(ctx, u.logger)

	if !u.HasChanges() {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	now := u.now().UTC().Truncate(time.Microsecond)
	sets := u.changeSets()

	var (
		total   int
		applies []func()
	)
	err := u.backend.Transact(ctx, func(ctx context.Context, b Batch) error {
		total, applies = 0, applies[:0]
		for _, cs := range sets {
			n, apply, err := cs.flush(ctx, b, now)
			if err != nil {
				return err
			}
			total += n
			applies = append(applies, apply)
		}
		return nil
	})
	if err != nil {
		err = classifyCommitError(err)
		log.Warn("unit of work commit failed", slog.String("error", err.Error()))
		return 0, err
	}

	for _, apply := range applies {
		apply()
	}

	log.Debug("unit of work committed", slog.Int("rows_affected", total))
	return total, nil
}

func classifyCommitError(err error) error {
	switch {
	case errors.Is(err, ErrStaleEntity),
		errors.Is(err, ErrInvalidEntity),
		errors.Is(err, ErrPersistence),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}
