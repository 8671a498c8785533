package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskmanager-api/internal/cache"
	"github.com/phrazzld/taskmanager-api/internal/domain"
	"github.com/phrazzld/taskmanager-api/internal/events"
	"github.com/phrazzld/taskmanager-api/internal/platform/logger"
	"github.com/phrazzld/taskmanager-api/internal/redact"
	"github.com/phrazzld/taskmanager-api/internal/store"
)

// UnitOfWorkFactory returns a fresh unit of work for one operation.
type UnitOfWorkFactory func() *store.UnitOfWork

// CreateTaskInput carries the client-supplied fields of a new task.
type CreateTaskInput struct {
	Title       string
	Description *string
	Status      domain.TaskStatus
}

// UpdateTaskInput carries the replacement values of a task's mutable fields.
type UpdateTaskInput struct {
	Title       string
	Description *string
	Status      domain.TaskStatus
}

// TaskService provides owner-scoped task operations.
type TaskService interface {
	// ListTasks returns the owner's tasks, newest first. The result may be
	// served from cache and can lag writes by up to the cache TTL.
	ListTasks(ctx context.Context, ownerID string) ([]*domain.TaskItem, error)

	// GetTask returns one of the owner's tasks.
	GetTask(ctx context.Context, ownerID string, id int64) (*domain.TaskItem, error)

	// CreateTask validates and stores a new task, then publishes TaskCreated.
	// A failed publish does not fail the call.
	CreateTask(ctx context.Context, ownerID string, in CreateTaskInput) (*domain.TaskItem, error)

	// UpdateTask replaces the mutable fields of one of the owner's tasks.
	UpdateTask(ctx context.Context, ownerID string, id int64, in UpdateTaskInput) error

	// DeleteTask removes one of the owner's tasks.
	DeleteTask(ctx context.Context, ownerID string, id int64) error
}

type taskServiceImpl struct {
	newUnitOfWork UnitOfWorkFactory
	listCache     *cache.TaskListCache
	publisher     events.Publisher
	logger        *slog.Logger
}

// NewTaskService creates a TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	newUnitOfWork UnitOfWorkFactory,
	listCache *cache.TaskListCache,
	publisher events.Publisher,
	logger *slog.Logger,
) (TaskService, error) {
	if newUnitOfWork == nil {
		return nil, fmt.Errorf("%w: unit of work factory cannot be nil", domain.ErrValidation)
	}
	if listCache == nil {
		return nil, fmt.Errorf("%w: task list cache cannot be nil", domain.ErrValidation)
	}
	if publisher == nil {
		return nil, fmt.Errorf("%w: event publisher cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		newUnitOfWork: newUnitOfWork,
		listCache:     listCache,
		publisher:     publisher,
		logger:        logger.With(slog.String("component", "task_service")),
	}, nil
}

func (s *taskServiceImpl) ListTasks(ctx context.Context, ownerID string) ([]*domain.TaskItem, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}

	tasks, err := s.listCache.GetOrLoad(ctx, ownerID, func(ctx context.Context) ([]*domain.TaskItem, error) {
		return s.newUnitOfWork().Tasks().GetByOwner(ctx, ownerID)
	})
	if err != nil {
		return nil, s.translate(ctx, "list", err)
	}
	return tasks, nil
}

func (s *taskServiceImpl) GetTask(ctx context.Context, ownerID string, id int64) (*domain.TaskItem, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}

	task, err := s.newUnitOfWork().Tasks().GetByIDForOwner(ctx, id, ownerID)
	if err != nil {
		return nil, s.translate(ctx, "get", err)
	}
	return task, nil
}

func (s *taskServiceImpl) CreateTask(
	ctx context.Context,
	ownerID string,
	in CreateTaskInput,
) (*domain.TaskItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}

	task, err := domain.NewTaskItem(in.Title, in.Description, in.Status)
	if err != nil {
		return nil, err
	}
	if err := task.AssignOwner(ownerID); err != nil {
		return nil, err
	}

	uow := s.newUnitOfWork()
	if err := uow.Tasks().Add(task); err != nil {
		return nil, s.translate(ctx, "create", err)
	}
	if _, err := uow.SaveChanges(ctx); err != nil {
		return nil, s.translate(ctx, "create", err)
	}

	log.Info("task created", slog.Int64("task_id", task.ID), slog.String("owner_id", ownerID))

	event := events.NewTaskCreatedEvent(task)
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Warn("failed to publish task created event",
			slog.Int64("task_id", task.ID),
			slog.String("event_id", event.ID.String()),
			redact.ErrorAttr(err))
	}

	return task, nil
}

func (s *taskServiceImpl) UpdateTask(ctx context.Context, ownerID string, id int64, in UpdateTaskInput) error {
	if ownerID == "" {
		return domain.ErrUnauthorized
	}

	uow := s.newUnitOfWork()
	task, err := uow.Tasks().GetByIDForOwner(ctx, id, ownerID)
	if err != nil {
		return s.translate(ctx, "update", err)
	}
	if err := task.ApplyUpdate(in.Title, in.Description, in.Status); err != nil {
		return err
	}

	uow.Tasks().Update(task)
	if _, err := uow.SaveChanges(ctx); err != nil {
		return s.translate(ctx, "update", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("task updated", slog.Int64("task_id", id))
	return nil
}

func (s *taskServiceImpl) DeleteTask(ctx context.Context, ownerID string, id int64) error {
	if ownerID == "" {
		return domain.ErrUnauthorized
	}

	uow := s.newUnitOfWork()
	task, err := uow.Tasks().GetByIDForOwner(ctx, id, ownerID)
	if err != nil {
		return s.translate(ctx, "delete", err)
	}
	if err := uow.Tasks().Remove(task); err != nil {
		return s.translate(ctx, "delete", err)
	}
	if _, err := uow.SaveChanges(ctx); err != nil {
		return s.translate(ctx, "delete", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("task deleted", slog.Int64("task_id", id))
	return nil
}

// translate maps store failures onto service errors. Validation and context
// errors pass through unchanged.
func (s *taskServiceImpl) translate(ctx context.Context, operation string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrTaskNotFound
	case errors.Is(err, store.ErrStaleEntity):
		return fmt.Errorf("%w: %w", ErrStaleTask, err)
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}

	logger.FromContextOrDefault(ctx, s.logger).Error("task operation failed",
		slog.String("operation", operation),
		redact.ErrorAttr(err))
	return NewTaskServiceError(operation, "storage operation failed", err)
}
