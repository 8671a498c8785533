package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskmanager-api/internal/domain"
)

// TypeTaskCreated identifies TaskCreatedEvent payloads on the broker.
const TypeTaskCreated = "task:created"

// TaskCreatedEvent is raised once per successfully committed task creation.
type TaskCreatedEvent struct {
	ID         uuid.UUID `json:"-"`
	TaskID     int64     `json:"taskId"`
	Title      string    `json:"title"`
	OwnerID    string    `json:"-"`
	OccurredAt time.Time `json:"-"`
}

// NewTaskCreatedEvent builds the event for a task that already has a store-assigned id.
func NewTaskCreatedEvent(task *domain.TaskItem) *TaskCreatedEvent {
	ev := &TaskCreatedEvent{
		ID:         uuid.New(),
		TaskID:     task.ID,
		Title:      task.Title,
		OccurredAt: time.Now().UTC(),
	}
	if task.OwnerID != nil {
		ev.OwnerID = *task.OwnerID
	}
	return ev
}

// Message renders the event the way log-based sinks print it.
func (e *TaskCreatedEvent) Message() string {
	return fmt.Sprintf("TaskCreated: %d - %s", e.TaskID, e.Title)
}

// Publisher hands an event to whatever transport sits behind it.
type Publisher interface {
	Publish(ctx context.Context, event *TaskCreatedEvent) error
}

// PublisherFunc adapts a plain function to the Publisher interface.
type PublisherFunc func(ctx context.Context, event *TaskCreatedEvent) error

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, event *TaskCreatedEvent) error {
	return f(ctx, event)
}

// Discard is a Publisher that drops every event.
var Discard Publisher = PublisherFunc(func(context.Context, *TaskCreatedEvent) error { return nil })
