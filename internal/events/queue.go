package events

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Common errors returned by the event queue
var (
	ErrQueueClosed = errors.New("event queue is closed")
	ErrQueueFull   = errors.New("event queue is full")
)

// queue is a bounded buffer of pending events. Enqueue never blocks.
type queue struct {
	mu     sync.RWMutex
	events chan *TaskCreatedEvent
	logger *slog.Logger
	closed bool
}

func newQueue(size int, logger *slog.Logger) *queue {
	return &queue{
		events: make(chan *TaskCreatedEvent, size),
		logger: logger,
	}
}

// enqueue adds an event or fails immediately when the buffer is full or closed.
func (q *queue) enqueue(event *TaskCreatedEvent) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.events <- event:
		q.logger.Debug("event enqueued",
			"event_id", event.ID,
			"task_id", event.TaskID,
			"queue_len", len(q.events),
			"queue_cap", cap(q.events))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.events))
	}
}

// close stops further submission. Buffered events stay readable.
func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.events)
		q.logger.Info("event queue closed")
	}
}
