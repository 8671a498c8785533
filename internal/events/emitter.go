package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Handler receives events from an Emitter.
type Handler interface {
	HandleEvent(ctx context.Context, event *TaskCreatedEvent) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, event *TaskCreatedEvent) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *TaskCreatedEvent) error {
	return f(ctx, event)
}

// Emitter is an in-process Publisher that fans events out to registered handlers.
// It is used when no external broker is configured and in tests.
type Emitter struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewEmitter creates an Emitter with the given handlers registered.
func NewEmitter(handlers ...Handler) *Emitter {
	return &Emitter{handlers: handlers}
}

// RegisterHandler adds a handler. Handlers run in registration order.
func (e *Emitter) RegisterHandler(h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, h)
}

// Publish delivers the event to every handler and joins their errors.
func (e *Emitter) Publish(ctx context.Context, event *TaskCreatedEvent) error {
	e.mu.RLock()
	handlers := make([]Handler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := h.HandleEvent(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogHandler writes each event to the logger at info level.
func LogHandler(logger *slog.Logger) Handler {
	return HandlerFunc(func(ctx context.Context, event *TaskCreatedEvent) error {
		logger.InfoContext(ctx, event.Message(),
			slog.String("event_id", event.ID.String()),
			slog.Int64("task_id", event.TaskID),
			slog.String("owner_id", event.OwnerID))
		return nil
	})
}

// Recorder is a Handler that keeps every event it sees.
type Recorder struct {
	mu     sync.Mutex
	events []*TaskCreatedEvent
}

// HandleEvent stores the event.
func (r *Recorder) HandleEvent(_ context.Context, event *TaskCreatedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a snapshot of the recorded events.
func (r *Recorder) Events() []*TaskCreatedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*TaskCreatedEvent, len(r.events))
	copy(out, r.events)
	return out
}
