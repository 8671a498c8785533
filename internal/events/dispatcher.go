package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultPublishTimeout bounds a single sink call made by a dispatcher worker.
const DefaultPublishTimeout = 5 * time.Second

// DispatcherConfig holds configuration options for the dispatcher
type DispatcherConfig struct {
	// QueueSize is the number of events that may wait for a worker.
	QueueSize int

	// Workers is the number of goroutines draining the queue.
	// If zero or negative, defaults to 1.
	Workers int

	// PublishTimeout bounds each sink call. Zero means DefaultPublishTimeout.
	PublishTimeout time.Duration
}

// Dispatcher makes a sink fire-and-forget. Publish only enqueues; workers forward
// events to the sink and log failures.
type Dispatcher struct {
	queue   *queue
	sink    Publisher
	workers int
	timeout time.Duration
	logger  *slog.Logger

	wg        sync.WaitGroup
	startOnce sync.Once
}

// NewDispatcher creates a dispatcher in front of sink. Call Start before publishing.
func NewDispatcher(sink Publisher, config DispatcherConfig, logger *slog.Logger) *Dispatcher {
	logger = logger.With("component", "event_dispatcher")

	workers := config.Workers
	if workers <= 0 {
		workers = 1
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.Workers,
			"default_count", 1)
	}
	size := config.QueueSize
	if size < 0 {
		size = 0
	}
	timeout := config.PublishTimeout
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}

	return &Dispatcher{
		queue:   newQueue(size, logger),
		sink:    sink,
		workers: workers,
		timeout: timeout,
		logger:  logger,
	}
}

// Start launches the worker goroutines. Calling it more than once has no effect.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		d.logger.Info("starting event dispatcher", "workers", d.workers)
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.work(i)
		}
	})
}

// Publish queues the event without waiting for the sink. The sink call runs on a
// worker with its own deadline, so it outlives the caller's request.
func (d *Dispatcher) Publish(_ context.Context, event *TaskCreatedEvent) error {
	return d.queue.enqueue(event)
}

// Close stops accepting events and waits for queued ones to be delivered or for
// ctx to expire, whichever comes first.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.queue.close()
	d.Start()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("event dispatcher stopped")
		return nil
	case <-ctx.Done():
		d.logger.Warn("event dispatcher shutdown timed out")
		return ctx.Err()
	}
}

func (d *Dispatcher) work(id int) {
	defer d.wg.Done()
	for event := range d.queue.events {
		d.deliver(id, event)
	}
}

func (d *Dispatcher) deliver(worker int, event *TaskCreatedEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.sink.Publish(ctx, event); err != nil {
		d.logger.Error("failed to publish event",
			"worker", worker,
			"event_id", event.ID,
			"task_id", event.TaskID,
			"error", err)
		return
	}
	d.logger.Debug("event published", "worker", worker, "event_id", event.ID, "task_id", event.TaskID)
}
