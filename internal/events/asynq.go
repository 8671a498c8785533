package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// AsynqPublisher enqueues TaskCreated events on a Redis-backed asynq queue.
// Nothing in this service consumes the queue; it exists for downstream workers.
type AsynqPublisher struct {
	client *asynq.Client
	queue  string
}

// NewAsynqPublisher creates a publisher with one long-lived client.
func NewAsynqPublisher(redisAddr, queue string) *AsynqPublisher {
	return &AsynqPublisher{
		client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr}),
		queue:  queue,
	}
}

// Publish enqueues the {taskId, title} payload. The broker does not retry.
func (p *AsynqPublisher) Publish(ctx context.Context, event *TaskCreatedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", TypeTaskCreated, err)
	}

	task := asynq.NewTask(TypeTaskCreated, payload,
		asynq.Queue(p.queue),
		asynq.MaxRetry(0),
		asynq.TaskID(event.ID.String()))

	if _, err := p.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("failed to enqueue %s for task %d: %w", TypeTaskCreated, event.TaskID, err)
	}
	return nil
}

// Close releases the client's Redis connection.
func (p *AsynqPublisher) Close() error {
	return p.client.Close()
}
