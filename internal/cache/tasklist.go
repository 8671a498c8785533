package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/phrazzld/taskmanager-api/internal/domain"
	"github.com/phrazzld/taskmanager-api/internal/platform/logger"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultTaskListTTL is how long a cached task list is served.
const DefaultTaskListTTL = 5 * time.Minute

// TaskListKey returns the cache key for ownerID's task list.
func TaskListKey(ownerID string) string {
	return "task_" + ownerID
}

// TaskLoader fetches an owner's tasks from the source of truth.
type TaskLoader func(ctx context.Context) ([]*domain.TaskItem, error)

// TaskListCache is the cache-aside wrapper around listing an owner's tasks.
// Concurrent misses for one owner each run the loader and each write the
// entry; the writes are identical, so no coordination is attempted.
type TaskListCache struct {
	backend Backend
	ttl     time.Duration
	logger  *slog.Logger
}

// NewTaskListCache creates a TaskListCache. A non-positive ttl selects
// DefaultTaskListTTL.
func NewTaskListCache(backend Backend, ttl time.Duration, log *slog.Logger) *TaskListCache {
	if ttl <= 0 {
		ttl = DefaultTaskListTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &TaskListCache{
		backend: backend,
		ttl:     ttl,
		logger:  log.With(slog.String("component", "task_list_cache")),
	}
}

// GetOrLoad returns the cached list for ownerID when one is present and
// unexpired, without calling load. Otherwise it calls load, caches the result
// for the configured TTL and returns it.
//
// Cache failures never fail the read: a backend error or an undecodable
// entry is logged and treated as a miss, and a failed write is logged and
// ignored. Errors from load are returned unchanged and nothing is cached.
func (c *TaskListCache) GetOrLoad(ctx context.Context, ownerID string, load TaskLoader) ([]*domain.TaskItem, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)
	key := TaskListKey(ownerID)

	raw, found, err := c.backend.Get(ctx, key)
	switch {
	case err != nil:
		log.Warn("task list cache read failed, falling back to store",
			slog.String("key", key),
			slog.String("error", err.Error()))
	case found:
		tasks, decodeErr := decodeTaskList(raw)
		if decodeErr == nil {
			log.Debug("task list cache hit", slog.String("key", key), slog.Int("count", len(tasks)))
			return tasks, nil
		}
		log.Warn("discarding undecodable task list cache entry",
			slog.String("key", key),
			slog.String("error", decodeErr.Error()))
	}

	tasks, err := load(ctx)
	if err != nil {
		return nil, err
	}

	encoded, err := encodeTaskList(tasks)
	if err != nil {
		log.Warn("failed to encode task list for cache", slog.String("error", err.Error()))
		return tasks, nil
	}
	if err := c.backend.Set(ctx, key, encoded, c.ttl); err != nil {
		log.Warn("task list cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}

	return tasks, nil
}

// cachedTask is the serialized form of a task list entry. It is kept separate
// from domain.TaskItem so the cache format only changes deliberately.
type cachedTask struct {
	ID          int64     `msgpack:"id"`
	Title       string    `msgpack:"title"`
	Description *string   `msgpack:"description"`
	Status      int       `msgpack:"status"`
	CreatedAt   time.Time `msgpack:"created_at"`
	OwnerID     *string   `msgpack:"owner_id"`
	Version     int64     `msgpack:"version"`
}

func encodeTaskList(tasks []*domain.TaskItem) ([]byte, error) {
	out := make([]cachedTask, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, cachedTask{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Status:      int(t.Status),
			CreatedAt:   t.CreatedAt,
			OwnerID:     t.OwnerID,
			Version:     t.Version,
		})
	}
	return msgpack.Marshal(out)
}

func decodeTaskList(raw []byte) ([]*domain.TaskItem, error) {
	var in []cachedTask
	if err := msgpack.Unmarshal(raw, &in); err != nil {
		return nil, err
	}
	tasks := make([]*domain.TaskItem, 0, len(in))
	for _, c := range in {
		tasks = append(tasks, &domain.TaskItem{
			ID:          c.ID,
			Title:       c.Title,
			Description: c.Description,
			Status:      domain.TaskStatus(c.Status),
			CreatedAt:   c.CreatedAt.UTC(),
			OwnerID:     c.OwnerID,
			Version:     c.Version,
		})
	}
	return tasks, nil
}
