package cache_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/taskmanager-api/internal/cache"
	"github.com/phrazzld/taskmanager-api/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingLoader returns tasks and records how often it ran.
type countingLoader struct {
	calls int
	tasks []*domain.TaskItem
	err   error
}

func (l *countingLoader) Load(context.Context) ([]*domain.TaskItem, error) {
	l.calls++
	return l.tasks, l.err
}

func task(id int64, owner, title string) *domain.TaskItem {
	desc := "details"
	return &domain.TaskItem{
		ID:          id,
		Title:       title,
		Description: &desc,
		Status:      domain.TaskStatusInProgress,
		CreatedAt:   time.Date(2025, 8, 12, 13, 53, 37, 123456000, time.UTC),
		OwnerID:     &owner,
		Version:     3,
	}
}

func newCache(t *testing.T) (*cache.TaskListCache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	backend := cache.NewSturdycBackend(1000, time.Hour, cache.WithClock(clock.Now))
	return cache.NewTaskListCache(backend, cache.DefaultTaskListTTL, quiet), clock
}

func TestTaskListKey(t *testing.T) {
	assert.Equal(t, "task_u1", cache.TaskListKey("u1"))
}

func TestMissPopulatesAndHitSkipsLoader(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)
	loader := &countingLoader{tasks: []*domain.TaskItem{task(2, "u1", "second"), task(1, "u1", "first")}}

	first, err := c.GetOrLoad(ctx, "u1", loader.Load)
	require.NoError(t, err)
	assert.Equal(t, 1, loader.calls)

	second, err := c.GetOrLoad(ctx, "u1", loader.Load)
	require.NoError(t, err)
	assert.Equal(t, 1, loader.calls, "a hit must not touch the store")

	require.Len(t, second, 2)
	assert.Equal(t, first[0].Title, second[0].Title, "cached order is preserved")
	assert.Equal(t, int64(2), second[0].ID)
	assert.Equal(t, "details", *second[0].Description)
	assert.Equal(t, domain.TaskStatusInProgress, second[0].Status)
	assert.Equal(t, "u1", *second[0].OwnerID)
	assert.True(t, first[0].CreatedAt.Equal(second[0].CreatedAt))
	assert.Equal(t, time.UTC, second[0].CreatedAt.Location())
}

func TestEntriesExpireAfterAbsoluteTTL(t *testing.T) {
	ctx := context.Background()
	c, clock := newCache(t)
	loader := &countingLoader{tasks: []*domain.TaskItem{task(1, "u1", "first")}}

	_, err := c.GetOrLoad(ctx, "u1", loader.Load)
	require.NoError(t, err)

	clock.Advance(4*time.Minute + 59*time.Second)
	_, err = c.GetOrLoad(ctx, "u1", loader.Load)
	require.NoError(t, err)
	assert.Equal(t, 1, loader.calls, "still inside the five minute window")

	// reads do not extend the deadline
	clock.Advance(time.Second)
	_, err = c.GetOrLoad(ctx, "u1", loader.Load)
	require.NoError(t, err)
	assert.Equal(t, 2, loader.calls, "expired entries are reloaded")
}

func TestOwnersAreCachedSeparately(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)

	u1 := &countingLoader{tasks: []*domain.TaskItem{task(1, "u1", "mine")}}
	u2 := &countingLoader{tasks: []*domain.TaskItem{}}

	_, err := c.GetOrLoad(ctx, "u1", u1.Load)
	require.NoError(t, err)

	got, err := c.GetOrLoad(ctx, "u2", u2.Load)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1, u2.calls, "another owner's entry must not satisfy this read")

	got, err = c.GetOrLoad(ctx, "u2", u2.Load)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got, "empty lists are cached too")
	assert.Equal(t, 1, u2.calls)
}

func TestLoaderErrorsAreReturnedAndNotCached(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)
	boom := errors.New("store down")
	loader := &countingLoader{err: boom}

	_, err := c.GetOrLoad(ctx, "u1", loader.Load)
	assert.ErrorIs(t, err, boom)

	loader.err = nil
	loader.tasks = []*domain.TaskItem{task(1, "u1", "back")}
	got, err := c.GetOrLoad(ctx, "u1", loader.Load)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 2, loader.calls)
}

// brokenBackend fails or returns garbage on demand.
type brokenBackend struct {
	getErr  error
	setErr  error
	garbage bool
	sets    int
}

func (b *brokenBackend) Get(context.Context, string) ([]byte, bool, error) {
	if b.getErr != nil {
		return nil, false, b.getErr
	}
	if b.garbage {
		return []byte{0xc1, 0xff, 0x00}, true, nil
	}
	return nil, false, nil
}

func (b *brokenBackend) Set(context.Context, string, []byte, time.Duration) error {
	b.sets++
	return b.setErr
}

func TestBackendFailuresDegradeToMiss(t *testing.T) {
	tests := []struct {
		name    string
		backend *brokenBackend
	}{
		{name: "read error", backend: &brokenBackend{getErr: errors.New("timeout")}},
		{name: "write error", backend: &brokenBackend{setErr: errors.New("readonly")}},
		{name: "undecodable entry", backend: &brokenBackend{garbage: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cache.NewTaskListCache(tt.backend, time.Minute, quiet)
			loader := &countingLoader{tasks: []*domain.TaskItem{task(1, "u1", "from store")}}

			got, err := c.GetOrLoad(context.Background(), "u1", loader.Load)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "from store", got[0].Title)
			assert.Equal(t, 1, loader.calls)
			assert.Equal(t, 1, tt.backend.sets)
		})
	}
}

func TestUnreachableRedisDegradesToMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	backend := cache.NewRedisBackend(client, "tasks:")
	t.Cleanup(func() { _ = backend.Close() })

	_, _, err := backend.Get(context.Background(), "task_u1")
	require.Error(t, err)

	c := cache.NewTaskListCache(backend, time.Minute, quiet)
	loader := &countingLoader{tasks: []*domain.TaskItem{task(1, "u1", "from store")}}
	got, err := c.GetOrLoad(context.Background(), "u1", loader.Load)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestDisabledBackendAlwaysMisses(t *testing.T) {
	c := cache.NewTaskListCache(cache.Disabled{}, 0, quiet)
	loader := &countingLoader{tasks: []*domain.TaskItem{}}

	for i := 0; i < 3; i++ {
		_, err := c.GetOrLoad(context.Background(), "u1", loader.Load)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, loader.calls)
}

func TestSturdycBackendCopiesValues(t *testing.T) {
	ctx := context.Background()
	b := cache.NewSturdycBackend(100, time.Minute)

	value := []byte("abc")
	require.NoError(t, b.Set(ctx, "k", value, time.Minute))
	value[0] = 'z'

	got, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", string(got))

	_, ok, err = b.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
