package service_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/taskmanager-api/internal/cache"
	"github.com/phrazzld/taskmanager-api/internal/domain"
	"github.com/phrazzld/taskmanager-api/internal/events"
	"github.com/phrazzld/taskmanager-api/internal/platform/memstore"
	"github.com/phrazzld/taskmanager-api/internal/service"
	"github.com/phrazzld/taskmanager-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	alice = "owner-alice"
	bob   = "owner-bob"
)

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

// MockPublisher mocks events.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event *events.TaskCreatedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// brokenBackend fails every commit with err while reads still reach memory.
type brokenBackend struct {
	*memstore.Backend
	err error
}

func (b *brokenBackend) Transact(context.Context, func(context.Context, store.Batch) error) error {
	return b.err
}

type fixture struct {
	svc      service.TaskService
	mem      *memstore.Backend
	backend  store.Backend
	clock    *fakeClock
	recorder *events.Recorder
	logs     *bytes.Buffer
}

func newFixture(t *testing.T, publisher events.Publisher) *fixture {
	t.Helper()

	f := &fixture{
		mem:      memstore.New(nil),
		clock:    &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)},
		recorder: &events.Recorder{},
		logs:     &bytes.Buffer{},
	}
	f.backend = f.mem
	if publisher == nil {
		publisher = events.NewEmitter(f.recorder)
	}

	log := slog.New(slog.NewJSONHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	listCache := cache.NewTaskListCache(
		cache.NewSturdycBackend(100, time.Hour, cache.WithClock(f.clock.Now)),
		cache.DefaultTaskListTTL,
		log,
	)
	factory := func() *store.UnitOfWork {
		return store.NewUnitOfWork(f.backend, store.WithClock(f.clock.Now), store.WithLogger(log))
	}

	svc, err := service.NewTaskService(factory, listCache, publisher, log)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) create(t *testing.T, owner, title string) *domain.TaskItem {
	t.Helper()
	task, err := f.svc.CreateTask(context.Background(), owner, service.CreateTaskInput{Title: title})
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	return task
}

func TestNewTaskService_Validation(t *testing.T) {
	factory := func() *store.UnitOfWork { return store.NewUnitOfWork(memstore.New(nil)) }
	listCache := cache.NewTaskListCache(cache.Disabled{}, 0, nil)

	tests := []struct {
		name      string
		factory   service.UnitOfWorkFactory
		listCache *cache.TaskListCache
		publisher events.Publisher
	}{
		{"nil factory", nil, listCache, events.Discard},
		{"nil cache", factory, nil, events.Discard},
		{"nil publisher", factory, listCache, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, err := service.NewTaskService(tc.factory, tc.listCache, tc.publisher, nil)
			assert.Nil(t, svc)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestCreateTask(t *testing.T) {
	t.Run("stores the task and publishes its id and title", func(t *testing.T) {
		f := newFixture(t, nil)
		desc := "2 litres"

		task, err := f.svc.CreateTask(context.Background(), alice, service.CreateTaskInput{
			Title:       "Buy milk",
			Description: &desc,
			Status:      domain.TaskStatusNew,
		})
		require.NoError(t, err)

		assert.Equal(t, int64(1), task.ID)
		assert.True(t, task.IsOwnedBy(alice))
		assert.True(t, f.clock.Now().Equal(task.CreatedAt))

		published := f.recorder.Events()
		require.Len(t, published, 1)
		assert.Equal(t, int64(1), published[0].TaskID)
		assert.Equal(t, "Buy milk", published[0].Title)
		assert.Equal(t, alice, published[0].OwnerID)

		got, err := f.svc.GetTask(context.Background(), alice, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "2 litres", *got.Description)
	})

	t.Run("reports every violation and stores nothing", func(t *testing.T) {
		f := newFixture(t, nil)
		long := string(bytes.Repeat([]byte("d"), domain.MaxDescriptionLength+1))

		_, err := f.svc.CreateTask(context.Background(), alice, service.CreateTaskInput{
			Title:       "",
			Description: &long,
			Status:      domain.TaskStatus(9),
		})
		require.ErrorIs(t, err, domain.ErrValidation)

		var verr *domain.ValidationErrors
		require.ErrorAs(t, err, &verr)
		assert.Len(t, verr.Violations, 3)

		assert.Empty(t, f.recorder.Events())
		tasks, err := f.svc.ListTasks(context.Background(), alice)
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})

	t.Run("publish failure does not fail the create", func(t *testing.T) {
		publisher := &MockPublisher{}
		publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e *events.TaskCreatedEvent) bool {
			return e.TaskID == 1 && e.Title == "Buy milk"
		})).Return(errors.New("broker unreachable")).Once()

		f := newFixture(t, publisher)

		task, err := f.svc.CreateTask(context.Background(), alice, service.CreateTaskInput{Title: "Buy milk"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), task.ID)
		assert.Contains(t, f.logs.String(), "failed to publish task created event")
		publisher.AssertExpectations(t)

		_, err = f.svc.GetTask(context.Background(), alice, 1)
		assert.NoError(t, err)
	})

	t.Run("nothing is published when the commit fails", func(t *testing.T) {
		f := newFixture(t, nil)
		f.backend = &brokenBackend{Backend: f.mem, err: errors.New("disk full")}

		_, err := f.svc.CreateTask(context.Background(), alice, service.CreateTaskInput{Title: "Buy milk"})
		require.Error(t, err)
		assert.ErrorIs(t, err, store.ErrPersistence)

		var serr *service.TaskServiceError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "create", serr.Operation)
		assert.Empty(t, f.recorder.Events())
	})

	t.Run("missing owner is unauthorized", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.svc.CreateTask(context.Background(), "", service.CreateTaskInput{Title: "x"})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}

func TestListTasks(t *testing.T) {
	t.Run("newest first and scoped to the owner", func(t *testing.T) {
		f := newFixture(t, nil)
		f.create(t, alice, "first")
		f.create(t, bob, "bob's")
		f.create(t, alice, "second")

		tasks, err := f.svc.ListTasks(context.Background(), alice)
		require.NoError(t, err)
		require.Len(t, tasks, 2)
		assert.Equal(t, "second", tasks[0].Title)
		assert.Equal(t, "first", tasks[1].Title)
	})

	t.Run("serves a stale list until the entry expires", func(t *testing.T) {
		f := newFixture(t, nil)
		f.create(t, alice, "first")

		tasks, err := f.svc.ListTasks(context.Background(), alice)
		require.NoError(t, err)
		require.Len(t, tasks, 1)

		f.create(t, alice, "second")

		tasks, err = f.svc.ListTasks(context.Background(), alice)
		require.NoError(t, err)
		assert.Len(t, tasks, 1, "writes do not invalidate the cached list")

		// Direct reads bypass the cache.
		_, err = f.svc.GetTask(context.Background(), alice, 2)
		require.NoError(t, err)

		f.clock.Advance(cache.DefaultTaskListTTL)

		tasks, err = f.svc.ListTasks(context.Background(), alice)
		require.NoError(t, err)
		assert.Len(t, tasks, 2)
	})

	t.Run("missing owner is unauthorized", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.svc.ListTasks(context.Background(), "")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}

func TestGetTask_OtherOwnerLooksMissing(t *testing.T) {
	f := newFixture(t, nil)
	task := f.create(t, alice, "private")

	_, err := f.svc.GetTask(context.Background(), bob, task.ID)
	assert.ErrorIs(t, err, service.ErrTaskNotFound)

	_, err = f.svc.GetTask(context.Background(), alice, 999)
	assert.ErrorIs(t, err, service.ErrTaskNotFound)
}

func TestUpdateTask(t *testing.T) {
	t.Run("replaces mutable fields", func(t *testing.T) {
		f := newFixture(t, nil)
		task := f.create(t, alice, "Buy milk")

		err := f.svc.UpdateTask(context.Background(), alice, task.ID, service.UpdateTaskInput{
			Title:  "Buy oat milk",
			Status: domain.TaskStatusDone,
		})
		require.NoError(t, err)

		got, err := f.svc.GetTask(context.Background(), alice, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "Buy oat milk", got.Title)
		assert.Equal(t, domain.TaskStatusDone, got.Status)
		assert.True(t, task.CreatedAt.Equal(got.CreatedAt))
		assert.True(t, got.IsOwnedBy(alice))
	})

	t.Run("invalid fields leave the task unchanged", func(t *testing.T) {
		f := newFixture(t, nil)
		task := f.create(t, alice, "Buy milk")

		err := f.svc.UpdateTask(context.Background(), alice, task.ID, service.UpdateTaskInput{Title: " "})
		assert.ErrorIs(t, err, domain.ErrValidation)

		got, err := f.svc.GetTask(context.Background(), alice, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "Buy milk", got.Title)
	})

	t.Run("other owner gets not found", func(t *testing.T) {
		f := newFixture(t, nil)
		task := f.create(t, alice, "Buy milk")

		err := f.svc.UpdateTask(context.Background(), bob, task.ID, service.UpdateTaskInput{Title: "mine now"})
		assert.ErrorIs(t, err, service.ErrTaskNotFound)
	})

	t.Run("version conflict is reported as stale", func(t *testing.T) {
		f := newFixture(t, nil)
		task := f.create(t, alice, "Buy milk")
		f.backend = &brokenBackend{Backend: f.mem, err: store.ErrStaleEntity}

		err := f.svc.UpdateTask(context.Background(), alice, task.ID, service.UpdateTaskInput{Title: "x"})
		assert.ErrorIs(t, err, service.ErrStaleTask)
		assert.ErrorIs(t, err, store.ErrStaleEntity)
	})
}

func TestDeleteTask(t *testing.T) {
	f := newFixture(t, nil)
	task := f.create(t, alice, "Buy milk")

	assert.ErrorIs(t, f.svc.DeleteTask(context.Background(), bob, task.ID), service.ErrTaskNotFound)

	require.NoError(t, f.svc.DeleteTask(context.Background(), alice, task.ID))
	assert.ErrorIs(t, f.svc.DeleteTask(context.Background(), alice, task.ID), service.ErrTaskNotFound)

	_, err := f.svc.GetTask(context.Background(), alice, task.ID)
	assert.ErrorIs(t, err, service.ErrTaskNotFound)
}

func TestServiceHonoursCancellation(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.CreateTask(ctx, alice, service.CreateTaskInput{Title: "late"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.recorder.Events())
}
