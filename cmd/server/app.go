package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apiMiddleware "github.com/phrazzld/taskmanager-api/internal/api/middleware"
	"github.com/phrazzld/taskmanager-api/internal/cache"
	"github.com/phrazzld/taskmanager-api/internal/config"
	"github.com/phrazzld/taskmanager-api/internal/events"
	"github.com/phrazzld/taskmanager-api/internal/service"
	"github.com/phrazzld/taskmanager-api/internal/service/auth"
	"github.com/phrazzld/taskmanager-api/internal/store"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "taskmanager:"

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	stores     *stores
	listCache  *cache.TaskListCache
	dispatcher *events.Dispatcher

	jwtService  auth.JWTService
	authService *auth.Service
	taskService service.TaskService
	rateLimiter *apiMiddleware.RateLimiter

	// closers release external clients in reverse order of creation
	closers []func() error
}

// newApplication creates a new application instance with all dependencies initialized.
// On error every resource opened so far is released.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}
	initialized := false
	defer func() {
		if !initialized {
			app.closeAll()
		}
	}()

	var err error
	app.stores, err = setupStores(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up stores: %w", err)
	}
	if db := app.stores.db; db != nil {
		app.closers = append(app.closers, db.Close)
	}

	app.listCache = app.setupCache(ctx)

	app.dispatcher = app.setupEvents()

	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.authService = auth.NewService(app.stores.users, app.jwtService, auth.NewBcryptVerifier(), logger)

	backend := app.stores.backend
	newUnitOfWork := func() *store.UnitOfWork {
		return store.NewUnitOfWork(backend, store.WithLogger(logger))
	}
	app.taskService, err = service.NewTaskService(newUnitOfWork, app.listCache, app.dispatcher, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	app.rateLimiter = apiMiddleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	app.dispatcher.Start()
	initialized = true

	logger.Info("application initialized successfully")
	return app, nil
}

// setupCache builds the task-list cache on the configured backend. An
// unreachable Redis is logged but not fatal: cache errors degrade to misses.
func (app *application) setupCache(ctx context.Context) *cache.TaskListCache {
	cfg := app.config.Cache
	log := app.logger.With("component", "cache")

	var backend cache.Backend
	switch cfg.Backend {
	case "redis":
		redisBackend := cache.NewRedisBackend(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), redisKeyPrefix)
		if err := redisBackend.Ping(ctx); err != nil {
			log.Warn("redis cache unreachable, reads will fall through to the database",
				"addr", cfg.RedisAddr,
				"error", err)
		}
		app.closers = append(app.closers, redisBackend.Close)
		backend = redisBackend
	case "none":
		backend = cache.Disabled{}
	default:
		backend = cache.NewSturdycBackend(cfg.Capacity, cfg.TTL)
	}

	log.Info("task list cache initialized", "backend", cfg.Backend, "ttl", cfg.TTL)
	return cache.NewTaskListCache(backend, cfg.TTL, app.logger)
}

// setupEvents chooses the TaskCreated sink and puts a dispatcher in front of
// it so request handling never waits on the broker.
func (app *application) setupEvents() *events.Dispatcher {
	cfg := app.config.Events

	var sink events.Publisher
	switch cfg.Broker {
	case "asynq":
		publisher := events.NewAsynqPublisher(cfg.RedisAddr, cfg.Queue)
		app.closers = append(app.closers, publisher.Close)
		sink = publisher
	default:
		sink = events.NewEmitter(events.LogHandler(app.logger.With("component", "events")))
	}

	app.logger.Info("event publishing initialized",
		"broker", cfg.Broker,
		"queue_size", cfg.QueueSize,
		"workers", cfg.Workers)

	return events.NewDispatcher(sink, events.DispatcherConfig{
		QueueSize: cfg.QueueSize,
		Workers:   cfg.Workers,
	}, app.logger)
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup drains pending events and releases external clients.
func (app *application) cleanup(ctx context.Context) {
	if app.dispatcher != nil {
		if err := app.dispatcher.Close(ctx); err != nil {
			app.logger.Error("event dispatcher did not drain before shutdown", "error", err)
		}
	}
	app.closeAll()
	app.logger.Info("application shutdown completed")
}

func (app *application) closeAll() {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	if err := errors.Join(errs...); err != nil {
		app.logger.Error("error releasing resources", "error", err)
	}
}
