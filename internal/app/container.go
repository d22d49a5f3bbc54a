package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sharedApplication "github.com/felixgeelhaar/tasklist/internal/shared/application"
	"github.com/felixgeelhaar/tasklist/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/tasklist/internal/shared/infrastructure/database/postgres" // Register PostgreSQL driver
	_ "github.com/felixgeelhaar/tasklist/internal/shared/infrastructure/database/sqlite"   // Register SQLite driver
	"github.com/felixgeelhaar/tasklist/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/tasklist/internal/shared/infrastructure/lock"
	"github.com/felixgeelhaar/tasklist/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/tasklist/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/tasklist/internal/tasks/application/commands"
	"github.com/felixgeelhaar/tasklist/internal/tasks/application/queries"
	"github.com/felixgeelhaar/tasklist/internal/tasks/application/services"
	"github.com/felixgeelhaar/tasklist/internal/tasks/domain/task"
	"github.com/felixgeelhaar/tasklist/pkg/config"
	"github.com/felixgeelhaar/tasklist/pkg/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
)

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *observability.InMemoryMetrics

	// Database
	DBConn   database.Connection
	DBDriver database.Driver

	// Redis, when the Redis lock backend is in use
	RedisClient *redis.Client

	// Repositories
	TaskRepo   task.Repository
	OutboxRepo outbox.Repository

	// Unit of Work and per-user serialization
	UnitOfWork sharedApplication.UnitOfWork
	Locker     sharedApplication.UserLocker
	Ranker     *services.PriorityRanker

	// Publishers
	EventPublisher eventbus.Publisher

	// Task Command Handlers
	CreateTaskHandler     *commands.CreateTaskHandler
	ChangePriorityHandler *commands.ChangePriorityHandler
	UpdateTaskHandler     *commands.UpdateTaskHandler
	CompleteTaskHandler   *commands.CompleteTaskHandler
	DeleteTaskHandler     *commands.DeleteTaskHandler

	// Task Query Handlers
	ListTasksHandler    *queries.ListTasksHandler
	GetTaskHandler      *queries.GetTaskHandler
	CheckRankingHandler *queries.CheckRankingHandler

	// Outbox Processor
	OutboxProcessor *outbox.Processor

	// Health
	Health *observability.HealthRegistry
}

// NewContainer creates and wires all dependencies. With no DATABASE_URL it
// runs in local mode on a SQLite file without Redis or RabbitMQ.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewInMemoryMetrics(),
		Ranker:  services.NewPriorityRanker(),
		Health:  observability.NewHealthRegistry(),
	}

	conn, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	c.DBConn = conn
	c.DBDriver = conn.Driver()
	c.Health.Register("database", observability.DatabaseHealthChecker(conn.Ping))

	if err := c.initRepositories(); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initLocker(ctx); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initPublisher(); err != nil {
		c.Close()
		return nil, err
	}
	c.initHandlers()

	logger.Info("container initialized",
		"driver", c.DBDriver,
		"lock_backend", cfg.LockBackend,
		"local_mode", cfg.IsLocalMode(),
	)
	return c, nil
}

// openDatabase connects to the configured driver and applies migrations.
func openDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (database.Connection, error) {
	conn, err := database.NewConnection(ctx, database.Config{
		Driver:     database.ParseDriver(cfg.DatabaseDriver, cfg.DatabaseURL),
		URL:        cfg.DatabaseURL,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	var applied int
	switch native := conn.(type) {
	case interface{ Pool() *pgxpool.Pool }:
		applied, err = migrations.RunPostgresMigrations(ctx, native.Pool())
	case interface{ DB() *sql.DB }:
		applied, err = migrations.RunSQLiteMigrations(ctx, native.DB())
	default:
		err = fmt.Errorf("unsupported connection %T", conn)
	}
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("connected to database", "driver", conn.Driver(), "migrations_applied", applied)
	return conn, nil
}

func (c *Container) initRepositories() error {
	factory := NewRepositoryFactory(c.DBConn)

	taskRepo, err := factory.TaskRepository()
	if err != nil {
		return fmt.Errorf("failed to create task repository: %w", err)
	}
	c.TaskRepo = taskRepo

	outboxRepo, err := factory.OutboxRepository()
	if err != nil {
		return fmt.Errorf("failed to create outbox repository: %w", err)
	}
	c.OutboxRepo = outboxRepo

	uow, err := factory.UnitOfWork()
	if err != nil {
		return fmt.Errorf("failed to create unit of work: %w", err)
	}
	c.UnitOfWork = uow
	return nil
}

// initLocker picks the per-user lock. An unreachable Redis falls back to the
// in-process lock in development only.
func (c *Container) initLocker(ctx context.Context) error {
	cfg := c.Config
	switch cfg.LockBackend {
	case config.LockNone:
		c.Locker = sharedApplication.NoopUserLocker{}
		return nil
	case config.LockLocal:
		c.Locker = lock.NewLocalLocker()
		return nil
	case config.LockRedis:
	default:
		return fmt.Errorf("unknown lock backend %q", cfg.LockBackend)
	}

	client, err := connectRedis(ctx, cfg.RedisURL)
	if err != nil {
		if !cfg.IsDevelopment() {
			return err
		}
		c.Logger.Warn("Redis not available, using in-process user lock", "error", err)
		c.Locker = lock.NewLocalLocker()
		return nil
	}

	c.RedisClient = client
	lockCfg := lock.DefaultRedisConfig()
	if cfg.LockTTL > 0 {
		lockCfg.TTL = cfg.LockTTL
	}
	if cfg.LockWait > 0 {
		lockCfg.Wait = cfg.LockWait
	}
	c.Locker = lock.NewRedisLocker(client, lockCfg)
	c.Health.Register("redis", observability.RedisHealthChecker(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}))
	c.Logger.Info("connected to Redis")
	return nil
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// initPublisher connects to RabbitMQ behind a circuit breaker. Without a
// broker URL, or in development when it is unreachable, events stay in the
// outbox behind a noop publisher.
func (c *Container) initPublisher() error {
	cfg := c.Config
	if cfg.RabbitMQURL == "" {
		c.EventPublisher = eventbus.NewNoopPublisher(c.Logger)
		return nil
	}

	rabbit, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, c.Logger)
	if err != nil {
		if !cfg.IsDevelopment() {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		c.Logger.Warn("RabbitMQ not available, using noop publisher", "error", err)
		c.EventPublisher = eventbus.NewNoopPublisher(c.Logger)
		return nil
	}

	breakerCfg := eventbus.DefaultBreakerConfig()
	if cfg.BreakerFailureThreshold > 0 {
		breakerCfg.FailureThreshold = cfg.BreakerFailureThreshold
	}
	if cfg.BreakerMaxRequests > 0 {
		breakerCfg.MaxRequests = cfg.BreakerMaxRequests
	}
	if cfg.BreakerInterval > 0 {
		breakerCfg.Interval = cfg.BreakerInterval
	}
	if cfg.BreakerTimeout > 0 {
		breakerCfg.Timeout = cfg.BreakerTimeout
	}
	breaker := eventbus.NewBreakerPublisher(rabbit, breakerCfg, c.Logger)
	c.EventPublisher = breaker
	c.Health.Register("rabbitmq", observability.RabbitMQHealthChecker(func(context.Context) error {
		if breaker.State() == gobreaker.StateOpen {
			return eventbus.ErrBrokerUnavailable
		}
		return nil
	}))
	return nil
}

func (c *Container) initHandlers() {
	deps := commands.Deps{
		Tasks:   c.TaskRepo,
		Outbox:  c.OutboxRepo,
		UoW:     c.UnitOfWork,
		Locker:  c.Locker,
		Ranker:  c.Ranker,
		Metrics: c.Metrics,
		Logger:  c.Logger,
	}
	c.CreateTaskHandler = commands.NewCreateTaskHandler(deps)
	c.ChangePriorityHandler = commands.NewChangePriorityHandler(deps)
	c.UpdateTaskHandler = commands.NewUpdateTaskHandler(deps)
	c.CompleteTaskHandler = commands.NewCompleteTaskHandler(deps)
	c.DeleteTaskHandler = commands.NewDeleteTaskHandler(deps)

	c.ListTasksHandler = queries.NewListTasksHandler(c.TaskRepo, c.Config.DefaultPageSize)
	c.GetTaskHandler = queries.NewGetTaskHandler(c.TaskRepo)
	c.CheckRankingHandler = queries.NewCheckRankingHandler(c.TaskRepo)
}

// NewOutboxProcessor builds the relay from the outbox to the publisher.
func (c *Container) NewOutboxProcessor() *outbox.Processor {
	cfg := c.Config
	procCfg := outbox.DefaultProcessorConfig()
	if cfg.OutboxPollInterval > 0 {
		procCfg.PollInterval = cfg.OutboxPollInterval
	}
	if cfg.OutboxBatchSize > 0 {
		procCfg.BatchSize = cfg.OutboxBatchSize
	}
	if cfg.OutboxMaxRetries > 0 {
		procCfg.MaxRetries = cfg.OutboxMaxRetries
	}
	if cfg.OutboxRetentionDays > 0 {
		procCfg.RetentionDays = cfg.OutboxRetentionDays
	}
	c.OutboxProcessor = outbox.NewProcessor(c.OutboxRepo, c.EventPublisher, procCfg, c.Logger)
	return c.OutboxProcessor
}

// UserID parses the configured acting user.
func (c *Container) UserID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Config.UserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid TASKLIST_USER_ID %q: %w", c.Config.UserID, err)
	}
	return id, nil
}

// Close releases all resources held by the container.
func (c *Container) Close() {
	if c.OutboxProcessor != nil {
		c.OutboxProcessor.Stop()
	}

	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			c.Logger.Warn("error closing Redis connection", "error", err)
		}
	}

	if c.DBConn != nil {
		if err := c.DBConn.Close(); err != nil {
			c.Logger.Warn("error closing database connection", "error", err)
		} else {
			c.Logger.Info("database connection closed", "driver", c.DBDriver)
		}
	}
}
