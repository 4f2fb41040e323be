// Package app wires configuration, storage, messaging, and the
// application handlers into a single dependency container. The CLI and
// the worker both bootstrap through it so the two binaries share one
// wiring path.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/fabrikhq/modulus/internal/catalog"
	"github.com/fabrikhq/modulus/internal/identity"
	libraryApplication "github.com/fabrikhq/modulus/internal/library/application"
	libraryDomain "github.com/fabrikhq/modulus/internal/library/domain"
	"github.com/fabrikhq/modulus/internal/metering"
	paymentCommands "github.com/fabrikhq/modulus/internal/payments/application/commands"
	paymentQueries "github.com/fabrikhq/modulus/internal/payments/application/queries"
	paymentDomain "github.com/fabrikhq/modulus/internal/payments/domain"
	paymentPersistence "github.com/fabrikhq/modulus/internal/payments/infrastructure/persistence"
	sharedApplication "github.com/fabrikhq/modulus/internal/shared/application"
	"github.com/fabrikhq/modulus/internal/shared/infrastructure/database"
	"github.com/fabrikhq/modulus/internal/shared/infrastructure/eventbus"
	"github.com/fabrikhq/modulus/internal/shared/infrastructure/migrations"
	"github.com/fabrikhq/modulus/internal/shared/infrastructure/outbox"
	sharedPersistence "github.com/fabrikhq/modulus/internal/shared/infrastructure/persistence"
	subscriptionCommands "github.com/fabrikhq/modulus/internal/subscriptions/application/commands"
	subscriptionConsumers "github.com/fabrikhq/modulus/internal/subscriptions/application/consumers"
	subscriptionQueries "github.com/fabrikhq/modulus/internal/subscriptions/application/queries"
	subscriptionServices "github.com/fabrikhq/modulus/internal/subscriptions/application/services"
	subscriptionDomain "github.com/fabrikhq/modulus/internal/subscriptions/domain"
	subscriptionPersistence "github.com/fabrikhq/modulus/internal/subscriptions/infrastructure/persistence"
	"github.com/fabrikhq/modulus/pkg/config"
)

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Infrastructure
	DB          *pgxpool.Pool
	SQLiteDB    *sql.DB
	RedisClient *redis.Client

	// Repositories
	SubscriptionRepo subscriptionDomain.Repository
	PaymentRepo      paymentDomain.Repository
	OutboxRepo       outbox.Repository
	UnitOfWork       sharedApplication.UnitOfWork

	// Messaging
	EventPublisher    eventbus.Publisher
	InProcessEventBus *eventbus.InProcessEventBus

	// Catalog and authorization
	CatalogRegistry *catalog.Registry
	Authorizer      *identity.StaticAuthorizer

	// Metering
	MeteringRegistry *metering.Registry
	UsageAggregator  *metering.Aggregator
	LimitChecker     *metering.LimitChecker

	// Subscription handlers
	SubscribeHandler            *subscriptionCommands.SubscribeHandler
	ActivateSubscriptionHandler *subscriptionCommands.ActivateSubscriptionHandler
	RejectSubscriptionHandler   *subscriptionCommands.RejectSubscriptionHandler
	CancelSubscriptionHandler   *subscriptionCommands.CancelSubscriptionHandler
	UpgradeSubscriptionHandler  *subscriptionCommands.UpgradeSubscriptionHandler
	GetSubscriptionHandler      *subscriptionQueries.GetSubscriptionHandler
	ListSubscriptionsHandler    *subscriptionQueries.ListSubscriptionsHandler
	Sweeper                     *subscriptionServices.Sweeper

	// Payment handlers
	SubmitPaymentHandler       *paymentCommands.SubmitPaymentHandler
	VerifyPaymentHandler       *paymentCommands.VerifyPaymentHandler
	RejectPaymentHandler       *paymentCommands.RejectPaymentHandler
	GetPaymentHandler          *paymentQueries.GetPaymentHandler
	ListPaymentsHandler        *paymentQueries.ListPaymentsHandler
	ListPendingPaymentsHandler *paymentQueries.ListPendingPaymentsHandler

	// Library access
	StarterKits *libraryApplication.StaticStarterKitSource
	LibraryGate *libraryApplication.Gate

	// Event consumers
	PaymentEventConsumer *subscriptionConsumers.PaymentEventConsumer

	// Outbox processor
	OutboxProcessor *outbox.Processor
}

// NewContainerFromConfig picks the storage backend from configuration
// and builds the matching container.
func NewContainerFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	driver := database.Driver(cfg.DatabaseDriver)
	if !driver.IsValid() {
		if cfg.IsLocalMode() {
			driver = database.DriverSQLite
		} else {
			driver = database.DetectDriver(cfg.DatabaseURL)
		}
	}
	if driver == database.DriverSQLite {
		return NewLocalContainer(ctx, cfg, logger)
	}
	return NewContainer(ctx, cfg, logger)
}

// NewContainer creates and wires all dependencies against PostgreSQL,
// Redis, and RabbitMQ. Redis and RabbitMQ are optional in development;
// missing Redis disables usage limit checks and missing RabbitMQ falls
// back to a noop publisher.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: logger,
	}

	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	c.DB = pool
	logger.Info("connected to database")

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Connect to Redis (optional in development; without it usage
	// metering is disabled and subscribe/upgrade skip limit checks)
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			if !cfg.IsDevelopment() {
				pool.Close()
				return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
			}
			logger.Warn("invalid Redis URL, usage metering disabled", "error", err)
		} else {
			redisClient := redis.NewClient(opt)
			if err := redisClient.Ping(ctx).Err(); err != nil {
				if !cfg.IsDevelopment() {
					pool.Close()
					return nil, fmt.Errorf("failed to connect to Redis: %w", err)
				}
				logger.Warn("Redis not available, usage metering disabled", "error", err)
			} else {
				c.RedisClient = redisClient
				logger.Info("connected to Redis")
			}
		}
	}

	// Create repositories
	c.SubscriptionRepo = subscriptionPersistence.NewPostgresSubscriptionRepository(pool)
	c.PaymentRepo = paymentPersistence.NewPostgresPaymentRepository(pool)
	c.OutboxRepo = outbox.NewPostgresRepository(pool)
	c.UnitOfWork = sharedPersistence.NewPostgresUnitOfWork(pool)

	// Create event publisher
	publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, logger)
	if err != nil {
		// Fall back to noop publisher in development
		if cfg.IsDevelopment() {
			logger.Warn("RabbitMQ not available, using noop publisher")
			c.EventPublisher = eventbus.NewNoopPublisher(logger)
		} else {
			pool.Close()
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
	} else {
		c.EventPublisher = publisher
	}

	// Create metering when Redis is available
	c.MeteringRegistry = metering.NewRegistry()
	if c.RedisClient != nil {
		aggregatorConfig := metering.DefaultAggregatorConfig()
		if cfg.MeteringBreakerTimeout > 0 {
			aggregatorConfig.Timeout = cfg.MeteringBreakerTimeout
		}
		c.UsageAggregator = metering.NewAggregator(c.RedisClient, c.MeteringRegistry, aggregatorConfig, logger)
		c.LimitChecker = metering.NewLimitChecker(c.UsageAggregator)
	}

	c.StarterKits = libraryApplication.NewStaticStarterKitSource(false)

	c.wireApplication(cfg, logger)

	return c, nil
}

// NewLocalContainer creates a container for local mode with SQLite.
// Payment events flow through an in-process bus instead of RabbitMQ, so
// verifying a payment activates its subscription in the same process.
func NewLocalContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: logger,
	}

	db, err := database.OpenSQLite(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	c.SQLiteDB = db

	if err := migrations.RunSQLiteMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create repositories
	c.SubscriptionRepo = subscriptionPersistence.NewSQLiteSubscriptionRepository(db)
	c.PaymentRepo = paymentPersistence.NewSQLitePaymentRepository(db)
	c.OutboxRepo = outbox.NewSQLiteRepository(db)
	c.UnitOfWork = sharedPersistence.NewSQLiteUnitOfWork(db)

	// In-process event bus for local mode (no RabbitMQ). The outbox
	// processor publishes into it, which dispatches to the registered
	// consumers synchronously.
	c.InProcessEventBus = eventbus.NewInProcessEventBus(logger)
	c.EventPublisher = c.InProcessEventBus

	// Local mode is single-user; the configured user holds a starter
	// kit and full permissions.
	c.StarterKits = libraryApplication.NewStaticStarterKitSource(true)
	c.MeteringRegistry = metering.NewRegistry()

	c.wireApplication(cfg, logger)

	c.InProcessEventBus.RegisterConsumer(c.PaymentEventConsumer)

	return c, nil
}

// wireApplication constructs the handlers over whichever repositories
// and publisher the container set up. Callers set repos, outbox, unit
// of work, publisher, starter kits, and metering first.
func (c *Container) wireApplication(cfg *config.Config, logger *slog.Logger) {
	c.CatalogRegistry = catalog.DefaultRegistry()

	c.Authorizer = identity.NewStaticAuthorizer(nil)
	if operatorID, err := uuid.Parse(cfg.UserID); err == nil {
		c.Authorizer.Assign(operatorID, identity.RoleAdmin)
	} else {
		logger.Warn("invalid operator user id, no admin role assigned", "error", err)
	}

	// A nil *LimitChecker must not end up inside the interface value,
	// the handlers check the interface against nil.
	var limits subscriptionCommands.UsageLimitChecker
	if c.LimitChecker != nil {
		limits = c.LimitChecker
	}

	// Subscription command handlers
	c.SubscribeHandler = subscriptionCommands.NewSubscribeHandler(c.SubscriptionRepo, c.OutboxRepo, c.UnitOfWork, c.CatalogRegistry, limits)
	c.ActivateSubscriptionHandler = subscriptionCommands.NewActivateSubscriptionHandler(c.SubscriptionRepo, c.OutboxRepo, c.UnitOfWork)
	c.RejectSubscriptionHandler = subscriptionCommands.NewRejectSubscriptionHandler(c.SubscriptionRepo, c.OutboxRepo, c.UnitOfWork)
	c.CancelSubscriptionHandler = subscriptionCommands.NewCancelSubscriptionHandler(c.SubscriptionRepo, c.OutboxRepo, c.UnitOfWork)
	c.UpgradeSubscriptionHandler = subscriptionCommands.NewUpgradeSubscriptionHandler(c.SubscriptionRepo, c.OutboxRepo, c.UnitOfWork, c.CatalogRegistry, limits)

	// Subscription query handlers
	c.GetSubscriptionHandler = subscriptionQueries.NewGetSubscriptionHandler(c.SubscriptionRepo)
	c.ListSubscriptionsHandler = subscriptionQueries.NewListSubscriptionsHandler(c.SubscriptionRepo)

	// Reconciliation sweep
	c.Sweeper = subscriptionServices.NewSweeper(c.SubscriptionRepo, c.OutboxRepo, c.UnitOfWork, logger)

	// Payment command handlers
	c.SubmitPaymentHandler = paymentCommands.NewSubmitPaymentHandler(c.PaymentRepo, c.OutboxRepo, c.UnitOfWork)
	c.VerifyPaymentHandler = paymentCommands.NewVerifyPaymentHandler(c.PaymentRepo, c.OutboxRepo, c.UnitOfWork, c.Authorizer)
	c.RejectPaymentHandler = paymentCommands.NewRejectPaymentHandler(c.PaymentRepo, c.OutboxRepo, c.UnitOfWork, c.Authorizer)

	// Payment query handlers
	c.GetPaymentHandler = paymentQueries.NewGetPaymentHandler(c.PaymentRepo)
	c.ListPaymentsHandler = paymentQueries.NewListPaymentsHandler(c.PaymentRepo)
	c.ListPendingPaymentsHandler = paymentQueries.NewListPendingPaymentsHandler(c.PaymentRepo)

	// Library access gate
	freePeriod := libraryDomain.FreeAccessPeriod{
		Start: cfg.FreeAccessStart,
		End:   cfg.FreeAccessEnd,
	}
	c.LibraryGate = libraryApplication.NewGate(c.SubscriptionRepo, c.StarterKits, freePeriod)

	// Payment event consumer
	c.PaymentEventConsumer = subscriptionConsumers.NewPaymentEventConsumer(
		c.ActivateSubscriptionHandler,
		c.RejectSubscriptionHandler,
		logger,
	)

	// Outbox processor
	processorConfig := outbox.DefaultProcessorConfig()
	if cfg.OutboxPollInterval > 0 {
		processorConfig.PollInterval = cfg.OutboxPollInterval
	}
	if cfg.OutboxBatchSize > 0 {
		processorConfig.BatchSize = cfg.OutboxBatchSize
	}
	if cfg.OutboxMaxRetries > 0 {
		processorConfig.MaxRetries = cfg.OutboxMaxRetries
	}
	c.OutboxProcessor = outbox.NewProcessor(c.OutboxRepo, c.EventPublisher, processorConfig, logger)
}

// Close gracefully shuts down all connections.
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
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("error closing Redis connection", "error", err)
		} else {
			c.Logger.Info("Redis connection closed")
		}
	}

	if c.DB != nil {
		c.DB.Close()
		c.Logger.Info("PostgreSQL connection closed")
	}

	if c.SQLiteDB != nil {
		if err := c.SQLiteDB.Close(); err != nil {
			c.Logger.Warn("error closing SQLite connection", "error", err)
		} else {
			c.Logger.Info("SQLite connection closed")
		}
	}
}
