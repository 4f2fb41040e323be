// The worker runs the background half of modulus: it drains the
// transactional outbox to RabbitMQ, consumes payment events to settle
// pending subscriptions, and sweeps lapsed subscriptions on a cron
// schedule.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fabrikhq/modulus/internal/app"
	"github.com/fabrikhq/modulus/internal/shared/infrastructure/eventbus"
	"github.com/fabrikhq/modulus/pkg/config"
	"github.com/fabrikhq/modulus/pkg/observability"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}

	logCfg := observability.DefaultLogConfig()
	logCfg.Level = observability.LogLevel(cfg.LogLevel)
	logCfg.Format = observability.LogFormat(cfg.LogFormat)
	logCfg.ServiceName = "modulus-worker"
	logger := observability.NewLogger(logCfg)

	logger.Info("starting modulus worker")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	container, err := app.NewContainerFromConfig(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	// Start the outbox processor
	if err := container.OutboxProcessor.Start(ctx); err != nil {
		logger.Error("failed to start outbox processor", "error", err)
		os.Exit(1)
	}

	// Consume payment events from RabbitMQ. Local mode skips this; the
	// in-process bus already dispatches to the consumer.
	if container.InProcessEventBus == nil && cfg.RabbitMQURL != "" {
		registry := eventbus.NewConsumerRegistry(logger)
		registry.Register(container.PaymentEventConsumer)

		consumer, err := eventbus.NewRabbitMQConsumer(eventbus.RabbitMQConsumerConfig{
			URL:    cfg.RabbitMQURL,
			Logger: logger,
		}, registry)
		if err != nil {
			if !cfg.IsDevelopment() {
				logger.Error("failed to connect RabbitMQ consumer", "error", err)
				os.Exit(1)
			}
			logger.Warn("RabbitMQ not available, payment events will not be consumed", "error", err)
		} else {
			defer consumer.Close()
			if err := consumer.Start(ctx); err != nil {
				logger.Error("failed to start RabbitMQ consumer", "error", err)
				os.Exit(1)
			}
			logger.Info("payment event consumer started")
		}
	}

	// Reconciliation sweep on a cron schedule
	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.SweepSchedule, func() {
		result, err := container.Sweeper.Run(ctx, time.Now())
		if err != nil {
			logger.Error("subscription sweep failed", "error", err)
			return
		}
		if result.Cancelled > 0 || result.Expired > 0 {
			logger.Info("subscription sweep completed",
				"cancelled", result.Cancelled,
				"expired", result.Expired,
			)
		}
	})
	if err != nil {
		logger.Error("invalid sweep schedule", "schedule", cfg.SweepSchedule, "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()
	logger.Info("sweep scheduled", "schedule", cfg.SweepSchedule)

	// Periodic outbox cleanup
	cleanupTicker := time.NewTicker(cfg.OutboxCleanupInterval)
	defer cleanupTicker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-cleanupTicker.C:
				deleted, err := container.OutboxRepo.DeleteOld(ctx, cfg.OutboxRetentionDays)
				if err != nil {
					logger.Error("outbox cleanup failed", "error", err)
					continue
				}
				if deleted > 0 {
					logger.Info("outbox cleanup completed", "deleted", deleted, "retention_days", cfg.OutboxRetentionDays)
				}
			}
		}
	}()

	if cfg.WorkerHealthAddr != "" {
		startHealthServer(ctx, cfg, container, logger)
	}

	// Periodic stats logging
	statsTicker := time.NewTicker(cfg.OutboxStatsInterval)
	defer statsTicker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-statsTicker.C:
				stats := container.OutboxProcessor.GetStats()
				logger.Info("outbox stats",
					"running", stats.IsRunning,
					"published", stats.PublishedCount,
					"failed", stats.FailedCount,
					"dead", stats.DeadCount,
					"lag_seconds", stats.LagSeconds,
					"last_processed_at", stats.LastProcessedAt,
					"last_error", stats.LastError,
				)
			}
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down worker")
	container.OutboxProcessor.Stop()
	logger.Info("worker stopped")
}

func startHealthServer(ctx context.Context, cfg *config.Config, container *app.Container, logger *slog.Logger) {
	health := observability.NewHealthRegistry()
	health.Register("database", observability.DatabaseHealthChecker(func(ctx context.Context) error {
		return pingStorage(ctx, container)
	}))
	if container.RedisClient != nil {
		health.Register("redis", observability.DatabaseHealthChecker(func(ctx context.Context) error {
			return container.RedisClient.Ping(ctx).Err()
		}))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		stats := container.OutboxProcessor.GetStats()
		response := map[string]any{
			"status":            "ok",
			"running":           stats.IsRunning,
			"published":         stats.PublishedCount,
			"failed":            stats.FailedCount,
			"dead":              stats.DeadCount,
			"last_processed_at": stats.LastProcessedAt,
			"last_error_at":     stats.LastErrorAt,
			"last_error":        stats.LastError,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		overall := health.GetOverallHealth(checkCtx)
		w.Header().Set("Content-Type", "application/json")
		if overall.Status != observability.HealthStatusHealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(overall)
	})

	healthSrv := &http.Server{
		Addr:              cfg.WorkerHealthAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("health server starting", "addr", cfg.WorkerHealthAddr)
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := healthSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("health server shutdown error", "error", err)
		}
	}()
}

func pingStorage(ctx context.Context, container *app.Container) error {
	if container.DB != nil {
		return container.DB.Ping(ctx)
	}
	return container.SQLiteDB.PingContext(ctx)
}
