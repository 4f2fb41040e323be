package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/fabrikhq/modulus/adapter/cli"
	cliLibrary "github.com/fabrikhq/modulus/adapter/cli/library"
	cliPayment "github.com/fabrikhq/modulus/adapter/cli/payment"
	cliSubscription "github.com/fabrikhq/modulus/adapter/cli/subscription"
	cliUsage "github.com/fabrikhq/modulus/adapter/cli/usage"
	"github.com/fabrikhq/modulus/internal/app"
	"github.com/fabrikhq/modulus/pkg/config"
	"github.com/fabrikhq/modulus/pkg/observability"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		cfg = &config.Config{AppEnv: "development", LocalMode: true}
	}

	logCfg := observability.DefaultLogConfig()
	logCfg.Level = observability.LogLevel(cfg.LogLevel)
	logCfg.Format = observability.LogFormat(cfg.LogFormat)
	logger := observability.NewLogger(logCfg)
	cli.SetLogger(logger)

	container, err := app.NewContainerFromConfig(ctx, cfg, logger)

	var cliApp *cli.App
	if err != nil {
		if cfg.IsDevelopment() {
			logger.Warn("failed to initialize container, running in limited mode", "error", err)
		} else {
			logger.Error("failed to initialize container", "error", err)
			os.Exit(1)
		}
	} else {
		defer container.Close()

		// The outbox processor drains events written by CLI commands.
		// In local mode this is what activates subscriptions after a
		// payment verification.
		if cfg.OutboxProcessorEnabled {
			if err := container.OutboxProcessor.Start(ctx); err != nil {
				logger.Warn("failed to start outbox processor", "error", err)
			}
		}

		cliApp = cli.NewApp(
			container.SubscribeHandler,
			container.CancelSubscriptionHandler,
			container.UpgradeSubscriptionHandler,
			container.GetSubscriptionHandler,
			container.ListSubscriptionsHandler,
			container.SubmitPaymentHandler,
			container.VerifyPaymentHandler,
			container.RejectPaymentHandler,
			container.GetPaymentHandler,
			container.ListPaymentsHandler,
			container.ListPendingPaymentsHandler,
			container.CatalogRegistry,
			container.UsageAggregator,
			container.LibraryGate,
		)

		userID, err := uuid.Parse(cfg.UserID)
		if err != nil {
			logger.Error("invalid MODULUS_USER_ID", "error", err)
			os.Exit(1)
		}
		cliApp.SetCurrentUserID(userID)
	}

	cli.SetApp(cliApp)

	cli.AddCommand(cliSubscription.Cmd)
	cli.AddCommand(cliPayment.Cmd)
	cli.AddCommand(cliUsage.Cmd)
	cli.AddCommand(cliLibrary.Cmd)

	cli.Execute()
}
