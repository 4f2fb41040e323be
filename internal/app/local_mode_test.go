package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	paymentCommands "github.com/fabrikhq/modulus/internal/payments/application/commands"
	subscriptionCommands "github.com/fabrikhq/modulus/internal/subscriptions/application/commands"
	subscriptionQueries "github.com/fabrikhq/modulus/internal/subscriptions/application/queries"
	"github.com/fabrikhq/modulus/internal/subscriptions/domain"
	"github.com/fabrikhq/modulus/pkg/config"
)

const testOperatorID = "00000000-0000-0000-0000-000000000001"

func setupLocalContainer(t *testing.T) (*Container, context.Context, uuid.UUID) {
	t.Helper()

	tempDir := t.TempDir()
	cfg := &config.Config{
		AppEnv:             "test",
		LocalMode:          true,
		DatabaseDriver:     "sqlite",
		SQLitePath:         filepath.Join(tempDir, "test.db"),
		UserID:             testOperatorID,
		OutboxPollInterval: 10 * time.Millisecond,
		OutboxBatchSize:    10,
		OutboxMaxRetries:   3,
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	ctx := context.Background()
	container, err := NewLocalContainer(ctx, cfg, logger)
	require.NoError(t, err)
	t.Cleanup(container.Close)

	return container, ctx, uuid.MustParse(testOperatorID)
}

// TestLocalModeContainer tests that a local mode container can be created and used.
func TestLocalModeContainer(t *testing.T) {
	container, _, _ := setupLocalContainer(t)

	// SQLite mode, no external infrastructure
	assert.NotNil(t, container.SQLiteDB)
	assert.Nil(t, container.DB)
	assert.Nil(t, container.RedisClient)
	assert.NotNil(t, container.InProcessEventBus)

	// No Redis means no usage metering
	assert.Nil(t, container.UsageAggregator)
	assert.Nil(t, container.LimitChecker)
	assert.NotNil(t, container.MeteringRegistry)

	// Repositories
	assert.NotNil(t, container.SubscriptionRepo)
	assert.NotNil(t, container.PaymentRepo)
	assert.NotNil(t, container.OutboxRepo)
	assert.NotNil(t, container.UnitOfWork)

	// Handlers
	assert.NotNil(t, container.SubscribeHandler)
	assert.NotNil(t, container.CancelSubscriptionHandler)
	assert.NotNil(t, container.UpgradeSubscriptionHandler)
	assert.NotNil(t, container.ListSubscriptionsHandler)
	assert.NotNil(t, container.SubmitPaymentHandler)
	assert.NotNil(t, container.VerifyPaymentHandler)
	assert.NotNil(t, container.ListPendingPaymentsHandler)
	assert.NotNil(t, container.Sweeper)
	assert.NotNil(t, container.LibraryGate)
	assert.NotNil(t, container.PaymentEventConsumer)
	assert.NotNil(t, container.OutboxProcessor)
}

// TestLocalModeSubscriptionLifecycle drives the full local flow: a
// subscription starts pending, its payment is submitted and verified,
// and the outbox processor feeds the verification event through the
// in-process bus until the consumer activates the subscription.
func TestLocalModeSubscriptionLifecycle(t *testing.T) {
	container, ctx, userID := setupLocalContainer(t)

	require.NoError(t, container.OutboxProcessor.Start(ctx))

	subResult, err := container.SubscribeHandler.Handle(ctx, subscriptionCommands.SubscribeCommand{
		UserID:       userID,
		ModuleID:     "ledger",
		Tier:         "basic",
		BillingCycle: "monthly",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4_99), subResult.AmountMinor)
	assert.Equal(t, "EUR", subResult.Currency)

	dto, err := container.GetSubscriptionHandler.Handle(ctx, subscriptionQueries.GetSubscriptionQuery{
		UserID:   userID,
		ModuleID: "ledger",
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusPending), dto.Status)

	payResult, err := container.SubmitPaymentHandler.Handle(ctx, paymentCommands.SubmitPaymentCommand{
		UserID:      userID,
		ModuleID:    "ledger",
		AmountMinor: 4_99,
		Currency:    "EUR",
		Method:      "mobile_money",
		Reference:   "TXN-LOCAL-1",
		PaymentType: "subscription",
	})
	require.NoError(t, err)

	err = container.VerifyPaymentHandler.Handle(ctx, paymentCommands.VerifyPaymentCommand{
		PaymentID:  payResult.PaymentID,
		VerifierID: userID,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		dto, err := container.GetSubscriptionHandler.Handle(ctx, subscriptionQueries.GetSubscriptionQuery{
			UserID:   userID,
			ModuleID: "ledger",
		})
		return err == nil && dto.Status == string(domain.StatusActive)
	}, 5*time.Second, 20*time.Millisecond, "subscription should activate once the verification event is processed")
}

// TestLocalModePaymentRejection drives the rejection path: a rejected
// payment closes the pending subscription.
func TestLocalModePaymentRejection(t *testing.T) {
	container, ctx, userID := setupLocalContainer(t)

	require.NoError(t, container.OutboxProcessor.Start(ctx))

	_, err := container.SubscribeHandler.Handle(ctx, subscriptionCommands.SubscribeCommand{
		UserID:       userID,
		ModuleID:     "workshops",
		Tier:         "basic",
		BillingCycle: "monthly",
	})
	require.NoError(t, err)

	payResult, err := container.SubmitPaymentHandler.Handle(ctx, paymentCommands.SubmitPaymentCommand{
		UserID:      userID,
		ModuleID:    "workshops",
		AmountMinor: 7_99,
		Currency:    "EUR",
		Method:      "bank_transfer",
		Reference:   "TXN-LOCAL-2",
		PaymentType: "subscription",
	})
	require.NoError(t, err)

	err = container.RejectPaymentHandler.Handle(ctx, paymentCommands.RejectPaymentCommand{
		PaymentID:  payResult.PaymentID,
		VerifierID: userID,
		Reason:     "reference not found on statement",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		subs, err := container.ListSubscriptionsHandler.Handle(ctx, subscriptionQueries.ListSubscriptionsQuery{
			UserID: userID,
		})
		if err != nil || len(subs) != 1 {
			return false
		}
		return subs[0].Status == string(domain.StatusRejected)
	}, 5*time.Second, 20*time.Millisecond, "subscription should be rejected once the rejection event is processed")
}

// TestLocalModeLibraryGate verifies the access gate against local
// subscriptions. Local mode grants the starter kit by default.
func TestLocalModeLibraryGate(t *testing.T) {
	container, ctx, userID := setupLocalContainer(t)

	// Starter kit alone is not enough without a subscription
	decision, err := container.LibraryGate.CheckAccess(ctx, userID)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)

	_, err = container.SubscribeHandler.Handle(ctx, subscriptionCommands.SubscribeCommand{
		UserID:       userID,
		ModuleID:     "library",
		Tier:         "member",
		BillingCycle: "monthly",
	})
	require.NoError(t, err)

	// Pending does not grant access yet
	allowed, err := container.LibraryGate.CanAccess(ctx, userID)
	require.NoError(t, err)
	assert.False(t, allowed)

	err = container.ActivateSubscriptionHandler.Handle(ctx, subscriptionCommands.ActivateSubscriptionCommand{
		UserID:   userID,
		ModuleID: "library",
	})
	require.NoError(t, err)

	allowed, err = container.LibraryGate.CanAccess(ctx, userID)
	require.NoError(t, err)
	assert.True(t, allowed)
}
