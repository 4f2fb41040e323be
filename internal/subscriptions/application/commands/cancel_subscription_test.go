package commands

import (
	"context"
	"testing"

	"github.com/fabrikhq/modulus/internal/subscriptions/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCancelSubscriptionHandler_Handle(t *testing.T) {
	userID := uuid.New()

	t.Run("immediate cancellation", func(t *testing.T) {
		repo := new(mockSubscriptionRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewCancelSubscriptionHandler(repo, outboxRepo, uow)

		ctx := context.Background()
		txCtx := context.WithValue(ctx, testTxKey, "transaction")

		subscription := activeTestSubscription(t, userID, "ledger", "basic")
		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Commit", txCtx).Return(nil)
		repo.On("FindOpenByUserAndModule", txCtx, userID, "ledger").Return(subscription, nil)
		repo.On("Save", txCtx, subscription).Return(nil)
		outboxRepo.On("SaveBatch", txCtx, mock.AnythingOfType("[]*outbox.Message")).Return(nil)

		result, err := handler.Handle(ctx, CancelSubscriptionCommand{
			UserID:    userID,
			ModuleID:  "ledger",
			Reason:    "no longer needed",
			Immediate: true,
		})

		require.NoError(t, err)
		assert.Equal(t, string(domain.StatusCancelled), result.Status)
		assert.Nil(t, result.EffectiveAt)
		assert.Equal(t, domain.StatusCancelled, subscription.Status())
	})

	t.Run("deferred cancellation stays active until period end", func(t *testing.T) {
		repo := new(mockSubscriptionRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewCancelSubscriptionHandler(repo, outboxRepo, uow)

		ctx := context.Background()
		txCtx := context.WithValue(ctx, testTxKey, "transaction")

		subscription := activeTestSubscription(t, userID, "ledger", "basic")
		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Commit", txCtx).Return(nil)
		repo.On("FindOpenByUserAndModule", txCtx, userID, "ledger").Return(subscription, nil)
		repo.On("Save", txCtx, subscription).Return(nil)
		outboxRepo.On("SaveBatch", txCtx, mock.AnythingOfType("[]*outbox.Message")).Return(nil)

		result, err := handler.Handle(ctx, CancelSubscriptionCommand{
			UserID:   userID,
			ModuleID: "ledger",
			Reason:   "switching plans",
		})

		require.NoError(t, err)
		assert.Equal(t, string(domain.StatusActive), result.Status)
		require.NotNil(t, result.EffectiveAt)
		assert.True(t, subscription.CancelAtPeriodEnd())
	})

	t.Run("fails without an active subscription", func(t *testing.T) {
		repo := new(mockSubscriptionRepo)
		uow := new(mockUnitOfWork)
		handler := NewCancelSubscriptionHandler(repo, new(mockOutboxRepo), uow)

		ctx := context.Background()
		txCtx := context.WithValue(ctx, testTxKey, "transaction")

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Rollback", txCtx).Return(nil)
		repo.On("FindOpenByUserAndModule", txCtx, userID, "ledger").Return(nil, domain.ErrSubscriptionNotFound)

		_, err := handler.Handle(ctx, CancelSubscriptionCommand{
			UserID: userID, ModuleID: "ledger", Immediate: true,
		})
		assert.ErrorIs(t, err, domain.ErrNoActiveSubscription)
	})

	t.Run("pending subscription cannot be cancelled", func(t *testing.T) {
		repo := new(mockSubscriptionRepo)
		uow := new(mockUnitOfWork)
		handler := NewCancelSubscriptionHandler(repo, new(mockOutboxRepo), uow)

		ctx := context.Background()
		txCtx := context.WithValue(ctx, testTxKey, "transaction")

		pending := pendingTestSubscription(t, userID, "ledger", "basic")
		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Rollback", txCtx).Return(nil)
		repo.On("FindOpenByUserAndModule", txCtx, userID, "ledger").Return(pending, nil)

		_, err := handler.Handle(ctx, CancelSubscriptionCommand{
			UserID: userID, ModuleID: "ledger", Immediate: true,
		})
		assert.ErrorIs(t, err, domain.ErrNoActiveSubscription)
	})
}
