package commands

import (
	"context"
	"testing"

	"github.com/fabrikhq/modulus/internal/catalog"
	"github.com/fabrikhq/modulus/internal/payments/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSubmitPaymentHandler_Handle(t *testing.T) {
	userID := uuid.New()

	validCommand := func() SubmitPaymentCommand {
		return SubmitPaymentCommand{
			UserID:      userID,
			ModuleID:    "ledger",
			AmountMinor: 4_99,
			Currency:    "EUR",
			Method:      "mobile_money",
			Reference:   "TXN-1001",
			PhoneNumber: "+255700000001",
			PaymentType: "subscription",
		}
	}

	t.Run("records a submitted payment", func(t *testing.T) {
		repo := new(mockPaymentRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewSubmitPaymentHandler(repo, outboxRepo, uow)

		ctx := context.Background()
		txCtx := context.WithValue(ctx, testTxKey, "transaction")

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Commit", txCtx).Return(nil)
		repo.On("FindByReference", txCtx, "TXN-1001").Return(nil, domain.ErrPaymentNotFound)
		repo.On("Save", txCtx, mock.AnythingOfType("*domain.Payment")).Return(nil)
		outboxRepo.On("SaveBatch", txCtx, mock.AnythingOfType("[]*outbox.Message")).Return(nil)

		result, err := handler.Handle(ctx, validCommand())

		require.NoError(t, err)
		require.NotNil(t, result)
		assert.NotEqual(t, uuid.Nil, result.PaymentID)
		assert.Equal(t, "submitted", result.Status)

		repo.AssertExpectations(t)
		outboxRepo.AssertExpectations(t)
		uow.AssertExpectations(t)
	})

	t.Run("fails when the reference is already recorded", func(t *testing.T) {
		repo := new(mockPaymentRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewSubmitPaymentHandler(repo, outboxRepo, uow)

		ctx := context.Background()
		txCtx := context.WithValue(ctx, testTxKey, "transaction")

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Rollback", txCtx).Return(nil)
		repo.On("FindByReference", txCtx, "TXN-1001").Return(submittedTestPayment(t), nil)

		_, err := handler.Handle(ctx, validCommand())

		assert.ErrorIs(t, err, domain.ErrDuplicateTransaction)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("translates the storage unique violation", func(t *testing.T) {
		repo := new(mockPaymentRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewSubmitPaymentHandler(repo, outboxRepo, uow)

		ctx := context.Background()
		txCtx := context.WithValue(ctx, testTxKey, "transaction")

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Rollback", txCtx).Return(nil)
		repo.On("FindByReference", txCtx, "TXN-1001").Return(nil, domain.ErrPaymentNotFound)
		repo.On("Save", txCtx, mock.AnythingOfType("*domain.Payment")).Return(domain.ErrDuplicateTransaction)

		_, err := handler.Handle(ctx, validCommand())

		assert.ErrorIs(t, err, domain.ErrDuplicateTransaction)
	})

	t.Run("rejects an invalid currency", func(t *testing.T) {
		handler := NewSubmitPaymentHandler(new(mockPaymentRepo), new(mockOutboxRepo), new(mockUnitOfWork))

		cmd := validCommand()
		cmd.Currency = "eur0"

		_, err := handler.Handle(context.Background(), cmd)

		assert.ErrorIs(t, err, catalog.ErrInvalidCurrency)
	})

	t.Run("rejects an unknown method", func(t *testing.T) {
		repo := new(mockPaymentRepo)
		uow := new(mockUnitOfWork)
		handler := NewSubmitPaymentHandler(repo, new(mockOutboxRepo), uow)

		ctx := context.Background()
		txCtx := context.WithValue(ctx, testTxKey, "transaction")

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Rollback", txCtx).Return(nil)
		repo.On("FindByReference", txCtx, "TXN-1001").Return(nil, domain.ErrPaymentNotFound)

		cmd := validCommand()
		cmd.Method = "cash"

		_, err := handler.Handle(ctx, cmd)

		assert.ErrorIs(t, err, domain.ErrInvalidMethod)
	})
}
