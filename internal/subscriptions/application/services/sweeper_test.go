package services

import (
	"context"
	"testing"
	"time"

	"github.com/fabrikhq/modulus/internal/catalog"
	sharedDomain "github.com/fabrikhq/modulus/internal/shared/domain"
	"github.com/fabrikhq/modulus/internal/shared/infrastructure/outbox"
	"github.com/fabrikhq/modulus/internal/subscriptions/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSubscriptionRepo struct {
	mock.Mock
}

func (m *mockSubscriptionRepo) Save(ctx context.Context, subscription *domain.Subscription) error {
	args := m.Called(ctx, subscription)
	return args.Error(0)
}

func (m *mockSubscriptionRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepo) FindOpenByUserAndModule(ctx context.Context, userID uuid.UUID, moduleID string) (*domain.Subscription, error) {
	args := m.Called(ctx, userID, moduleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepo) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepo) FindDueForSweep(ctx context.Context, now time.Time) ([]*domain.Subscription, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Subscription), args.Error(1)
}

type mockOutboxRepo struct {
	mock.Mock
}

func (m *mockOutboxRepo) Save(ctx context.Context, msg *outbox.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *mockOutboxRepo) SaveBatch(ctx context.Context, msgs []*outbox.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *mockOutboxRepo) GetUnpublished(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *mockOutboxRepo) MarkPublished(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockOutboxRepo) MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	args := m.Called(ctx, id, errMsg, nextRetryAt)
	return args.Error(0)
}

func (m *mockOutboxRepo) MarkDead(ctx context.Context, id int64, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *mockOutboxRepo) DeleteOld(ctx context.Context, olderThanDays int) (int64, error) {
	args := m.Called(ctx, olderThanDays)
	return args.Get(0).(int64), args.Error(1)
}

// passthroughUnitOfWork runs callbacks without a real transaction.
type passthroughUnitOfWork struct{}

func (passthroughUnitOfWork) Begin(ctx context.Context) (context.Context, error) { return ctx, nil }
func (passthroughUnitOfWork) Commit(ctx context.Context) error                   { return nil }
func (passthroughUnitOfWork) Rollback(ctx context.Context) error                 { return nil }

func dueSubscription(t *testing.T, cancelAtPeriodEnd bool) *domain.Subscription {
	t.Helper()
	s, err := domain.NewSubscription(uuid.New(), "ledger", "basic", catalog.MustMoney(4_99, "EUR"), sharedDomain.BillingMonthly)
	require.NoError(t, err)

	// Activated two months ago so the monthly period has elapsed.
	anchor := time.Now().AddDate(0, -2, 0)
	require.NoError(t, s.Activate(anchor))
	if cancelAtPeriodEnd {
		require.NoError(t, s.Cancel("scheduled", false, anchor.AddDate(0, 0, 1)))
	}
	s.ClearDomainEvents()
	return s
}

func TestSweeper_Run(t *testing.T) {
	now := time.Now()

	t.Run("finalizes scheduled cancellations and expiries", func(t *testing.T) {
		repo := new(mockSubscriptionRepo)
		outboxRepo := new(mockOutboxRepo)
		sweeper := NewSweeper(repo, outboxRepo, passthroughUnitOfWork{}, nil)

		toCancel := dueSubscription(t, true)
		toExpire := dueSubscription(t, false)

		ctx := context.Background()
		repo.On("FindDueForSweep", ctx, now).Return([]*domain.Subscription{toCancel, toExpire}, nil)
		repo.On("Save", ctx, mock.AnythingOfType("*domain.Subscription")).Return(nil)
		outboxRepo.On("SaveBatch", ctx, mock.AnythingOfType("[]*outbox.Message")).Return(nil)

		result, err := sweeper.Run(ctx, now)
		require.NoError(t, err)

		assert.Equal(t, 1, result.Cancelled)
		assert.Equal(t, 1, result.Expired)
		assert.Equal(t, 0, result.Failed)
		assert.Equal(t, domain.StatusCancelled, toCancel.Status())
		assert.Equal(t, domain.StatusExpired, toExpire.Status())
	})

	t.Run("one failure does not block the batch", func(t *testing.T) {
		repo := new(mockSubscriptionRepo)
		outboxRepo := new(mockOutboxRepo)
		sweeper := NewSweeper(repo, outboxRepo, passthroughUnitOfWork{}, nil)

		failing := dueSubscription(t, false)
		healthy := dueSubscription(t, false)

		ctx := context.Background()
		repo.On("FindDueForSweep", ctx, now).Return([]*domain.Subscription{failing, healthy}, nil)
		repo.On("Save", ctx, failing).Return(assert.AnError)
		repo.On("Save", ctx, healthy).Return(nil)
		outboxRepo.On("SaveBatch", ctx, mock.AnythingOfType("[]*outbox.Message")).Return(nil)

		result, err := sweeper.Run(ctx, now)
		require.NoError(t, err)

		assert.Equal(t, 1, result.Failed)
		assert.Equal(t, 1, result.Expired)
		assert.Equal(t, domain.StatusExpired, healthy.Status())
	})

	t.Run("nothing due", func(t *testing.T) {
		repo := new(mockSubscriptionRepo)
		sweeper := NewSweeper(repo, new(mockOutboxRepo), passthroughUnitOfWork{}, nil)

		ctx := context.Background()
		repo.On("FindDueForSweep", ctx, now).Return([]*domain.Subscription{}, nil)

		result, err := sweeper.Run(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, SweepResult{}, result)
	})
}
