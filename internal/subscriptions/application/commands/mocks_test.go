package commands

import (
	"context"
	"testing"
	"time"

	"github.com/fabrikhq/modulus/internal/catalog"
	sharedDomain "github.com/fabrikhq/modulus/internal/shared/domain"
	"github.com/fabrikhq/modulus/internal/shared/infrastructure/outbox"
	"github.com/fabrikhq/modulus/internal/subscriptions/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type txKeyType string

const testTxKey txKeyType = "tx"

// mockSubscriptionRepo is a mock implementation of domain.Repository.
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

// mockOutboxRepo is a mock implementation of outbox.Repository.
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

// mockUnitOfWork is a mock implementation of UnitOfWork.
type mockUnitOfWork struct {
	mock.Mock
}

func (m *mockUnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	args := m.Called(ctx)
	return args.Get(0).(context.Context), args.Error(1)
}

func (m *mockUnitOfWork) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockUnitOfWork) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// mockLimitChecker is a mock implementation of UsageLimitChecker.
type mockLimitChecker struct {
	mock.Mock
}

func (m *mockLimitChecker) CheckTier(ctx context.Context, userID uuid.UUID, moduleID string, tier catalog.Tier) error {
	args := m.Called(ctx, userID, moduleID, tier)
	return args.Error(0)
}

func testRegistry(t *testing.T) *catalog.Registry {
	t.Helper()
	registry, err := catalog.NewRegistry(catalog.Module{
		ID:   "ledger",
		Name: "Ledger",
		Tiers: []catalog.Tier{
			{
				Name:    "basic",
				Rank:    0,
				Monthly: catalog.MustMoney(4_99, "EUR"),
				Annual:  catalog.MustMoney(49_99, "EUR"),
				Limits:  map[string]int64{"transactions": 500},
			},
			{
				Name:    "pro",
				Rank:    1,
				Monthly: catalog.MustMoney(14_99, "EUR"),
				Annual:  catalog.MustMoney(149_99, "EUR"),
				Limits:  map[string]int64{"transactions": 10_000},
			},
		},
	})
	require.NoError(t, err)
	return registry
}

func activeTestSubscription(t *testing.T, userID uuid.UUID, moduleID, tier string) *domain.Subscription {
	t.Helper()
	s, err := domain.NewSubscription(userID, moduleID, tier, catalog.MustMoney(4_99, "EUR"), sharedDomain.BillingMonthly)
	require.NoError(t, err)
	require.NoError(t, s.Activate(time.Now()))
	s.ClearDomainEvents()
	return s
}

func pendingTestSubscription(t *testing.T, userID uuid.UUID, moduleID, tier string) *domain.Subscription {
	t.Helper()
	s, err := domain.NewSubscription(userID, moduleID, tier, catalog.MustMoney(4_99, "EUR"), sharedDomain.BillingMonthly)
	require.NoError(t, err)
	s.ClearDomainEvents()
	return s
}
