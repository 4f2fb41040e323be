package consumers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/fabrikhq/modulus/internal/catalog"
	paymentDomain "github.com/fabrikhq/modulus/internal/payments/domain"
	"github.com/fabrikhq/modulus/internal/shared/infrastructure/eventbus"
	"github.com/fabrikhq/modulus/internal/shared/infrastructure/outbox"
	"github.com/fabrikhq/modulus/internal/subscriptions/application/commands"
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

type passthroughUnitOfWork struct{}

func (passthroughUnitOfWork) Begin(ctx context.Context) (context.Context, error) { return ctx, nil }
func (passthroughUnitOfWork) Commit(ctx context.Context) error                   { return nil }
func (passthroughUnitOfWork) Rollback(ctx context.Context) error                 { return nil }

func pendingSubscription(t *testing.T, userID uuid.UUID, moduleID string) *domain.Subscription {
	t.Helper()
	s, err := domain.NewSubscription(userID, moduleID, "basic", catalog.MustMoney(4_99, "EUR"), "monthly")
	require.NoError(t, err)
	s.ClearDomainEvents()
	return s
}

func verifiedEvent(t *testing.T, userID uuid.UUID, moduleID string) *eventbus.ConsumedEvent {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"payment_id": uuid.New(),
		"user_id":    userID,
		"module_id":  moduleID,
	})
	require.NoError(t, err)
	return &eventbus.ConsumedEvent{
		RoutingKey: paymentDomain.RoutingKeyPaymentVerified,
		Payload:    payload,
	}
}

func newConsumer(repo *mockSubscriptionRepo, outboxRepo *mockOutboxRepo) *PaymentEventConsumer {
	uow := passthroughUnitOfWork{}
	return NewPaymentEventConsumer(
		commands.NewActivateSubscriptionHandler(repo, outboxRepo, uow),
		commands.NewRejectSubscriptionHandler(repo, outboxRepo, uow),
		nil,
	)
}

func TestPaymentEventConsumer_EventTypes(t *testing.T) {
	consumer := newConsumer(new(mockSubscriptionRepo), new(mockOutboxRepo))

	assert.ElementsMatch(t, []string{
		"payments.payment.verified",
		"payments.payment.rejected",
	}, consumer.EventTypes())
}

func TestPaymentEventConsumer_Handle(t *testing.T) {
	userID := uuid.New()

	t.Run("verified payment activates the pending subscription", func(t *testing.T) {
		repo := new(mockSubscriptionRepo)
		outboxRepo := new(mockOutboxRepo)
		consumer := newConsumer(repo, outboxRepo)

		subscription := pendingSubscription(t, userID, "ledger")
		repo.On("FindOpenByUserAndModule", mock.Anything, userID, "ledger").Return(subscription, nil)
		repo.On("Save", mock.Anything, subscription).Return(nil)
		outboxRepo.On("SaveBatch", mock.Anything, mock.AnythingOfType("[]*outbox.Message")).Return(nil)

		err := consumer.Handle(context.Background(), verifiedEvent(t, userID, "ledger"))

		require.NoError(t, err)
		assert.Equal(t, domain.StatusActive, subscription.Status())
		repo.AssertExpectations(t)
		outboxRepo.AssertExpectations(t)
	})

	t.Run("verified payment without a pending subscription is a no-op", func(t *testing.T) {
		repo := new(mockSubscriptionRepo)
		consumer := newConsumer(repo, new(mockOutboxRepo))

		repo.On("FindOpenByUserAndModule", mock.Anything, userID, "ledger").Return(nil, domain.ErrSubscriptionNotFound)

		err := consumer.Handle(context.Background(), verifiedEvent(t, userID, "ledger"))

		assert.NoError(t, err)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("verified payment for an active subscription is a no-op", func(t *testing.T) {
		repo := new(mockSubscriptionRepo)
		consumer := newConsumer(repo, new(mockOutboxRepo))

		subscription := pendingSubscription(t, userID, "ledger")
		require.NoError(t, subscription.Activate(subscription.CreatedAt()))
		subscription.ClearDomainEvents()
		repo.On("FindOpenByUserAndModule", mock.Anything, userID, "ledger").Return(subscription, nil)

		err := consumer.Handle(context.Background(), verifiedEvent(t, userID, "ledger"))

		assert.NoError(t, err)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("rejected payment rejects the pending subscription", func(t *testing.T) {
		repo := new(mockSubscriptionRepo)
		outboxRepo := new(mockOutboxRepo)
		consumer := newConsumer(repo, outboxRepo)

		subscription := pendingSubscription(t, userID, "ledger")
		repo.On("FindOpenByUserAndModule", mock.Anything, userID, "ledger").Return(subscription, nil)
		repo.On("Save", mock.Anything, subscription).Return(nil)
		outboxRepo.On("SaveBatch", mock.Anything, mock.AnythingOfType("[]*outbox.Message")).Return(nil)

		payload, err := json.Marshal(map[string]any{
			"payment_id": uuid.New(),
			"user_id":    userID,
			"module_id":  "ledger",
			"reason":     "amount mismatch",
		})
		require.NoError(t, err)

		err = consumer.Handle(context.Background(), &eventbus.ConsumedEvent{
			RoutingKey: paymentDomain.RoutingKeyPaymentRejected,
			Payload:    payload,
		})

		require.NoError(t, err)
		assert.Equal(t, domain.StatusRejected, subscription.Status())
		assert.Equal(t, "amount mismatch", subscription.CancellationReason())
	})

	t.Run("skips events missing user or module", func(t *testing.T) {
		repo := new(mockSubscriptionRepo)
		consumer := newConsumer(repo, new(mockOutboxRepo))

		err := consumer.Handle(context.Background(), &eventbus.ConsumedEvent{
			RoutingKey: paymentDomain.RoutingKeyPaymentVerified,
			Payload:    json.RawMessage(`{"payment_id":"` + uuid.NewString() + `"}`),
		})

		assert.NoError(t, err)
		repo.AssertNotCalled(t, "FindOpenByUserAndModule", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("fails on malformed payload", func(t *testing.T) {
		consumer := newConsumer(new(mockSubscriptionRepo), new(mockOutboxRepo))

		err := consumer.Handle(context.Background(), &eventbus.ConsumedEvent{
			RoutingKey: paymentDomain.RoutingKeyPaymentVerified,
			Payload:    json.RawMessage(`{not json`),
		})

		assert.Error(t, err)
	})

	t.Run("ignores unknown routing keys", func(t *testing.T) {
		consumer := newConsumer(new(mockSubscriptionRepo), new(mockOutboxRepo))

		err := consumer.Handle(context.Background(), &eventbus.ConsumedEvent{
			RoutingKey: "payments.payment.refunded",
			Payload:    json.RawMessage(`{"user_id":"` + uuid.NewString() + `","module_id":"ledger"}`),
		})

		assert.NoError(t, err)
	})
}
