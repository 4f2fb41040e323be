package outbox

import (
	"testing"
	"time"

	"github.com/fabrikhq/modulus/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paymentVerifiedStub struct {
	domain.BaseEvent
	PaymentID uuid.UUID `json:"payment_id"`
	UserID    uuid.UUID `json:"user_id"`
}

func newPaymentVerifiedStub() *paymentVerifiedStub {
	paymentID := uuid.New()
	return &paymentVerifiedStub{
		BaseEvent: domain.NewBaseEvent(paymentID, "Payment", "payments.payment.verified"),
		PaymentID: paymentID,
		UserID:    uuid.New(),
	}
}

func TestNewMessage(t *testing.T) {
	event := newPaymentVerifiedStub()
	meta := domain.EventMetadata{
		CorrelationID: uuid.New(),
		CausationID:   uuid.New(),
		UserID:        event.UserID,
	}
	event.SetMetadata(meta)

	msg, err := NewMessage(event)
	require.NoError(t, err)

	assert.Equal(t, event.EventID(), msg.EventID)
	assert.Equal(t, "Payment", msg.AggregateType)
	assert.Equal(t, event.PaymentID, msg.AggregateID)
	assert.Equal(t, "payments.payment.verified", msg.RoutingKey)
	assert.Equal(t, "payments.payment.verified", msg.EventType)
	assert.Contains(t, string(msg.Payload), event.PaymentID.String())
	assert.Contains(t, string(msg.Metadata), meta.CorrelationID.String())
	assert.Equal(t, event.OccurredAt(), msg.CreatedAt)
}

func TestMessagesFromEvents(t *testing.T) {
	events := []domain.DomainEvent{newPaymentVerifiedStub(), newPaymentVerifiedStub()}

	msgs, err := MessagesFromEvents(events)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, events[0].EventID(), msgs[0].EventID)
	assert.Equal(t, events[1].EventID(), msgs[1].EventID)
}

func TestMessage_IsPublished(t *testing.T) {
	msg := &Message{}
	assert.False(t, msg.IsPublished())

	now := time.Now()
	msg.PublishedAt = &now
	assert.True(t, msg.IsPublished())
}

func TestMessage_CanRetry(t *testing.T) {
	msg := &Message{RetryCount: 2}
	assert.True(t, msg.CanRetry(5))
	assert.False(t, msg.CanRetry(2))
}
