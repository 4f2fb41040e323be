package eventbus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventConsumer handles specific event types.
type EventConsumer interface {
	// EventTypes returns the routing keys this consumer handles,
	// e.g. ["payments.payment.verified", "payments.payment.rejected"].
	EventTypes() []string

	// Handle processes the event.
	Handle(ctx context.Context, event *ConsumedEvent) error
}

// ConsumedEvent represents an event received from the message bus.
// Payload holds the raw domain-event JSON for the consumer to decode.
type ConsumedEvent struct {
	EventID       uuid.UUID       `json:"event_id"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	RoutingKey    string          `json:"routing_key"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
	Metadata      EventMetadata   `json:"metadata,omitempty"`
}

// EventMetadata contains optional metadata about the event.
type EventMetadata struct {
	UserID        uuid.UUID `json:"user_id,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	CausationID   string    `json:"causation_id,omitempty"`
}

// Consumer defines the interface for consuming events from a message broker.
type Consumer interface {
	// Start begins consuming messages. This is a blocking call.
	Start(ctx context.Context) error

	// RegisterConsumer registers an event consumer.
	RegisterConsumer(consumer EventConsumer)

	// Close closes the consumer connection.
	Close() error
}

// decodeConsumedEvent builds a ConsumedEvent from a raw message body.
// Domain events are published as their own JSON document, so the body
// doubles as the payload when no envelope field is present.
func decodeConsumedEvent(routingKey string, body []byte) *ConsumedEvent {
	event := &ConsumedEvent{}
	_ = json.Unmarshal(body, event)

	if event.RoutingKey == "" {
		event.RoutingKey = routingKey
	}
	if len(event.Payload) == 0 {
		event.Payload = append(json.RawMessage(nil), body...)
	}
	return event
}
