package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	paymentDomain "github.com/fabrikhq/modulus/internal/payments/domain"
	"github.com/fabrikhq/modulus/internal/shared/infrastructure/eventbus"
	"github.com/fabrikhq/modulus/internal/subscriptions/application/commands"
	"github.com/fabrikhq/modulus/internal/subscriptions/domain"
	"github.com/google/uuid"
)

// PaymentEventConsumer reacts to payment reconciliation events and
// transitions the matching pending subscription.
type PaymentEventConsumer struct {
	activateHandler *commands.ActivateSubscriptionHandler
	rejectHandler   *commands.RejectSubscriptionHandler
	logger          *slog.Logger
}

// NewPaymentEventConsumer creates a new PaymentEventConsumer.
func NewPaymentEventConsumer(
	activateHandler *commands.ActivateSubscriptionHandler,
	rejectHandler *commands.RejectSubscriptionHandler,
	logger *slog.Logger,
) *PaymentEventConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentEventConsumer{
		activateHandler: activateHandler,
		rejectHandler:   rejectHandler,
		logger:          logger,
	}
}

// EventTypes returns the event types this consumer handles.
func (c *PaymentEventConsumer) EventTypes() []string {
	return []string{
		paymentDomain.RoutingKeyPaymentVerified,
		paymentDomain.RoutingKeyPaymentRejected,
	}
}

// paymentEventPayload carries the fields of verified/rejected payment
// events this consumer needs.
type paymentEventPayload struct {
	PaymentID uuid.UUID `json:"payment_id"`
	UserID    uuid.UUID `json:"user_id"`
	ModuleID  string    `json:"module_id"`
	Reason    string    `json:"reason"`
}

// Handle processes a payment event.
func (c *PaymentEventConsumer) Handle(ctx context.Context, event *eventbus.ConsumedEvent) error {
	var payload paymentEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		c.logger.Error("failed to decode payment event",
			"routing_key", event.RoutingKey,
			"error", err,
		)
		return err
	}
	if payload.UserID == uuid.Nil || payload.ModuleID == "" {
		c.logger.Warn("payment event missing user or module, skipping",
			"routing_key", event.RoutingKey,
			"payment_id", payload.PaymentID,
		)
		return nil
	}

	switch event.RoutingKey {
	case paymentDomain.RoutingKeyPaymentVerified:
		return c.handleVerified(ctx, payload)
	case paymentDomain.RoutingKeyPaymentRejected:
		return c.handleRejected(ctx, payload)
	default:
		c.logger.Warn("unknown event type", "routing_key", event.RoutingKey)
		return nil
	}
}

func (c *PaymentEventConsumer) handleVerified(ctx context.Context, payload paymentEventPayload) error {
	err := c.activateHandler.Handle(ctx, commands.ActivateSubscriptionCommand{
		UserID:   payload.UserID,
		ModuleID: payload.ModuleID,
	})
	if err != nil {
		// A verified payment without a pending subscription is a
		// renewal or a manual correction, not a consumer failure.
		if errors.Is(err, domain.ErrSubscriptionNotFound) || errors.Is(err, domain.ErrNotPending) {
			c.logger.Warn("verified payment has no pending subscription",
				"payment_id", payload.PaymentID,
				"user_id", payload.UserID,
				"module_id", payload.ModuleID,
			)
			return nil
		}
		return err
	}

	c.logger.Info("subscription activated by verified payment",
		"payment_id", payload.PaymentID,
		"user_id", payload.UserID,
		"module_id", payload.ModuleID,
	)
	return nil
}

func (c *PaymentEventConsumer) handleRejected(ctx context.Context, payload paymentEventPayload) error {
	reason := payload.Reason
	if reason == "" {
		reason = "payment rejected"
	}

	err := c.rejectHandler.Handle(ctx, commands.RejectSubscriptionCommand{
		UserID:   payload.UserID,
		ModuleID: payload.ModuleID,
		Reason:   reason,
	})
	if err != nil {
		if errors.Is(err, domain.ErrSubscriptionNotFound) || errors.Is(err, domain.ErrNotPending) {
			c.logger.Warn("rejected payment has no pending subscription",
				"payment_id", payload.PaymentID,
				"user_id", payload.UserID,
				"module_id", payload.ModuleID,
			)
			return nil
		}
		return err
	}

	c.logger.Info("subscription rejected by payment rejection",
		"payment_id", payload.PaymentID,
		"user_id", payload.UserID,
		"module_id", payload.ModuleID,
	)
	return nil
}
