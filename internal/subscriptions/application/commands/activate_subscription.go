package commands

import (
	"context"
	"time"

	sharedApplication "github.com/fabrikhq/modulus/internal/shared/application"
	"github.com/fabrikhq/modulus/internal/shared/infrastructure/outbox"
	"github.com/fabrikhq/modulus/internal/subscriptions/domain"
	"github.com/google/uuid"
)

// ActivateSubscriptionCommand activates the pending subscription for a
// (user, module) pair. Issued by the payment-verified consumer.
type ActivateSubscriptionCommand struct {
	UserID   uuid.UUID
	ModuleID string
}

// ActivateSubscriptionHandler handles the ActivateSubscriptionCommand.
type ActivateSubscriptionHandler struct {
	subscriptionRepo domain.Repository
	outboxRepo       outbox.Repository
	uow              sharedApplication.UnitOfWork
}

// NewActivateSubscriptionHandler creates a new ActivateSubscriptionHandler.
func NewActivateSubscriptionHandler(
	subscriptionRepo domain.Repository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
) *ActivateSubscriptionHandler {
	return &ActivateSubscriptionHandler{
		subscriptionRepo: subscriptionRepo,
		outboxRepo:       outboxRepo,
		uow:              uow,
	}
}

// Handle executes the ActivateSubscriptionCommand. The open-slot unique
// index guarantees at most one pending subscription can match, so no
// FIFO guessing across a user's modules is possible.
func (h *ActivateSubscriptionHandler) Handle(ctx context.Context, cmd ActivateSubscriptionCommand) error {
	return sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		subscription, err := h.subscriptionRepo.FindOpenByUserAndModule(txCtx, cmd.UserID, cmd.ModuleID)
		if err != nil {
			return err
		}

		if err := subscription.Activate(time.Now()); err != nil {
			return err
		}

		if err := h.subscriptionRepo.Save(txCtx, subscription); err != nil {
			return err
		}

		events := subscription.DomainEvents()
		sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(cmd.UserID))
		msgs, err := outbox.MessagesFromEvents(events)
		if err != nil {
			return err
		}
		return h.outboxRepo.SaveBatch(txCtx, msgs)
	})
}
