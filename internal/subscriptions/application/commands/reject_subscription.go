package commands

import (
	"context"

	sharedApplication "github.com/fabrikhq/modulus/internal/shared/application"
	"github.com/fabrikhq/modulus/internal/shared/infrastructure/outbox"
	"github.com/fabrikhq/modulus/internal/subscriptions/domain"
	"github.com/google/uuid"
)

// RejectSubscriptionCommand rejects the pending subscription for a
// (user, module) pair. Issued by the payment-rejected consumer.
type RejectSubscriptionCommand struct {
	UserID   uuid.UUID
	ModuleID string
	Reason   string
}

// RejectSubscriptionHandler handles the RejectSubscriptionCommand.
type RejectSubscriptionHandler struct {
	subscriptionRepo domain.Repository
	outboxRepo       outbox.Repository
	uow              sharedApplication.UnitOfWork
}

// NewRejectSubscriptionHandler creates a new RejectSubscriptionHandler.
func NewRejectSubscriptionHandler(
	subscriptionRepo domain.Repository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
) *RejectSubscriptionHandler {
	return &RejectSubscriptionHandler{
		subscriptionRepo: subscriptionRepo,
		outboxRepo:       outboxRepo,
		uow:              uow,
	}
}

// Handle executes the RejectSubscriptionCommand.
func (h *RejectSubscriptionHandler) Handle(ctx context.Context, cmd RejectSubscriptionCommand) error {
	return sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		subscription, err := h.subscriptionRepo.FindOpenByUserAndModule(txCtx, cmd.UserID, cmd.ModuleID)
		if err != nil {
			return err
		}

		if err := subscription.Reject(cmd.Reason); err != nil {
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
