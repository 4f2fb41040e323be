package commands

import (
	"context"
	"errors"
	"time"

	sharedApplication "github.com/fabrikhq/modulus/internal/shared/application"
	"github.com/fabrikhq/modulus/internal/shared/infrastructure/outbox"
	"github.com/fabrikhq/modulus/internal/subscriptions/domain"
	"github.com/google/uuid"
)

// CancelSubscriptionCommand contains the data needed to cancel a
// subscription.
type CancelSubscriptionCommand struct {
	UserID    uuid.UUID
	ModuleID  string
	Reason    string
	Immediate bool
}

// CancelSubscriptionResult contains the result of a cancellation.
type CancelSubscriptionResult struct {
	SubscriptionID uuid.UUID
	Status         string
	EffectiveAt    *time.Time
}

// CancelSubscriptionHandler handles the CancelSubscriptionCommand.
type CancelSubscriptionHandler struct {
	subscriptionRepo domain.Repository
	outboxRepo       outbox.Repository
	uow              sharedApplication.UnitOfWork
}

// NewCancelSubscriptionHandler creates a new CancelSubscriptionHandler.
func NewCancelSubscriptionHandler(
	subscriptionRepo domain.Repository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
) *CancelSubscriptionHandler {
	return &CancelSubscriptionHandler{
		subscriptionRepo: subscriptionRepo,
		outboxRepo:       outboxRepo,
		uow:              uow,
	}
}

// Handle executes the CancelSubscriptionCommand. A deferred cancellation
// leaves the subscription active until the reconciliation sweep runs at
// the end of the billing period.
func (h *CancelSubscriptionHandler) Handle(ctx context.Context, cmd CancelSubscriptionCommand) (*CancelSubscriptionResult, error) {
	var result *CancelSubscriptionResult

	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		subscription, err := h.subscriptionRepo.FindOpenByUserAndModule(txCtx, cmd.UserID, cmd.ModuleID)
		if err != nil {
			if errors.Is(err, domain.ErrSubscriptionNotFound) {
				return domain.ErrNoActiveSubscription
			}
			return err
		}

		if err := subscription.Cancel(cmd.Reason, cmd.Immediate, time.Now()); err != nil {
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
		if err := h.outboxRepo.SaveBatch(txCtx, msgs); err != nil {
			return err
		}

		result = &CancelSubscriptionResult{
			SubscriptionID: subscription.ID(),
			Status:         string(subscription.Status()),
		}
		if !cmd.Immediate {
			result.EffectiveAt = subscription.CurrentPeriodEnd()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
