package commands

import (
	"context"
	"errors"

	"github.com/fabrikhq/modulus/internal/catalog"
	sharedApplication "github.com/fabrikhq/modulus/internal/shared/application"
	sharedDomain "github.com/fabrikhq/modulus/internal/shared/domain"
	"github.com/fabrikhq/modulus/internal/shared/infrastructure/outbox"
	"github.com/fabrikhq/modulus/internal/subscriptions/domain"
	"github.com/google/uuid"
)

// UsageLimitChecker verifies current usage against a tier's caps.
// Implemented by the metering limit checker.
type UsageLimitChecker interface {
	CheckTier(ctx context.Context, userID uuid.UUID, moduleID string, tier catalog.Tier) error
}

// SubscribeCommand contains the data needed to subscribe to a module.
type SubscribeCommand struct {
	UserID       uuid.UUID
	ModuleID     string
	Tier         string
	BillingCycle string
}

// SubscribeResult contains the result of subscribing.
type SubscribeResult struct {
	SubscriptionID uuid.UUID
	AmountMinor    int64
	Currency       string
}

// SubscribeHandler handles the SubscribeCommand.
type SubscribeHandler struct {
	subscriptionRepo domain.Repository
	outboxRepo       outbox.Repository
	uow              sharedApplication.UnitOfWork
	registry         *catalog.Registry
	limits           UsageLimitChecker
}

// NewSubscribeHandler creates a new SubscribeHandler.
func NewSubscribeHandler(
	subscriptionRepo domain.Repository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	registry *catalog.Registry,
	limits UsageLimitChecker,
) *SubscribeHandler {
	return &SubscribeHandler{
		subscriptionRepo: subscriptionRepo,
		outboxRepo:       outboxRepo,
		uow:              uow,
		registry:         registry,
		limits:           limits,
	}
}

// Handle executes the SubscribeCommand. The subscription starts pending
// and is activated once its payment is verified.
func (h *SubscribeHandler) Handle(ctx context.Context, cmd SubscribeCommand) (*SubscribeResult, error) {
	cycle := sharedDomain.BillingCycle(cmd.BillingCycle)
	if !cycle.IsValid() {
		return nil, sharedDomain.ErrInvalidBillingCycle
	}

	tier, err := h.registry.Tier(cmd.ModuleID, cmd.Tier)
	if err != nil {
		return nil, err
	}
	amount, err := tier.Price(cycle)
	if err != nil {
		return nil, err
	}

	// Pre-check current usage against the target tier's caps.
	if h.limits != nil {
		if err := h.limits.CheckTier(ctx, cmd.UserID, cmd.ModuleID, tier); err != nil {
			return nil, err
		}
	}

	var result *SubscribeResult

	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		// Advisory pre-check; the storage unique index on the open
		// (user, module) slot is the authoritative guard.
		_, err := h.subscriptionRepo.FindOpenByUserAndModule(txCtx, cmd.UserID, cmd.ModuleID)
		if err == nil {
			return domain.ErrAlreadySubscribed
		}
		if !errors.Is(err, domain.ErrSubscriptionNotFound) {
			return err
		}

		subscription, err := domain.NewSubscription(cmd.UserID, cmd.ModuleID, tier.Name, amount, cycle)
		if err != nil {
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

		result = &SubscribeResult{
			SubscriptionID: subscription.ID(),
			AmountMinor:    amount.Amount(),
			Currency:       amount.Currency(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
