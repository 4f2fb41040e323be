package commands

import (
	"context"
	"errors"
	"time"

	"github.com/fabrikhq/modulus/internal/catalog"
	sharedApplication "github.com/fabrikhq/modulus/internal/shared/application"
	"github.com/fabrikhq/modulus/internal/shared/infrastructure/outbox"
	"github.com/fabrikhq/modulus/internal/subscriptions/domain"
	"github.com/google/uuid"
)

// UpgradeSubscriptionCommand contains the data needed to upgrade a
// subscription to a higher tier.
type UpgradeSubscriptionCommand struct {
	UserID   uuid.UUID
	ModuleID string
	NewTier  string
}

// UpgradeSubscriptionResult contains the result of an upgrade.
type UpgradeSubscriptionResult struct {
	SubscriptionID uuid.UUID
	PreviousTier   string
	NewTier        string
	AmountMinor    int64
	Currency       string
}

// UpgradeSubscriptionHandler handles the UpgradeSubscriptionCommand.
type UpgradeSubscriptionHandler struct {
	subscriptionRepo domain.Repository
	outboxRepo       outbox.Repository
	uow              sharedApplication.UnitOfWork
	registry         *catalog.Registry
	limits           UsageLimitChecker
}

// NewUpgradeSubscriptionHandler creates a new UpgradeSubscriptionHandler.
func NewUpgradeSubscriptionHandler(
	subscriptionRepo domain.Repository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	registry *catalog.Registry,
	limits UsageLimitChecker,
) *UpgradeSubscriptionHandler {
	return &UpgradeSubscriptionHandler{
		subscriptionRepo: subscriptionRepo,
		outboxRepo:       outboxRepo,
		uow:              uow,
		registry:         registry,
		limits:           limits,
	}
}

// Handle executes the UpgradeSubscriptionCommand. Only strictly upward
// tier moves are allowed; the new tier's caps are still checked against
// current usage since a higher rank can carry a lower cap on some metric.
func (h *UpgradeSubscriptionHandler) Handle(ctx context.Context, cmd UpgradeSubscriptionCommand) (*UpgradeSubscriptionResult, error) {
	newTier, err := h.registry.Tier(cmd.ModuleID, cmd.NewTier)
	if err != nil {
		return nil, err
	}

	if h.limits != nil {
		if err := h.limits.CheckTier(ctx, cmd.UserID, cmd.ModuleID, newTier); err != nil {
			return nil, err
		}
	}

	var result *UpgradeSubscriptionResult

	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		subscription, err := h.subscriptionRepo.FindOpenByUserAndModule(txCtx, cmd.UserID, cmd.ModuleID)
		if err != nil {
			if errors.Is(err, domain.ErrSubscriptionNotFound) {
				return domain.ErrNoActiveSubscription
			}
			return err
		}
		if subscription.Status() != domain.StatusActive {
			return domain.ErrNoActiveSubscription
		}

		currentTier, err := h.registry.Tier(cmd.ModuleID, subscription.Tier())
		if err != nil {
			return err
		}
		if !currentTier.CanUpgradeTo(newTier) {
			return domain.ErrInvalidTierTransition
		}

		amount, err := newTier.Price(subscription.BillingCycle())
		if err != nil {
			return err
		}

		previousTier := subscription.Tier()
		if err := subscription.Upgrade(newTier.Name, amount, time.Now()); err != nil {
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

		result = &UpgradeSubscriptionResult{
			SubscriptionID: subscription.ID(),
			PreviousTier:   previousTier,
			NewTier:        newTier.Name,
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
