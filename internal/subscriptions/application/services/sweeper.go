package services

import (
	"context"
	"log/slog"
	"time"

	sharedApplication "github.com/fabrikhq/modulus/internal/shared/application"
	"github.com/fabrikhq/modulus/internal/shared/infrastructure/outbox"
	"github.com/fabrikhq/modulus/internal/subscriptions/domain"
)

// Sweeper finalizes deferred subscription transitions: scheduled
// cancellations whose billing period ended, and active subscriptions
// whose period lapsed without a renewal payment. Runs on the worker's
// cron schedule.
type Sweeper struct {
	subscriptionRepo domain.Repository
	outboxRepo       outbox.Repository
	uow              sharedApplication.UnitOfWork
	logger           *slog.Logger
}

// NewSweeper creates a new Sweeper.
func NewSweeper(
	subscriptionRepo domain.Repository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	logger *slog.Logger,
) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		subscriptionRepo: subscriptionRepo,
		outboxRepo:       outboxRepo,
		uow:              uow,
		logger:           logger,
	}
}

// SweepResult summarizes one sweep run.
type SweepResult struct {
	Cancelled int
	Expired   int
	Failed    int
}

// Run performs one sweep over due subscriptions. Each subscription is
// transitioned in its own unit of work so one failure does not block
// the rest of the batch.
func (s *Sweeper) Run(ctx context.Context, now time.Time) (SweepResult, error) {
	var result SweepResult

	due, err := s.subscriptionRepo.FindDueForSweep(ctx, now)
	if err != nil {
		return result, err
	}

	for _, subscription := range due {
		cancelled, err := s.sweepOne(ctx, subscription, now)
		if err != nil {
			result.Failed++
			s.logger.Error("subscription sweep failed",
				"subscription_id", subscription.ID(),
				"module_id", subscription.ModuleID(),
				"error", err,
			)
			continue
		}
		if cancelled {
			result.Cancelled++
		} else {
			result.Expired++
		}
	}

	if result.Cancelled > 0 || result.Expired > 0 || result.Failed > 0 {
		s.logger.Info("subscription sweep completed",
			"due", len(due),
			"cancelled", result.Cancelled,
			"expired", result.Expired,
			"failed", result.Failed,
		)
	}

	return result, nil
}

func (s *Sweeper) sweepOne(ctx context.Context, subscription *domain.Subscription, now time.Time) (cancelled bool, err error) {
	err = sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		if subscription.CancelAtPeriodEnd() {
			cancelled = true
			if err := subscription.FinalizeCancellation(now); err != nil {
				return err
			}
		} else {
			if err := subscription.Expire(now); err != nil {
				return err
			}
		}

		if err := s.subscriptionRepo.Save(txCtx, subscription); err != nil {
			return err
		}

		events := subscription.DomainEvents()
		sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(subscription.UserID()))
		msgs, err := outbox.MessagesFromEvents(events)
		if err != nil {
			return err
		}
		return s.outboxRepo.SaveBatch(txCtx, msgs)
	})
	return cancelled, err
}
