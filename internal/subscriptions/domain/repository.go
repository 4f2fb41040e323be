package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for subscription persistence.
// Implementations must translate the storage layer's unique violation
// on the open (user, module) slot into ErrAlreadySubscribed.
type Repository interface {
	// Save persists a subscription (create or update).
	Save(ctx context.Context, subscription *Subscription) error

	// FindByID finds a subscription by its ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Subscription, error)

	// FindOpenByUserAndModule finds the pending or active subscription
	// for a (user, module) pair. Returns ErrSubscriptionNotFound when
	// none is open.
	FindOpenByUserAndModule(ctx context.Context, userID uuid.UUID, moduleID string) (*Subscription, error)

	// FindByUserID finds all subscriptions for a user, newest first.
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*Subscription, error)

	// FindDueForSweep finds active subscriptions whose billing period
	// ended at or before the given time.
	FindDueForSweep(ctx context.Context, now time.Time) ([]*Subscription, error)
}
