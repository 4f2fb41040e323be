package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/fabrikhq/modulus/internal/catalog"
	sharedDomain "github.com/fabrikhq/modulus/internal/shared/domain"
	"github.com/google/uuid"
)

var (
	ErrAlreadySubscribed     = errors.New("an open subscription already exists for this module")
	ErrNoActiveSubscription  = errors.New("no active subscription for this module")
	ErrInvalidTierTransition = errors.New("tier transition not allowed")
	ErrNotPending            = errors.New("subscription is not pending")
	ErrSubscriptionClosed    = errors.New("subscription is in a terminal state")
	ErrSubscriptionNotFound  = errors.New("subscription not found")
	ErrEmptyModule           = errors.New("module id cannot be empty")
	ErrEmptyTier             = errors.New("tier cannot be empty")
	ErrInvalidUser           = errors.New("user id cannot be empty")
	ErrInvalidAmount         = errors.New("subscription amount must be positive")
	ErrPeriodNotElapsed      = errors.New("billing period has not elapsed")
)

// Status represents the lifecycle state of a subscription.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
	StatusRejected  Status = "rejected"
)

// IsValid checks if the status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusActive, StatusCancelled, StatusExpired, StatusRejected:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status permits no further transitions.
// Terminal subscriptions are never resurrected; a new subscribe call is
// required.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCancelled, StatusExpired, StatusRejected:
		return true
	default:
		return false
	}
}

// IsOpen reports whether the subscription occupies the one-per-module
// slot for its user (pending or active).
func (s Status) IsOpen() bool {
	return s == StatusPending || s == StatusActive
}

// Subscription is a per-user module subscription. At most one open
// subscription exists per (user, module); the storage layer's unique
// index is the authoritative guard.
type Subscription struct {
	sharedDomain.BaseAggregateRoot
	userID             uuid.UUID
	moduleID           string
	tier               string
	amount             catalog.Money
	billingCycle       sharedDomain.BillingCycle
	status             Status
	startedAt          *time.Time
	currentPeriodEnd   *time.Time
	cancelAtPeriodEnd  bool
	cancelledAt        *time.Time
	cancellationReason string
	upgradedAt         *time.Time
}

// NewSubscription creates a pending subscription awaiting payment
// verification.
func NewSubscription(userID uuid.UUID, moduleID, tier string, amount catalog.Money, cycle sharedDomain.BillingCycle) (*Subscription, error) {
	if userID == uuid.Nil {
		return nil, ErrInvalidUser
	}
	moduleID = strings.TrimSpace(moduleID)
	if moduleID == "" {
		return nil, ErrEmptyModule
	}
	tier = strings.TrimSpace(tier)
	if tier == "" {
		return nil, ErrEmptyTier
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !cycle.IsValid() {
		return nil, sharedDomain.ErrInvalidBillingCycle
	}

	s := &Subscription{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		userID:            userID,
		moduleID:          moduleID,
		tier:              tier,
		amount:            amount,
		billingCycle:      cycle,
		status:            StatusPending,
	}

	s.AddDomainEvent(NewSubscriptionCreated(s))
	return s, nil
}

// Activate transitions a pending subscription to active after its
// payment is verified. Sets the billing period anchor.
func (s *Subscription) Activate(now time.Time) error {
	if s.status.IsTerminal() {
		return ErrSubscriptionClosed
	}
	if s.status != StatusPending {
		return ErrNotPending
	}

	s.status = StatusActive
	s.startedAt = &now
	periodEnd := s.billingCycle.NextPeriodEnd(now)
	s.currentPeriodEnd = &periodEnd
	s.Touch()

	s.AddDomainEvent(NewSubscriptionActivated(s))
	return nil
}

// Reject transitions a pending subscription to rejected after its
// payment is rejected.
func (s *Subscription) Reject(reason string) error {
	if s.status.IsTerminal() {
		return ErrSubscriptionClosed
	}
	if s.status != StatusPending {
		return ErrNotPending
	}

	s.status = StatusRejected
	s.cancellationReason = reason
	s.Touch()

	s.AddDomainEvent(NewSubscriptionRejected(s, reason))
	return nil
}

// Upgrade replaces the tier and amount of an active subscription.
// Transition validity (upward rank only) is checked by the caller
// against the catalog; the aggregate only rejects no-op transitions.
func (s *Subscription) Upgrade(newTier string, newAmount catalog.Money, now time.Time) error {
	if s.status != StatusActive {
		return ErrNoActiveSubscription
	}
	newTier = strings.TrimSpace(newTier)
	if newTier == "" {
		return ErrEmptyTier
	}
	if newTier == s.tier {
		return ErrInvalidTierTransition
	}
	if !newAmount.IsPositive() {
		return ErrInvalidAmount
	}

	previousTier := s.tier
	s.tier = newTier
	s.amount = newAmount
	s.upgradedAt = &now
	s.Touch()

	s.AddDomainEvent(NewSubscriptionUpgraded(s, previousTier))
	return nil
}

// Cancel ends an active subscription. Immediate cancellation takes
// effect now; otherwise the subscription stays active until the current
// billing period elapses and the reconciliation sweep finalizes it.
func (s *Subscription) Cancel(reason string, immediate bool, now time.Time) error {
	if s.status != StatusActive {
		return ErrNoActiveSubscription
	}

	s.cancellationReason = reason

	if immediate {
		s.status = StatusCancelled
		s.cancelledAt = &now
		s.Touch()
		s.AddDomainEvent(NewSubscriptionCancelled(s, true))
		return nil
	}

	s.cancelAtPeriodEnd = true
	s.Touch()
	s.AddDomainEvent(NewSubscriptionCancellationScheduled(s))
	return nil
}

// FinalizeCancellation completes a scheduled cancellation once the
// billing period has elapsed. Called by the reconciliation sweep.
func (s *Subscription) FinalizeCancellation(now time.Time) error {
	if s.status != StatusActive || !s.cancelAtPeriodEnd {
		return ErrNoActiveSubscription
	}

	s.status = StatusCancelled
	s.cancelledAt = &now
	s.Touch()

	s.AddDomainEvent(NewSubscriptionCancelled(s, false))
	return nil
}

// Expire marks an active subscription expired after its billing period
// lapsed without a renewal payment. Called by the reconciliation sweep.
func (s *Subscription) Expire(now time.Time) error {
	if s.status != StatusActive {
		return ErrNoActiveSubscription
	}
	if !s.PeriodElapsed(now) {
		return ErrPeriodNotElapsed
	}

	s.status = StatusExpired
	s.Touch()

	s.AddDomainEvent(NewSubscriptionExpired(s))
	return nil
}

// PeriodElapsed reports whether the current billing period has ended.
func (s *Subscription) PeriodElapsed(now time.Time) bool {
	return s.currentPeriodEnd != nil && !now.Before(*s.currentPeriodEnd)
}

// Getters
func (s *Subscription) UserID() uuid.UUID                      { return s.userID }
func (s *Subscription) ModuleID() string                       { return s.moduleID }
func (s *Subscription) Tier() string                           { return s.tier }
func (s *Subscription) Amount() catalog.Money                  { return s.amount }
func (s *Subscription) BillingCycle() sharedDomain.BillingCycle { return s.billingCycle }
func (s *Subscription) Status() Status                         { return s.status }
func (s *Subscription) StartedAt() *time.Time                  { return s.startedAt }
func (s *Subscription) CurrentPeriodEnd() *time.Time           { return s.currentPeriodEnd }
func (s *Subscription) CancelAtPeriodEnd() bool                { return s.cancelAtPeriodEnd }
func (s *Subscription) CancelledAt() *time.Time                { return s.cancelledAt }
func (s *Subscription) CancellationReason() string             { return s.cancellationReason }
func (s *Subscription) UpgradedAt() *time.Time                 { return s.upgradedAt }

// RehydrateSubscription recreates a subscription from persisted state
// without generating events.
func RehydrateSubscription(
	id uuid.UUID,
	userID uuid.UUID,
	moduleID string,
	tier string,
	amount catalog.Money,
	cycle sharedDomain.BillingCycle,
	status Status,
	startedAt *time.Time,
	currentPeriodEnd *time.Time,
	cancelAtPeriodEnd bool,
	cancelledAt *time.Time,
	cancellationReason string,
	upgradedAt *time.Time,
	createdAt time.Time,
	updatedAt time.Time,
) *Subscription {
	baseEntity := sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)
	baseAggregate := sharedDomain.RehydrateBaseAggregateRoot(baseEntity)

	return &Subscription{
		BaseAggregateRoot:  baseAggregate,
		userID:             userID,
		moduleID:           moduleID,
		tier:               tier,
		amount:             amount,
		billingCycle:       cycle,
		status:             status,
		startedAt:          startedAt,
		currentPeriodEnd:   currentPeriodEnd,
		cancelAtPeriodEnd:  cancelAtPeriodEnd,
		cancelledAt:        cancelledAt,
		cancellationReason: cancellationReason,
		upgradedAt:         upgradedAt,
	}
}
