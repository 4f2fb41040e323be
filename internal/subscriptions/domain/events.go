package domain

import (
	"time"

	sharedDomain "github.com/fabrikhq/modulus/internal/shared/domain"
	"github.com/google/uuid"
)

const aggregateType = "Subscription"

// Routing keys for subscription events.
const (
	RoutingKeySubscriptionCreated               = "subscriptions.subscription.created"
	RoutingKeySubscriptionActivated             = "subscriptions.subscription.activated"
	RoutingKeySubscriptionUpgraded              = "subscriptions.subscription.upgraded"
	RoutingKeySubscriptionCancelled             = "subscriptions.subscription.cancelled"
	RoutingKeySubscriptionCancellationScheduled = "subscriptions.subscription.cancellation_scheduled"
	RoutingKeySubscriptionExpired               = "subscriptions.subscription.expired"
	RoutingKeySubscriptionRejected              = "subscriptions.subscription.rejected"
)

// SubscriptionCreated is emitted when a pending subscription is created.
type SubscriptionCreated struct {
	sharedDomain.BaseEvent
	SubscriptionID uuid.UUID `json:"subscription_id"`
	UserID         uuid.UUID `json:"user_id"`
	ModuleID       string    `json:"module_id"`
	Tier           string    `json:"tier"`
	AmountMinor    int64     `json:"amount_minor"`
	Currency       string    `json:"currency"`
	BillingCycle   string    `json:"billing_cycle"`
}

// NewSubscriptionCreated creates a SubscriptionCreated event.
func NewSubscriptionCreated(s *Subscription) *SubscriptionCreated {
	return &SubscriptionCreated{
		BaseEvent:      sharedDomain.NewBaseEvent(s.ID(), aggregateType, RoutingKeySubscriptionCreated),
		SubscriptionID: s.ID(),
		UserID:         s.UserID(),
		ModuleID:       s.ModuleID(),
		Tier:           s.Tier(),
		AmountMinor:    s.Amount().Amount(),
		Currency:       s.Amount().Currency(),
		BillingCycle:   string(s.BillingCycle()),
	}
}

// SubscriptionActivated is emitted when a verified payment activates a
// pending subscription.
type SubscriptionActivated struct {
	sharedDomain.BaseEvent
	SubscriptionID   uuid.UUID `json:"subscription_id"`
	UserID           uuid.UUID `json:"user_id"`
	ModuleID         string    `json:"module_id"`
	Tier             string    `json:"tier"`
	StartedAt        time.Time `json:"started_at"`
	CurrentPeriodEnd time.Time `json:"current_period_end"`
}

// NewSubscriptionActivated creates a SubscriptionActivated event.
func NewSubscriptionActivated(s *Subscription) *SubscriptionActivated {
	e := &SubscriptionActivated{
		BaseEvent:      sharedDomain.NewBaseEvent(s.ID(), aggregateType, RoutingKeySubscriptionActivated),
		SubscriptionID: s.ID(),
		UserID:         s.UserID(),
		ModuleID:       s.ModuleID(),
		Tier:           s.Tier(),
	}
	if s.StartedAt() != nil {
		e.StartedAt = *s.StartedAt()
	}
	if s.CurrentPeriodEnd() != nil {
		e.CurrentPeriodEnd = *s.CurrentPeriodEnd()
	}
	return e
}

// SubscriptionUpgraded is emitted when a subscription moves to a higher
// tier.
type SubscriptionUpgraded struct {
	sharedDomain.BaseEvent
	SubscriptionID uuid.UUID `json:"subscription_id"`
	UserID         uuid.UUID `json:"user_id"`
	ModuleID       string    `json:"module_id"`
	PreviousTier   string    `json:"previous_tier"`
	NewTier        string    `json:"new_tier"`
	AmountMinor    int64     `json:"amount_minor"`
	Currency       string    `json:"currency"`
}

// NewSubscriptionUpgraded creates a SubscriptionUpgraded event.
func NewSubscriptionUpgraded(s *Subscription, previousTier string) *SubscriptionUpgraded {
	return &SubscriptionUpgraded{
		BaseEvent:      sharedDomain.NewBaseEvent(s.ID(), aggregateType, RoutingKeySubscriptionUpgraded),
		SubscriptionID: s.ID(),
		UserID:         s.UserID(),
		ModuleID:       s.ModuleID(),
		PreviousTier:   previousTier,
		NewTier:        s.Tier(),
		AmountMinor:    s.Amount().Amount(),
		Currency:       s.Amount().Currency(),
	}
}

// SubscriptionCancelled is emitted when a subscription is cancelled,
// either immediately or at the end of its billing period.
type SubscriptionCancelled struct {
	sharedDomain.BaseEvent
	SubscriptionID uuid.UUID  `json:"subscription_id"`
	UserID         uuid.UUID  `json:"user_id"`
	ModuleID       string     `json:"module_id"`
	Reason         string     `json:"reason"`
	Immediate      bool       `json:"immediate"`
	CancelledAt    *time.Time `json:"cancelled_at,omitempty"`
}

// NewSubscriptionCancelled creates a SubscriptionCancelled event.
func NewSubscriptionCancelled(s *Subscription, immediate bool) *SubscriptionCancelled {
	return &SubscriptionCancelled{
		BaseEvent:      sharedDomain.NewBaseEvent(s.ID(), aggregateType, RoutingKeySubscriptionCancelled),
		SubscriptionID: s.ID(),
		UserID:         s.UserID(),
		ModuleID:       s.ModuleID(),
		Reason:         s.CancellationReason(),
		Immediate:      immediate,
		CancelledAt:    s.CancelledAt(),
	}
}

// SubscriptionCancellationScheduled is emitted when a cancellation is
// deferred to the end of the billing period.
type SubscriptionCancellationScheduled struct {
	sharedDomain.BaseEvent
	SubscriptionID uuid.UUID  `json:"subscription_id"`
	UserID         uuid.UUID  `json:"user_id"`
	ModuleID       string     `json:"module_id"`
	Reason         string     `json:"reason"`
	EffectiveAt    *time.Time `json:"effective_at,omitempty"`
}

// NewSubscriptionCancellationScheduled creates a
// SubscriptionCancellationScheduled event.
func NewSubscriptionCancellationScheduled(s *Subscription) *SubscriptionCancellationScheduled {
	return &SubscriptionCancellationScheduled{
		BaseEvent:      sharedDomain.NewBaseEvent(s.ID(), aggregateType, RoutingKeySubscriptionCancellationScheduled),
		SubscriptionID: s.ID(),
		UserID:         s.UserID(),
		ModuleID:       s.ModuleID(),
		Reason:         s.CancellationReason(),
		EffectiveAt:    s.CurrentPeriodEnd(),
	}
}

// SubscriptionExpired is emitted when a billing period lapses with no
// renewal payment.
type SubscriptionExpired struct {
	sharedDomain.BaseEvent
	SubscriptionID uuid.UUID `json:"subscription_id"`
	UserID         uuid.UUID `json:"user_id"`
	ModuleID       string    `json:"module_id"`
	Tier           string    `json:"tier"`
}

// NewSubscriptionExpired creates a SubscriptionExpired event.
func NewSubscriptionExpired(s *Subscription) *SubscriptionExpired {
	return &SubscriptionExpired{
		BaseEvent:      sharedDomain.NewBaseEvent(s.ID(), aggregateType, RoutingKeySubscriptionExpired),
		SubscriptionID: s.ID(),
		UserID:         s.UserID(),
		ModuleID:       s.ModuleID(),
		Tier:           s.Tier(),
	}
}

// SubscriptionRejected is emitted when a pending subscription's payment
// is rejected.
type SubscriptionRejected struct {
	sharedDomain.BaseEvent
	SubscriptionID uuid.UUID `json:"subscription_id"`
	UserID         uuid.UUID `json:"user_id"`
	ModuleID       string    `json:"module_id"`
	Reason         string    `json:"reason"`
}

// NewSubscriptionRejected creates a SubscriptionRejected event.
func NewSubscriptionRejected(s *Subscription, reason string) *SubscriptionRejected {
	return &SubscriptionRejected{
		BaseEvent:      sharedDomain.NewBaseEvent(s.ID(), aggregateType, RoutingKeySubscriptionRejected),
		SubscriptionID: s.ID(),
		UserID:         s.UserID(),
		ModuleID:       s.ModuleID(),
		Reason:         reason,
	}
}
