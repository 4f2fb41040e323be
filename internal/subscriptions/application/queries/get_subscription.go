package queries

import (
	"context"
	"time"

	"github.com/fabrikhq/modulus/internal/subscriptions/domain"
	"github.com/google/uuid"
)

// SubscriptionDTO is the read model for a subscription.
type SubscriptionDTO struct {
	ID                 uuid.UUID  `json:"id"`
	UserID             uuid.UUID  `json:"user_id"`
	ModuleID           string     `json:"module_id"`
	Tier               string     `json:"tier"`
	AmountMinor        int64      `json:"amount_minor"`
	Currency           string     `json:"currency"`
	BillingCycle       string     `json:"billing_cycle"`
	Status             string     `json:"status"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	UpgradedAt         *time.Time `json:"upgraded_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

func toDTO(s *domain.Subscription) *SubscriptionDTO {
	return &SubscriptionDTO{
		ID:                 s.ID(),
		UserID:             s.UserID(),
		ModuleID:           s.ModuleID(),
		Tier:               s.Tier(),
		AmountMinor:        s.Amount().Amount(),
		Currency:           s.Amount().Currency(),
		BillingCycle:       string(s.BillingCycle()),
		Status:             string(s.Status()),
		StartedAt:          s.StartedAt(),
		CurrentPeriodEnd:   s.CurrentPeriodEnd(),
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd(),
		CancelledAt:        s.CancelledAt(),
		CancellationReason: s.CancellationReason(),
		UpgradedAt:         s.UpgradedAt(),
		CreatedAt:          s.CreatedAt(),
	}
}

// GetSubscriptionQuery returns the open subscription for a (user,
// module) pair.
type GetSubscriptionQuery struct {
	UserID   uuid.UUID
	ModuleID string
}

// GetSubscriptionHandler handles the GetSubscriptionQuery.
type GetSubscriptionHandler struct {
	subscriptionRepo domain.Repository
}

// NewGetSubscriptionHandler creates a new GetSubscriptionHandler.
func NewGetSubscriptionHandler(subscriptionRepo domain.Repository) *GetSubscriptionHandler {
	return &GetSubscriptionHandler{subscriptionRepo: subscriptionRepo}
}

// Handle executes the GetSubscriptionQuery.
func (h *GetSubscriptionHandler) Handle(ctx context.Context, query GetSubscriptionQuery) (*SubscriptionDTO, error) {
	subscription, err := h.subscriptionRepo.FindOpenByUserAndModule(ctx, query.UserID, query.ModuleID)
	if err != nil {
		return nil, err
	}
	return toDTO(subscription), nil
}
