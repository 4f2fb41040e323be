package queries

import (
	"context"

	"github.com/fabrikhq/modulus/internal/subscriptions/domain"
	"github.com/google/uuid"
)

// ListSubscriptionsQuery returns all subscriptions for a user.
type ListSubscriptionsQuery struct {
	UserID uuid.UUID
	// OpenOnly restricts the result to pending and active subscriptions.
	OpenOnly bool
}

// ListSubscriptionsHandler handles the ListSubscriptionsQuery.
type ListSubscriptionsHandler struct {
	subscriptionRepo domain.Repository
}

// NewListSubscriptionsHandler creates a new ListSubscriptionsHandler.
func NewListSubscriptionsHandler(subscriptionRepo domain.Repository) *ListSubscriptionsHandler {
	return &ListSubscriptionsHandler{subscriptionRepo: subscriptionRepo}
}

// Handle executes the ListSubscriptionsQuery.
func (h *ListSubscriptionsHandler) Handle(ctx context.Context, query ListSubscriptionsQuery) ([]*SubscriptionDTO, error) {
	subscriptions, err := h.subscriptionRepo.FindByUserID(ctx, query.UserID)
	if err != nil {
		return nil, err
	}

	dtos := make([]*SubscriptionDTO, 0, len(subscriptions))
	for _, s := range subscriptions {
		if query.OpenOnly && !s.Status().IsOpen() {
			continue
		}
		dtos = append(dtos, toDTO(s))
	}
	return dtos, nil
}
