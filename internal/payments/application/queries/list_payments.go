package queries

import (
	"context"

	"github.com/fabrikhq/modulus/internal/payments/domain"
	"github.com/google/uuid"
)

// ListPaymentsQuery fetches a user's payments, newest first.
type ListPaymentsQuery struct {
	UserID uuid.UUID
}

// ListPaymentsHandler handles the ListPaymentsQuery.
type ListPaymentsHandler struct {
	paymentRepo domain.Repository
}

// NewListPaymentsHandler creates a new ListPaymentsHandler.
func NewListPaymentsHandler(paymentRepo domain.Repository) *ListPaymentsHandler {
	return &ListPaymentsHandler{paymentRepo: paymentRepo}
}

// Handle executes the ListPaymentsQuery.
func (h *ListPaymentsHandler) Handle(ctx context.Context, query ListPaymentsQuery) ([]*PaymentDTO, error) {
	payments, err := h.paymentRepo.FindByUserID(ctx, query.UserID)
	if err != nil {
		return nil, err
	}

	dtos := make([]*PaymentDTO, 0, len(payments))
	for _, p := range payments {
		dtos = append(dtos, toDTO(p))
	}
	return dtos, nil
}

// ListPendingPaymentsQuery fetches all payments awaiting review.
type ListPendingPaymentsQuery struct{}

// ListPendingPaymentsHandler handles the ListPendingPaymentsQuery.
type ListPendingPaymentsHandler struct {
	paymentRepo domain.Repository
}

// NewListPendingPaymentsHandler creates a new ListPendingPaymentsHandler.
func NewListPendingPaymentsHandler(paymentRepo domain.Repository) *ListPendingPaymentsHandler {
	return &ListPendingPaymentsHandler{paymentRepo: paymentRepo}
}

// Handle executes the ListPendingPaymentsQuery.
func (h *ListPendingPaymentsHandler) Handle(ctx context.Context, _ ListPendingPaymentsQuery) ([]*PaymentDTO, error) {
	payments, err := h.paymentRepo.FindByStatus(ctx, domain.StatusSubmitted)
	if err != nil {
		return nil, err
	}

	dtos := make([]*PaymentDTO, 0, len(payments))
	for _, p := range payments {
		dtos = append(dtos, toDTO(p))
	}
	return dtos, nil
}
