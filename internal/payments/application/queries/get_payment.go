package queries

import (
	"context"
	"time"

	"github.com/fabrikhq/modulus/internal/payments/domain"
	"github.com/google/uuid"
)

// PaymentDTO is the read model for a payment.
type PaymentDTO struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	ModuleID       string     `json:"module_id"`
	AmountMinor    int64      `json:"amount_minor"`
	Currency       string     `json:"currency"`
	Method         string     `json:"method"`
	Reference      string     `json:"reference"`
	PhoneNumber    string     `json:"phone_number,omitempty"`
	PaymentType    string     `json:"payment_type"`
	Status         string     `json:"status"`
	VerifiedBy     *uuid.UUID `json:"verified_by,omitempty"`
	VerifiedAt     *time.Time `json:"verified_at,omitempty"`
	RejectedReason string     `json:"rejected_reason,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toDTO(p *domain.Payment) *PaymentDTO {
	return &PaymentDTO{
		ID:             p.ID(),
		UserID:         p.UserID(),
		ModuleID:       p.ModuleID(),
		AmountMinor:    p.Amount().Amount(),
		Currency:       p.Amount().Currency(),
		Method:         string(p.Method()),
		Reference:      p.Reference(),
		PhoneNumber:    p.PhoneNumber(),
		PaymentType:    string(p.PaymentType()),
		Status:         string(p.Status()),
		VerifiedBy:     p.VerifiedBy(),
		VerifiedAt:     p.VerifiedAt(),
		RejectedReason: p.RejectedReason(),
		CreatedAt:      p.CreatedAt(),
	}
}

// GetPaymentQuery fetches a single payment by id.
type GetPaymentQuery struct {
	PaymentID uuid.UUID
}

// GetPaymentHandler handles the GetPaymentQuery.
type GetPaymentHandler struct {
	paymentRepo domain.Repository
}

// NewGetPaymentHandler creates a new GetPaymentHandler.
func NewGetPaymentHandler(paymentRepo domain.Repository) *GetPaymentHandler {
	return &GetPaymentHandler{paymentRepo: paymentRepo}
}

// Handle executes the GetPaymentQuery.
func (h *GetPaymentHandler) Handle(ctx context.Context, query GetPaymentQuery) (*PaymentDTO, error) {
	payment, err := h.paymentRepo.FindByID(ctx, query.PaymentID)
	if err != nil {
		return nil, err
	}
	return toDTO(payment), nil
}
