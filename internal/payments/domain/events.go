package domain

import (
	"time"

	sharedDomain "github.com/fabrikhq/modulus/internal/shared/domain"
	"github.com/google/uuid"
)

const aggregateType = "Payment"

// Routing keys for payment events.
const (
	RoutingKeyPaymentSubmitted = "payments.payment.submitted"
	RoutingKeyPaymentVerified  = "payments.payment.verified"
	RoutingKeyPaymentRejected  = "payments.payment.rejected"
)

// PaymentSubmitted is emitted when a user records a payment.
type PaymentSubmitted struct {
	sharedDomain.BaseEvent
	PaymentID   uuid.UUID `json:"payment_id"`
	UserID      uuid.UUID `json:"user_id"`
	ModuleID    string    `json:"module_id"`
	AmountMinor int64     `json:"amount_minor"`
	Currency    string    `json:"currency"`
	Method      string    `json:"method"`
	Reference   string    `json:"reference"`
	PaymentType string    `json:"payment_type"`
}

// NewPaymentSubmitted creates a PaymentSubmitted event.
func NewPaymentSubmitted(p *Payment) *PaymentSubmitted {
	return &PaymentSubmitted{
		BaseEvent:   sharedDomain.NewBaseEvent(p.ID(), aggregateType, RoutingKeyPaymentSubmitted),
		PaymentID:   p.ID(),
		UserID:      p.UserID(),
		ModuleID:    p.ModuleID(),
		AmountMinor: p.Amount().Amount(),
		Currency:    p.Amount().Currency(),
		Method:      string(p.Method()),
		Reference:   p.Reference(),
		PaymentType: string(p.PaymentType()),
	}
}

// PaymentVerified is emitted when a reviewer confirms a payment. The
// subscriptions module activates the matching pending subscription on
// this event.
type PaymentVerified struct {
	sharedDomain.BaseEvent
	PaymentID   uuid.UUID `json:"payment_id"`
	UserID      uuid.UUID `json:"user_id"`
	ModuleID    string    `json:"module_id"`
	AmountMinor int64     `json:"amount_minor"`
	Currency    string    `json:"currency"`
	PaymentType string    `json:"payment_type"`
	VerifiedBy  uuid.UUID `json:"verified_by"`
	VerifiedAt  time.Time `json:"verified_at"`
}

// NewPaymentVerified creates a PaymentVerified event.
func NewPaymentVerified(p *Payment) *PaymentVerified {
	e := &PaymentVerified{
		BaseEvent:   sharedDomain.NewBaseEvent(p.ID(), aggregateType, RoutingKeyPaymentVerified),
		PaymentID:   p.ID(),
		UserID:      p.UserID(),
		ModuleID:    p.ModuleID(),
		AmountMinor: p.Amount().Amount(),
		Currency:    p.Amount().Currency(),
		PaymentType: string(p.PaymentType()),
	}
	if p.VerifiedBy() != nil {
		e.VerifiedBy = *p.VerifiedBy()
	}
	if p.VerifiedAt() != nil {
		e.VerifiedAt = *p.VerifiedAt()
	}
	return e
}

// PaymentRejected is emitted when a reviewer rejects a payment.
type PaymentRejected struct {
	sharedDomain.BaseEvent
	PaymentID   uuid.UUID `json:"payment_id"`
	UserID      uuid.UUID `json:"user_id"`
	ModuleID    string    `json:"module_id"`
	PaymentType string    `json:"payment_type"`
	Reason      string    `json:"reason"`
	RejectedBy  uuid.UUID `json:"rejected_by"`
}

// NewPaymentRejected creates a PaymentRejected event.
func NewPaymentRejected(p *Payment) *PaymentRejected {
	e := &PaymentRejected{
		BaseEvent:   sharedDomain.NewBaseEvent(p.ID(), aggregateType, RoutingKeyPaymentRejected),
		PaymentID:   p.ID(),
		UserID:      p.UserID(),
		ModuleID:    p.ModuleID(),
		PaymentType: string(p.PaymentType()),
		Reason:      p.RejectedReason(),
	}
	if p.VerifiedBy() != nil {
		e.RejectedBy = *p.VerifiedBy()
	}
	return e
}
