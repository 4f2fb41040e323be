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
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrDuplicateTransaction = errors.New("a payment with this reference already exists")
	ErrAlreadyVerified      = errors.New("payment is already verified")
	ErrAlreadyRejected      = errors.New("payment is already rejected")
	ErrEmptyReference       = errors.New("payment reference cannot be empty")
	ErrEmptyModule          = errors.New("module id cannot be empty")
	ErrInvalidUser          = errors.New("user id cannot be empty")
	ErrNonPositiveAmount    = errors.New("payment amount must be positive")
	ErrInvalidMethod        = errors.New("invalid payment method")
	ErrInvalidPaymentType   = errors.New("invalid payment type")
	ErrEmptyRejectionReason = errors.New("rejection reason cannot be empty")
	ErrInvalidVerifier      = errors.New("verifier id cannot be empty")
	ErrInsufficientFunds    = errors.New("settled amount does not cover the payment amount")
)

// Method is the channel a payment arrived through.
type Method string

const (
	MethodMobileMoney  Method = "mobile_money"
	MethodBankTransfer Method = "bank_transfer"
	MethodCard         Method = "card"
)

// IsValid checks if the method is a known value.
func (m Method) IsValid() bool {
	switch m {
	case MethodMobileMoney, MethodBankTransfer, MethodCard:
		return true
	default:
		return false
	}
}

// PaymentType classifies what a payment is for.
type PaymentType string

const (
	PaymentTypeSubscription PaymentType = "subscription"
	PaymentTypeRenewal      PaymentType = "renewal"
	PaymentTypeUpgrade      PaymentType = "upgrade"
)

// IsValid checks if the payment type is a known value.
func (t PaymentType) IsValid() bool {
	switch t {
	case PaymentTypeSubscription, PaymentTypeRenewal, PaymentTypeUpgrade:
		return true
	default:
		return false
	}
}

// Status is the reconciliation state of a payment.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusVerified  Status = "verified"
	StatusRejected  Status = "rejected"
)

// IsValid checks if the status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusSubmitted, StatusVerified, StatusRejected:
		return true
	default:
		return false
	}
}

// IsSettled reports whether the payment has reached a final state.
func (s Status) IsSettled() bool {
	return s == StatusVerified || s == StatusRejected
}

// Payment is a user-submitted payment record awaiting manual
// reconciliation. The transaction reference is unique across all
// payments; the storage layer's unique index is the authoritative
// guard against duplicates.
type Payment struct {
	sharedDomain.BaseAggregateRoot
	userID         uuid.UUID
	moduleID       string
	amount         catalog.Money
	method         Method
	reference      string
	phoneNumber    string
	paymentType    PaymentType
	status         Status
	verifiedBy     *uuid.UUID
	verifiedAt     *time.Time
	rejectedReason string
}

// NewPayment records a submitted payment awaiting verification.
func NewPayment(userID uuid.UUID, moduleID string, amount catalog.Money, method Method, reference, phoneNumber string, paymentType PaymentType) (*Payment, error) {
	if userID == uuid.Nil {
		return nil, ErrInvalidUser
	}
	moduleID = strings.TrimSpace(moduleID)
	if moduleID == "" {
		return nil, ErrEmptyModule
	}
	if !amount.IsPositive() {
		return nil, ErrNonPositiveAmount
	}
	if !method.IsValid() {
		return nil, ErrInvalidMethod
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, ErrEmptyReference
	}
	if !paymentType.IsValid() {
		return nil, ErrInvalidPaymentType
	}

	p := &Payment{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		userID:            userID,
		moduleID:          moduleID,
		amount:            amount,
		method:            method,
		reference:         reference,
		phoneNumber:       strings.TrimSpace(phoneNumber),
		paymentType:       paymentType,
		status:            StatusSubmitted,
	}

	p.AddDomainEvent(NewPaymentSubmitted(p))
	return p, nil
}

// Verify marks the payment as verified by a reviewer. Settled payments
// cannot be verified again.
func (p *Payment) Verify(verifierID uuid.UUID, now time.Time) error {
	if verifierID == uuid.Nil {
		return ErrInvalidVerifier
	}
	switch p.status {
	case StatusVerified:
		return ErrAlreadyVerified
	case StatusRejected:
		return ErrAlreadyRejected
	}

	p.status = StatusVerified
	p.verifiedBy = &verifierID
	at := now.UTC()
	p.verifiedAt = &at
	p.Touch()

	p.AddDomainEvent(NewPaymentVerified(p))
	return nil
}

// Reject marks the payment as rejected with a reason. Settled payments
// cannot be rejected again.
func (p *Payment) Reject(verifierID uuid.UUID, reason string, now time.Time) error {
	if verifierID == uuid.Nil {
		return ErrInvalidVerifier
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrEmptyRejectionReason
	}
	switch p.status {
	case StatusVerified:
		return ErrAlreadyVerified
	case StatusRejected:
		return ErrAlreadyRejected
	}

	p.status = StatusRejected
	p.verifiedBy = &verifierID
	at := now.UTC()
	p.verifiedAt = &at
	p.rejectedReason = reason
	p.Touch()

	p.AddDomainEvent(NewPaymentRejected(p))
	return nil
}

func (p *Payment) UserID() uuid.UUID        { return p.userID }
func (p *Payment) ModuleID() string         { return p.moduleID }
func (p *Payment) Amount() catalog.Money    { return p.amount }
func (p *Payment) Method() Method           { return p.method }
func (p *Payment) Reference() string        { return p.reference }
func (p *Payment) PhoneNumber() string      { return p.phoneNumber }
func (p *Payment) PaymentType() PaymentType { return p.paymentType }
func (p *Payment) Status() Status           { return p.status }
func (p *Payment) VerifiedBy() *uuid.UUID   { return p.verifiedBy }
func (p *Payment) VerifiedAt() *time.Time   { return p.verifiedAt }
func (p *Payment) RejectedReason() string   { return p.rejectedReason }

// RehydratePayment reconstructs a payment from persistence without
// raising events.
func RehydratePayment(
	id uuid.UUID,
	userID uuid.UUID,
	moduleID string,
	amount catalog.Money,
	method Method,
	reference string,
	phoneNumber string,
	paymentType PaymentType,
	status Status,
	verifiedBy *uuid.UUID,
	verifiedAt *time.Time,
	rejectedReason string,
	createdAt time.Time,
	updatedAt time.Time,
) *Payment {
	entity := sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)
	return &Payment{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(entity),
		userID:            userID,
		moduleID:          moduleID,
		amount:            amount,
		method:            method,
		reference:         reference,
		phoneNumber:       phoneNumber,
		paymentType:       paymentType,
		status:            status,
		verifiedBy:        verifiedBy,
		verifiedAt:        verifiedAt,
		rejectedReason:    rejectedReason,
	}
}
