package commands

import (
	"context"
	"time"

	"github.com/fabrikhq/modulus/internal/catalog"
	"github.com/fabrikhq/modulus/internal/identity"
	"github.com/fabrikhq/modulus/internal/payments/domain"
	sharedApplication "github.com/fabrikhq/modulus/internal/shared/application"
	"github.com/fabrikhq/modulus/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// VerifyPaymentCommand marks a submitted payment as verified.
type VerifyPaymentCommand struct {
	PaymentID  uuid.UUID
	VerifierID uuid.UUID

	// SettledAmountMinor, when non-zero, is the amount the reviewer
	// found on the provider statement. It must cover the submitted
	// amount in full.
	SettledAmountMinor int64
	SettledCurrency    string
}

// VerifyPaymentHandler handles the VerifyPaymentCommand.
type VerifyPaymentHandler struct {
	paymentRepo domain.Repository
	outboxRepo  outbox.Repository
	uow         sharedApplication.UnitOfWork
	authorizer  identity.Authorizer
}

// NewVerifyPaymentHandler creates a new VerifyPaymentHandler.
func NewVerifyPaymentHandler(
	paymentRepo domain.Repository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	authorizer identity.Authorizer,
) *VerifyPaymentHandler {
	return &VerifyPaymentHandler{
		paymentRepo: paymentRepo,
		outboxRepo:  outboxRepo,
		uow:         uow,
		authorizer:  authorizer,
	}
}

// Handle executes the VerifyPaymentCommand. Verification requires the
// payments:verify permission.
func (h *VerifyPaymentHandler) Handle(ctx context.Context, cmd VerifyPaymentCommand) error {
	allowed, err := h.authorizer.Can(ctx, cmd.VerifierID, identity.PermissionVerifyPayments)
	if err != nil {
		return err
	}
	if !allowed {
		return identity.ErrPermissionDenied
	}

	return sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		payment, err := h.paymentRepo.FindByID(txCtx, cmd.PaymentID)
		if err != nil {
			return err
		}

		if cmd.SettledAmountMinor > 0 {
			currency := cmd.SettledCurrency
			if currency == "" {
				currency = payment.Amount().Currency()
			}
			settled, err := catalog.NewMoney(cmd.SettledAmountMinor, currency)
			if err != nil {
				return err
			}
			if settled.Currency() != payment.Amount().Currency() || settled.LessThan(payment.Amount()) {
				return domain.ErrInsufficientFunds
			}
		}

		if err := payment.Verify(cmd.VerifierID, time.Now()); err != nil {
			return err
		}

		if err := h.paymentRepo.Save(txCtx, payment); err != nil {
			return err
		}

		events := payment.DomainEvents()
		sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(cmd.VerifierID))
		msgs, err := outbox.MessagesFromEvents(events)
		if err != nil {
			return err
		}
		return h.outboxRepo.SaveBatch(txCtx, msgs)
	})
}
