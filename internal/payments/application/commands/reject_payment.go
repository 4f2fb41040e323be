package commands

import (
	"context"
	"time"

	"github.com/fabrikhq/modulus/internal/identity"
	"github.com/fabrikhq/modulus/internal/payments/domain"
	sharedApplication "github.com/fabrikhq/modulus/internal/shared/application"
	"github.com/fabrikhq/modulus/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// RejectPaymentCommand marks a submitted payment as rejected.
type RejectPaymentCommand struct {
	PaymentID  uuid.UUID
	VerifierID uuid.UUID
	Reason     string
}

// RejectPaymentHandler handles the RejectPaymentCommand.
type RejectPaymentHandler struct {
	paymentRepo domain.Repository
	outboxRepo  outbox.Repository
	uow         sharedApplication.UnitOfWork
	authorizer  identity.Authorizer
}

// NewRejectPaymentHandler creates a new RejectPaymentHandler.
func NewRejectPaymentHandler(
	paymentRepo domain.Repository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	authorizer identity.Authorizer,
) *RejectPaymentHandler {
	return &RejectPaymentHandler{
		paymentRepo: paymentRepo,
		outboxRepo:  outboxRepo,
		uow:         uow,
		authorizer:  authorizer,
	}
}

// Handle executes the RejectPaymentCommand. Rejection requires the
// payments:verify permission.
func (h *RejectPaymentHandler) Handle(ctx context.Context, cmd RejectPaymentCommand) error {
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

		if err := payment.Reject(cmd.VerifierID, cmd.Reason, time.Now()); err != nil {
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
