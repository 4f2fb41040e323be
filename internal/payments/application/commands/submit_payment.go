package commands

import (
	"context"
	"errors"

	"github.com/fabrikhq/modulus/internal/catalog"
	"github.com/fabrikhq/modulus/internal/payments/domain"
	sharedApplication "github.com/fabrikhq/modulus/internal/shared/application"
	"github.com/fabrikhq/modulus/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// SubmitPaymentCommand records a payment a user claims to have made.
type SubmitPaymentCommand struct {
	UserID      uuid.UUID
	ModuleID    string
	AmountMinor int64
	Currency    string
	Method      string
	Reference   string
	PhoneNumber string
	PaymentType string
}

// SubmitPaymentResult contains the result of submitting a payment.
type SubmitPaymentResult struct {
	PaymentID uuid.UUID
	Status    string
}

// SubmitPaymentHandler handles the SubmitPaymentCommand.
type SubmitPaymentHandler struct {
	paymentRepo domain.Repository
	outboxRepo  outbox.Repository
	uow         sharedApplication.UnitOfWork
}

// NewSubmitPaymentHandler creates a new SubmitPaymentHandler.
func NewSubmitPaymentHandler(
	paymentRepo domain.Repository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
) *SubmitPaymentHandler {
	return &SubmitPaymentHandler{
		paymentRepo: paymentRepo,
		outboxRepo:  outboxRepo,
		uow:         uow,
	}
}

// Handle executes the SubmitPaymentCommand. The payment starts in the
// submitted state and waits for manual reconciliation.
func (h *SubmitPaymentHandler) Handle(ctx context.Context, cmd SubmitPaymentCommand) (*SubmitPaymentResult, error) {
	amount, err := catalog.NewMoney(cmd.AmountMinor, cmd.Currency)
	if err != nil {
		return nil, err
	}

	var result *SubmitPaymentResult

	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		// Advisory pre-check; the unique index on the reference is
		// the authoritative guard.
		_, err := h.paymentRepo.FindByReference(txCtx, cmd.Reference)
		if err == nil {
			return domain.ErrDuplicateTransaction
		}
		if !errors.Is(err, domain.ErrPaymentNotFound) {
			return err
		}

		payment, err := domain.NewPayment(
			cmd.UserID,
			cmd.ModuleID,
			amount,
			domain.Method(cmd.Method),
			cmd.Reference,
			cmd.PhoneNumber,
			domain.PaymentType(cmd.PaymentType),
		)
		if err != nil {
			return err
		}

		if err := h.paymentRepo.Save(txCtx, payment); err != nil {
			return err
		}

		events := payment.DomainEvents()
		sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(cmd.UserID))
		msgs, err := outbox.MessagesFromEvents(events)
		if err != nil {
			return err
		}
		if err := h.outboxRepo.SaveBatch(txCtx, msgs); err != nil {
			return err
		}

		result = &SubmitPaymentResult{
			PaymentID: payment.ID(),
			Status:    string(payment.Status()),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
