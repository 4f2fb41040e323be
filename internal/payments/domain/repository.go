package domain

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists payments. Implementations translate the unique
// constraint on the transaction reference into ErrDuplicateTransaction
// and return ErrPaymentNotFound when a lookup misses.
type Repository interface {
	Save(ctx context.Context, payment *Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByReference(ctx context.Context, reference string) (*Payment, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*Payment, error)
	FindByStatus(ctx context.Context, status Status) ([]*Payment, error)
}
