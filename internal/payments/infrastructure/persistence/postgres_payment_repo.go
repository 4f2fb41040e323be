package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/fabrikhq/modulus/internal/catalog"
	"github.com/fabrikhq/modulus/internal/payments/domain"
	"github.com/fabrikhq/modulus/internal/shared/infrastructure/database"
	sharedPersistence "github.com/fabrikhq/modulus/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPaymentRepository implements domain.Repository using
// PostgreSQL.
type PostgresPaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresPaymentRepository creates a new PostgreSQL payment
// repository.
func NewPostgresPaymentRepository(pool *pgxpool.Pool) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{pool: pool}
}

// paymentRow represents a database row for payments.
type paymentRow struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	ModuleID       string
	Reference      string
	AmountMinor    int64
	Currency       string
	Method         string
	PhoneNumber    *string
	PaymentType    string
	Status         string
	VerifiedBy     *uuid.UUID
	VerifiedAt     *time.Time
	RejectedReason *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

const paymentColumns = `
	id, user_id, module_id, reference, amount_minor, currency, method,
	phone_number, payment_type, status, verified_by, verified_at,
	rejected_reason, created_at, updated_at
`

// Save upserts a payment. The unique index on the reference surfaces
// as domain.ErrDuplicateTransaction.
func (r *PostgresPaymentRepository) Save(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (
			id, user_id, module_id, reference, amount_minor, currency, method,
			phone_number, payment_type, status, verified_by, verified_at,
			rejected_reason, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			verified_by = EXCLUDED.verified_by,
			verified_at = EXCLUDED.verified_at,
			rejected_reason = EXCLUDED.rejected_reason,
			updated_at = EXCLUDED.updated_at
	`

	var phone *string
	if p := payment.PhoneNumber(); p != "" {
		phone = &p
	}
	var reason *string
	if s := payment.RejectedReason(); s != "" {
		reason = &s
	}

	exec := sharedPersistence.Executor(ctx, r.pool)
	_, err := exec.Exec(ctx, query,
		payment.ID(),
		payment.UserID(),
		payment.ModuleID(),
		payment.Reference(),
		payment.Amount().Amount(),
		payment.Amount().Currency(),
		string(payment.Method()),
		phone,
		string(payment.PaymentType()),
		string(payment.Status()),
		payment.VerifiedBy(),
		payment.VerifiedAt(),
		reason,
		payment.CreatedAt(),
		payment.UpdatedAt(),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrDuplicateTransaction
		}
		return err
	}
	return nil
}

// FindByID retrieves a payment by its id.
func (r *PostgresPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	exec := sharedPersistence.Executor(ctx, r.pool)
	return scanPayment(exec.QueryRow(ctx, query, id))
}

// FindByReference retrieves a payment by its transaction reference.
func (r *PostgresPaymentRepository) FindByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE reference = $1`

	exec := sharedPersistence.Executor(ctx, r.pool)
	return scanPayment(exec.QueryRow(ctx, query, reference))
}

// FindByUserID retrieves all payments for a user, newest first.
func (r *PostgresPaymentRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	exec := sharedPersistence.Executor(ctx, r.pool)
	rows, err := exec.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPayments(rows)
}

// FindByStatus retrieves all payments in a given state, oldest first so
// reviewers work the backlog in submission order.
func (r *PostgresPaymentRepository) FindByStatus(ctx context.Context, status domain.Status) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = $1
		ORDER BY created_at
	`

	exec := sharedPersistence.Executor(ctx, r.pool)
	rows, err := exec.Query(ctx, query, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPayments(rows)
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var r paymentRow
	err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.ModuleID,
		&r.Reference,
		&r.AmountMinor,
		&r.Currency,
		&r.Method,
		&r.PhoneNumber,
		&r.PaymentType,
		&r.Status,
		&r.VerifiedBy,
		&r.VerifiedAt,
		&r.RejectedReason,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	return rowToPayment(r), nil
}

func scanPayments(rows pgx.Rows) ([]*domain.Payment, error) {
	payments := make([]*domain.Payment, 0)
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

func rowToPayment(r paymentRow) *domain.Payment {
	phone := ""
	if r.PhoneNumber != nil {
		phone = *r.PhoneNumber
	}
	reason := ""
	if r.RejectedReason != nil {
		reason = *r.RejectedReason
	}
	return domain.RehydratePayment(
		r.ID,
		r.UserID,
		r.ModuleID,
		catalog.MustMoney(r.AmountMinor, r.Currency),
		domain.Method(r.Method),
		r.Reference,
		phone,
		domain.PaymentType(r.PaymentType),
		domain.Status(r.Status),
		r.VerifiedBy,
		r.VerifiedAt,
		reason,
		r.CreatedAt,
		r.UpdatedAt,
	)
}
