package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fabrikhq/modulus/internal/catalog"
	"github.com/fabrikhq/modulus/internal/payments/domain"
	"github.com/fabrikhq/modulus/internal/shared/infrastructure/database"
	sharedPersistence "github.com/fabrikhq/modulus/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
)

// SQLitePaymentRepository implements domain.Repository using SQLite
// for local mode.
type SQLitePaymentRepository struct {
	db *sql.DB
}

// NewSQLitePaymentRepository creates a new SQLite payment repository.
func NewSQLitePaymentRepository(db *sql.DB) *SQLitePaymentRepository {
	return &SQLitePaymentRepository{db: db}
}

type sqliteQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *SQLitePaymentRepository) querier(ctx context.Context) sqliteQuerier {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return r.db
}

// Save upserts a payment. The unique index on the reference surfaces
// as domain.ErrDuplicateTransaction.
func (r *SQLitePaymentRepository) Save(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (
			id, user_id, module_id, reference, amount_minor, currency, method,
			phone_number, payment_type, status, verified_by, verified_at,
			rejected_reason, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			verified_by = excluded.verified_by,
			verified_at = excluded.verified_at,
			rejected_reason = excluded.rejected_reason,
			updated_at = excluded.updated_at
	`

	var verifiedBy any
	if payment.VerifiedBy() != nil {
		verifiedBy = payment.VerifiedBy().String()
	}

	_, err := r.querier(ctx).ExecContext(ctx, query,
		payment.ID().String(),
		payment.UserID().String(),
		payment.ModuleID(),
		payment.Reference(),
		payment.Amount().Amount(),
		payment.Amount().Currency(),
		string(payment.Method()),
		nullableString(payment.PhoneNumber()),
		string(payment.PaymentType()),
		string(payment.Status()),
		verifiedBy,
		formatNullableTime(payment.VerifiedAt()),
		nullableString(payment.RejectedReason()),
		payment.CreatedAt().UTC().Format(time.RFC3339Nano),
		payment.UpdatedAt().UTC().Format(time.RFC3339Nano),
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
func (r *SQLitePaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = ?`
	return r.scanOne(r.querier(ctx).QueryRowContext(ctx, query, id.String()))
}

// FindByReference retrieves a payment by its transaction reference.
func (r *SQLitePaymentRepository) FindByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE reference = ?`
	return r.scanOne(r.querier(ctx).QueryRowContext(ctx, query, reference))
}

// FindByUserID retrieves all payments for a user, newest first.
func (r *SQLitePaymentRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE user_id = ?
		ORDER BY created_at DESC
	`

	rows, err := r.querier(ctx).QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// FindByStatus retrieves all payments in a given state, oldest first.
func (r *SQLitePaymentRepository) FindByStatus(ctx context.Context, status domain.Status) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = ?
		ORDER BY created_at
	`

	rows, err := r.querier(ctx).QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanAll(rows)
}

func (r *SQLitePaymentRepository) scanRow(s sqliteScanner) (*domain.Payment, error) {
	var (
		id, userID, moduleID, reference          string
		amountMinor                              int64
		currency, method, paymentType, status    string
		phoneNumber, verifiedBy, rejectedReason  sql.NullString
		verifiedAt                               sql.NullString
		createdAt, updatedAt                     string
	)

	err := s.Scan(
		&id, &userID, &moduleID, &reference, &amountMinor, &currency,
		&method, &phoneNumber, &paymentType, &status,
		&verifiedBy, &verifiedAt, &rejectedReason, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	paymentID, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	ownerID, err := uuid.Parse(userID)
	if err != nil {
		return nil, err
	}

	var verifier *uuid.UUID
	if verifiedBy.Valid && verifiedBy.String != "" {
		v, err := uuid.Parse(verifiedBy.String)
		if err != nil {
			return nil, err
		}
		verifier = &v
	}

	verifiedAtTime, err := parseNullableTime(verifiedAt)
	if err != nil {
		return nil, err
	}
	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, err
	}
	updated, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, err
	}

	return domain.RehydratePayment(
		paymentID,
		ownerID,
		moduleID,
		catalog.MustMoney(amountMinor, currency),
		domain.Method(method),
		reference,
		phoneNumber.String,
		domain.PaymentType(paymentType),
		domain.Status(status),
		verifier,
		verifiedAtTime,
		rejectedReason.String,
		created,
		updated,
	), nil
}

func (r *SQLitePaymentRepository) scanOne(row *sql.Row) (*domain.Payment, error) {
	payment, err := r.scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

func (r *SQLitePaymentRepository) scanAll(rows *sql.Rows) ([]*domain.Payment, error) {
	payments := make([]*domain.Payment, 0)
	for rows.Next() {
		payment, err := r.scanRow(rows)
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

type sqliteScanner interface {
	Scan(dest ...any) error
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseNullableTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
