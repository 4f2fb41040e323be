package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/fabrikhq/modulus/internal/catalog"
	"github.com/fabrikhq/modulus/internal/payments/domain"
	"github.com/fabrikhq/modulus/internal/shared/infrastructure/migrations"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupPaymentTestDB(t *testing.T) *sql.DB {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, migrations.RunSQLiteMigrations(context.Background(), sqlDB))
	return sqlDB
}

func newPayment(t *testing.T, reference string) *domain.Payment {
	t.Helper()
	payment, err := domain.NewPayment(
		uuid.New(),
		"ledger",
		catalog.MustMoney(4_99, "EUR"),
		domain.MethodMobileMoney,
		reference,
		"+255700000001",
		domain.PaymentTypeSubscription,
	)
	require.NoError(t, err)
	return payment
}

func TestSQLitePaymentRepository_SaveAndFindByID(t *testing.T) {
	sqlDB := setupPaymentTestDB(t)
	repo := NewSQLitePaymentRepository(sqlDB)
	ctx := context.Background()

	payment := newPayment(t, "TXN-1001")
	require.NoError(t, repo.Save(ctx, payment))

	found, err := repo.FindByID(ctx, payment.ID())
	require.NoError(t, err)
	assert.Equal(t, payment.ID(), found.ID())
	assert.Equal(t, "TXN-1001", found.Reference())
	assert.Equal(t, "+255700000001", found.PhoneNumber())
	assert.Equal(t, domain.StatusSubmitted, found.Status())
	assert.Nil(t, found.VerifiedBy())
	assert.Nil(t, found.VerifiedAt())
}

func TestSQLitePaymentRepository_FindByID_NotFound(t *testing.T) {
	sqlDB := setupPaymentTestDB(t)
	repo := NewSQLitePaymentRepository(sqlDB)

	_, err := repo.FindByID(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
}

func TestSQLitePaymentRepository_ReferenceIsUnique(t *testing.T) {
	sqlDB := setupPaymentTestDB(t)
	repo := NewSQLitePaymentRepository(sqlDB)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, newPayment(t, "TXN-1001")))

	err := repo.Save(ctx, newPayment(t, "TXN-1001"))

	assert.ErrorIs(t, err, domain.ErrDuplicateTransaction)
}

func TestSQLitePaymentRepository_FindByReference(t *testing.T) {
	sqlDB := setupPaymentTestDB(t)
	repo := NewSQLitePaymentRepository(sqlDB)
	ctx := context.Background()

	payment := newPayment(t, "TXN-2002")
	require.NoError(t, repo.Save(ctx, payment))

	found, err := repo.FindByReference(ctx, "TXN-2002")
	require.NoError(t, err)
	assert.Equal(t, payment.ID(), found.ID())

	_, err = repo.FindByReference(ctx, "TXN-MISSING")
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
}

func TestSQLitePaymentRepository_SaveUpdatesVerification(t *testing.T) {
	sqlDB := setupPaymentTestDB(t)
	repo := NewSQLitePaymentRepository(sqlDB)
	ctx := context.Background()

	payment := newPayment(t, "TXN-3003")
	require.NoError(t, repo.Save(ctx, payment))

	verifier := uuid.New()
	require.NoError(t, payment.Verify(verifier, time.Now()))
	require.NoError(t, repo.Save(ctx, payment))

	found, err := repo.FindByID(ctx, payment.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusVerified, found.Status())
	require.NotNil(t, found.VerifiedBy())
	assert.Equal(t, verifier, *found.VerifiedBy())
	require.NotNil(t, found.VerifiedAt())
}

func TestSQLitePaymentRepository_RoundTripsRejection(t *testing.T) {
	sqlDB := setupPaymentTestDB(t)
	repo := NewSQLitePaymentRepository(sqlDB)
	ctx := context.Background()

	payment := newPayment(t, "TXN-4004")
	require.NoError(t, payment.Reject(uuid.New(), "reference not found", time.Now()))
	require.NoError(t, repo.Save(ctx, payment))

	found, err := repo.FindByID(ctx, payment.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, found.Status())
	assert.Equal(t, "reference not found", found.RejectedReason())
}

func TestSQLitePaymentRepository_FindByUserID(t *testing.T) {
	sqlDB := setupPaymentTestDB(t)
	repo := NewSQLitePaymentRepository(sqlDB)
	ctx := context.Background()

	payment := newPayment(t, "TXN-5005")
	require.NoError(t, repo.Save(ctx, payment))
	require.NoError(t, repo.Save(ctx, newPayment(t, "TXN-5006")))

	payments, err := repo.FindByUserID(ctx, payment.UserID())
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, payment.ID(), payments[0].ID())
}

func TestSQLitePaymentRepository_FindByStatus(t *testing.T) {
	sqlDB := setupPaymentTestDB(t)
	repo := NewSQLitePaymentRepository(sqlDB)
	ctx := context.Background()

	submitted := newPayment(t, "TXN-6006")
	require.NoError(t, repo.Save(ctx, submitted))

	settled := newPayment(t, "TXN-6007")
	require.NoError(t, settled.Verify(uuid.New(), time.Now()))
	require.NoError(t, repo.Save(ctx, settled))

	pending, err := repo.FindByStatus(ctx, domain.StatusSubmitted)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, submitted.ID(), pending[0].ID())
}
