package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fabrikhq/modulus/internal/catalog"
	sharedDomain "github.com/fabrikhq/modulus/internal/shared/domain"
	"github.com/fabrikhq/modulus/internal/shared/infrastructure/database"
	sharedPersistence "github.com/fabrikhq/modulus/internal/shared/infrastructure/persistence"
	"github.com/fabrikhq/modulus/internal/subscriptions/domain"
	"github.com/google/uuid"
)

// SQLiteSubscriptionRepository implements domain.Repository using
// SQLite for local mode.
type SQLiteSubscriptionRepository struct {
	db *sql.DB
}

// NewSQLiteSubscriptionRepository creates a new SQLite subscription
// repository.
func NewSQLiteSubscriptionRepository(db *sql.DB) *SQLiteSubscriptionRepository {
	return &SQLiteSubscriptionRepository{db: db}
}

type sqliteQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *SQLiteSubscriptionRepository) querier(ctx context.Context) sqliteQuerier {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return r.db
}

// Save upserts a subscription. The partial unique index on the open
// (user, module) slot surfaces as domain.ErrAlreadySubscribed.
func (r *SQLiteSubscriptionRepository) Save(ctx context.Context, subscription *domain.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id, user_id, module_id, tier, billing_cycle, amount_minor, currency,
			status, started_at, current_period_end, cancel_at_period_end,
			cancelled_at, cancellation_reason, upgraded_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			tier = excluded.tier,
			billing_cycle = excluded.billing_cycle,
			amount_minor = excluded.amount_minor,
			currency = excluded.currency,
			status = excluded.status,
			started_at = excluded.started_at,
			current_period_end = excluded.current_period_end,
			cancel_at_period_end = excluded.cancel_at_period_end,
			cancelled_at = excluded.cancelled_at,
			cancellation_reason = excluded.cancellation_reason,
			upgraded_at = excluded.upgraded_at,
			updated_at = excluded.updated_at
	`

	_, err := r.querier(ctx).ExecContext(ctx, query,
		subscription.ID().String(),
		subscription.UserID().String(),
		subscription.ModuleID(),
		subscription.Tier(),
		string(subscription.BillingCycle()),
		subscription.Amount().Amount(),
		subscription.Amount().Currency(),
		string(subscription.Status()),
		formatNullableTime(subscription.StartedAt()),
		formatNullableTime(subscription.CurrentPeriodEnd()),
		boolToInt(subscription.CancelAtPeriodEnd()),
		formatNullableTime(subscription.CancelledAt()),
		nullableString(subscription.CancellationReason()),
		formatNullableTime(subscription.UpgradedAt()),
		subscription.CreatedAt().UTC().Format(time.RFC3339Nano),
		subscription.UpdatedAt().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrAlreadySubscribed
		}
		return err
	}
	return nil
}

// FindByID retrieves a subscription by its id.
func (r *SQLiteSubscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = ?`
	return r.scanOne(r.querier(ctx).QueryRowContext(ctx, query, id.String()))
}

// FindOpenByUserAndModule retrieves the pending or active subscription
// for a (user, module) pair.
func (r *SQLiteSubscriptionRepository) FindOpenByUserAndModule(ctx context.Context, userID uuid.UUID, moduleID string) (*domain.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE user_id = ? AND module_id = ? AND status IN ('pending', 'active')
	`
	return r.scanOne(r.querier(ctx).QueryRowContext(ctx, query, userID.String(), moduleID))
}

// FindByUserID retrieves all subscriptions for a user, newest first.
func (r *SQLiteSubscriptionRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
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

// FindDueForSweep retrieves active subscriptions whose billing period
// has elapsed.
func (r *SQLiteSubscriptionRepository) FindDueForSweep(ctx context.Context, now time.Time) ([]*domain.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE status = 'active' AND current_period_end <= ?
		ORDER BY current_period_end
	`

	rows, err := r.querier(ctx).QueryContext(ctx, query, now.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanAll(rows)
}

type sqliteScanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteSubscriptionRepository) scanRow(s sqliteScanner) (*domain.Subscription, error) {
	var (
		id, userID, moduleID, tier, cycle, currency, status string
		amountMinor                                         int64
		startedAt, periodEnd, cancelledAt, upgradedAt       sql.NullString
		reason                                              sql.NullString
		cancelAtPeriodEnd                                   int
		createdAt, updatedAt                                string
	)

	err := s.Scan(
		&id, &userID, &moduleID, &tier, &cycle, &amountMinor, &currency,
		&status, &startedAt, &periodEnd, &cancelAtPeriodEnd,
		&cancelledAt, &reason, &upgradedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	subscriptionID, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	ownerID, err := uuid.Parse(userID)
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

	startedAtTime, err := parseNullableTime(startedAt)
	if err != nil {
		return nil, err
	}
	periodEndTime, err := parseNullableTime(periodEnd)
	if err != nil {
		return nil, err
	}
	cancelledAtTime, err := parseNullableTime(cancelledAt)
	if err != nil {
		return nil, err
	}
	upgradedAtTime, err := parseNullableTime(upgradedAt)
	if err != nil {
		return nil, err
	}

	return domain.RehydrateSubscription(
		subscriptionID,
		ownerID,
		moduleID,
		tier,
		catalog.MustMoney(amountMinor, currency),
		sharedDomain.BillingCycle(cycle),
		domain.Status(status),
		startedAtTime,
		periodEndTime,
		cancelAtPeriodEnd != 0,
		cancelledAtTime,
		reason.String,
		upgradedAtTime,
		created,
		updated,
	), nil
}

func (r *SQLiteSubscriptionRepository) scanOne(row *sql.Row) (*domain.Subscription, error) {
	subscription, err := r.scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return subscription, nil
}

func (r *SQLiteSubscriptionRepository) scanAll(rows *sql.Rows) ([]*domain.Subscription, error) {
	subscriptions := make([]*domain.Subscription, 0)
	for rows.Next() {
		subscription, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		subscriptions = append(subscriptions, subscription)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return subscriptions, nil
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

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
