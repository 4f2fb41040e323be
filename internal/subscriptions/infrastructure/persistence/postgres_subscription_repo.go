package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/fabrikhq/modulus/internal/catalog"
	sharedDomain "github.com/fabrikhq/modulus/internal/shared/domain"
	"github.com/fabrikhq/modulus/internal/shared/infrastructure/database"
	sharedPersistence "github.com/fabrikhq/modulus/internal/shared/infrastructure/persistence"
	"github.com/fabrikhq/modulus/internal/subscriptions/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSubscriptionRepository implements domain.Repository using
// PostgreSQL.
type PostgresSubscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresSubscriptionRepository creates a new PostgreSQL
// subscription repository.
func NewPostgresSubscriptionRepository(pool *pgxpool.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{pool: pool}
}

// subscriptionRow represents a database row for subscriptions.
type subscriptionRow struct {
	ID                 uuid.UUID
	UserID             uuid.UUID
	ModuleID           string
	Tier               string
	BillingCycle       string
	AmountMinor        int64
	Currency           string
	Status             string
	StartedAt          *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  bool
	CancelledAt        *time.Time
	CancellationReason *string
	UpgradedAt         *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

const subscriptionColumns = `
	id, user_id, module_id, tier, billing_cycle, amount_minor, currency,
	status, started_at, current_period_end, cancel_at_period_end,
	cancelled_at, cancellation_reason, upgraded_at, created_at, updated_at
`

// Save upserts a subscription. The partial unique index on the open
// (user, module) slot surfaces as domain.ErrAlreadySubscribed.
func (r *PostgresSubscriptionRepository) Save(ctx context.Context, subscription *domain.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id, user_id, module_id, tier, billing_cycle, amount_minor, currency,
			status, started_at, current_period_end, cancel_at_period_end,
			cancelled_at, cancellation_reason, upgraded_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			tier = EXCLUDED.tier,
			billing_cycle = EXCLUDED.billing_cycle,
			amount_minor = EXCLUDED.amount_minor,
			currency = EXCLUDED.currency,
			status = EXCLUDED.status,
			started_at = EXCLUDED.started_at,
			current_period_end = EXCLUDED.current_period_end,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			cancelled_at = EXCLUDED.cancelled_at,
			cancellation_reason = EXCLUDED.cancellation_reason,
			upgraded_at = EXCLUDED.upgraded_at,
			updated_at = EXCLUDED.updated_at
	`

	var reason *string
	if s := subscription.CancellationReason(); s != "" {
		reason = &s
	}

	exec := sharedPersistence.Executor(ctx, r.pool)
	_, err := exec.Exec(ctx, query,
		subscription.ID(),
		subscription.UserID(),
		subscription.ModuleID(),
		subscription.Tier(),
		string(subscription.BillingCycle()),
		subscription.Amount().Amount(),
		subscription.Amount().Currency(),
		string(subscription.Status()),
		subscription.StartedAt(),
		subscription.CurrentPeriodEnd(),
		subscription.CancelAtPeriodEnd(),
		subscription.CancelledAt(),
		reason,
		subscription.UpgradedAt(),
		subscription.CreatedAt(),
		subscription.UpdatedAt(),
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
func (r *PostgresSubscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`

	exec := sharedPersistence.Executor(ctx, r.pool)
	subscription, err := scanSubscription(exec.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return subscription, nil
}

// FindOpenByUserAndModule retrieves the pending or active subscription
// for a (user, module) pair.
func (r *PostgresSubscriptionRepository) FindOpenByUserAndModule(ctx context.Context, userID uuid.UUID, moduleID string) (*domain.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE user_id = $1 AND module_id = $2 AND status IN ('pending', 'active')
	`

	exec := sharedPersistence.Executor(ctx, r.pool)
	subscription, err := scanSubscription(exec.QueryRow(ctx, query, userID, moduleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return subscription, nil
}

// FindByUserID retrieves all subscriptions for a user, newest first.
func (r *PostgresSubscriptionRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	exec := sharedPersistence.Executor(ctx, r.pool)
	rows, err := exec.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

// FindDueForSweep retrieves active subscriptions whose billing period
// has elapsed.
func (r *PostgresSubscriptionRepository) FindDueForSweep(ctx context.Context, now time.Time) ([]*domain.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE status = 'active' AND current_period_end <= $1
		ORDER BY current_period_end
	`

	exec := sharedPersistence.Executor(ctx, r.pool)
	rows, err := exec.Query(ctx, query, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var r subscriptionRow
	err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.ModuleID,
		&r.Tier,
		&r.BillingCycle,
		&r.AmountMinor,
		&r.Currency,
		&r.Status,
		&r.StartedAt,
		&r.CurrentPeriodEnd,
		&r.CancelAtPeriodEnd,
		&r.CancelledAt,
		&r.CancellationReason,
		&r.UpgradedAt,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rowToSubscription(r), nil
}

func scanSubscriptions(rows pgx.Rows) ([]*domain.Subscription, error) {
	subscriptions := make([]*domain.Subscription, 0)
	for rows.Next() {
		subscription, err := scanSubscription(rows)
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

func rowToSubscription(r subscriptionRow) *domain.Subscription {
	reason := ""
	if r.CancellationReason != nil {
		reason = *r.CancellationReason
	}
	return domain.RehydrateSubscription(
		r.ID,
		r.UserID,
		r.ModuleID,
		r.Tier,
		catalog.MustMoney(r.AmountMinor, r.Currency),
		sharedDomain.BillingCycle(r.BillingCycle),
		domain.Status(r.Status),
		r.StartedAt,
		r.CurrentPeriodEnd,
		r.CancelAtPeriodEnd,
		r.CancelledAt,
		reason,
		r.UpgradedAt,
		r.CreatedAt,
		r.UpdatedAt,
	)
}
