package application

import (
	"context"
	"errors"
	"time"

	"github.com/fabrikhq/modulus/internal/library/domain"
	subscriptionDomain "github.com/fabrikhq/modulus/internal/subscriptions/domain"
	"github.com/google/uuid"
)

// LibraryModuleID is the catalog id the gate checks subscriptions
// against.
const LibraryModuleID = "library"

// StarterKitSource reports whether a user holds a starter kit.
type StarterKitSource interface {
	HasStarterKit(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Gate answers library access checks by combining the starter-kit
// source, the configured free-access window, and the user's library
// subscription.
type Gate struct {
	subscriptionRepo subscriptionDomain.Repository
	starterKits      StarterKitSource
	freePeriod       domain.FreeAccessPeriod
	now              func() time.Time
}

// NewGate creates a new access gate.
func NewGate(
	subscriptionRepo subscriptionDomain.Repository,
	starterKits StarterKitSource,
	freePeriod domain.FreeAccessPeriod,
) *Gate {
	return &Gate{
		subscriptionRepo: subscriptionRepo,
		starterKits:      starterKits,
		freePeriod:       freePeriod,
		now:              time.Now,
	}
}

// CheckAccess resolves whether the user may use the library right now.
func (g *Gate) CheckAccess(ctx context.Context, userID uuid.UUID) (domain.Decision, error) {
	hasKit, err := g.starterKits.HasStarterKit(ctx, userID)
	if err != nil {
		return domain.Decision{}, err
	}
	if !hasKit {
		// Hard prerequisite; no point consulting subscriptions.
		return domain.Decide(domain.AccessQuery{
			FreePeriod: g.freePeriod,
			Now:        g.now(),
		}), nil
	}

	hasActive := false
	subscription, err := g.subscriptionRepo.FindOpenByUserAndModule(ctx, userID, LibraryModuleID)
	switch {
	case err == nil:
		hasActive = subscription.Status() == subscriptionDomain.StatusActive
	case errors.Is(err, subscriptionDomain.ErrSubscriptionNotFound):
		// no subscription at all
	default:
		return domain.Decision{}, err
	}

	return domain.Decide(domain.AccessQuery{
		HasStarterKit:         hasKit,
		FreePeriod:            g.freePeriod,
		HasActiveSubscription: hasActive,
		Now:                   g.now(),
	}), nil
}

// CanAccess is a convenience wrapper returning only the verdict.
func (g *Gate) CanAccess(ctx context.Context, userID uuid.UUID) (bool, error) {
	decision, err := g.CheckAccess(ctx, userID)
	if err != nil {
		return false, err
	}
	return decision.Allowed, nil
}

// ExplainDenial returns the human-readable reason a user is denied,
// or an empty string when access is allowed.
func (g *Gate) ExplainDenial(ctx context.Context, userID uuid.UUID) (string, error) {
	decision, err := g.CheckAccess(ctx, userID)
	if err != nil {
		return "", err
	}
	if decision.Allowed {
		return "", nil
	}
	return decision.Message, nil
}
