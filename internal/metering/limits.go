package metering

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/fabrikhq/modulus/internal/catalog"
	"github.com/google/uuid"
)

// ErrUsageLimitExceeded is returned when a user's current usage
// exceeds a tier cap.
var ErrUsageLimitExceeded = errors.New("usage exceeds tier limit")

// LimitChecker compares current usage against a tier's caps. It
// satisfies the limit-checker contract of the subscription commands.
type LimitChecker struct {
	aggregator *Aggregator
}

// NewLimitChecker creates a new LimitChecker.
func NewLimitChecker(aggregator *Aggregator) *LimitChecker {
	return &LimitChecker{aggregator: aggregator}
}

// CheckTier fails when any metric capped by the tier is already above
// its cap. Metrics the tier does not cap are unlimited. Provider
// outages surface as errors so enforcement never allows on stale data.
func (c *LimitChecker) CheckTier(ctx context.Context, userID uuid.UUID, moduleID string, tier catalog.Tier) error {
	if len(tier.Limits) == 0 {
		return nil
	}

	metrics, err := c.aggregator.GetUsageMetrics(ctx, userID, moduleID)
	if err != nil {
		// A module without a registered provider has nothing to
		// meter against its caps.
		if errors.Is(err, ErrNoProvider) {
			return nil
		}
		return err
	}

	keys := make([]string, 0, len(tier.Limits))
	for key := range tier.Limits {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		limit := tier.Limits[key]
		if usage := metrics[key]; usage > limit {
			return fmt.Errorf("%w: %s at %d, tier %q allows %d", ErrUsageLimitExceeded, key, usage, tier.Name, limit)
		}
	}
	return nil
}
