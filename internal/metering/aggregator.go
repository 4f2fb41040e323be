package metering

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
)

const storageUsedField = "storage_used"

// AggregatorConfig configures provider circuit breakers.
type AggregatorConfig struct {
	// MaxRequests is the maximum number of requests allowed in
	// half-open state.
	MaxRequests uint32

	// Timeout is the period of the open state.
	Timeout time.Duration

	// FailureThreshold trips the breaker after this many consecutive
	// failures.
	FailureThreshold uint32
}

// DefaultAggregatorConfig returns a sensible default configuration.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		MaxRequests:      1,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// Aggregator caches per-user module usage in Redis. Provider reads go
// through a per-module circuit breaker; an open breaker surfaces an
// error so limit checks fail closed rather than allowing on stale data.
//
// Cached values are only as fresh as the last ClearCache: any module
// mutation that changes a metric must invalidate before the next read.
type Aggregator struct {
	client   *redis.Client
	registry *Registry
	config   AggregatorConfig
	logger   *slog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[map[string]int64]
}

// NewAggregator creates a new usage aggregator.
func NewAggregator(client *redis.Client, registry *Registry, config AggregatorConfig, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		client:   client,
		registry: registry,
		config:   config,
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker[map[string]int64]),
	}
}

// cacheKey namespaces a user's usage hash per module.
func cacheKey(moduleID string, userID uuid.UUID) string {
	return fmt.Sprintf("modulus:usage:%s:user:%s", moduleID, userID)
}

func (a *Aggregator) breaker(moduleID string) *gobreaker.CircuitBreaker[map[string]int64] {
	a.mu.Lock()
	defer a.mu.Unlock()

	if breaker, ok := a.breakers[moduleID]; ok {
		return breaker
	}

	settings := gobreaker.Settings{
		Name:        moduleID,
		MaxRequests: a.config.MaxRequests,
		Timeout:     a.config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= a.config.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			a.logger.Info("usage provider breaker state changed",
				"module_id", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	breaker := gobreaker.NewCircuitBreaker[map[string]int64](settings)
	a.breakers[moduleID] = breaker
	return breaker
}

func (a *Aggregator) loadFromProvider(ctx context.Context, userID uuid.UUID, moduleID string) (map[string]int64, error) {
	provider, err := a.registry.Provider(moduleID)
	if err != nil {
		return nil, err
	}

	metrics, err := a.breaker(moduleID).Execute(func() (map[string]int64, error) {
		values, err := provider.UsageMetrics(ctx, userID)
		if err != nil {
			return nil, err
		}
		storage, err := provider.StorageUsed(ctx, userID)
		if err != nil {
			return nil, err
		}
		combined := make(map[string]int64, len(values)+1)
		for k, v := range values {
			combined[k] = v
		}
		combined[storageUsedField] = storage
		return combined, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s", ErrProviderUnavailable, moduleID)
		}
		return nil, err
	}
	return metrics, nil
}

func (a *Aggregator) fillCache(ctx context.Context, userID uuid.UUID, moduleID string) (map[string]int64, error) {
	metrics, err := a.loadFromProvider(ctx, userID, moduleID)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]any, len(metrics))
	for k, v := range metrics {
		fields[k] = strconv.FormatInt(v, 10)
	}
	if len(fields) > 0 {
		if err := a.client.HSet(ctx, cacheKey(moduleID, userID), fields).Err(); err != nil {
			a.logger.Warn("failed to cache usage metrics",
				"module_id", moduleID,
				"user_id", userID,
				"error", err,
			)
		}
	}
	return metrics, nil
}

// GetUsageMetrics returns all usage metrics for a user's module,
// cached in Redis until invalidated.
func (a *Aggregator) GetUsageMetrics(ctx context.Context, userID uuid.UUID, moduleID string) (map[string]int64, error) {
	cached, err := a.client.HGetAll(ctx, cacheKey(moduleID, userID)).Result()
	if err == nil && len(cached) > 0 {
		metrics := make(map[string]int64, len(cached))
		for k, v := range cached {
			n, parseErr := strconv.ParseInt(v, 10, 64)
			if parseErr != nil {
				return nil, fmt.Errorf("corrupt usage cache for %s: %w", moduleID, parseErr)
			}
			metrics[k] = n
		}
		return metrics, nil
	}
	if err != nil {
		a.logger.Warn("usage cache read failed, falling through to provider",
			"module_id", moduleID,
			"error", err,
		)
	}

	return a.fillCache(ctx, userID, moduleID)
}

// GetMetric returns a single usage metric for a user's module.
// Metrics absent from the provider's report are zero.
func (a *Aggregator) GetMetric(ctx context.Context, userID uuid.UUID, moduleID, key string) (int64, error) {
	metrics, err := a.GetUsageMetrics(ctx, userID, moduleID)
	if err != nil {
		return 0, err
	}
	return metrics[key], nil
}

// GetStorageUsed returns the bytes of storage a user's module consumes.
func (a *Aggregator) GetStorageUsed(ctx context.Context, userID uuid.UUID, moduleID string) (int64, error) {
	return a.GetMetric(ctx, userID, moduleID, storageUsedField)
}

// ClearCache invalidates the cached usage for a user's module. Modules
// call this after any mutation that changes a metric.
func (a *Aggregator) ClearCache(ctx context.Context, userID uuid.UUID, moduleID string) error {
	return a.client.Del(ctx, cacheKey(moduleID, userID)).Err()
}

// ClearAllCaches invalidates the cached usage of every registered
// module for a user.
func (a *Aggregator) ClearAllCaches(ctx context.Context, userID uuid.UUID) error {
	keys := make([]string, 0)
	for _, moduleID := range a.registry.ModuleIDs() {
		keys = append(keys, cacheKey(moduleID, userID))
	}
	if len(keys) == 0 {
		return nil
	}
	return a.client.Del(ctx, keys...).Err()
}
