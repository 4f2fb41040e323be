package metering

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrNoProvider is returned when no usage provider is registered
	// for a module.
	ErrNoProvider = errors.New("no usage provider registered for module")

	// ErrProviderUnavailable is returned when a provider's circuit
	// breaker is open or the provider fails.
	ErrProviderUnavailable = errors.New("usage provider unavailable")
)

// Provider reports a module's per-user usage. One implementation per
// module, registered at startup.
type Provider interface {
	ModuleID() string
	UsageMetrics(ctx context.Context, userID uuid.UUID) (map[string]int64, error)
	Metric(ctx context.Context, userID uuid.UUID, key string) (int64, error)
	StorageUsed(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Registry holds the registered usage providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider, replacing any existing one for the module.
func (r *Registry) Register(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.ModuleID()] = provider
}

// Provider returns the provider for a module.
func (r *Registry) Provider(moduleID string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	provider, ok := r.providers[moduleID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoProvider, moduleID)
	}
	return provider, nil
}

// ModuleIDs returns the ids of all registered modules, sorted.
func (r *Registry) ModuleIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
