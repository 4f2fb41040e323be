// Package catalog is the registry of subscribable modules, their tiers,
// and pricing. The registry is built once at startup and read-only
// afterwards, so lookups are safe for concurrent callers.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	sharedDomain "github.com/fabrikhq/modulus/internal/shared/domain"
)

var (
	ErrUnknownModule = errors.New("unknown module")
	ErrUnknownTier   = errors.New("unknown tier")
)

// Tier is a named pricing and feature level within a module.
type Tier struct {
	Name    string
	Rank    int
	Monthly Money
	Annual  Money
	// Limits caps usage metrics by key. A metric absent from the map
	// is unlimited.
	Limits map[string]int64
}

// CanUpgradeTo reports whether target is reachable from this tier.
// Only strictly upward moves are allowed; downgrades require an
// explicit flow that does not exist.
func (t Tier) CanUpgradeTo(target Tier) bool {
	return target.Rank > t.Rank
}

// Limit returns the cap for a metric key and whether one is set.
func (t Tier) Limit(metricKey string) (int64, bool) {
	limit, ok := t.Limits[metricKey]
	return limit, ok
}

// Price returns the tier price for a billing cycle.
func (t Tier) Price(cycle sharedDomain.BillingCycle) (Money, error) {
	switch cycle {
	case sharedDomain.BillingMonthly:
		return t.Monthly, nil
	case sharedDomain.BillingAnnual:
		return t.Annual, nil
	default:
		return Money{}, sharedDomain.ErrInvalidBillingCycle
	}
}

// Module is a subscribable product module.
type Module struct {
	ID          string
	Name        string
	Description string
	// Tiers are ordered by ascending rank.
	Tiers []Tier
}

// Tier looks up a tier by name.
func (m Module) Tier(name string) (Tier, error) {
	for _, t := range m.Tiers {
		if t.Name == name {
			return t, nil
		}
	}
	return Tier{}, fmt.Errorf("%w: %s/%s", ErrUnknownTier, m.ID, name)
}

// Registry holds the module catalog.
type Registry struct {
	modules map[string]Module
}

// NewRegistry builds a registry, validating module and tier definitions.
func NewRegistry(modules ...Module) (*Registry, error) {
	byID := make(map[string]Module, len(modules))
	for _, m := range modules {
		if strings.TrimSpace(m.ID) == "" {
			return nil, errors.New("module id cannot be empty")
		}
		if _, exists := byID[m.ID]; exists {
			return nil, fmt.Errorf("duplicate module id %q", m.ID)
		}
		if err := validateTiers(m); err != nil {
			return nil, err
		}
		byID[m.ID] = m
	}
	return &Registry{modules: byID}, nil
}

func validateTiers(m Module) error {
	if len(m.Tiers) == 0 {
		return fmt.Errorf("module %q has no tiers", m.ID)
	}

	names := make(map[string]struct{}, len(m.Tiers))
	currency := ""
	lastRank := -1

	for _, t := range m.Tiers {
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("module %q has a tier with an empty name", m.ID)
		}
		if _, exists := names[t.Name]; exists {
			return fmt.Errorf("module %q has duplicate tier %q", m.ID, t.Name)
		}
		names[t.Name] = struct{}{}

		if t.Rank <= lastRank {
			return fmt.Errorf("module %q tiers must have ascending ranks", m.ID)
		}
		lastRank = t.Rank

		if currency == "" {
			currency = t.Monthly.Currency()
		}
		if t.Monthly.Currency() != currency || t.Annual.Currency() != currency {
			return fmt.Errorf("module %q mixes currencies across tiers", m.ID)
		}
	}
	return nil
}

// Module looks up a module by id.
func (r *Registry) Module(id string) (Module, error) {
	m, ok := r.modules[id]
	if !ok {
		return Module{}, fmt.Errorf("%w: %s", ErrUnknownModule, id)
	}
	return m, nil
}

// Tier looks up a tier within a module.
func (r *Registry) Tier(moduleID, tierName string) (Tier, error) {
	m, err := r.Module(moduleID)
	if err != nil {
		return Tier{}, err
	}
	return m.Tier(tierName)
}

// Price returns the price of a module tier for a billing cycle.
func (r *Registry) Price(moduleID, tierName string, cycle sharedDomain.BillingCycle) (Money, error) {
	t, err := r.Tier(moduleID, tierName)
	if err != nil {
		return Money{}, err
	}
	return t.Price(cycle)
}

// Modules returns all modules sorted by id.
func (r *Registry) Modules() []Module {
	out := make([]Module, 0, len(r.modules))
	for _, m := range r.modules {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
