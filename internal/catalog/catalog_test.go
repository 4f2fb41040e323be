package catalog

import (
	"testing"

	sharedDomain "github.com/fabrikhq/modulus/internal/shared/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testModule() Module {
	return Module{
		ID:   "ledger",
		Name: "Ledger",
		Tiers: []Tier{
			{
				Name:    "basic",
				Rank:    0,
				Monthly: MustMoney(4_99, "EUR"),
				Annual:  MustMoney(49_99, "EUR"),
				Limits:  map[string]int64{"transactions": 500},
			},
			{
				Name:    "pro",
				Rank:    1,
				Monthly: MustMoney(14_99, "EUR"),
				Annual:  MustMoney(149_99, "EUR"),
				Limits:  map[string]int64{"transactions": 10_000},
			},
		},
	}
}

func TestNewRegistry_Lookups(t *testing.T) {
	registry, err := NewRegistry(testModule())
	require.NoError(t, err)

	m, err := registry.Module("ledger")
	require.NoError(t, err)
	assert.Equal(t, "Ledger", m.Name)

	tier, err := registry.Tier("ledger", "pro")
	require.NoError(t, err)
	assert.Equal(t, 1, tier.Rank)

	price, err := registry.Price("ledger", "basic", sharedDomain.BillingAnnual)
	require.NoError(t, err)
	assert.Equal(t, int64(49_99), price.Amount())
}

func TestNewRegistry_UnknownLookups(t *testing.T) {
	registry, err := NewRegistry(testModule())
	require.NoError(t, err)

	_, err = registry.Module("nonexistent")
	assert.ErrorIs(t, err, ErrUnknownModule)

	_, err = registry.Tier("ledger", "enterprise")
	assert.ErrorIs(t, err, ErrUnknownTier)

	_, err = registry.Tier("nonexistent", "basic")
	assert.ErrorIs(t, err, ErrUnknownModule)
}

func TestNewRegistry_ValidationFailures(t *testing.T) {
	t.Run("duplicate module id", func(t *testing.T) {
		_, err := NewRegistry(testModule(), testModule())
		assert.Error(t, err)
	})

	t.Run("empty module id", func(t *testing.T) {
		m := testModule()
		m.ID = " "
		_, err := NewRegistry(m)
		assert.Error(t, err)
	})

	t.Run("no tiers", func(t *testing.T) {
		m := testModule()
		m.Tiers = nil
		_, err := NewRegistry(m)
		assert.Error(t, err)
	})

	t.Run("duplicate tier name", func(t *testing.T) {
		m := testModule()
		m.Tiers[1].Name = "basic"
		_, err := NewRegistry(m)
		assert.Error(t, err)
	})

	t.Run("non-ascending ranks", func(t *testing.T) {
		m := testModule()
		m.Tiers[1].Rank = 0
		_, err := NewRegistry(m)
		assert.Error(t, err)
	})

	t.Run("mixed currencies", func(t *testing.T) {
		m := testModule()
		m.Tiers[1].Annual = MustMoney(149_99, "USD")
		_, err := NewRegistry(m)
		assert.Error(t, err)
	})
}

func TestTier_CanUpgradeTo(t *testing.T) {
	basic := Tier{Name: "basic", Rank: 0}
	pro := Tier{Name: "pro", Rank: 1}

	assert.True(t, basic.CanUpgradeTo(pro))
	assert.False(t, pro.CanUpgradeTo(basic))
	assert.False(t, basic.CanUpgradeTo(basic))
}

func TestTier_Limit(t *testing.T) {
	tier := Tier{Limits: map[string]int64{"transactions": 500}}

	limit, ok := tier.Limit("transactions")
	assert.True(t, ok)
	assert.Equal(t, int64(500), limit)

	// Absent key means unlimited.
	_, ok = tier.Limit("storage")
	assert.False(t, ok)
}

func TestTier_Price(t *testing.T) {
	tier := testModule().Tiers[0]

	monthly, err := tier.Price(sharedDomain.BillingMonthly)
	require.NoError(t, err)
	assert.Equal(t, int64(4_99), monthly.Amount())

	_, err = tier.Price(sharedDomain.BillingCycle("weekly"))
	assert.ErrorIs(t, err, sharedDomain.ErrInvalidBillingCycle)
}

func TestDefaultRegistry(t *testing.T) {
	registry := DefaultRegistry()
	assert.Len(t, registry.Modules(), 3)

	tier, err := registry.Tier("workshops", "unlimited")
	require.NoError(t, err)
	_, capped := tier.Limit("bookings")
	assert.False(t, capped)
}
