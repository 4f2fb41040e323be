package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	m, err := NewMoney(12_34, "EUR")
	require.NoError(t, err)
	assert.Equal(t, int64(12_34), m.Amount())
	assert.Equal(t, "EUR", m.Currency())
	assert.Equal(t, "12.34 EUR", m.String())
}

func TestNewMoney_Invalid(t *testing.T) {
	_, err := NewMoney(-1, "EUR")
	assert.ErrorIs(t, err, ErrNegativeAmount)

	for _, code := range []string{"", "EU", "EURO", "eur", "E1R"} {
		_, err := NewMoney(100, code)
		assert.ErrorIs(t, err, ErrInvalidCurrency, "code %q", code)
	}
}

func TestMoney_Comparisons(t *testing.T) {
	a := MustMoney(100, "EUR")
	b := MustMoney(200, "EUR")
	c := MustMoney(100, "USD")

	assert.True(t, a.Equals(MustMoney(100, "EUR")))
	assert.False(t, a.Equals(c))

	assert.True(t, a.LessThan(b))
	assert.False(t, b.LessThan(a))
	// Cross-currency comparisons are never true.
	assert.False(t, a.LessThan(MustMoney(200, "USD")))
}

func TestMoney_IsZero(t *testing.T) {
	var zero Money
	assert.True(t, zero.IsZero())
	assert.False(t, MustMoney(0, "EUR").IsZero())
}

func TestMoney_IsPositive(t *testing.T) {
	assert.True(t, MustMoney(1, "EUR").IsPositive())
	assert.False(t, MustMoney(0, "EUR").IsPositive())

	var zero Money
	assert.False(t, zero.IsPositive())
}

func TestMustMoney_Panics(t *testing.T) {
	assert.Panics(t, func() { MustMoney(-1, "EUR") })
}
