package catalog

import (
	"errors"
	"fmt"
)

var (
	ErrNegativeAmount  = errors.New("amount cannot be negative")
	ErrInvalidCurrency = errors.New("currency must be a 3-letter ISO code")
)

// Money is a monetary amount in integer minor units (cents) with an
// ISO 4217 currency code. Integer minor units avoid floating-point
// rounding in billing arithmetic.
type Money struct {
	amount   int64
	currency string
}

// NewMoney creates a Money value. Amount is in minor units.
func NewMoney(amount int64, currency string) (Money, error) {
	if amount < 0 {
		return Money{}, ErrNegativeAmount
	}
	if !isValidCurrency(currency) {
		return Money{}, ErrInvalidCurrency
	}
	return Money{amount: amount, currency: currency}, nil
}

// MustMoney creates a Money value, panicking on invalid input. For use
// in static catalog definitions only.
func MustMoney(amount int64, currency string) Money {
	m, err := NewMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Amount returns the amount in minor units.
func (m Money) Amount() int64 { return m.amount }

// Currency returns the ISO 4217 currency code.
func (m Money) Currency() string { return m.currency }

// IsZero returns true for an uninitialized Money value.
func (m Money) IsZero() bool { return m.amount == 0 && m.currency == "" }

// IsPositive reports whether the amount is greater than zero.
func (m Money) IsPositive() bool { return m.amount > 0 }

// Equals compares amount and currency.
func (m Money) Equals(other Money) bool {
	return m.amount == other.amount && m.currency == other.currency
}

// LessThan reports whether m is less than other. Comparing across
// currencies is a programming error and returns false.
func (m Money) LessThan(other Money) bool {
	return m.currency == other.currency && m.amount < other.amount
}

// String renders the amount assuming a two-decimal minor unit
// exponent. The catalog only carries two-decimal currencies;
// zero-decimal codes like JPY would need an exponent table.
func (m Money) String() string {
	return fmt.Sprintf("%d.%02d %s", m.amount/100, m.amount%100, m.currency)
}

func isValidCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}
