package domain

import (
	"errors"
	"time"
)

// ErrInvalidBillingCycle is returned when a billing cycle value is not
// one of the known cycles.
var ErrInvalidBillingCycle = errors.New("invalid billing cycle")

// ValueObject represents an immutable domain concept defined by its attributes.
type ValueObject interface {
	Equals(other ValueObject) bool
}

// ModuleID identifies a subscribable platform module across bounded contexts
// (e.g. "ledger", "library", "workshops").
type ModuleID struct {
	value string
}

// NewModuleID creates a ModuleID from a string key.
func NewModuleID(value string) ModuleID {
	return ModuleID{value: value}
}

// String returns the module key.
func (m ModuleID) String() string {
	return m.value
}

// Equals checks if two ModuleIDs refer to the same module.
func (m ModuleID) Equals(other ValueObject) bool {
	if otherID, ok := other.(ModuleID); ok {
		return m.value == otherID.value
	}
	return false
}

// IsEmpty returns true if the ModuleID is empty.
func (m ModuleID) IsEmpty() bool {
	return m.value == ""
}

// BillingCycle is the recurrence period at which a subscription amount is charged.
type BillingCycle string

const (
	BillingMonthly BillingCycle = "monthly"
	BillingAnnual  BillingCycle = "annual"
)

// NextPeriodEnd returns the end of the billing period that starts at
// the given time.
func (c BillingCycle) NextPeriodEnd(start time.Time) time.Time {
	if c == BillingAnnual {
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, 1, 0)
}

// IsValid checks if the billing cycle is a known value.
func (c BillingCycle) IsValid() bool {
	switch c {
	case BillingMonthly, BillingAnnual:
		return true
	default:
		return false
	}
}
