package domain

import "time"

// DenialReason classifies why library access was denied.
type DenialReason string

const (
	ReasonNone              DenialReason = ""
	ReasonNoStarterKit      DenialReason = "no_starter_kit"
	ReasonFreePeriodExpired DenialReason = "free_period_expired"
	ReasonNoSubscription    DenialReason = "no_subscription"
)

// FreeAccessPeriod is a half-open [start, end) window during which
// starter-kit holders can use the library without a subscription. The
// zero value means no window was ever configured.
type FreeAccessPeriod struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether no window was configured.
func (p FreeAccessPeriod) IsZero() bool {
	return p.Start.IsZero() && p.End.IsZero()
}

// ActiveAt reports whether t falls inside the window.
func (p FreeAccessPeriod) ActiveAt(t time.Time) bool {
	if p.IsZero() {
		return false
	}
	return !t.Before(p.Start) && t.Before(p.End)
}

// AccessQuery carries everything Decide needs.
type AccessQuery struct {
	HasStarterKit         bool
	FreePeriod            FreeAccessPeriod
	HasActiveSubscription bool
	Now                   time.Time
}

// Decision is the outcome of an access check.
type Decision struct {
	Allowed bool
	Reason  DenialReason
	Message string
}

// Decide resolves library access. The starter kit is a hard
// prerequisite; the free window and an active subscription are each
// sufficient once it is held. Denial reasons rank starter kit above an
// expired free window above a missing subscription.
func Decide(q AccessQuery) Decision {
	if !q.HasStarterKit {
		return Decision{
			Reason:  ReasonNoStarterKit,
			Message: "a starter kit is required for library access",
		}
	}
	if q.FreePeriod.ActiveAt(q.Now) {
		return Decision{Allowed: true}
	}
	if q.HasActiveSubscription {
		return Decision{Allowed: true}
	}
	if !q.FreePeriod.IsZero() && !q.Now.Before(q.FreePeriod.End) {
		return Decision{
			Reason:  ReasonFreePeriodExpired,
			Message: "the free access period has ended; a library subscription is required",
		}
	}
	return Decision{
		Reason:  ReasonNoSubscription,
		Message: "a library subscription is required",
	}
}
