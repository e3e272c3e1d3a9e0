// Package lockout evaluates per-account failed-login state against time.
// The counters themselves live on the account row and are bumped atomically
// by the account repository; this package only decides, it never persists
// and never returns errors.
package lockout

import (
	"time"

	"asset-console/backend/internal/account/domain"
)

// DefaultThreshold locks the account after this many failed attempts in one cycle.
const DefaultThreshold = 5

// DefaultWindow is how long a triggered lock lasts.
const DefaultWindow = 15 * time.Minute

// Policy holds the lockout tuning values.
type Policy struct {
	Threshold int
	Window    time.Duration
}

// NewPolicy returns a Policy, substituting defaults for non-positive values.
func NewPolicy(threshold int, window time.Duration) Policy {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return Policy{Threshold: threshold, Window: window}
}

// Decision is the outcome of evaluating lockout state at a point in time.
type Decision struct {
	Locked    bool
	Remaining time.Duration
}

// RemainingSeconds returns the remaining lock time rounded up to whole
// seconds, for client countdowns. 0 when unlocked.
func (d Decision) RemainingSeconds() int {
	if !d.Locked {
		return 0
	}
	secs := int((d.Remaining + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Evaluate derives the lock state from locked_until relative to now.
// A lock whose deadline has passed counts as unlocked; no write is required
// to clear it.
func (p Policy) Evaluate(state domain.LockoutState, now time.Time) Decision {
	if state.LockedUntil == nil || !state.LockedUntil.After(now) {
		return Decision{}
	}
	return Decision{Locked: true, Remaining: state.LockedUntil.Sub(now)}
}

// LockDeadline returns the locked_until value to arm if the next failure
// crosses the threshold. The account repository applies it conditionally
// inside the same atomic counter update.
func (p Policy) LockDeadline(now time.Time) time.Time {
	return now.Add(p.Window)
}
