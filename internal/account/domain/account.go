package domain

import (
	"errors"
	"time"

	"asset-console/backend/internal/rank"
)

// Account is the persisted credential record for a console user.
type Account struct {
	ID               string
	Email            string
	PasswordHash     string
	Rank             rank.Rank
	TwoFactorSecret  string // empty until setup; unconfirmed until TwoFactorEnabled
	TwoFactorEnabled bool
	Lockout          LockoutState
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// LockoutState holds the per-account failed-login counters.
// FailedCount is cycle-scoped and resets when the lock triggers or a login
// succeeds; TotalAttempts is a lifetime counter and only ever grows.
// LockedUntil nil or in the past means unlocked (lazy expiry, no write needed).
type LockoutState struct {
	FailedCount       int
	TotalAttempts     int64
	LastFailedAttempt *time.Time
	LockedUntil       *time.Time
}

// Validate validates the account for persistence. Returns an error describing the first validation failure.
func (a *Account) Validate() error {
	if a.Email == "" {
		return errors.New("email is required")
	}
	if !a.Rank.Valid() {
		return errors.New("rank is required")
	}
	return nil
}
