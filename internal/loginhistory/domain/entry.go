// Package domain contains the login history entry.
package domain

import "time"

// Failure reasons recorded on unsuccessful attempts.
const (
	ReasonInvalidCredentials = "invalid_credentials"
	ReasonAccountLocked      = "account_locked"
	ReasonTwoFactorFailed    = "2fa_failed"
)

// Entry is one authentication attempt, successful or not. Email is recorded
// as submitted so attempts against unknown accounts are still visible.
type Entry struct {
	ID            string
	Email         string
	UserID        string // empty when the email matched no account
	Success       bool
	FailureReason string
	SessionToken  string // set on success
	IPAddress     string
	UserAgent     string
	CreatedAt     time.Time
}
