package repository

import (
	"context"
	"time"

	"asset-console/backend/internal/account/domain"
	"asset-console/backend/internal/rank"
)

// Repository defines persistence for accounts.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	Create(ctx context.Context, a *domain.Account) error
	Delete(ctx context.Context, id string) error
	ListByRanks(ctx context.Context, ranks []rank.Rank) ([]*domain.Account, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	UpdateRank(ctx context.Context, id string, newRank rank.Rank) error

	// RecordFailedAttempt bumps the lockout counters in a single atomic
	// statement: total_attempts always increments; when the incremented
	// cycle count reaches threshold, failed_count resets to 0 and
	// locked_until is set to lockUntil. Returns the post-update state so
	// concurrent failures each observe a linearized view.
	RecordFailedAttempt(ctx context.Context, id string, at time.Time, threshold int, lockUntil time.Time) (*domain.LockoutState, error)
	// ResetLockout clears failed_count, last_failed_attempt, and
	// locked_until while preserving total_attempts.
	ResetLockout(ctx context.Context, id string) error

	SetTwoFactorSecret(ctx context.Context, id, secret string) error
	EnableTwoFactor(ctx context.Context, id string) error
	DisableTwoFactor(ctx context.Context, id string) error
}
