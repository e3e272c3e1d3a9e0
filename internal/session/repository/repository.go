package repository

import (
	"context"
	"time"

	"asset-console/backend/internal/session/domain"
)

// ListFilter narrows ListByUsers results.
type ListFilter struct {
	UserID     string // empty matches all visible users
	ActiveOnly bool
	Limit      int
	Offset     int
}

// Repository defines persistence for sessions.
type Repository interface {
	GetByToken(ctx context.Context, sessionToken string) (*domain.Session, error)
	GetByCredentialHash(ctx context.Context, credentialTokenHash string) (*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	CountActiveByUser(ctx context.Context, userID string) (int, error)
	// OldestActiveByUser returns the user's active session with the oldest
	// last activity, or nil when the user has none.
	OldestActiveByUser(ctx context.Context, userID string) (*domain.Session, error)
	UpdateLastActivity(ctx context.Context, sessionToken string, at time.Time) error
	// Deactivate marks one session inactive. Returns false when the session
	// was missing or already inactive, so invalidate/validate races have a
	// single winner.
	Deactivate(ctx context.Context, sessionToken, reason string, at time.Time) (bool, error)
	// DeactivateAllByUser marks every active session of the user inactive
	// and returns how many were affected.
	DeactivateAllByUser(ctx context.Context, userID, reason string, at time.Time) (int, error)
	// ListByUsers returns sessions belonging to the given users, newest
	// activity first.
	ListByUsers(ctx context.Context, userIDs []string, f ListFilter) ([]*domain.Session, error)
	// DeactivateExpired sweeps sessions whose expiry has passed. Returns the
	// number of sessions swept. Validation also checks expiry synchronously,
	// so this is an optimization, not a correctness dependency.
	DeactivateExpired(ctx context.Context, now time.Time) (int, error)
}
