package repository

import (
	"context"
	"time"

	"asset-console/backend/internal/twofactor/domain"
)

// Repository defines persistence for backup codes.
type Repository interface {
	// CreateBatch inserts a fresh set of codes for a user.
	CreateBatch(ctx context.Context, codes []*domain.BackupCode) error
	// ListUnused returns the user's unconsumed codes.
	ListUnused(ctx context.Context, userID string) ([]*domain.BackupCode, error)
	// MarkUsed consumes a code. Returns false if the code was already used
	// (or missing), so a concurrent double-spend loses.
	MarkUsed(ctx context.Context, id string, at time.Time) (bool, error)
	// DeleteAllForUser removes every code for the user (disable/regenerate).
	DeleteAllForUser(ctx context.Context, userID string) error
}
