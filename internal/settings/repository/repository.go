// Package repository defines persistence for the session settings row.
package repository

import (
	"context"

	"asset-console/backend/internal/settings/domain"
)

// Repository persists the singleton settings row.
type Repository interface {
	// Get returns the stored settings, or nil when nothing was saved yet.
	Get(ctx context.Context) (*domain.Settings, error)
	// Upsert writes the settings row, creating it on first save.
	Upsert(ctx context.Context, s *domain.Settings) error
}
