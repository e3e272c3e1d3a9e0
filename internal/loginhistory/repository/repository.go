// Package repository defines persistence for login history.
package repository

import (
	"context"

	"asset-console/backend/internal/loginhistory/domain"
)

// ListFilter narrows a history listing. Zero values mean "no filter".
type ListFilter struct {
	Email  string
	UserID string
	Limit  int
	Offset int
}

// Repository persists login history entries.
type Repository interface {
	Create(ctx context.Context, e *domain.Entry) error
	// List returns entries newest first.
	List(ctx context.Context, f ListFilter) ([]*domain.Entry, error)
}
