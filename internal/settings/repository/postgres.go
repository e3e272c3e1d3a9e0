package repository

import (
	"context"
	"database/sql"
	"errors"

	"asset-console/backend/internal/settings/domain"
)

// PostgresRepository implements Repository on PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context) (*domain.Settings, error) {
	var s domain.Settings
	err := r.db.QueryRowContext(ctx, `
		SELECT session_timeout_days, max_active_sessions, require_reauthentication_hours,
		       cleanup_interval_hours, enforce_single_device_login, notify_on_new_login, updated_at
		FROM session_settings WHERE id = 1`,
	).Scan(
		&s.SessionTimeoutDays, &s.MaxActiveSessions, &s.RequireReauthenticationHours,
		&s.CleanupIntervalHours, &s.EnforceSingleDeviceLogin, &s.NotifyOnNewLogin, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, s *domain.Settings) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session_settings (id, session_timeout_days, max_active_sessions, require_reauthentication_hours,
		                              cleanup_interval_hours, enforce_single_device_login, notify_on_new_login, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			session_timeout_days = EXCLUDED.session_timeout_days,
			max_active_sessions = EXCLUDED.max_active_sessions,
			require_reauthentication_hours = EXCLUDED.require_reauthentication_hours,
			cleanup_interval_hours = EXCLUDED.cleanup_interval_hours,
			enforce_single_device_login = EXCLUDED.enforce_single_device_login,
			notify_on_new_login = EXCLUDED.notify_on_new_login,
			updated_at = EXCLUDED.updated_at`,
		s.SessionTimeoutDays, s.MaxActiveSessions, s.RequireReauthenticationHours,
		s.CleanupIntervalHours, s.EnforceSingleDeviceLogin, s.NotifyOnNewLogin, s.UpdatedAt,
	)
	return err
}
