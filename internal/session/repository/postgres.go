package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"asset-console/backend/internal/session/domain"
)

const sessionColumns = `session_token, credential_token_hash, user_id, ip_address, user_agent,
	created_at, last_activity, expires_at, is_active, logout_time, logout_reason`

// PostgresRepository persists sessions in the sessions table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByToken returns the session for sessionToken, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByToken(ctx context.Context, sessionToken string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE session_token = $1`, sessionToken)
	return scanSession(row)
}

// GetByCredentialHash returns the session holding the given credential token hash, or nil.
func (r *PostgresRepository) GetByCredentialHash(ctx context.Context, credentialTokenHash string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE credential_token_hash = $1`, credentialTokenHash)
	return scanSession(row)
}

// Create persists the session. The session must have SessionToken set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.SessionToken, s.CredentialTokenHash, s.UserID,
		nullString(s.IPAddress), nullString(s.UserAgent),
		s.CreatedAt, s.LastActivity, s.ExpiresAt, s.IsActive,
		nullTime(s.LogoutTime), nullString(s.LogoutReason),
	)
	return err
}

// CountActiveByUser returns the number of active, non-expired sessions for the user.
func (r *PostgresRepository) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sessions WHERE user_id = $1 AND is_active AND expires_at > NOW()`, userID).Scan(&n)
	return n, err
}

// OldestActiveByUser returns the active session with the oldest last activity, or nil.
func (r *PostgresRepository) OldestActiveByUser(ctx context.Context, userID string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = $1 AND is_active ORDER BY last_activity ASC LIMIT 1`, userID)
	return scanSession(row)
}

// UpdateLastActivity advances last_activity only; expires_at is never extended here.
func (r *PostgresRepository) UpdateLastActivity(ctx context.Context, sessionToken string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET last_activity = $2 WHERE session_token = $1`, sessionToken, at)
	return err
}

// Deactivate marks the session inactive. The is_active guard linearizes a
// validate racing a concurrent invalidate on the same row.
func (r *PostgresRepository) Deactivate(ctx context.Context, sessionToken, reason string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET is_active = FALSE, logout_time = $2, logout_reason = $3
		WHERE session_token = $1 AND is_active`, sessionToken, at, reason)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeactivateAllByUser marks every active session of the user inactive.
func (r *PostgresRepository) DeactivateAllByUser(ctx context.Context, userID, reason string, at time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET is_active = FALSE, logout_time = $2, logout_reason = $3
		WHERE user_id = $1 AND is_active`, userID, at, reason)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ListByUsers returns sessions for the given users, newest activity first.
// An empty user set returns no rows.
func (r *PostgresRepository) ListByUsers(ctx context.Context, userIDs []string, f ListFilter) ([]*domain.Session, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(userIDs)+2)
	placeholders := make([]string, len(userIDs))
	for i, id := range userIDs {
		args = append(args, id)
		placeholders[i] = "$" + strconv.Itoa(i+1)
	}
	q := `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id IN (` + strings.Join(placeholders, ", ") + `)`
	if f.UserID != "" {
		args = append(args, f.UserID)
		q += ` AND user_id = $` + strconv.Itoa(len(args))
	}
	if f.ActiveOnly {
		q += ` AND is_active AND expires_at > NOW()`
	}
	q += ` ORDER BY last_activity DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += ` OFFSET $` + strconv.Itoa(len(args))
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeactivateExpired sweeps sessions whose expiry has passed.
func (r *PostgresRepository) DeactivateExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET is_active = FALSE, logout_time = $1, logout_reason = $2
		WHERE is_active AND expires_at <= $1`, now, domain.ReasonExpired)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var s domain.Session
	var ip, ua, reason sql.NullString
	var logoutTime sql.NullTime
	err := row.Scan(
		&s.SessionToken, &s.CredentialTokenHash, &s.UserID, &ip, &ua,
		&s.CreatedAt, &s.LastActivity, &s.ExpiresAt, &s.IsActive,
		&logoutTime, &reason,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.IPAddress = ip.String
	s.UserAgent = ua.String
	s.LogoutReason = reason.String
	if logoutTime.Valid {
		t := logoutTime.Time
		s.LogoutTime = &t
	}
	return &s, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
