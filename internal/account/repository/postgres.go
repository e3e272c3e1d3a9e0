package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"asset-console/backend/internal/account/domain"
	"asset-console/backend/internal/rank"
)

const accountColumns = `id, email, password_hash, rank, two_factor_secret, two_factor_enabled,
	failed_count, total_attempts, last_failed_attempt, locked_until, created_at, updated_at`

// PostgresRepository persists accounts in the accounts table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an account repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the account for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// GetByEmail returns the account for email (case-insensitive), or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, strings.ToLower(email))
	return scanAccount(row)
}

// Create persists the account. The account must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, strings.ToLower(a.Email), a.PasswordHash, string(a.Rank),
		nullString(a.TwoFactorSecret), a.TwoFactorEnabled,
		a.Lockout.FailedCount, a.Lockout.TotalAttempts,
		nullTime(a.Lockout.LastFailedAttempt), nullTime(a.Lockout.LockedUntil),
		a.CreatedAt, a.UpdatedAt,
	)
	return err
}

// Delete removes the account; sessions and backup codes cascade.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	return err
}

// ListByRanks returns accounts whose rank is in ranks, newest first.
// An empty rank set returns no rows.
func (r *PostgresRepository) ListByRanks(ctx context.Context, ranks []rank.Rank) ([]*domain.Account, error) {
	if len(ranks) == 0 {
		return nil, nil
	}
	args := make([]any, len(ranks))
	placeholders := make([]string, len(ranks))
	for i, rk := range ranks {
		args[i] = string(rk)
		placeholders[i] = "$" + strconv.Itoa(i+1)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE rank IN (`+strings.Join(placeholders, ", ")+`) ORDER BY created_at DESC`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdatePasswordHash replaces the stored password hash.
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	return err
}

// UpdateRank changes the account's rank.
func (r *PostgresRepository) UpdateRank(ctx context.Context, id string, newRank rank.Rank) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET rank = $2, updated_at = NOW() WHERE id = $1`, id, string(newRank))
	return err
}

// RecordFailedAttempt bumps counters in one statement so concurrent failed
// logins for the same account are linearized by the row lock. When the
// incremented cycle count reaches threshold the lock is armed and the cycle
// count resets for the next cycle.
func (r *PostgresRepository) RecordFailedAttempt(ctx context.Context, id string, at time.Time, threshold int, lockUntil time.Time) (*domain.LockoutState, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE accounts SET
			total_attempts = total_attempts + 1,
			last_failed_attempt = $2,
			failed_count = CASE WHEN failed_count + 1 >= $3 THEN 0 ELSE failed_count + 1 END,
			locked_until = CASE WHEN failed_count + 1 >= $3 THEN $4 ELSE locked_until END,
			updated_at = $2
		WHERE id = $1
		RETURNING failed_count, total_attempts, last_failed_attempt, locked_until`,
		id, at, threshold, lockUntil,
	)
	var st domain.LockoutState
	var lastFailed, locked sql.NullTime
	if err := row.Scan(&st.FailedCount, &st.TotalAttempts, &lastFailed, &locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if lastFailed.Valid {
		t := lastFailed.Time
		st.LastFailedAttempt = &t
	}
	if locked.Valid {
		t := locked.Time
		st.LockedUntil = &t
	}
	return &st, nil
}

// ResetLockout clears the cycle counters after a successful login.
// total_attempts is preserved as a lifetime counter.
func (r *PostgresRepository) ResetLockout(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET failed_count = 0, last_failed_attempt = NULL, locked_until = NULL, updated_at = NOW()
		WHERE id = $1`, id)
	return err
}

// SetTwoFactorSecret stores an unconfirmed secret; two_factor_enabled stays false.
func (r *PostgresRepository) SetTwoFactorSecret(ctx context.Context, id, secret string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET two_factor_secret = $2, two_factor_enabled = FALSE, updated_at = NOW()
		WHERE id = $1`, id, secret)
	return err
}

// EnableTwoFactor confirms the stored secret.
func (r *PostgresRepository) EnableTwoFactor(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET two_factor_enabled = TRUE, updated_at = NOW() WHERE id = $1`, id)
	return err
}

// DisableTwoFactor clears the secret and the flag.
func (r *PostgresRepository) DisableTwoFactor(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET two_factor_secret = NULL, two_factor_enabled = FALSE, updated_at = NOW()
		WHERE id = $1`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var a domain.Account
	var rankStr string
	var secret sql.NullString
	var lastFailed, locked sql.NullTime
	err := row.Scan(
		&a.ID, &a.Email, &a.PasswordHash, &rankStr, &secret, &a.TwoFactorEnabled,
		&a.Lockout.FailedCount, &a.Lockout.TotalAttempts, &lastFailed, &locked,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	a.Rank = rank.Rank(rankStr)
	if secret.Valid {
		a.TwoFactorSecret = secret.String
	}
	if lastFailed.Valid {
		t := lastFailed.Time
		a.Lockout.LastFailedAttempt = &t
	}
	if locked.Valid {
		t := locked.Time
		a.Lockout.LockedUntil = &t
	}
	return &a, nil
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
