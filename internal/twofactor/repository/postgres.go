package repository

import (
	"context"
	"database/sql"
	"time"

	"asset-console/backend/internal/twofactor/domain"
)

// PostgresRepository persists backup codes in the backup_codes table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a backup-code repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateBatch inserts codes inside a transaction so a partial batch is never visible.
func (r *PostgresRepository) CreateBatch(ctx context.Context, codes []*domain.BackupCode) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, c := range codes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO backup_codes (id, user_id, code, used, used_at, created_at)
			VALUES ($1, $2, $3, FALSE, NULL, $4)`,
			c.ID, c.UserID, c.Code, c.CreatedAt)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListUnused returns the user's unconsumed codes, oldest first.
func (r *PostgresRepository) ListUnused(ctx context.Context, userID string) ([]*domain.BackupCode, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, code, used, used_at, created_at
		FROM backup_codes WHERE user_id = $1 AND NOT used ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.BackupCode
	for rows.Next() {
		var c domain.BackupCode
		var usedAt sql.NullTime
		if err := rows.Scan(&c.ID, &c.UserID, &c.Code, &c.Used, &usedAt, &c.CreatedAt); err != nil {
			return nil, err
		}
		if usedAt.Valid {
			t := usedAt.Time
			c.UsedAt = &t
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// MarkUsed consumes the code. The NOT used guard makes concurrent consumption
// of the same code a single-winner race.
func (r *PostgresRepository) MarkUsed(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE backup_codes SET used = TRUE, used_at = $2 WHERE id = $1 AND NOT used`, id, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteAllForUser removes every code for the user.
func (r *PostgresRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM backup_codes WHERE user_id = $1`, userID)
	return err
}
