package repository

import (
	"context"
	"database/sql"
	"strconv"

	"asset-console/backend/internal/loginhistory/domain"
)

// PostgresRepository implements Repository on PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, e *domain.Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO login_history (id, email, user_id, success, failure_reason, session_token, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.Email, nullString(e.UserID), e.Success, nullString(e.FailureReason),
		nullString(e.SessionToken), nullString(e.IPAddress), nullString(e.UserAgent), e.CreatedAt,
	)
	return err
}

func (r *PostgresRepository) List(ctx context.Context, f ListFilter) ([]*domain.Entry, error) {
	query := `
		SELECT id, email, user_id, success, failure_reason, session_token, ip_address, user_agent, created_at
		FROM login_history`
	var args []any
	var where []string
	if f.Email != "" {
		args = append(args, f.Email)
		where = append(where, "email = $"+strconv.Itoa(len(args)))
	}
	if f.UserID != "" {
		args = append(args, f.UserID)
		where = append(where, "user_id = $"+strconv.Itoa(len(args)))
	}
	for i, cond := range where {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += " OFFSET $" + strconv.Itoa(len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Entry
	for rows.Next() {
		var e domain.Entry
		var userID, reason, sessionToken, ip, ua sql.NullString
		if err := rows.Scan(&e.ID, &e.Email, &userID, &e.Success, &reason, &sessionToken, &ip, &ua, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.UserID = userID.String
		e.FailureReason = reason.String
		e.SessionToken = sessionToken.String
		e.IPAddress = ip.String
		e.UserAgent = ua.String
		out = append(out, &e)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
