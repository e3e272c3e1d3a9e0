// Package loginhistory records authentication attempts.
package loginhistory

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"asset-console/backend/internal/loginhistory/domain"
	historyrepo "asset-console/backend/internal/loginhistory/repository"
)

// Recorder writes login history entries. Recording is best-effort: failures
// are logged and never affect the login path.
type Recorder interface {
	RecordSuccess(ctx context.Context, email, userID, sessionToken, ip, userAgent string)
	RecordFailure(ctx context.Context, email, userID, reason, ip, userAgent string)
}

// DBRecorder implements Recorder using the history repository.
type DBRecorder struct {
	repo historyrepo.Repository
	nowF func() time.Time
}

// NewRecorder returns a Recorder persisting to repo.
func NewRecorder(repo historyrepo.Repository) *DBRecorder {
	return &DBRecorder{repo: repo, nowF: func() time.Time { return time.Now().UTC() }}
}

func (r *DBRecorder) RecordSuccess(ctx context.Context, email, userID, sessionToken, ip, userAgent string) {
	r.record(ctx, &domain.Entry{
		Email:        email,
		UserID:       userID,
		Success:      true,
		SessionToken: sessionToken,
		IPAddress:    ip,
		UserAgent:    userAgent,
	})
}

func (r *DBRecorder) RecordFailure(ctx context.Context, email, userID, reason, ip, userAgent string) {
	r.record(ctx, &domain.Entry{
		Email:         email,
		UserID:        userID,
		Success:       false,
		FailureReason: reason,
		IPAddress:     ip,
		UserAgent:     userAgent,
	})
}

func (r *DBRecorder) record(ctx context.Context, e *domain.Entry) {
	if r.repo == nil {
		return
	}
	e.ID = uuid.New().String()
	e.CreatedAt = r.nowF()
	if err := r.repo.Create(ctx, e); err != nil {
		log.Printf("login history: failed to record attempt for %s: %v", e.Email, err)
	}
}

// NopRecorder discards all entries. Used in tests where history is irrelevant.
type NopRecorder struct{}

func (NopRecorder) RecordSuccess(context.Context, string, string, string, string, string) {}
func (NopRecorder) RecordFailure(context.Context, string, string, string, string, string) {}
