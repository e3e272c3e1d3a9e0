package loginhistory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"asset-console/backend/internal/loginhistory/domain"
	historyrepo "asset-console/backend/internal/loginhistory/repository"
)

type memHistoryRepo struct {
	mu      sync.Mutex
	entries []*domain.Entry
	failing bool
}

func (m *memHistoryRepo) Create(_ context.Context, e *domain.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errors.New("db down")
	}
	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *memHistoryRepo) List(_ context.Context, f historyrepo.ListFilter) ([]*domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Entry
	for _, e := range m.entries {
		if f.Email != "" && e.Email != f.Email {
			continue
		}
		if f.UserID != "" && e.UserID != f.UserID {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func TestRecorder_SuccessAndFailure(t *testing.T) {
	repo := &memHistoryRepo{}
	rec := NewRecorder(repo)
	rec.nowF = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	rec.RecordSuccess(ctx, "a@example.com", "user-1", "sess-1", "10.0.0.1", "console")
	rec.RecordFailure(ctx, "b@example.com", "", domain.ReasonInvalidCredentials, "10.0.0.2", "console")

	if len(repo.entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(repo.entries))
	}
	ok := repo.entries[0]
	if !ok.Success || ok.SessionToken != "sess-1" || ok.ID == "" || ok.CreatedAt.IsZero() {
		t.Fatalf("unexpected success entry %+v", ok)
	}
	bad := repo.entries[1]
	if bad.Success || bad.FailureReason != domain.ReasonInvalidCredentials || bad.UserID != "" {
		t.Fatalf("unexpected failure entry %+v", bad)
	}
}

// Audit consumers key on the recorded strings, so the literals are pinned.
func TestFailureReasonLiterals(t *testing.T) {
	if domain.ReasonInvalidCredentials != "invalid_credentials" {
		t.Fatalf("invalid credentials reason = %q", domain.ReasonInvalidCredentials)
	}
	if domain.ReasonAccountLocked != "account_locked" {
		t.Fatalf("account locked reason = %q", domain.ReasonAccountLocked)
	}
	if domain.ReasonTwoFactorFailed != "2fa_failed" {
		t.Fatalf("two-factor failure reason = %q", domain.ReasonTwoFactorFailed)
	}
}

func TestRecorder_BestEffortOnRepoFailure(t *testing.T) {
	rec := NewRecorder(&memHistoryRepo{failing: true})

	// Must not panic or surface the error.
	rec.RecordFailure(context.Background(), "a@example.com", "", domain.ReasonAccountLocked, "", "")
}

func TestRecorder_NilRepo(t *testing.T) {
	rec := NewRecorder(nil)
	rec.RecordSuccess(context.Background(), "a@example.com", "user-1", "s", "", "")
}
