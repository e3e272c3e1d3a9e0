package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"asset-console/backend/internal/account/domain"
	"asset-console/backend/internal/rank"
	"asset-console/backend/internal/security"
	sessiondomain "asset-console/backend/internal/session/domain"
)

type memRepo struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
}

func newMemRepo() *memRepo { return &memRepo{accounts: make(map[string]*domain.Account)} }

func (m *memRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (m *memRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memRepo) Create(_ context.Context, a *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.accounts[a.ID] = &cp
	return nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts, id)
	return nil
}

func (m *memRepo) ListByRanks(_ context.Context, ranks []rank.Rank) ([]*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[rank.Rank]bool, len(ranks))
	for _, r := range ranks {
		want[r] = true
	}
	var out []*domain.Account
	for _, a := range m.accounts {
		if want[a.Rank] {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRepo) UpdatePasswordHash(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[id]; ok {
		a.PasswordHash = hash
	}
	return nil
}

func (m *memRepo) UpdateRank(_ context.Context, id string, newRank rank.Rank) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[id]; ok {
		a.Rank = newRank
	}
	return nil
}

func (m *memRepo) RecordFailedAttempt(context.Context, string, time.Time, int, time.Time) (*domain.LockoutState, error) {
	return nil, errors.New("not used")
}
func (m *memRepo) ResetLockout(context.Context, string) error               { return nil }
func (m *memRepo) SetTwoFactorSecret(context.Context, string, string) error { return nil }
func (m *memRepo) EnableTwoFactor(context.Context, string) error            { return nil }
func (m *memRepo) DisableTwoFactor(context.Context, string) error           { return nil }

type stubRevoker struct {
	mu      sync.Mutex
	revoked map[string]string
}

func (s *stubRevoker) InvalidateAllForUser(_ context.Context, userID, reason string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revoked == nil {
		s.revoked = make(map[string]string)
	}
	s.revoked[userID] = reason
	return 1, nil
}

func seed(repo *memRepo, id string, r rank.Rank) {
	repo.accounts[id] = &domain.Account{ID: id, Email: id + "@example.com", Rank: r}
}

func newService(repo *memRepo, revoker *stubRevoker) *Service {
	return NewService(repo, security.NewHasher(bcrypt.MinCost), revoker)
}

func TestService_ListFiltersByVisibility(t *testing.T) {
	repo := newMemRepo()
	seed(repo, "dev", rank.Developer)
	seed(repo, "adm", rank.Admin)
	seed(repo, "mod", rank.Moderator)
	seed(repo, "usr", rank.Gebruiker)
	svc := newService(repo, &stubRevoker{})

	got, err := svc.List(context.Background(), rank.Moderator)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, a := range got {
		if a.Rank == rank.Developer || a.Rank == rank.Admin || a.Rank == rank.Moderator {
			t.Fatalf("moderator can see %s account", a.Rank)
		}
	}
	if len(got) != 1 || got[0].ID != "usr" {
		t.Fatalf("got %d accounts", len(got))
	}
}

func TestService_GetHidesSeniorAccounts(t *testing.T) {
	repo := newMemRepo()
	seed(repo, "adm", rank.Admin)
	svc := newService(repo, &stubRevoker{})
	ctx := context.Background()

	if _, err := svc.Get(ctx, rank.Moderator, "adm"); !errors.Is(err, ErrNotVisible) {
		t.Fatalf("want ErrNotVisible, got %v", err)
	}
	if _, err := svc.Get(ctx, rank.Moderator, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestService_CreateChecksSeniority(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo, &stubRevoker{})
	ctx := context.Background()

	if _, err := svc.Create(ctx, rank.Admin, "peer@example.com", "long-enough-pw", rank.Admin); !errors.Is(err, ErrNotManageable) {
		t.Fatalf("admin created a peer: %v", err)
	}
	acct, err := svc.Create(ctx, rank.Admin, "New@Example.com", "long-enough-pw", rank.Moderator)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if acct.Email != "new@example.com" {
		t.Fatalf("email not normalized: %q", acct.Email)
	}
	if acct.PasswordHash == "long-enough-pw" || acct.PasswordHash == "" {
		t.Fatalf("password stored unhashed")
	}
}

func TestService_CreateRejectsDuplicateEmail(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo, &stubRevoker{})
	ctx := context.Background()

	if _, err := svc.Create(ctx, rank.Developer, "a@example.com", "long-enough-pw", rank.Werknemer); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, rank.Developer, "a@example.com", "long-enough-pw", rank.Werknemer); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("want ErrEmailTaken, got %v", err)
	}
}

func TestService_CreateRejectsShortPassword(t *testing.T) {
	svc := newService(newMemRepo(), &stubRevoker{})

	if _, err := svc.Create(context.Background(), rank.Developer, "a@example.com", "short", rank.Werknemer); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("want ErrWeakPassword, got %v", err)
	}
}

func TestService_DeleteRevokesSessions(t *testing.T) {
	repo := newMemRepo()
	seed(repo, "usr", rank.Gebruiker)
	revoker := &stubRevoker{}
	svc := newService(repo, revoker)
	ctx := context.Background()

	if err := svc.Delete(ctx, rank.Admin, "usr"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if revoker.revoked["usr"] != sessiondomain.ReasonForcedLogout {
		t.Fatalf("sessions not revoked: %v", revoker.revoked)
	}
	if a, _ := repo.GetByID(ctx, "usr"); a != nil {
		t.Fatalf("account still present")
	}
}

func TestService_UpdateRankChecksBothRanks(t *testing.T) {
	repo := newMemRepo()
	seed(repo, "mod", rank.Moderator)
	svc := newService(repo, &stubRevoker{})
	ctx := context.Background()

	// Moderator -> Admin would mint an admin peer for the acting admin.
	promoted := rank.Admin
	if _, err := svc.ApplyUpdate(ctx, rank.Admin, "mod", Update{Rank: &promoted}); !errors.Is(err, ErrNotManageable) {
		t.Fatalf("admin promoted a moderator to admin: %v", err)
	}

	demoted := rank.Werknemer
	acct, err := svc.ApplyUpdate(ctx, rank.Admin, "mod", Update{Rank: &demoted})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if acct.Rank != rank.Werknemer {
		t.Fatalf("rank = %s", acct.Rank)
	}
}

func TestService_UpdatePasswordRevokesSessions(t *testing.T) {
	repo := newMemRepo()
	seed(repo, "usr", rank.Gebruiker)
	revoker := &stubRevoker{}
	svc := newService(repo, revoker)
	ctx := context.Background()

	short := "short"
	if _, err := svc.ApplyUpdate(ctx, rank.Admin, "usr", Update{Password: &short}); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("want ErrWeakPassword, got %v", err)
	}
	if revoker.revoked["usr"] != "" {
		t.Fatalf("sessions revoked for rejected update")
	}

	pw := "long-enough-pw"
	acct, err := svc.ApplyUpdate(ctx, rank.Admin, "usr", Update{Password: &pw})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if acct.PasswordHash == "" || acct.PasswordHash == pw {
		t.Fatalf("password stored unhashed")
	}
	if revoker.revoked["usr"] != sessiondomain.ReasonForcedLogout {
		t.Fatalf("sessions not revoked: %v", revoker.revoked)
	}
}

func TestService_DeleteChecksSeniority(t *testing.T) {
	repo := newMemRepo()
	seed(repo, "adm", rank.Admin)
	svc := newService(repo, &stubRevoker{})

	if err := svc.Delete(context.Background(), rank.Admin, "adm"); !errors.Is(err, ErrNotManageable) {
		t.Fatalf("admin deleted a peer: %v", err)
	}
}
