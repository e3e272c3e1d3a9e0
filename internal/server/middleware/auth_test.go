package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	accountdomain "asset-console/backend/internal/account/domain"
	"asset-console/backend/internal/rank"
	"asset-console/backend/internal/security"
	"asset-console/backend/internal/session"
	sessiondomain "asset-console/backend/internal/session/domain"
	"asset-console/backend/internal/session/repository"
)

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]*sessiondomain.Session
}

func (m *memSessions) GetByToken(_ context.Context, token string) (*sessiondomain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[token]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (m *memSessions) GetByCredentialHash(_ context.Context, hash string) (*sessiondomain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.CredentialTokenHash == hash {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memSessions) Create(_ context.Context, s *sessiondomain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.SessionToken] = &cp
	return nil
}

func (m *memSessions) CountActiveByUser(context.Context, string) (int, error) { return 0, nil }
func (m *memSessions) OldestActiveByUser(context.Context, string) (*sessiondomain.Session, error) {
	return nil, nil
}

func (m *memSessions) UpdateLastActivity(_ context.Context, token string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[token]; ok {
		s.LastActivity = at
	}
	return nil
}

func (m *memSessions) Deactivate(_ context.Context, token, reason string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok || !s.IsActive {
		return false, nil
	}
	s.IsActive = false
	s.LogoutReason = reason
	return true, nil
}

func (m *memSessions) DeactivateAllByUser(context.Context, string, string, time.Time) (int, error) {
	return 0, nil
}

func (m *memSessions) ListByUsers(context.Context, []string, repository.ListFilter) ([]*sessiondomain.Session, error) {
	return nil, nil
}

func (m *memSessions) DeactivateExpired(context.Context, time.Time) (int, error) { return 0, nil }

type memAccounts struct {
	accounts map[string]*accountdomain.Account
}

func (m *memAccounts) GetByID(_ context.Context, id string) (*accountdomain.Account, error) {
	if a, ok := m.accounts[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

type fixture struct {
	auth     *Authenticator
	repo     *memSessions
	token    string
	sessTok  string
	registry *session.Registry
}

func newFixture(t *testing.T, r rank.Rank) *fixture {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("test token provider: %v", err)
	}
	repo := &memSessions{sessions: make(map[string]*sessiondomain.Session)}
	registry := session.NewRegistry(repo, tokens, session.StaticLimits{TimeoutDays: 30, MaxActiveSessions: 5}, nil)
	accounts := &memAccounts{accounts: map[string]*accountdomain.Account{
		"user-1": {ID: "user-1", Email: "u@example.com", Rank: r},
	}}

	token, _, _, err := tokens.Issue("user-1", string(r))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	sess, err := registry.Create(context.Background(), "user-1", token, session.RequestMeta{})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return &fixture{
		auth:     NewAuthenticator(registry, accounts),
		repo:     repo,
		token:    token,
		sessTok:  sess.SessionToken,
		registry: registry,
	}
}

func identityProbe(out **Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*out = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticator_MissingToken(t *testing.T) {
	f := newFixture(t, rank.Admin)
	var got *Identity

	rec := httptest.NewRecorder()
	f.auth.Handler(identityProbe(&got)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized || got != nil {
		t.Fatalf("status = %d, identity = %v", rec.Code, got)
	}
}

func TestAuthenticator_ValidToken(t *testing.T) {
	f := newFixture(t, rank.Admin)
	var got *Identity

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+f.token)
	rec := httptest.NewRecorder()
	f.auth.Handler(identityProbe(&got)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got == nil || got.Account.ID != "user-1" || got.ActualRank != rank.Admin || got.EffectiveRank != rank.Admin || got.Simulated {
		t.Fatalf("identity = %+v", got)
	}
}

func TestAuthenticator_RevokedSession(t *testing.T) {
	f := newFixture(t, rank.Admin)
	if err := f.registry.Invalidate(context.Background(), f.sessTok, sessiondomain.ReasonForcedLogout); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+f.token)
	rec := httptest.NewRecorder()
	var got *Identity
	f.auth.Handler(identityProbe(&got)).ServeHTTP(rec, req)

	// The token itself is still cryptographically valid; the dead session wins.
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuthenticator_DeveloperSimulation(t *testing.T) {
	f := newFixture(t, rank.Developer)
	var got *Identity

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+f.token)
	req.Header.Set(rank.SimulationHeader, "moderator")
	rec := httptest.NewRecorder()
	f.auth.Handler(identityProbe(&got)).ServeHTTP(rec, req)

	if got == nil || got.EffectiveRank != rank.Moderator || !got.Simulated || got.ActualRank != rank.Developer {
		t.Fatalf("identity = %+v", got)
	}
}

func TestAuthenticator_SimulationIgnoredForNonDeveloper(t *testing.T) {
	f := newFixture(t, rank.Admin)
	var got *Identity

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+f.token)
	req.Header.Set(rank.SimulationHeader, "gebruiker")
	rec := httptest.NewRecorder()
	f.auth.Handler(identityProbe(&got)).ServeHTTP(rec, req)

	if got == nil || got.EffectiveRank != rank.Admin || got.Simulated {
		t.Fatalf("identity = %+v", got)
	}
}

func TestRequirePermission(t *testing.T) {
	f := newFixture(t, rank.Werknemer)
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	protected := f.auth.Handler(RequirePermission(rank.PermForceLogoutUsers)(next))
	req := httptest.NewRequest(http.MethodDelete, "/sessions/x", nil)
	req.Header.Set("Authorization", "Bearer "+f.token)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}

	allowed := f.auth.Handler(RequirePermission(rank.PermViewUsers)(next))
	req = httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Authorization", "Bearer "+f.token)
	rec = httptest.NewRecorder()
	allowed.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRequirePermission_IgnoresSimulatedRank(t *testing.T) {
	f := newFixture(t, rank.Developer)
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	// Simulation scopes what a developer sees, never what they may do.
	protected := f.auth.Handler(RequirePermission(rank.PermDeleteUsers)(next))
	req := httptest.NewRequest(http.MethodDelete, "/users/x", nil)
	req.Header.Set("Authorization", "Bearer "+f.token)
	req.Header.Set(rank.SimulationHeader, "gebruiker")
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("simulating developer blocked from delete: %d", rec.Code)
	}
}
