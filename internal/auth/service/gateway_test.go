package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	accountdomain "asset-console/backend/internal/account/domain"
	"asset-console/backend/internal/lockout"
	"asset-console/backend/internal/loginhistory"
	"asset-console/backend/internal/rank"
	"asset-console/backend/internal/security"
	"asset-console/backend/internal/session"
	sessiondomain "asset-console/backend/internal/session/domain"
	"asset-console/backend/internal/twofactor"
)

type memAccounts struct {
	mu       sync.Mutex
	accounts map[string]*accountdomain.Account // by ID
	resets   int
}

func (m *memAccounts) GetByEmail(_ context.Context, email string) (*accountdomain.Account, error) {
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

func (m *memAccounts) RecordFailedAttempt(_ context.Context, id string, at time.Time, threshold int, lockUntil time.Time) (*accountdomain.LockoutState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, errors.New("no such account")
	}
	a.Lockout.TotalAttempts++
	t := at
	a.Lockout.LastFailedAttempt = &t
	if a.Lockout.FailedCount+1 >= threshold {
		a.Lockout.FailedCount = 0
		u := lockUntil
		a.Lockout.LockedUntil = &u
	} else {
		a.Lockout.FailedCount++
	}
	state := a.Lockout
	return &state, nil
}

func (m *memAccounts) ResetLockout(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return errors.New("no such account")
	}
	a.Lockout.FailedCount = 0
	a.Lockout.LastFailedAttempt = nil
	a.Lockout.LockedUntil = nil
	m.resets++
	return nil
}

type stubVerifier struct {
	acceptCode string
	calls      int
}

func (s *stubVerifier) Verify(_ context.Context, _ string, code string, _ bool) error {
	s.calls++
	if code == s.acceptCode {
		return nil
	}
	return twofactor.ErrInvalidCode
}

type memSessions struct {
	mu          sync.Mutex
	created     []*sessiondomain.Session
	invalidated map[string]string // token -> reason
}

func (m *memSessions) Create(_ context.Context, userID, credentialToken string, meta session.RequestMeta) (*sessiondomain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &sessiondomain.Session{
		SessionToken:        fmt.Sprintf("sess-%d", len(m.created)+1),
		CredentialTokenHash: security.HashCredentialToken(credentialToken),
		UserID:              userID,
		IPAddress:           meta.IPAddress,
		UserAgent:           meta.UserAgent,
		ExpiresAt:           time.Now().UTC().Add(30 * 24 * time.Hour),
		IsActive:            true,
	}
	m.created = append(m.created, s)
	return s, nil
}

func (m *memSessions) Invalidate(_ context.Context, token, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.invalidated == nil {
		m.invalidated = make(map[string]string)
	}
	m.invalidated[token] = reason
	return nil
}

type gatewayFixture struct {
	gateway  *Gateway
	accounts *memAccounts
	sessions *memSessions
	verifier *stubVerifier
	now      time.Time
}

func newGatewayFixture(t *testing.T, twoFactorEnabled bool) *gatewayFixture {
	t.Helper()
	hasher := security.NewHasher(bcrypt.MinCost)
	hash, err := hasher.Hash([]byte("s3cret"))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	accounts := &memAccounts{accounts: map[string]*accountdomain.Account{
		"user-1": {
			ID:               "user-1",
			Email:            "admin@example.com",
			PasswordHash:     hash,
			Rank:             rank.Admin,
			TwoFactorEnabled: twoFactorEnabled,
		},
	}}
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("test token provider: %v", err)
	}
	sessions := &memSessions{}
	verifier := &stubVerifier{acceptCode: "123456"}
	f := &gatewayFixture{
		accounts: accounts,
		sessions: sessions,
		verifier: verifier,
		now:      time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC),
	}
	f.gateway = NewGateway(accounts, hasher, lockout.NewPolicy(5, 15*time.Minute), verifier, sessions, tokens, loginhistory.NopRecorder{}, nil)
	f.gateway.nowF = func() time.Time { return f.now }
	return f
}

func TestGateway_LoginSuccess(t *testing.T) {
	f := newGatewayFixture(t, false)
	ctx := context.Background()

	res, err := f.gateway.Login(ctx, Credentials{Email: "Admin@Example.com", Password: "s3cret"}, session.RequestMeta{IPAddress: "10.0.0.1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.TwoFactorRequired {
		t.Fatalf("unexpected two-factor challenge")
	}
	if res.CredentialToken == "" || res.SessionToken == "" {
		t.Fatalf("missing tokens in result %+v", res)
	}
	if len(f.sessions.created) != 1 || f.sessions.created[0].UserID != "user-1" {
		t.Fatalf("session not created")
	}
	if !res.ExpiresAt.Equal(f.sessions.created[0].ExpiresAt) {
		t.Fatalf("result expiry %v != session expiry %v", res.ExpiresAt, f.sessions.created[0].ExpiresAt)
	}
}

func TestGateway_LoginUnknownEmail(t *testing.T) {
	f := newGatewayFixture(t, false)

	_, err := f.gateway.Login(context.Background(), Credentials{Email: "nobody@example.com", Password: "s3cret"}, session.RequestMeta{})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials, got %v", err)
	}
}

func TestGateway_WrongPasswordReportsAttemptCounters(t *testing.T) {
	f := newGatewayFixture(t, false)
	ctx := context.Background()
	creds := Credentials{Email: "admin@example.com", Password: "wrong"}

	for want := 1; want <= 3; want++ {
		_, err := f.gateway.Login(ctx, creds, session.RequestMeta{})
		var failed *FailedAttemptError
		if !errors.As(err, &failed) {
			t.Fatalf("attempt %d: want FailedAttemptError, got %v", want, err)
		}
		if failed.Attempts != want || failed.Threshold != 5 {
			t.Fatalf("attempt %d: counters = %d/%d", want, failed.Attempts, failed.Threshold)
		}
	}

	// An unknown email must not expose counters it does not have.
	_, err := f.gateway.Login(ctx, Credentials{Email: "nobody@example.com", Password: "wrong"}, session.RequestMeta{})
	var failed *FailedAttemptError
	if errors.As(err, &failed) {
		t.Fatalf("unknown email carries counters: %v", err)
	}
}

func TestGateway_LockoutAfterRepeatedFailures(t *testing.T) {
	f := newGatewayFixture(t, false)
	ctx := context.Background()
	creds := Credentials{Email: "admin@example.com", Password: "wrong"}

	for i := 0; i < 4; i++ {
		_, err := f.gateway.Login(ctx, creds, session.RequestMeta{})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: want ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	// The fifth failure arms the lock.
	_, err := f.gateway.Login(ctx, creds, session.RequestMeta{})
	var locked *LockedError
	if !errors.As(err, &locked) {
		t.Fatalf("want LockedError on fifth failure, got %v", err)
	}
	if got := locked.RetrySeconds(); got != 15*60 {
		t.Fatalf("retry seconds = %d, want %d", got, 15*60)
	}

	// Even the correct password is rejected while locked.
	_, err = f.gateway.Login(ctx, Credentials{Email: "admin@example.com", Password: "s3cret"}, session.RequestMeta{})
	if !errors.As(err, &locked) {
		t.Fatalf("want LockedError with correct password, got %v", err)
	}

	// The lock expires lazily; no unlock write is needed.
	f.now = f.now.Add(16 * time.Minute)
	res, err := f.gateway.Login(ctx, Credentials{Email: "admin@example.com", Password: "s3cret"}, session.RequestMeta{})
	if err != nil {
		t.Fatalf("login after lock expiry: %v", err)
	}
	if res.SessionToken == "" {
		t.Fatalf("no session after lock expiry")
	}
	if f.accounts.resets != 1 {
		t.Fatalf("lockout resets = %d, want 1", f.accounts.resets)
	}
}

func TestGateway_CounterSurvivesUntilThreshold(t *testing.T) {
	f := newGatewayFixture(t, false)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = f.gateway.Login(ctx, Credentials{Email: "admin@example.com", Password: "wrong"}, session.RequestMeta{})
	}
	st := f.accounts.accounts["user-1"].Lockout
	if st.FailedCount != 3 || st.TotalAttempts != 3 || st.LockedUntil != nil {
		t.Fatalf("unexpected state %+v", st)
	}

	// A successful login clears the cycle counter but keeps the running total.
	if _, err := f.gateway.Login(ctx, Credentials{Email: "admin@example.com", Password: "s3cret"}, session.RequestMeta{}); err != nil {
		t.Fatalf("login: %v", err)
	}
	st = f.accounts.accounts["user-1"].Lockout
	if st.FailedCount != 0 || st.TotalAttempts != 3 {
		t.Fatalf("state after success %+v", st)
	}
}

func TestGateway_TwoFactorChallenge(t *testing.T) {
	f := newGatewayFixture(t, true)
	ctx := context.Background()
	creds := Credentials{Email: "admin@example.com", Password: "s3cret"}

	res, err := f.gateway.Login(ctx, creds, session.RequestMeta{})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !res.TwoFactorRequired {
		t.Fatalf("want two-factor challenge")
	}
	if res.SessionToken != "" || len(f.sessions.created) != 0 {
		t.Fatalf("session created before two-factor verification")
	}

	res, err = f.gateway.VerifyTwoFactor(ctx, creds, "123456", false, session.RequestMeta{})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.SessionToken == "" || len(f.sessions.created) != 1 {
		t.Fatalf("no session after verification")
	}
}

func TestGateway_TwoFactorFailuresFeedLockout(t *testing.T) {
	f := newGatewayFixture(t, true)
	ctx := context.Background()
	creds := Credentials{Email: "admin@example.com", Password: "s3cret"}

	for i := 0; i < 4; i++ {
		_, err := f.gateway.VerifyTwoFactor(ctx, creds, "000000", false, session.RequestMeta{})
		if !errors.Is(err, twofactor.ErrInvalidCode) {
			t.Fatalf("attempt %d: want ErrInvalidCode, got %v", i+1, err)
		}
	}
	_, err := f.gateway.VerifyTwoFactor(ctx, creds, "000000", false, session.RequestMeta{})
	var locked *LockedError
	if !errors.As(err, &locked) {
		t.Fatalf("want LockedError after repeated code failures, got %v", err)
	}
}

func TestGateway_TwoFactorRequiresPassword(t *testing.T) {
	f := newGatewayFixture(t, true)

	_, err := f.gateway.VerifyTwoFactor(context.Background(), Credentials{Email: "admin@example.com", Password: "wrong"}, "123456", false, session.RequestMeta{})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials, got %v", err)
	}
	if f.verifier.calls != 0 {
		t.Fatalf("code verified despite bad password")
	}
}

func TestGateway_VerifyTwoFactorEmptyCode(t *testing.T) {
	f := newGatewayFixture(t, true)

	_, err := f.gateway.VerifyTwoFactor(context.Background(), Credentials{Email: "admin@example.com", Password: "s3cret"}, "  ", false, session.RequestMeta{})
	if !errors.Is(err, ErrTwoFactorCodeRequired) {
		t.Fatalf("want ErrTwoFactorCodeRequired, got %v", err)
	}
}

func TestGateway_Logout(t *testing.T) {
	f := newGatewayFixture(t, false)
	ctx := context.Background()

	res, err := f.gateway.Login(ctx, Credentials{Email: "admin@example.com", Password: "s3cret"}, session.RequestMeta{})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := f.gateway.Logout(ctx, res.SessionToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if f.sessions.invalidated[res.SessionToken] != sessiondomain.ReasonUserLogout {
		t.Fatalf("invalidated = %v", f.sessions.invalidated)
	}
}
