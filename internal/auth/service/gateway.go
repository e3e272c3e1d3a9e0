// Package service implements the authentication flow: credential
// verification, progressive lockout, the two-factor step, and session
// issuance.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	accountdomain "asset-console/backend/internal/account/domain"
	"asset-console/backend/internal/lockout"
	"asset-console/backend/internal/loginhistory"
	historydomain "asset-console/backend/internal/loginhistory/domain"
	"asset-console/backend/internal/security"
	"asset-console/backend/internal/session"
	sessiondomain "asset-console/backend/internal/session/domain"
	"asset-console/backend/internal/telemetry"
	telemetrydomain "asset-console/backend/internal/telemetry/domain"
	"asset-console/backend/internal/twofactor"
)

// ErrInvalidCredentials is returned for unknown emails and wrong passwords
// alike, so responses do not reveal which emails have accounts.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrTwoFactorCodeRequired is returned by VerifyTwoFactor when no code was
// submitted for an account that requires one.
var ErrTwoFactorCodeRequired = errors.New("two-factor code required")

// FailedAttemptError reports a rejected password together with how close the
// account is to locking, so clients can warn the user before the threshold.
type FailedAttemptError struct {
	Attempts  int
	Threshold int
}

func (e *FailedAttemptError) Error() string {
	return fmt.Sprintf("invalid email or password (attempt %d of %d)", e.Attempts, e.Threshold)
}

// Unwrap lets callers match ErrInvalidCredentials without caring about the
// counters.
func (e *FailedAttemptError) Unwrap() error { return ErrInvalidCredentials }

// LockedError reports that the account is locked and for how much longer.
type LockedError struct {
	Remaining time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked, retry in %s", e.Remaining.Round(time.Second))
}

// RetrySeconds returns the remaining lock time rounded up to whole seconds.
func (e *LockedError) RetrySeconds() int {
	return lockout.Decision{Locked: true, Remaining: e.Remaining}.RemainingSeconds()
}

// dummyHash is compared against when the email matches no account, so both
// outcomes cost one bcrypt verification.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// AccountRepo is the slice of the account repository the gateway needs.
type AccountRepo interface {
	GetByEmail(ctx context.Context, email string) (*accountdomain.Account, error)
	RecordFailedAttempt(ctx context.Context, id string, at time.Time, threshold int, lockUntil time.Time) (*accountdomain.LockoutState, error)
	ResetLockout(ctx context.Context, id string) error
}

// CodeVerifier checks a two-factor code at login time.
type CodeVerifier interface {
	Verify(ctx context.Context, userID, code string, isBackupCode bool) error
}

// SessionWriter creates and invalidates sessions.
type SessionWriter interface {
	Create(ctx context.Context, userID, credentialToken string, meta session.RequestMeta) (*sessiondomain.Session, error)
	Invalidate(ctx context.Context, sessionToken, reason string) error
}

// Credentials is the submitted email and password.
type Credentials struct {
	Email    string
	Password string
}

// LoginResult is the outcome of a successful (or two-factor-pending) login.
type LoginResult struct {
	// TwoFactorRequired means the password was accepted but no session was
	// created; the client must call VerifyTwoFactor with a code. Account
	// identifies whose login is pending; no token fields are set.
	TwoFactorRequired bool

	CredentialToken string
	SessionToken    string
	ExpiresAt       time.Time
	Account         *accountdomain.Account
}

// Gateway runs the login state machine.
type Gateway struct {
	accounts  AccountRepo
	hasher    *security.Hasher
	policy    lockout.Policy
	twoFactor CodeVerifier
	sessions  SessionWriter
	tokens    *security.TokenProvider
	history   loginhistory.Recorder
	events    telemetry.EventEmitter // may be nil
	nowF      func() time.Time
}

// NewGateway returns a Gateway. events may be nil.
func NewGateway(
	accounts AccountRepo,
	hasher *security.Hasher,
	policy lockout.Policy,
	twoFactor CodeVerifier,
	sessions SessionWriter,
	tokens *security.TokenProvider,
	history loginhistory.Recorder,
	events telemetry.EventEmitter,
) *Gateway {
	return &Gateway{
		accounts:  accounts,
		hasher:    hasher,
		policy:    policy,
		twoFactor: twoFactor,
		sessions:  sessions,
		tokens:    tokens,
		history:   history,
		events:    events,
		nowF:      func() time.Time { return time.Now().UTC() },
	}
}

// Login verifies the credentials. Accounts with two-factor enabled get a
// pending result instead of a session; the client completes the login via
// VerifyTwoFactor. Lockout is checked before the password so a locked account
// rejects even the correct password.
func (g *Gateway) Login(ctx context.Context, creds Credentials, meta session.RequestMeta) (*LoginResult, error) {
	acct, err := g.authenticate(ctx, creds, meta)
	if err != nil {
		return nil, err
	}
	if acct.TwoFactorEnabled {
		return &LoginResult{TwoFactorRequired: true, Account: acct}, nil
	}
	return g.establish(ctx, acct, creds.Email, meta)
}

// VerifyTwoFactor completes a two-factor login. The password is re-verified
// so the code alone can never establish a session, and failed codes feed the
// same lockout counters as failed passwords.
func (g *Gateway) VerifyTwoFactor(ctx context.Context, creds Credentials, code string, isBackupCode bool, meta session.RequestMeta) (*LoginResult, error) {
	acct, err := g.authenticate(ctx, creds, meta)
	if err != nil {
		return nil, err
	}
	if !acct.TwoFactorEnabled {
		return nil, twofactor.ErrNotEnabled
	}
	if strings.TrimSpace(code) == "" {
		return nil, ErrTwoFactorCodeRequired
	}
	if err := g.twoFactor.Verify(ctx, acct.ID, code, isBackupCode); err != nil {
		if errors.Is(err, twofactor.ErrInvalidCode) {
			g.emit(telemetrydomain.EventTwoFactorFailure, acct, meta, "")
			return nil, g.registerFailure(ctx, acct, creds.Email, historydomain.ReasonTwoFactorFailed, meta)
		}
		return nil, err
	}
	return g.establish(ctx, acct, creds.Email, meta)
}

// Logout ends the session with reason user_logout.
func (g *Gateway) Logout(ctx context.Context, sessionToken string) error {
	return g.sessions.Invalidate(ctx, sessionToken, sessiondomain.ReasonUserLogout)
}

// authenticate resolves the email and verifies lock state and password.
func (g *Gateway) authenticate(ctx context.Context, creds Credentials, meta session.RequestMeta) (*accountdomain.Account, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	acct, err := g.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		_ = g.hasher.Compare(dummyHash, []byte(creds.Password))
		g.history.RecordFailure(ctx, email, "", historydomain.ReasonInvalidCredentials, meta.IPAddress, meta.UserAgent)
		g.emit(telemetrydomain.EventLoginFailure, nil, meta, email)
		return nil, ErrInvalidCredentials
	}

	if d := g.policy.Evaluate(acct.Lockout, g.nowF()); d.Locked {
		g.history.RecordFailure(ctx, email, acct.ID, historydomain.ReasonAccountLocked, meta.IPAddress, meta.UserAgent)
		return nil, &LockedError{Remaining: d.Remaining}
	}

	if err := g.hasher.Compare(acct.PasswordHash, []byte(creds.Password)); err != nil {
		g.emit(telemetrydomain.EventLoginFailure, acct, meta, "")
		return nil, g.registerFailure(ctx, acct, email, historydomain.ReasonInvalidCredentials, meta)
	}
	return acct, nil
}

// registerFailure bumps the lockout counters and reports either the lock or
// plain invalid credentials. The counter bump and conditional lock happen in
// one repository statement, so concurrent failures cannot overshoot the
// threshold.
func (g *Gateway) registerFailure(ctx context.Context, acct *accountdomain.Account, email, reason string, meta session.RequestMeta) error {
	now := g.nowF()
	state, err := g.accounts.RecordFailedAttempt(ctx, acct.ID, now, g.policy.Threshold, g.policy.LockDeadline(now))
	if err != nil {
		return err
	}
	g.history.RecordFailure(ctx, email, acct.ID, reason, meta.IPAddress, meta.UserAgent)
	if d := g.policy.Evaluate(*state, now); d.Locked {
		g.emit(telemetrydomain.EventAccountLocked, acct, meta, "")
		return &LockedError{Remaining: d.Remaining}
	}
	if reason == historydomain.ReasonTwoFactorFailed {
		return twofactor.ErrInvalidCode
	}
	return &FailedAttemptError{Attempts: state.FailedCount, Threshold: g.policy.Threshold}
}

// establish clears any residual failure state, issues the credential token,
// and registers the session.
func (g *Gateway) establish(ctx context.Context, acct *accountdomain.Account, email string, meta session.RequestMeta) (*LoginResult, error) {
	if acct.Lockout.FailedCount > 0 || acct.Lockout.LockedUntil != nil || acct.Lockout.LastFailedAttempt != nil {
		if err := g.accounts.ResetLockout(ctx, acct.ID); err != nil {
			return nil, err
		}
	}
	token, _, _, err := g.tokens.Issue(acct.ID, string(acct.Rank))
	if err != nil {
		return nil, err
	}
	sess, err := g.sessions.Create(ctx, acct.ID, token, meta)
	if err != nil {
		return nil, err
	}
	g.history.RecordSuccess(ctx, email, acct.ID, sess.SessionToken, meta.IPAddress, meta.UserAgent)
	g.emit(telemetrydomain.EventLoginSuccess, acct, meta, "")
	return &LoginResult{
		CredentialToken: token,
		SessionToken:    sess.SessionToken,
		ExpiresAt:       sess.ExpiresAt,
		Account:         acct,
	}, nil
}

func (g *Gateway) emit(eventType string, acct *accountdomain.Account, meta session.RequestMeta, email string) {
	event := &telemetrydomain.SecurityEvent{
		ID:        uuid.New().String(),
		EventType: eventType,
		Email:     email,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		CreatedAt: g.nowF(),
	}
	if acct != nil {
		event.UserID = acct.ID
		event.Email = acct.Email
	}
	telemetry.EmitAsync(g.events, event)
}
