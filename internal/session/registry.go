// Package session implements the multi-device session registry.
package session

import (
	"context"
	"errors"
	"log"
	"time"

	"asset-console/backend/internal/broadcast"
	"asset-console/backend/internal/security"
	"asset-console/backend/internal/session/domain"
	"asset-console/backend/internal/session/repository"
)

// Sentinel errors for the session registry.
var (
	ErrUnauthenticated = errors.New("missing, expired, or revoked session")
	ErrSessionNotFound = errors.New("session not found")
)

// RequestMeta carries per-request client details recorded on sessions and history.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// Limits are the values governing new sessions, normally served live from the
// settings store so configuration changes apply to subsequently created
// sessions without a restart.
type Limits struct {
	TimeoutDays       int
	MaxActiveSessions int
}

// LimitSource yields the current session limits.
type LimitSource interface {
	SessionLimits(ctx context.Context) Limits
}

// StaticLimits is a LimitSource with fixed values, used in tests and as a
// fallback when no settings store is wired.
type StaticLimits Limits

func (s StaticLimits) SessionLimits(context.Context) Limits { return Limits(s) }

// Notifier broadcasts a forced logout to other live clients of the account.
// Implementations are best-effort; the session row is already deactivated
// before the notifier runs.
type Notifier interface {
	ForceLogout(ctx context.Context, userID, sessionToken, reason string)
}

// Registry creates, validates, and invalidates sessions.
type Registry struct {
	repo     repository.Repository
	tokens   *security.TokenProvider
	limits   LimitSource
	notifier Notifier // may be nil
	nowF     func() time.Time
}

// NewRegistry returns a Registry. notifier may be nil.
func NewRegistry(repo repository.Repository, tokens *security.TokenProvider, limits LimitSource, notifier Notifier) *Registry {
	return &Registry{
		repo:     repo,
		tokens:   tokens,
		limits:   limits,
		notifier: notifier,
		nowF:     func() time.Time { return time.Now().UTC() },
	}
}

// Create issues a new session bound to credentialToken. When the user is at
// the active-session cap, the oldest active session is evicted with reason
// session_limit (policy choice: eviction over rejection, so a forgotten
// device can never lock a user out of their own account).
func (r *Registry) Create(ctx context.Context, userID, credentialToken string, meta RequestMeta) (*domain.Session, error) {
	limits := r.limits.SessionLimits(ctx)
	for {
		n, err := r.repo.CountActiveByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		if n < limits.MaxActiveSessions {
			break
		}
		oldest, err := r.repo.OldestActiveByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		if oldest == nil {
			break
		}
		if _, err := r.repo.Deactivate(ctx, oldest.SessionToken, domain.ReasonSessionLimit, r.nowF()); err != nil {
			return nil, err
		}
		r.notify(ctx, userID, oldest.SessionToken, domain.ReasonSessionLimit)
	}

	token, err := security.GenerateOpaqueToken(32)
	if err != nil {
		return nil, err
	}
	now := r.nowF()
	sess := &domain.Session{
		SessionToken:        token,
		CredentialTokenHash: security.HashCredentialToken(credentialToken),
		UserID:              userID,
		IPAddress:           meta.IPAddress,
		UserAgent:           meta.UserAgent,
		CreatedAt:           now,
		LastActivity:        now,
		ExpiresAt:           now.Add(time.Duration(limits.TimeoutDays) * 24 * time.Hour),
		IsActive:            true,
	}
	if err := r.repo.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Validate authenticates a request by its credential token. The token must be
// cryptographically valid AND an active, non-expired session must hold its
// hash; the stored session state wins over token validity, which is what lets
// a forced logout take effect while the token itself has not expired.
func (r *Registry) Validate(ctx context.Context, credentialToken string) (*domain.Session, error) {
	userID, _, err := r.tokens.Validate(credentialToken)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	sess, err := r.repo.GetByCredentialHash(ctx, security.HashCredentialToken(credentialToken))
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.UserID != userID || !sess.LiveAt(r.nowF()) {
		return nil, ErrUnauthenticated
	}
	return sess, nil
}

// Get returns the session by token, or ErrSessionNotFound.
func (r *Registry) Get(ctx context.Context, sessionToken string) (*domain.Session, error) {
	sess, err := r.repo.GetByToken(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Touch records activity. It never extends expires_at; sliding activity is
// observational only.
func (r *Registry) Touch(ctx context.Context, sessionToken string) error {
	return r.repo.UpdateLastActivity(ctx, sessionToken, r.nowF())
}

// Invalidate deactivates one session and notifies other clients.
func (r *Registry) Invalidate(ctx context.Context, sessionToken, reason string) error {
	sess, err := r.repo.GetByToken(ctx, sessionToken)
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrSessionNotFound
	}
	ok, err := r.repo.Deactivate(ctx, sessionToken, reason, r.nowF())
	if err != nil {
		return err
	}
	if ok {
		r.notify(ctx, sess.UserID, sessionToken, reason)
	}
	return nil
}

// InvalidateAllForUser deactivates every active session of the user and
// notifies the user's clients. Returns the number of sessions deactivated.
func (r *Registry) InvalidateAllForUser(ctx context.Context, userID, reason string) (int, error) {
	n, err := r.repo.DeactivateAllByUser(ctx, userID, reason, r.nowF())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.notify(ctx, userID, broadcast.AllSessions, reason)
	}
	return n, nil
}

// ListVisible returns sessions of the given users, newest activity first.
// Callers pass the user set already filtered by rank visibility.
func (r *Registry) ListVisible(ctx context.Context, userIDs []string, f repository.ListFilter) ([]*domain.Session, error) {
	return r.repo.ListByUsers(ctx, userIDs, f)
}

// ExpireStale sweeps expired sessions. Validation checks expiry on every
// request, so the sweep only keeps the table tidy.
func (r *Registry) ExpireStale(ctx context.Context) (int, error) {
	return r.repo.DeactivateExpired(ctx, r.nowF())
}

// RunSweeper runs ExpireStale on the given interval until ctx is cancelled.
// Intended to be started as a goroutine from the server main.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := r.ExpireStale(ctx)
			if err != nil {
				log.Printf("session sweeper: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("session sweeper: expired %d sessions", n)
			}
		}
	}
}

func (r *Registry) notify(ctx context.Context, userID, sessionToken, reason string) {
	if r.notifier == nil {
		return
	}
	r.notifier.ForceLogout(ctx, userID, sessionToken, reason)
}
