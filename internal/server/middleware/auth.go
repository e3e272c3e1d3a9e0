// Package middleware authenticates requests and enforces rank permissions.
package middleware

import (
	"context"
	"log"
	"net/http"

	accountdomain "asset-console/backend/internal/account/domain"
	"asset-console/backend/internal/rank"
	"asset-console/backend/internal/server/httpx"
	"asset-console/backend/internal/session"
	sessiondomain "asset-console/backend/internal/session/domain"
)

// Identity is the authenticated caller, attached to the request context.
type Identity struct {
	Account *accountdomain.Account
	Session *sessiondomain.Session

	// ActualRank is what the account holds; EffectiveRank is what this
	// request acts as, lowered when a developer simulates another rank.
	ActualRank    rank.Rank
	EffectiveRank rank.Rank
	Simulated     bool
}

type identityKey struct{}

// FromContext returns the caller identity, or nil on unauthenticated requests.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

// UserIDFromRequest returns the authenticated user ID, or "".
func UserIDFromRequest(r *http.Request) string {
	id := FromContext(r.Context())
	if id == nil {
		return ""
	}
	return id.Account.ID
}

// AccountGetter loads the account behind a validated session.
type AccountGetter interface {
	GetByID(ctx context.Context, id string) (*accountdomain.Account, error)
}

// Authenticator validates the bearer credential token against the session
// registry and resolves the caller's ranks.
type Authenticator struct {
	registry *session.Registry
	accounts AccountGetter
}

func NewAuthenticator(registry *session.Registry, accounts AccountGetter) *Authenticator {
	return &Authenticator{registry: registry, accounts: accounts}
}

// Handler rejects requests without a valid token and live session. Valid
// requests get an Identity on the context and their session activity bumped.
func (a *Authenticator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := httpx.BearerToken(r.Header.Get("Authorization"))
		if token == "" {
			httpx.WriteError(w, http.StatusUnauthorized, "missing_token")
			return
		}
		sess, err := a.registry.Validate(r.Context(), token)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_or_revoked_token")
			return
		}
		acct, err := a.accounts.GetByID(r.Context(), sess.UserID)
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "server_error")
			return
		}
		if acct == nil {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_or_revoked_token")
			return
		}

		actual := acct.Rank
		if !actual.Valid() {
			httpx.WriteError(w, http.StatusInternalServerError, "server_error")
			return
		}
		effective := rank.Effective(actual, r.Header.Get(rank.SimulationHeader))

		if err := a.registry.Touch(r.Context(), sess.SessionToken); err != nil {
			log.Printf("session touch failed: %v", err)
		}

		id := &Identity{
			Account:       acct,
			Session:       sess,
			ActualRank:    actual,
			EffectiveRank: effective,
			Simulated:     effective != actual,
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, id)))
	})
}

// RequirePermission gates a route on the caller's actual rank holding perm.
// Simulation is a view filter only; it never changes what an actor may do.
func RequirePermission(perm rank.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := FromContext(r.Context())
			if id == nil {
				httpx.WriteError(w, http.StatusUnauthorized, "missing_token")
				return
			}
			if !rank.HasPermission(id.ActualRank, perm) {
				httpx.WriteError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
