// Package server assembles the HTTP router and runs the server.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	accounthandler "asset-console/backend/internal/account/handler"
	authhandler "asset-console/backend/internal/auth/handler"
	"asset-console/backend/internal/broadcast"
	healthhandler "asset-console/backend/internal/health/handler"
	historyhandler "asset-console/backend/internal/loginhistory/handler"
	"asset-console/backend/internal/rank"
	"asset-console/backend/internal/server/middleware"
	sessionhandler "asset-console/backend/internal/session/handler"
	settingshandler "asset-console/backend/internal/settings/handler"
	twofactorhandler "asset-console/backend/internal/twofactor/handler"
)

// Handlers bundles the feature handlers mounted on the router.
type Handlers struct {
	Auth      *authhandler.Handler
	TwoFactor *twofactorhandler.Handler
	Sessions  *sessionhandler.Handler
	Accounts  *accounthandler.Handler
	History   *historyhandler.Handler
	Settings  *settingshandler.Handler
	Health    *healthhandler.Handler
}

// NewRouter wires every route. Everything below the auth group requires a
// valid credential token and a live session; permissioned routes additionally
// gate on the caller's actual rank.
func NewRouter(auth *middleware.Authenticator, hub *broadcast.Hub, h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", h.Health.Healthz)
	r.Get("/readyz", h.Health.Readyz)

	r.Post("/auth/login", h.Auth.Login)
	r.Post("/auth/2fa/verify", h.Auth.VerifyTwoFactor)

	r.Group(func(r chi.Router) {
		r.Use(auth.Handler)

		r.Post("/auth/logout", h.Auth.Logout)
		r.Get("/auth/me", h.Auth.Me)
		r.Get("/events", broadcast.ServeSSE(hub, middleware.UserIDFromRequest))

		r.Post("/2fa/setup", h.TwoFactor.Setup)
		r.Post("/2fa/confirm", h.TwoFactor.Confirm)
		r.Post("/2fa/backup-codes/regenerate", h.TwoFactor.RegenerateBackupCodes)
		r.Post("/2fa/disable", h.TwoFactor.Disable)

		r.Get("/sessions/mine", h.Sessions.ListMine)
		r.Delete("/sessions/mine/{sessionToken}", h.Sessions.RevokeMine)
		r.With(middleware.RequirePermission(rank.PermViewAllSessions)).Get("/sessions", h.Sessions.List)
		r.With(middleware.RequirePermission(rank.PermForceLogoutUsers)).Delete("/sessions/{sessionToken}", h.Sessions.ForceLogout)
		r.With(middleware.RequirePermission(rank.PermForceLogoutUsers)).Delete("/users/{userID}/sessions", h.Sessions.ForceLogoutUser)

		r.With(middleware.RequirePermission(rank.PermViewUsers)).Get("/users", h.Accounts.List)
		r.With(middleware.RequirePermission(rank.PermViewUsers)).Get("/users/{userID}", h.Accounts.Get)
		r.With(middleware.RequirePermission(rank.PermAddUsers)).Post("/users", h.Accounts.Create)
		r.With(middleware.RequirePermission(rank.PermEditUsers)).Put("/users/{userID}", h.Accounts.Update)
		r.With(middleware.RequirePermission(rank.PermDeleteUsers)).Delete("/users/{userID}", h.Accounts.Delete)

		r.With(middleware.RequirePermission(rank.PermViewLoginHistory)).Get("/login-history", h.History.List)

		r.With(middleware.RequirePermission(rank.PermConfigureSessionTimeout)).Get("/session-config", h.Settings.Get)
		r.With(middleware.RequirePermission(rank.PermConfigureSessionTimeout)).Put("/session-config", h.Settings.Update)
	})

	return r
}

// New returns an http.Server with sane timeouts. The SSE endpoint holds
// connections open, so no global write timeout is set; handlers bound their
// own work instead.
func New(addr string, router http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

// Shutdown drains the server with a deadline.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
