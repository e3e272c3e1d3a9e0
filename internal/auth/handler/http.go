// Package handler exposes the authentication endpoints.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"asset-console/backend/internal/auth/service"
	"asset-console/backend/internal/server/httpx"
	"asset-console/backend/internal/server/middleware"
	"asset-console/backend/internal/session"
	"asset-console/backend/internal/twofactor"
)

// Handler serves login, two-factor completion, logout, and identity lookup.
type Handler struct {
	gateway *service.Gateway
}

func New(gateway *service.Gateway) *Handler {
	return &Handler{gateway: gateway}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Code         string `json:"code"`
	IsBackupCode bool   `json:"isBackupCode"`
}

type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Rank  string `json:"rank"`
}

type loginResponse struct {
	RequiresTwoFactor bool         `json:"requiresTwoFactor"`
	UserID            string       `json:"userId,omitempty"`
	CredentialToken   string       `json:"credentialToken,omitempty"`
	SessionToken      string       `json:"sessionToken,omitempty"`
	ExpiresAt         *time.Time   `json:"expiresAt,omitempty"`
	User              *userPayload `json:"user,omitempty"`
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing_fields")
		return
	}
	res, err := h.gateway.Login(r.Context(), service.Credentials{Email: req.Email, Password: req.Password}, requestMeta(r))
	if err != nil {
		writeAuthError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toLoginResponse(res))
}

// VerifyTwoFactor handles POST /auth/2fa/verify.
func (h *Handler) VerifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing_fields")
		return
	}
	res, err := h.gateway.VerifyTwoFactor(r.Context(), service.Credentials{Email: req.Email, Password: req.Password}, req.Code, req.IsBackupCode, requestMeta(r))
	if err != nil {
		writeAuthError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toLoginResponse(res))
}

// Logout handles POST /auth/logout for the authenticated session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	id := middleware.FromContext(r.Context())
	if id == nil {
		httpx.WriteError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	if err := h.gateway.Logout(r.Context(), id.Session.SessionToken); err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "server_error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Me handles GET /auth/me, reporting the caller and any active simulation.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id := middleware.FromContext(r.Context())
	if id == nil {
		httpx.WriteError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"user": userPayload{
			ID:    id.Account.ID,
			Email: id.Account.Email,
			Rank:  id.ActualRank.String(),
		},
		"effectiveRank":    id.EffectiveRank.String(),
		"simulated":        id.Simulated,
		"sessionToken":     id.Session.SessionToken,
		"sessionExpiresAt": id.Session.ExpiresAt,
		"twoFactorEnabled": id.Account.TwoFactorEnabled,
	})
}

func toLoginResponse(res *service.LoginResult) loginResponse {
	if res.TwoFactorRequired {
		return loginResponse{RequiresTwoFactor: true, UserID: res.Account.ID}
	}
	expires := res.ExpiresAt
	return loginResponse{
		CredentialToken: res.CredentialToken,
		SessionToken:    res.SessionToken,
		ExpiresAt:       &expires,
		User: &userPayload{
			ID:    res.Account.ID,
			Email: res.Account.Email,
			Rank:  res.Account.Rank.String(),
		},
	}
}

// writeAuthError maps gateway errors to statuses. Locked accounts get 423
// with a Retry-After hint; wrong passwords get 401 carrying the attempt
// counters so clients can warn before lockout; bad codes get 400.
func writeAuthError(w http.ResponseWriter, err error) {
	var locked *service.LockedError
	var failed *service.FailedAttemptError
	switch {
	case errors.As(err, &locked):
		w.Header().Set("Retry-After", strconv.Itoa(locked.RetrySeconds()))
		httpx.WriteJSON(w, http.StatusLocked, map[string]any{
			"error":             "account_locked",
			"retryAfterSeconds": locked.RetrySeconds(),
		})
	case errors.As(err, &failed):
		httpx.WriteJSON(w, http.StatusUnauthorized, map[string]any{
			"error":     "invalid_credentials",
			"attempts":  failed.Attempts,
			"threshold": failed.Threshold,
		})
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials")
	case errors.Is(err, twofactor.ErrInvalidCode):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_two_factor_code")
	case errors.Is(err, service.ErrTwoFactorCodeRequired):
		httpx.WriteError(w, http.StatusBadRequest, "two_factor_code_required")
	case errors.Is(err, twofactor.ErrNotEnabled):
		httpx.WriteError(w, http.StatusBadRequest, "two_factor_not_enabled")
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "server_error")
	}
}

func requestMeta(r *http.Request) session.RequestMeta {
	return session.RequestMeta{
		IPAddress: httpx.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}
