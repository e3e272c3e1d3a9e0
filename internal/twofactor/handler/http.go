// Package handler exposes two-factor management for the authenticated user.
package handler

import (
	"errors"
	"net/http"

	"asset-console/backend/internal/server/httpx"
	"asset-console/backend/internal/server/middleware"
	"asset-console/backend/internal/twofactor"
)

// Handler serves two-factor setup, confirmation, and backup-code management.
type Handler struct {
	engine *twofactor.Engine
}

func New(engine *twofactor.Engine) *Handler {
	return &Handler{engine: engine}
}

type codeRequest struct {
	Code string `json:"code"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

// Setup handles POST /2fa/setup, starting enrollment.
func (h *Handler) Setup(w http.ResponseWriter, r *http.Request) {
	id := middleware.FromContext(r.Context())
	enrollment, err := h.engine.Setup(r.Context(), id.Account.ID)
	if err != nil {
		writeTwoFactorError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"secret":    enrollment.Secret,
		"qrPayload": enrollment.QRPayload,
	})
}

// Confirm handles POST /2fa/confirm, finishing enrollment. The response is
// the only time the backup codes appear in plaintext.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	id := middleware.FromContext(r.Context())
	codes, err := h.engine.Confirm(r.Context(), id.Account.ID, req.Code)
	if err != nil {
		writeTwoFactorError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"backupCodes": codes})
}

// RegenerateBackupCodes handles POST /2fa/backup-codes/regenerate.
func (h *Handler) RegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	id := middleware.FromContext(r.Context())
	codes, err := h.engine.Regenerate(r.Context(), id.Account.ID, req.Password)
	if err != nil {
		writeTwoFactorError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"backupCodes": codes})
}

// Disable handles POST /2fa/disable.
func (h *Handler) Disable(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	id := middleware.FromContext(r.Context())
	if err := h.engine.Disable(r.Context(), id.Account.ID, req.Password); err != nil {
		writeTwoFactorError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
}

func writeTwoFactorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, twofactor.ErrInvalidCode):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_two_factor_code")
	case errors.Is(err, twofactor.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials")
	case errors.Is(err, twofactor.ErrAlreadyEnabled):
		httpx.WriteError(w, http.StatusConflict, "two_factor_already_enabled")
	case errors.Is(err, twofactor.ErrNotEnabled):
		httpx.WriteError(w, http.StatusBadRequest, "two_factor_not_enabled")
	case errors.Is(err, twofactor.ErrSetupRequired):
		httpx.WriteError(w, http.StatusBadRequest, "two_factor_setup_required")
	case errors.Is(err, twofactor.ErrUserNotFound):
		httpx.WriteError(w, http.StatusNotFound, "user_not_found")
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "server_error")
	}
}
