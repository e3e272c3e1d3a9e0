// Package handler exposes account management endpoints.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"asset-console/backend/internal/account/domain"
	"asset-console/backend/internal/account/service"
	"asset-console/backend/internal/rank"
	"asset-console/backend/internal/server/httpx"
	"asset-console/backend/internal/server/middleware"
)

// Handler serves account listing and management.
type Handler struct {
	accounts *service.Service
}

func New(accounts *service.Service) *Handler {
	return &Handler{accounts: accounts}
}

type accountPayload struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Rank             string    `json:"rank"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	CreatedAt        time.Time `json:"createdAt"`
}

type createRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Rank     string `json:"rank"`
}

// List handles GET /users, filtered by the caller's effective rank.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	id := middleware.FromContext(r.Context())
	accounts, err := h.accounts.List(r.Context(), id.EffectiveRank)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "server_error")
		return
	}
	out := make([]accountPayload, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toPayload(a))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"users": out})
}

// Get handles GET /users/{userID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := middleware.FromContext(r.Context())
	acct, err := h.accounts.Get(r.Context(), id.EffectiveRank, chi.URLParam(r, "userID"))
	if err != nil {
		writeAccountError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPayload(acct))
}

// Create handles POST /users.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Email == "" || req.Password == "" || req.Rank == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing_fields")
		return
	}
	newRank, err := rank.Parse(req.Rank)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_rank")
		return
	}
	id := middleware.FromContext(r.Context())
	// Mutations run against the actual rank; simulation only filters reads.
	acct, err := h.accounts.Create(r.Context(), id.ActualRank, req.Email, req.Password, newRank)
	if err != nil {
		writeAccountError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toPayload(acct))
}

type updateRequest struct {
	Rank     *string `json:"rank"`
	Password *string `json:"password"`
}

// Update handles PUT /users/{userID}. A password change ends every session
// of the target account.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Rank == nil && req.Password == nil {
		httpx.WriteError(w, http.StatusBadRequest, "missing_fields")
		return
	}
	var up service.Update
	if req.Rank != nil {
		newRank, err := rank.Parse(*req.Rank)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_rank")
			return
		}
		up.Rank = &newRank
	}
	up.Password = req.Password

	id := middleware.FromContext(r.Context())
	acct, err := h.accounts.ApplyUpdate(r.Context(), id.ActualRank, chi.URLParam(r, "userID"), up)
	if err != nil {
		writeAccountError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPayload(acct))
}

// Delete handles DELETE /users/{userID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := middleware.FromContext(r.Context())
	if err := h.accounts.Delete(r.Context(), id.ActualRank, chi.URLParam(r, "userID")); err != nil {
		writeAccountError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func toPayload(a *domain.Account) accountPayload {
	return accountPayload{
		ID:               a.ID,
		Email:            a.Email,
		Rank:             a.Rank.String(),
		TwoFactorEnabled: a.TwoFactorEnabled,
		CreatedAt:        a.CreatedAt,
	}
}

func writeAccountError(w http.ResponseWriter, err error) {
	switch {
	// Hidden accounts read as missing, so rank boundaries do not leak.
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrNotVisible):
		httpx.WriteError(w, http.StatusNotFound, "user_not_found")
	case errors.Is(err, service.ErrNotManageable):
		httpx.WriteError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrEmailTaken):
		httpx.WriteError(w, http.StatusConflict, "email_taken")
	case errors.Is(err, service.ErrWeakPassword):
		httpx.WriteError(w, http.StatusBadRequest, "weak_password")
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "server_error")
	}
}
