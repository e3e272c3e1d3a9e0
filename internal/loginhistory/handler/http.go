// Package handler exposes the login history listing.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"asset-console/backend/internal/loginhistory/domain"
	"asset-console/backend/internal/loginhistory/repository"
	"asset-console/backend/internal/server/httpx"
)

// defaultLimit caps unpaginated listings.
const defaultLimit = 100

// Handler serves GET /login-history.
type Handler struct {
	repo repository.Repository
}

func New(repo repository.Repository) *Handler {
	return &Handler{repo: repo}
}

type entryPayload struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	UserID        string    `json:"userId,omitempty"`
	Success       bool      `json:"success"`
	FailureReason string    `json:"failureReason,omitempty"`
	IPAddress     string    `json:"ipAddress,omitempty"`
	UserAgent     string    `json:"userAgent,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// List handles GET /login-history with optional email, userId, limit, and
// offset filters. Session tokens are deliberately omitted from the payload.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := repository.ListFilter{
		Email:  q.Get("email"),
		UserID: q.Get("userId"),
		Limit:  defaultLimit,
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 && v <= defaultLimit {
		f.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		f.Offset = v
	}

	entries, err := h.repo.List(r.Context(), f)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "server_error")
		return
	}
	out := make([]entryPayload, 0, len(entries))
	for _, e := range entries {
		out = append(out, toPayload(e))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"entries": out})
}

func toPayload(e *domain.Entry) entryPayload {
	return entryPayload{
		ID:            e.ID,
		Email:         e.Email,
		UserID:        e.UserID,
		Success:       e.Success,
		FailureReason: e.FailureReason,
		IPAddress:     e.IPAddress,
		UserAgent:     e.UserAgent,
		CreatedAt:     e.CreatedAt,
	}
}
