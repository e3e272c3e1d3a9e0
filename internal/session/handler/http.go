// Package handler exposes the session registry over HTTP.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	accountdomain "asset-console/backend/internal/account/domain"
	"asset-console/backend/internal/broadcast"
	"asset-console/backend/internal/rank"
	"asset-console/backend/internal/server/httpx"
	"asset-console/backend/internal/server/middleware"
	"asset-console/backend/internal/session"
	"asset-console/backend/internal/session/domain"
	"asset-console/backend/internal/session/repository"
	"asset-console/backend/internal/telemetry"
	telemetrydomain "asset-console/backend/internal/telemetry/domain"
)

// AccountDirectory resolves accounts for visibility checks.
type AccountDirectory interface {
	GetByID(ctx context.Context, id string) (*accountdomain.Account, error)
	ListByRanks(ctx context.Context, ranks []rank.Rank) ([]*accountdomain.Account, error)
}

// Handler serves session listing and forced logout.
type Handler struct {
	registry *session.Registry
	accounts AccountDirectory
	events   telemetry.EventEmitter // may be nil
}

func New(registry *session.Registry, accounts AccountDirectory, events telemetry.EventEmitter) *Handler {
	return &Handler{registry: registry, accounts: accounts, events: events}
}

type sessionPayload struct {
	SessionToken string     `json:"sessionToken"`
	UserID       string     `json:"userId"`
	IPAddress    string     `json:"ipAddress,omitempty"`
	UserAgent    string     `json:"userAgent,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastActivity time.Time  `json:"lastActivity"`
	ExpiresAt    time.Time  `json:"expiresAt"`
	IsActive     bool       `json:"isActive"`
	LogoutTime   *time.Time `json:"logoutTime,omitempty"`
	LogoutReason string     `json:"logoutReason,omitempty"`
	Current      bool       `json:"current,omitempty"`
}

// List handles GET /sessions, scoped to users the caller's effective rank may
// see.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	id := middleware.FromContext(r.Context())
	visible, err := h.accounts.ListByRanks(r.Context(), rank.VisibleRanks(id.EffectiveRank))
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "server_error")
		return
	}
	userIDs := make([]string, 0, len(visible))
	for _, a := range visible {
		userIDs = append(userIDs, a.ID)
	}

	filter := listFilter(r)
	if filter.UserID != "" && !contains(userIDs, filter.UserID) {
		httpx.WriteError(w, http.StatusNotFound, "user_not_found")
		return
	}
	sessions, err := h.registry.ListVisible(r.Context(), userIDs, filter)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "server_error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"sessions": toPayloads(sessions, "")})
}

// ListMine handles GET /sessions/mine for any authenticated user.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	id := middleware.FromContext(r.Context())
	filter := listFilter(r)
	filter.UserID = ""
	sessions, err := h.registry.ListVisible(r.Context(), []string{id.Account.ID}, filter)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "server_error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"sessions": toPayloads(sessions, id.Session.SessionToken)})
}

// RevokeMine handles DELETE /sessions/mine/{sessionToken}: a user ending one
// of their own sessions, e.g. a forgotten device.
func (h *Handler) RevokeMine(w http.ResponseWriter, r *http.Request) {
	id := middleware.FromContext(r.Context())
	token := chi.URLParam(r, "sessionToken")

	owned, err := h.registry.ListVisible(r.Context(), []string{id.Account.ID}, repository.ListFilter{})
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "server_error")
		return
	}
	var target *domain.Session
	for _, s := range owned {
		if s.SessionToken == token {
			target = s
			break
		}
	}
	if target == nil {
		httpx.WriteError(w, http.StatusNotFound, "session_not_found")
		return
	}
	reason := domain.ReasonUserLogout
	if token != id.Session.SessionToken {
		reason = domain.ReasonForcedLogout
	}
	if err := h.registry.Invalidate(r.Context(), token, reason); err != nil {
		writeSessionError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// ForceLogout handles DELETE /sessions/{sessionToken}. The caller must
// strictly outrank the session's owner.
func (h *Handler) ForceLogout(w http.ResponseWriter, r *http.Request) {
	id := middleware.FromContext(r.Context())
	token := chi.URLParam(r, "sessionToken")

	sess, err := h.registry.Get(r.Context(), token)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	owner, err := h.accounts.GetByID(r.Context(), sess.UserID)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "server_error")
		return
	}
	// Mutations check the actual rank; a simulation header never changes
	// what the caller may revoke.
	if owner == nil || !rank.CanSee(id.ActualRank, owner.Rank) {
		// Invisible sessions are indistinguishable from missing ones.
		httpx.WriteError(w, http.StatusNotFound, "session_not_found")
		return
	}
	if !rank.CanManage(id.ActualRank, owner.Rank) {
		httpx.WriteError(w, http.StatusForbidden, "forbidden")
		return
	}
	if err := h.registry.Invalidate(r.Context(), token, domain.ReasonForcedLogout); err != nil {
		writeSessionError(w, err)
		return
	}
	h.emitForcedLogout(r, id, owner.ID, token)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// ForceLogoutUser handles DELETE /users/{userID}/sessions, ending every
// active session of the target user.
func (h *Handler) ForceLogoutUser(w http.ResponseWriter, r *http.Request) {
	id := middleware.FromContext(r.Context())
	userID := chi.URLParam(r, "userID")

	owner, err := h.accounts.GetByID(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if owner == nil || !rank.CanSee(id.ActualRank, owner.Rank) {
		httpx.WriteError(w, http.StatusNotFound, "user_not_found")
		return
	}
	if !rank.CanManage(id.ActualRank, owner.Rank) {
		httpx.WriteError(w, http.StatusForbidden, "forbidden")
		return
	}
	n, err := h.registry.InvalidateAllForUser(r.Context(), userID, domain.ReasonForcedLogout)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "server_error")
		return
	}
	h.emitForcedLogout(r, id, userID, broadcast.AllSessions)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "revoked", "sessionsEnded": n})
}

func (h *Handler) emitForcedLogout(r *http.Request, actor *middleware.Identity, targetUserID, token string) {
	telemetry.EmitAsync(h.events, &telemetrydomain.SecurityEvent{
		ID:        uuid.New().String(),
		EventType: telemetrydomain.EventForcedLogout,
		UserID:    targetUserID,
		IPAddress: httpx.ClientIP(r),
		UserAgent: r.UserAgent(),
		Detail:    "by " + actor.Account.ID + " session " + token,
		CreatedAt: time.Now().UTC(),
	})
}

func writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrSessionNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "session_not_found")
		return
	}
	httpx.WriteError(w, http.StatusInternalServerError, "server_error")
}

func listFilter(r *http.Request) repository.ListFilter {
	q := r.URL.Query()
	f := repository.ListFilter{
		UserID:     q.Get("userId"),
		ActiveOnly: q.Get("active") == "true",
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		f.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		f.Offset = v
	}
	return f
}

func toPayloads(sessions []*domain.Session, currentToken string) []sessionPayload {
	out := make([]sessionPayload, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionPayload{
			SessionToken: s.SessionToken,
			UserID:       s.UserID,
			IPAddress:    s.IPAddress,
			UserAgent:    s.UserAgent,
			CreatedAt:    s.CreatedAt,
			LastActivity: s.LastActivity,
			ExpiresAt:    s.ExpiresAt,
			IsActive:     s.IsActive,
			LogoutTime:   s.LogoutTime,
			LogoutReason: s.LogoutReason,
			Current:      currentToken != "" && s.SessionToken == currentToken,
		})
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
