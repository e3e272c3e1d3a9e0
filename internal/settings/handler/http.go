// Package handler exposes the session configuration endpoints.
package handler

import (
	"net/http"
	"time"

	"asset-console/backend/internal/server/httpx"
	"asset-console/backend/internal/server/middleware"
	"asset-console/backend/internal/settings"
	"asset-console/backend/internal/settings/domain"
)

// Handler serves GET and PUT /session-config.
type Handler struct {
	service *settings.Service
}

func New(service *settings.Service) *Handler {
	return &Handler{service: service}
}

type settingsPayload struct {
	SessionTimeoutDays           int        `json:"sessionTimeoutDays"`
	MaxActiveSessions            int        `json:"maxActiveSessions"`
	RequireReauthenticationHours int        `json:"requireReauthenticationHours"`
	CleanupIntervalHours         int        `json:"cleanupIntervalHours"`
	EnforceSingleDeviceLogin     bool       `json:"enforceSingleDeviceLogin"`
	NotifyOnNewLogin             bool       `json:"notifyOnNewLogin"`
	UpdatedAt                    *time.Time `json:"updatedAt,omitempty"`
}

// Get handles GET /session-config.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, toPayload(h.service.Current(r.Context())))
}

// Update handles PUT /session-config. Changes apply to sessions created
// afterwards.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req settingsPayload
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	id := middleware.FromContext(r.Context())
	saved, err := h.service.Update(r.Context(), domain.Settings{
		SessionTimeoutDays:           req.SessionTimeoutDays,
		MaxActiveSessions:            req.MaxActiveSessions,
		RequireReauthenticationHours: req.RequireReauthenticationHours,
		CleanupIntervalHours:         req.CleanupIntervalHours,
		EnforceSingleDeviceLogin:     req.EnforceSingleDeviceLogin,
		NotifyOnNewLogin:             req.NotifyOnNewLogin,
	}, id.Account.ID)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_settings")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPayload(saved))
}

func toPayload(s domain.Settings) settingsPayload {
	p := settingsPayload{
		SessionTimeoutDays:           s.SessionTimeoutDays,
		MaxActiveSessions:            s.MaxActiveSessions,
		RequireReauthenticationHours: s.RequireReauthenticationHours,
		CleanupIntervalHours:         s.CleanupIntervalHours,
		EnforceSingleDeviceLogin:     s.EnforceSingleDeviceLogin,
		NotifyOnNewLogin:             s.NotifyOnNewLogin,
	}
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		p.UpdatedAt = &t
	}
	return p
}
