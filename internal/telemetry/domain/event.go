// Package domain defines the security event emitted on authentication and
// session activity.
package domain

import "time"

// Event types.
const (
	EventLoginSuccess      = "login_success"
	EventLoginFailure      = "login_failure"
	EventAccountLocked     = "account_locked"
	EventTwoFactorFailure  = "two_factor_failure"
	EventTwoFactorEnabled  = "two_factor_enabled"
	EventTwoFactorDisabled = "two_factor_disabled"
	EventForcedLogout      = "forced_logout"
	EventSettingsChanged   = "settings_changed"
)

// SecurityEvent is one security-relevant occurrence. Serialized as JSON on
// the Kafka topic; the worker relabels and forwards it to Loki.
type SecurityEvent struct {
	ID        string    `json:"id"`
	EventType string    `json:"eventType"`
	UserID    string    `json:"userId,omitempty"`
	Email     string    `json:"email,omitempty"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
