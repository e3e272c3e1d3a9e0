// Package domain holds the console-wide session configuration.
package domain

import (
	"errors"
	"time"
)

// Settings is the admin-tunable session configuration. A single row backs it.
type Settings struct {
	SessionTimeoutDays           int
	MaxActiveSessions            int
	RequireReauthenticationHours int // 0 disables forced re-authentication
	CleanupIntervalHours         int
	EnforceSingleDeviceLogin     bool
	NotifyOnNewLogin             bool
	UpdatedAt                    time.Time
}

// Defaults returns the settings used until an administrator saves their own.
func Defaults() Settings {
	return Settings{
		SessionTimeoutDays:           30,
		MaxActiveSessions:            5,
		RequireReauthenticationHours: 0,
		CleanupIntervalHours:         24,
	}
}

// Validate bounds every field. The ranges are generous; they exist to catch
// typos (0, negative, or absurd values), not to encode policy.
func (s *Settings) Validate() error {
	if s.SessionTimeoutDays < 1 || s.SessionTimeoutDays > 365 {
		return errors.New("session timeout must be between 1 and 365 days")
	}
	if s.MaxActiveSessions < 1 || s.MaxActiveSessions > 50 {
		return errors.New("max active sessions must be between 1 and 50")
	}
	if s.RequireReauthenticationHours < 0 || s.RequireReauthenticationHours > 8760 {
		return errors.New("re-authentication interval must be between 0 and 8760 hours")
	}
	if s.CleanupIntervalHours < 1 || s.CleanupIntervalHours > 168 {
		return errors.New("cleanup interval must be between 1 and 168 hours")
	}
	return nil
}
