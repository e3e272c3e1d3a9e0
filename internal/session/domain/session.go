package domain

import "time"

// Session is a server-side session record. The credential token hash is the
// validation key: a request authenticates only when its signed token is valid
// AND an active, non-expired session stores that token's hash. Session state
// therefore revokes access immediately even while the token itself is still
// cryptographically valid.
type Session struct {
	SessionToken        string // opaque, unique
	CredentialTokenHash string // SHA-256 of the issued credential token, unique
	UserID              string
	IPAddress           string
	UserAgent           string
	CreatedAt           time.Time
	LastActivity        time.Time
	ExpiresAt           time.Time
	IsActive            bool
	LogoutTime          *time.Time // nil while active
	LogoutReason        string     // empty while active
}

// Logout reasons recorded when a session is deactivated.
const (
	ReasonUserLogout   = "user_logout"
	ReasonForcedLogout = "forced_logout"
	ReasonExpired      = "expired"
	ReasonSessionLimit = "session_limit"
)

// LiveAt reports whether the session authenticates requests at t.
func (s *Session) LiveAt(t time.Time) bool {
	return s.IsActive && s.ExpiresAt.After(t)
}
