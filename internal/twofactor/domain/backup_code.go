package domain

import "time"

// BackupCode is a single-use fallback credential for two-factor login.
// Codes are stored uppercase and compared case-insensitively.
type BackupCode struct {
	ID        string
	UserID    string
	Code      string
	Used      bool
	UsedAt    *time.Time // nil until consumed
	CreatedAt time.Time
}

// BatchSize is how many backup codes are issued per enable/regenerate.
const BatchSize = 10

// CodeLength is the number of hex characters per code.
const CodeLength = 8
