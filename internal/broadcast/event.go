// Package broadcast propagates forced-logout notifications to connected
// clients, across instances via Redis pub/sub when configured.
package broadcast

import "time"

// SessionToken value meaning every session of the user was ended.
const AllSessions = "all"

// Event is one forced-logout notification.
type Event struct {
	UserID       string    `json:"userId"`
	SessionToken string    `json:"sessionToken"`
	Reason       string    `json:"reason"`
	At           time.Time `json:"at"`
}
