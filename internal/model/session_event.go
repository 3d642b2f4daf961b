package model

import "time"

const (
	SessionEventCreated = "session.created"
	SessionEventRenamed = "session.renamed"
	SessionEventDeleted = "session.deleted"
	SessionEventUpdated = "session.updated"
)

// SessionEvent announces a change to one of a user's sessions so clients
// can refresh their session list without polling.
type SessionEvent struct {
	Type      string    `json:"type"`
	UserID    uint      `json:"user_id"`
	SessionID uint      `json:"session_id"`
	Title     string    `json:"title,omitempty"`
	At        time.Time `json:"at"`
}
