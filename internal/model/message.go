package model

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is append-only; the created_at order within a session is the transcript.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID uint      `gorm:"not null;index:idx_messages_session_created,priority:1" json:"session_id"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	Content   string    `gorm:"size:16777215;not null" json:"content"`
	CreatedAt time.Time `gorm:"index:idx_messages_session_created,priority:2" json:"created_at"`
}
