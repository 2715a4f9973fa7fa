package models

import "time"

type MessageType string

const (
	MessageCredential   MessageType = "credential"
	MessageNotification MessageType = "notification"
	MessageSystem       MessageType = "system"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageCredential, MessageNotification, MessageSystem:
		return true
	}
	return false
}

// Message is an inbox entry owned by its recipient.
type Message struct {
	ID        string      `json:"id" db:"id"`
	UserID    string      `json:"user_id" db:"user_id"`
	Title     string      `json:"title" db:"title"`
	Content   string      `json:"content" db:"content"`
	Type      MessageType `json:"type" db:"type"`
	Read      bool        `json:"read" db:"read"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}
