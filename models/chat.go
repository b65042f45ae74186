package models

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessageType string

const (
	ChatTypeUser   ChatMessageType = "user"
	ChatTypeAdmin  ChatMessageType = "admin"
	ChatTypeSystem ChatMessageType = "system"
)

type ChatMessage struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	MatchID   uuid.UUID       `json:"match_id" db:"match_id"`
	UserID    *uuid.UUID      `json:"user_id,omitempty" db:"user_id"`
	Message   string          `json:"message" db:"message"`
	Type      ChatMessageType `json:"type" db:"type"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`

	User *User `json:"user,omitempty" db:"-"`
}
