package models

import (
	"time"

	"github.com/google/uuid"
)

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

func (s InvitationStatus) IsValid() bool {
	switch s {
	case InvitationPending, InvitationAccepted, InvitationDeclined:
		return true
	}
	return false
}

type TeamInvitation struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	TeamID    uuid.UUID        `json:"team_id" db:"team_id"`
	UserID    uuid.UUID        `json:"user_id" db:"user_id"`
	InvitedBy uuid.UUID        `json:"invited_by" db:"invited_by"`
	Status    InvitationStatus `json:"status" db:"status"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt time.Time        `json:"updated_at" db:"updated_at"`

	Team *Team `json:"team,omitempty" db:"-"`
}
