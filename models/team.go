package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxTeamMembers caps a squad roster.
const MaxTeamMembers = 4

type TeamRole string

const (
	TeamRoleCaptain TeamRole = "captain"
	TeamRoleMember  TeamRole = "member"
)

type Team struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	Tag           string          `json:"tag" db:"tag"`
	CaptainID     uuid.UUID       `json:"captain_id" db:"captain_id"`
	TotalWins     int             `json:"total_wins" db:"total_wins"`
	TotalEarnings decimal.Decimal `json:"total_earnings" db:"total_earnings"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`

	LogoKey *string `json:"-" db:"logo_key"`
	LogoURL *string `json:"logo_url,omitempty" db:"-"`

	Members []TeamMember `json:"members,omitempty" db:"-"`
}

type TeamMember struct {
	ID       uuid.UUID `json:"id" db:"id"`
	TeamID   uuid.UUID `json:"team_id" db:"team_id"`
	UserID   uuid.UUID `json:"user_id" db:"user_id"`
	Role     TeamRole  `json:"role" db:"role"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`

	User *User `json:"user,omitempty" db:"-"`
}
