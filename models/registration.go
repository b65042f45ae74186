package models

import (
	"time"

	"github.com/google/uuid"
)

// Registration binds a team to a tournament and consumes one capacity slot.
type Registration struct {
	ID           uuid.UUID `json:"id" db:"id"`
	TournamentID uuid.UUID `json:"tournament_id" db:"tournament_id"`
	TeamID       uuid.UUID `json:"team_id" db:"team_id"`
	RegisteredAt time.Time `json:"registered_at" db:"registered_at"`

	Team *Team `json:"team,omitempty" db:"-"`
}
