package models

import (
	"time"

	"github.com/google/uuid"
)

type ResultStatus string

const (
	ResultAlive      ResultStatus = "alive"
	ResultEliminated ResultStatus = "eliminated"
)

func (s ResultStatus) IsValid() bool {
	return s == ResultAlive || s == ResultEliminated
}

// MatchResult is one team's outcome record inside a match.
type MatchResult struct {
	ID           uuid.UUID    `json:"id" db:"id"`
	MatchID      uuid.UUID    `json:"match_id" db:"match_id"`
	TeamID       uuid.UUID    `json:"team_id" db:"team_id"`
	Position     *int         `json:"position,omitempty" db:"position"`
	Kills        int          `json:"kills" db:"kills"`
	Points       int          `json:"points" db:"points"`
	Status       ResultStatus `json:"status" db:"status"`
	EliminatedAt *time.Time   `json:"eliminated_at,omitempty" db:"eliminated_at"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`

	Team *Team `json:"team,omitempty" db:"-"`
}
