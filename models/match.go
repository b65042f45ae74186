package models

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusLive      MatchStatus = "live"
	MatchStatusCompleted MatchStatus = "completed"
)

func (s MatchStatus) IsValid() bool {
	switch s {
	case MatchStatusScheduled, MatchStatusLive, MatchStatusCompleted:
		return true
	}
	return false
}

type MatchRound string

const (
	RoundQualifier MatchRound = "qualifier"
	RoundSemi      MatchRound = "semi"
	RoundFinal     MatchRound = "final"
)

func (r MatchRound) IsValid() bool {
	switch r {
	case RoundQualifier, RoundSemi, RoundFinal:
		return true
	}
	return false
}

type Match struct {
	ID           uuid.UUID   `json:"id" db:"id"`
	TournamentID uuid.UUID   `json:"tournament_id" db:"tournament_id"`
	Name         string      `json:"name" db:"name"`
	Round        MatchRound  `json:"round" db:"round"`
	Status       MatchStatus `json:"status" db:"status"`
	RoomID       *string     `json:"room_id,omitempty" db:"room_id"`
	RoomPassword *string     `json:"room_password,omitempty" db:"room_password"`
	StartTime    *time.Time  `json:"start_time,omitempty" db:"start_time"`
	EndTime      *time.Time  `json:"end_time,omitempty" db:"end_time"`
	CurrentZone  int         `json:"current_zone" db:"current_zone"`
	PlayersAlive int         `json:"players_alive" db:"players_alive"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}
