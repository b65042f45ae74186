package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TournamentStats is the platform summary shown on the dashboard.
type TournamentStats struct {
	ActiveTournaments int             `json:"active_tournaments"`
	TotalPrizePool    decimal.Decimal `json:"total_prize_pool"`
	RegisteredTeams   int             `json:"registered_teams"`
	LiveMatches       int             `json:"live_matches"`
}

// TeamStanding aggregates a team's completed matches within one tournament.
type TeamStanding struct {
	TeamID        uuid.UUID `json:"team_id" db:"team_id"`
	Points        int       `json:"points" db:"points"`
	Kills         int       `json:"kills" db:"kills"`
	MatchesPlayed int       `json:"matches_played" db:"matches_played"`
	Wins          int       `json:"wins" db:"wins"`
	Rank          int       `json:"rank" db:"-"`

	Team *Team `json:"team,omitempty" db:"-"`
}
