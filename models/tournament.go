package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TournamentStatus представляет статусы турнира, соответствующие CHECK в БД.
type TournamentStatus string

const (
	TournamentStatusOpen      TournamentStatus = "open"
	TournamentStatusLive      TournamentStatus = "live"
	TournamentStatusCompleted TournamentStatus = "completed"
)

func (s TournamentStatus) IsValid() bool {
	switch s {
	case TournamentStatusOpen, TournamentStatusLive, TournamentStatusCompleted:
		return true
	}
	return false
}

type TournamentMode string

const (
	ModeSolo  TournamentMode = "Solo"
	ModeDuo   TournamentMode = "Duo"
	ModeSquad TournamentMode = "Squad"
)

func (m TournamentMode) IsValid() bool {
	switch m {
	case ModeSolo, ModeDuo, ModeSquad:
		return true
	}
	return false
}

type TournamentType string

const (
	TypeFree   TournamentType = "Free"
	TypePaid   TournamentType = "Paid"
	TypeInvite TournamentType = "Invite"
)

func (t TournamentType) IsValid() bool {
	switch t {
	case TypeFree, TypePaid, TypeInvite:
		return true
	}
	return false
}

// Tournament представляет турнир.
type Tournament struct {
	ID           uuid.UUID        `json:"id" db:"id"`
	Name         string           `json:"name" db:"name"`
	Description  *string          `json:"description,omitempty" db:"description"`
	Mode         TournamentMode   `json:"mode" db:"mode"`
	Type         TournamentType   `json:"type" db:"type"`
	Status       TournamentStatus `json:"status" db:"status"`
	EntryFee     decimal.Decimal  `json:"entry_fee" db:"entry_fee"`
	PrizePool    decimal.Decimal  `json:"prize_pool" db:"prize_pool"`
	MaxTeams     int              `json:"max_teams" db:"max_teams"`
	CurrentTeams int              `json:"current_teams" db:"current_teams"`
	StartDate    time.Time        `json:"start_date" db:"start_date"`
	EndDate      *time.Time       `json:"end_date,omitempty" db:"end_date"`
	Rules        *string          `json:"rules,omitempty" db:"rules"`
	CreatedBy    uuid.UUID        `json:"created_by" db:"created_by"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
	BannerKey    *string          `json:"-" db:"banner_key"`
	BannerURL    *string          `json:"banner_url,omitempty" db:"-"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Registrations []Registration `json:"registrations,omitempty" db:"-"`
	Matches       []Match        `json:"matches,omitempty" db:"-"`
}

// HasCapacity reports whether another team can still register.
func (t *Tournament) HasCapacity() bool {
	return t.CurrentTeams < t.MaxTeams
}
