package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a player known to the platform. Identity comes from the external
// provider; the counters are written only by match and tournament completion.
type User struct {
	ID              uuid.UUID `json:"id" db:"id"`
	Email           *string   `json:"email,omitempty" db:"email"`
	Username        *string   `json:"username,omitempty" db:"username"`
	FirstName       *string   `json:"first_name,omitempty" db:"first_name"`
	LastName        *string   `json:"last_name,omitempty" db:"last_name"`
	ProfileImageURL *string   `json:"profile_image_url,omitempty" db:"profile_image_url"`
	IsAdmin         bool      `json:"is_admin" db:"is_admin"`
	TotalPoints     int       `json:"total_points" db:"total_points"`
	TournamentsWon  int       `json:"tournaments_won" db:"tournaments_won"`
	TotalKills      int       `json:"total_kills" db:"total_kills"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
