package models

import (
	"time"

	"github.com/google/uuid"
)

type MatchReplay struct {
	ID           uuid.UUID `json:"id" db:"id"`
	MatchID      uuid.UUID `json:"match_id" db:"match_id"`
	Title        string    `json:"title" db:"title"`
	Description  *string   `json:"description,omitempty" db:"description"`
	VideoURL     string    `json:"video_url" db:"video_url"`
	ThumbnailURL *string   `json:"thumbnail_url,omitempty" db:"thumbnail_url"`
	Duration     *int      `json:"duration,omitempty" db:"duration"`
	Views        int       `json:"views" db:"views"`
	Likes        int       `json:"likes" db:"likes"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
