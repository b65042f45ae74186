package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/bgmi-arena/models"
	"github.com/google/uuid"
)

var ErrReplayMatchInvalid = errors.New("replay references an unknown match")

type ReplayRepository interface {
	Create(ctx context.Context, replay *models.MatchReplay) error
	List(ctx context.Context, matchID *uuid.UUID, limit int) ([]models.MatchReplay, error)
}

type postgresReplayRepository struct {
	db *sql.DB
}

func NewPostgresReplayRepository(db *sql.DB) ReplayRepository {
	return &postgresReplayRepository{db: db}
}

func (r *postgresReplayRepository) Create(ctx context.Context, rp *models.MatchReplay) error {
	query := `
		INSERT INTO match_replays (match_id, title, description, video_url, thumbnail_url, duration)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, views, likes, created_at`

	err := r.db.QueryRowContext(ctx, query,
		rp.MatchID, rp.Title, rp.Description, rp.VideoURL, rp.ThumbnailURL, rp.Duration,
	).Scan(&rp.ID, &rp.Views, &rp.Likes, &rp.CreatedAt)
	if err != nil {
		if isViolation(err, pqForeignKeyViolation, "match_replays_match_id_fkey") {
			return ErrReplayMatchInvalid
		}
		return fmt.Errorf("failed to create replay: %w", err)
	}
	return nil
}

func (r *postgresReplayRepository) List(ctx context.Context, matchID *uuid.UUID, limit int) ([]models.MatchReplay, error) {
	query := `
		SELECT id, match_id, title, description, video_url, thumbnail_url, duration, views, likes, created_at
		FROM match_replays
		WHERE ($1::uuid IS NULL OR match_id = $1::uuid)
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, matchID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list replays: %w", err)
	}
	defer rows.Close()

	replays := make([]models.MatchReplay, 0)
	for rows.Next() {
		var rp models.MatchReplay
		if err := rows.Scan(
			&rp.ID, &rp.MatchID, &rp.Title, &rp.Description, &rp.VideoURL, &rp.ThumbnailURL,
			&rp.Duration, &rp.Views, &rp.Likes, &rp.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan replay: %w", err)
		}
		replays = append(replays, rp)
	}
	return replays, rows.Err()
}
