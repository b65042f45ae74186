package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/Dosada05/bgmi-arena/models"
	"github.com/Dosada05/bgmi-arena/repositories"
	"github.com/google/uuid"
)

const replayListLimit = 50

type CreateReplayInput struct {
	MatchID      uuid.UUID `json:"match_id"`
	Title        string    `json:"title"`
	Description  *string   `json:"description"`
	VideoURL     string    `json:"video_url"`
	ThumbnailURL *string   `json:"thumbnail_url"`
	Duration     *int      `json:"duration"`
}

type ReplayService interface {
	ListReplays(ctx context.Context, matchID *uuid.UUID) ([]models.MatchReplay, error)
	CreateReplay(ctx context.Context, actor *models.User, input CreateReplayInput) (*models.MatchReplay, error)
}

type replayService struct {
	replayRepo     repositories.ReplayRepository
	matchRepo      repositories.MatchRepository
	tournamentRepo repositories.TournamentRepository
}

func NewReplayService(
	replayRepo repositories.ReplayRepository,
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
) ReplayService {
	return &replayService{replayRepo: replayRepo, matchRepo: matchRepo, tournamentRepo: tournamentRepo}
}

func (s *replayService) ListReplays(ctx context.Context, matchID *uuid.UUID) ([]models.MatchReplay, error) {
	replays, err := s.replayRepo.List(ctx, matchID, replayListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list replays: %w", err)
	}
	return replays, nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (s *replayService) CreateReplay(ctx context.Context, actor *models.User, input CreateReplayInput) (*models.MatchReplay, error) {
	title := strings.TrimSpace(input.Title)
	videoURL := strings.TrimSpace(input.VideoURL)
	thumbnail := normalizeOptional(input.ThumbnailURL)

	v := newValidator()
	v.check(input.MatchID != uuid.Nil, "match_id", "must be provided")
	v.check(title != "", "title", "must be provided")
	v.check(len(title) <= 255, "title", "must not be more than 255 characters")
	v.check(isHTTPURL(videoURL), "video_url", "must be an absolute http(s) URL")
	if thumbnail != nil {
		v.check(isHTTPURL(*thumbnail), "thumbnail_url", "must be an absolute http(s) URL")
	}
	if input.Duration != nil {
		v.check(*input.Duration >= 0, "duration", "must not be negative")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	match, err := s.matchRepo.GetByID(ctx, nil, input.MatchID)
	if err != nil {
		return nil, mapMatchErr(err)
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, match.TournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament of match %s: %w", match.ID, err)
	}
	if !canManageTournament(actor, tournament) {
		return nil, ErrForbiddenOperation
	}

	replay := &models.MatchReplay{
		MatchID:      input.MatchID,
		Title:        title,
		Description:  normalizeOptional(input.Description),
		VideoURL:     videoURL,
		ThumbnailURL: thumbnail,
		Duration:     input.Duration,
	}
	if err := s.replayRepo.Create(ctx, replay); err != nil {
		if errors.Is(err, repositories.ErrReplayMatchInvalid) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return replay, nil
}
