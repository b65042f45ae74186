package services

import (
	"context"
	"fmt"

	"github.com/Dosada05/bgmi-arena/models"
	"github.com/Dosada05/bgmi-arena/repositories"
	"github.com/Dosada05/bgmi-arena/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const rankingLimit = 50

// activeTournamentStatuses are the statuses counted as "active" on the dashboard.
var activeTournamentStatuses = []models.TournamentStatus{models.TournamentStatusOpen, models.TournamentStatusLive}

type RankingService interface {
	TopPlayers(ctx context.Context) ([]models.User, error)
	TopTeams(ctx context.Context) ([]models.Team, error)
	GetStats(ctx context.Context) (*models.TournamentStats, error)
	// TournamentStandings ранжирует команды турнира по очкам завершенных матчей.
	TournamentStandings(ctx context.Context, tournamentID uuid.UUID) ([]models.TeamStanding, error)
}

type rankingService struct {
	userRepo       repositories.UserRepository
	teamRepo       repositories.TeamRepository
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	resultRepo     repositories.MatchResultRepository
	uploader       storage.FileUploader
}

func NewRankingService(
	userRepo repositories.UserRepository,
	teamRepo repositories.TeamRepository,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	resultRepo repositories.MatchResultRepository,
	uploader storage.FileUploader,
) RankingService {
	return &rankingService{
		userRepo:       userRepo,
		teamRepo:       teamRepo,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		resultRepo:     resultRepo,
		uploader:       uploader,
	}
}

func (s *rankingService) TopPlayers(ctx context.Context) ([]models.User, error) {
	users, err := s.userRepo.ListTopPlayers(ctx, rankingLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load player rankings: %w", err)
	}
	return users, nil
}

func (s *rankingService) TopTeams(ctx context.Context) ([]models.Team, error) {
	teams, err := s.teamRepo.ListTopTeams(ctx, rankingLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load team rankings: %w", err)
	}
	populateTeamLogoURLs(s.uploader, teamRefs(teams)...)
	return teams, nil
}

func (s *rankingService) GetStats(ctx context.Context) (*models.TournamentStats, error) {
	var (
		active      int
		prizePool   decimal.Decimal
		teams       int
		liveMatches int
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		active, err = s.tournamentRepo.CountByStatus(gCtx, activeTournamentStatuses)
		return err
	})
	g.Go(func() error {
		var err error
		prizePool, err = s.tournamentRepo.SumPrizePoolByStatus(gCtx, activeTournamentStatuses)
		return err
	})
	g.Go(func() error {
		var err error
		teams, err = s.teamRepo.Count(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		liveMatches, err = s.matchRepo.CountByStatus(gCtx, nil, nil, models.MatchStatusLive)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to compute platform stats: %w", err)
	}

	return &models.TournamentStats{
		ActiveTournaments: active,
		TotalPrizePool:    prizePool,
		RegisteredTeams:   teams,
		LiveMatches:       liveMatches,
	}, nil
}

func (s *rankingService) TournamentStandings(ctx context.Context, tournamentID uuid.UUID) ([]models.TeamStanding, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, mapNotFound(err, repositories.ErrTournamentNotFound, ErrTournamentNotFound)
	}

	standings, err := s.resultRepo.TournamentStandings(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	if len(standings) == 0 {
		return standings, nil
	}

	ids := make([]uuid.UUID, len(standings))
	for i, st := range standings {
		ids[i] = st.TeamID
	}
	teams, err := s.teamRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load standing teams: %w", err)
	}
	byID := make(map[uuid.UUID]*models.Team, len(teams))
	populateTeamLogoURLs(s.uploader, teamRefs(teams)...)
	for i := range teams {
		byID[teams[i].ID] = &teams[i]
	}

	for i := range standings {
		standings[i].Rank = i + 1
		standings[i].Team = byID[standings[i].TeamID]
	}
	return standings, nil
}
