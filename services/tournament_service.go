package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/bgmi-arena/models"
	"github.com/Dosada05/bgmi-arena/repositories"
	"github.com/Dosada05/bgmi-arena/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const tournamentBannerFolder = "tournaments/banners"

type CreateTournamentInput struct {
	Name        string                `json:"name"`
	Description *string               `json:"description"`
	Mode        models.TournamentMode `json:"mode"`
	Type        models.TournamentType `json:"type"`
	EntryFee    *decimal.Decimal      `json:"entry_fee"`
	PrizePool   *decimal.Decimal      `json:"prize_pool"`
	MaxTeams    int                   `json:"max_teams"`
	StartDate   *time.Time            `json:"start_date"`
	EndDate     *time.Time            `json:"end_date"`
	Rules       *string               `json:"rules"`
}

type UpdateTournamentInput struct {
	Name        *string                  `json:"name"`
	Description *string                  `json:"description"`
	Mode        *models.TournamentMode   `json:"mode"`
	Type        *models.TournamentType   `json:"type"`
	Status      *models.TournamentStatus `json:"status"`
	EntryFee    *decimal.Decimal         `json:"entry_fee"`
	PrizePool   *decimal.Decimal         `json:"prize_pool"`
	MaxTeams    *int                     `json:"max_teams"`
	StartDate   *time.Time               `json:"start_date"`
	EndDate     *time.Time               `json:"end_date"`
	Rules       *string                  `json:"rules"`
}

func (in UpdateTournamentInput) isEmpty() bool {
	return in.Name == nil && in.Description == nil && in.Mode == nil && in.Type == nil &&
		in.Status == nil && in.EntryFee == nil && in.PrizePool == nil && in.MaxTeams == nil &&
		in.StartDate == nil && in.EndDate == nil && in.Rules == nil
}

type ListTournamentsFilter struct {
	Status *models.TournamentStatus
	Limit  int
	Offset int
}

type TournamentService interface {
	CreateTournament(ctx context.Context, actor *models.User, input CreateTournamentInput) (*models.Tournament, error)
	// GetTournament возвращает турнир вместе с регистрациями и матчами.
	GetTournament(ctx context.Context, id uuid.UUID) (*models.Tournament, error)
	ListTournaments(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	// UpdateTournament меняет разрешенные поля. Переход live -> completed
	// распределяет призовой фонд и обновляет статистику победителей.
	UpdateTournament(ctx context.Context, actor *models.User, id uuid.UUID, input UpdateTournamentInput) (*models.Tournament, error)
	DeleteTournament(ctx context.Context, actor *models.User, id uuid.UUID) error
	UploadBanner(ctx context.Context, actor *models.User, id uuid.UUID, file io.Reader, contentType string) (*models.Tournament, error)
}

type tournamentService struct {
	tx               repositories.Transactor
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	matchRepo        repositories.MatchRepository
	resultRepo       repositories.MatchResultRepository
	teamRepo         repositories.TeamRepository
	memberRepo       repositories.TeamMemberRepository
	userRepo         repositories.UserRepository
	uploader         storage.FileUploader
	logger           *slog.Logger
	now              func() time.Time
}

func NewTournamentService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	matchRepo repositories.MatchRepository,
	resultRepo repositories.MatchResultRepository,
	teamRepo repositories.TeamRepository,
	memberRepo repositories.TeamMemberRepository,
	userRepo repositories.UserRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tx:               tx,
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		matchRepo:        matchRepo,
		resultRepo:       resultRepo,
		teamRepo:         teamRepo,
		memberRepo:       memberRepo,
		userRepo:         userRepo,
		uploader:         uploader,
		logger:           logger,
		now:              time.Now,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, actor *models.User, input CreateTournamentInput) (*models.Tournament, error) {
	if actor == nil {
		return nil, ErrAuthenticationFailed
	}

	input.Name = strings.TrimSpace(input.Name)
	entryFee := decimal.Zero
	if input.EntryFee != nil {
		entryFee = *input.EntryFee
	}
	prizePool := decimal.Zero
	if input.PrizePool != nil {
		prizePool = *input.PrizePool
	}

	v := newValidator()
	v.check(input.Name != "", "name", "must be provided")
	v.check(len(input.Name) <= 255, "name", "must not be more than 255 characters")
	v.check(input.Mode.IsValid(), "mode", "must be one of Solo, Duo, Squad")
	v.check(input.Type.IsValid(), "type", "must be one of Free, Paid, Invite")
	v.check(!entryFee.IsNegative(), "entry_fee", "must not be negative")
	v.check(!prizePool.IsNegative(), "prize_pool", "must not be negative")
	v.check(input.MaxTeams > 0, "max_teams", "must be greater than zero")
	v.check(input.StartDate != nil, "start_date", "must be provided")
	if input.StartDate != nil && input.EndDate != nil {
		v.check(input.EndDate.After(*input.StartDate), "end_date", "must be after start_date")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	tournament := &models.Tournament{
		Name:        input.Name,
		Description: normalizeOptional(input.Description),
		Mode:        input.Mode,
		Type:        input.Type,
		Status:      models.TournamentStatusOpen,
		EntryFee:    entryFee,
		PrizePool:   prizePool,
		MaxTeams:    input.MaxTeams,
		StartDate:   input.StartDate.UTC(),
		EndDate:     input.EndDate,
		Rules:       normalizeOptional(input.Rules),
		CreatedBy:   actor.ID,
	}

	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTournamentInvalidCreator):
			return nil, ErrUserNotFound
		case errors.Is(err, repositories.ErrTournamentInvalid):
			return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
		}
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	s.logger.InfoContext(ctx, "tournament created",
		slog.String("tournament_id", tournament.ID.String()),
		slog.String("created_by", actor.ID.String()))
	return tournament, nil
}

func (s *tournamentService) GetTournament(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, repositories.ErrTournamentNotFound, ErrTournamentNotFound)
	}

	var registrations []models.Registration
	var matches []models.Match

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		registrations, err = s.registrationRepo.ListByTournament(gCtx, id)
		if err != nil {
			return fmt.Errorf("failed to load registrations: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		matches, err = s.matchRepo.List(gCtx, repositories.ListMatchesFilter{TournamentID: &id})
		if err != nil {
			return fmt.Errorf("failed to load matches: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	populateTeamLogoURLs(s.uploader, joinedTeams(registrations, func(r *models.Registration) *models.Team { return r.Team })...)
	tournament.Registrations = registrations
	tournament.Matches = matches
	populateTournamentBannerURL(tournament, s.uploader)
	return tournament, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, fieldError("status", "must be one of open, live, completed")
	}

	tournaments, err := s.tournamentRepo.List(ctx, repositories.ListTournamentsFilter{
		Status: filter.Status,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	for i := range tournaments {
		populateTournamentBannerURL(&tournaments[i], s.uploader)
	}
	return tournaments, nil
}

func validateUpdateTournamentInput(input UpdateTournamentInput) error {
	v := newValidator()
	if input.isEmpty() {
		v.add("body", "at least one field must be provided")
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		v.check(name != "", "name", "must not be empty")
		v.check(len(name) <= 255, "name", "must not be more than 255 characters")
	}
	if input.Mode != nil {
		v.check(input.Mode.IsValid(), "mode", "must be one of Solo, Duo, Squad")
	}
	if input.Type != nil {
		v.check(input.Type.IsValid(), "type", "must be one of Free, Paid, Invite")
	}
	if input.Status != nil {
		v.check(input.Status.IsValid(), "status", "must be one of open, live, completed")
	}
	if input.EntryFee != nil {
		v.check(!input.EntryFee.IsNegative(), "entry_fee", "must not be negative")
	}
	if input.PrizePool != nil {
		v.check(!input.PrizePool.IsNegative(), "prize_pool", "must not be negative")
	}
	if input.MaxTeams != nil {
		v.check(*input.MaxTeams > 0, "max_teams", "must be greater than zero")
	}
	return v.err()
}

func (s *tournamentService) UpdateTournament(ctx context.Context, actor *models.User, id uuid.UUID, input UpdateTournamentInput) (*models.Tournament, error) {
	if err := validateUpdateTournamentInput(input); err != nil {
		return nil, err
	}

	var tournament *models.Tournament
	var completed bool
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		tournament, err = s.tournamentRepo.GetByIDForUpdate(ctx, exec, id)
		if err != nil {
			return mapNotFound(err, repositories.ErrTournamentNotFound, ErrTournamentNotFound)
		}
		if !canManageTournament(actor, tournament) {
			return ErrForbiddenOperation
		}

		current := tournament.Status
		next := current
		if input.Status != nil {
			next = *input.Status
		}
		if !isValidStatusTransition(tournamentTransitions, current, next) {
			return fmt.Errorf("%w: tournament cannot move from %s to %s", ErrInvalidTransition, current, next)
		}
		if current == models.TournamentStatusCompleted {
			return fmt.Errorf("%w: tournament is completed", ErrInvalidState)
		}

		applyTournamentFields(tournament, input)

		v := newValidator()
		v.check(tournament.MaxTeams >= tournament.CurrentTeams, "max_teams",
			fmt.Sprintf("must not be less than the %d registered teams", tournament.CurrentTeams))
		if tournament.EndDate != nil {
			v.check(tournament.EndDate.After(tournament.StartDate), "end_date", "must be after start_date")
		}
		if err := v.err(); err != nil {
			return err
		}
		tournament.Status = next

		if current == models.TournamentStatusLive && next == models.TournamentStatusCompleted {
			if err := s.completeTournament(ctx, exec, tournament); err != nil {
				return err
			}
			completed = true
		}

		if err := s.tournamentRepo.Update(ctx, exec, tournament); err != nil {
			switch {
			case errors.Is(err, repositories.ErrTournamentCapacity):
				return fieldError("max_teams", "must not be less than the registered teams")
			case errors.Is(err, repositories.ErrTournamentInvalid):
				return fmt.Errorf("%w: %v", ErrValidationFailed, err)
			}
			return fmt.Errorf("failed to update tournament %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if completed {
		s.logger.InfoContext(ctx, "tournament completed", slog.String("tournament_id", id.String()))
	}
	populateTournamentBannerURL(tournament, s.uploader)
	return tournament, nil
}

func applyTournamentFields(t *models.Tournament, input UpdateTournamentInput) {
	if input.Name != nil {
		t.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		t.Description = normalizeOptional(input.Description)
	}
	if input.Mode != nil {
		t.Mode = *input.Mode
	}
	if input.Type != nil {
		t.Type = *input.Type
	}
	if input.EntryFee != nil {
		t.EntryFee = *input.EntryFee
	}
	if input.PrizePool != nil {
		t.PrizePool = *input.PrizePool
	}
	if input.MaxTeams != nil {
		t.MaxTeams = *input.MaxTeams
	}
	if input.StartDate != nil {
		t.StartDate = input.StartDate.UTC()
	}
	if input.EndDate != nil {
		t.EndDate = input.EndDate
	}
	if input.Rules != nil {
		t.Rules = normalizeOptional(input.Rules)
	}
}

// completeTournament распределяет призовой фонд между тремя лучшими командами
// и засчитывает победу в турнире игрокам первой команды.
func (s *tournamentService) completeTournament(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) error {
	live, err := s.matchRepo.CountByStatus(ctx, exec, &t.ID, models.MatchStatusLive)
	if err != nil {
		return err
	}
	if live > 0 {
		return fmt.Errorf("%w: %d match(es) are still live", ErrInvalidState, live)
	}

	standings, err := s.resultRepo.TournamentStandings(ctx, exec, t.ID)
	if err != nil {
		return err
	}

	payouts := splitPrizePool(t.PrizePool, len(standings))
	for i, amount := range payouts {
		if err := s.teamRepo.AddEarnings(ctx, exec, standings[i].TeamID, amount); err != nil {
			return fmt.Errorf("failed to pay out place %d: %w", i+1, err)
		}
	}

	if len(standings) > 0 {
		winnerID := standings[0].TeamID
		rosters, err := s.memberRepo.ListUserIDsByTeams(ctx, exec, []uuid.UUID{winnerID})
		if err != nil {
			return err
		}
		if err := s.userRepo.IncrementTournamentsWon(ctx, exec, rosters[winnerID]); err != nil {
			return err
		}
	}

	if t.EndDate == nil {
		now := s.now().UTC()
		t.EndDate = &now
	}
	return nil
}

func (s *tournamentService) DeleteTournament(ctx context.Context, actor *models.User, id uuid.UUID) error {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return mapNotFound(err, repositories.ErrTournamentNotFound, ErrTournamentNotFound)
	}
	if !canManageTournament(actor, tournament) {
		return ErrForbiddenOperation
	}

	if err := s.tournamentRepo.Delete(ctx, id); err != nil {
		return mapNotFound(err, repositories.ErrTournamentNotFound, ErrTournamentNotFound)
	}

	if tournament.BannerKey != nil && s.uploader != nil {
		if err := s.uploader.Delete(ctx, *tournament.BannerKey); err != nil {
			s.logger.WarnContext(ctx, "failed to delete tournament banner",
				slog.String("key", *tournament.BannerKey), slog.Any("error", err))
		}
	}
	return nil
}

func (s *tournamentService) UploadBanner(ctx context.Context, actor *models.User, id uuid.UUID, file io.Reader, contentType string) (*models.Tournament, error) {
	if s.uploader == nil {
		return nil, ErrUploadsDisabled
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, repositories.ErrTournamentNotFound, ErrTournamentNotFound)
	}
	if !canManageTournament(actor, tournament) {
		return nil, ErrForbiddenOperation
	}

	ext, err := GetExtensionFromContentType(contentType)
	if err != nil {
		return nil, err
	}

	key := storage.ObjectKey(tournamentBannerFolder, id, ext, s.now())
	if _, err := s.uploader.Upload(ctx, key, contentType, file); err != nil {
		return nil, fmt.Errorf("failed to upload banner: %w", err)
	}

	if err := s.tournamentRepo.UpdateBannerKey(ctx, id, &key); err != nil {
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "failed to clean up uploaded banner",
				slog.String("key", key), slog.Any("error", delErr))
		}
		return nil, mapNotFound(err, repositories.ErrTournamentNotFound, ErrTournamentNotFound)
	}

	oldKey := tournament.BannerKey
	tournament.BannerKey = &key
	if oldKey != nil && *oldKey != key {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil {
			s.logger.WarnContext(ctx, "failed to delete previous banner",
				slog.String("key", *oldKey), slog.Any("error", err))
		}
	}

	populateTournamentBannerURL(tournament, s.uploader)
	return tournament, nil
}
