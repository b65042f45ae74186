package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/bgmi-arena/models"
	"github.com/Dosada05/bgmi-arena/repositories"
	"github.com/Dosada05/bgmi-arena/storage"
	"github.com/google/uuid"
)

type RegistrationService interface {
	// RegisterTeam регистрирует команду в турнире. Проверка статуса, вместимости,
	// вставка строки и увеличение current_teams выполняются в одной транзакции.
	RegisterTeam(ctx context.Context, tournamentID, teamID, actorID uuid.UUID) (*models.Registration, error)
	// WithdrawTeam снимает команду с открытого турнира и освобождает слот.
	WithdrawTeam(ctx context.Context, tournamentID, teamID uuid.UUID, actor *models.User) error
	ListRegistrations(ctx context.Context, tournamentID uuid.UUID) ([]models.Registration, error)
}

type registrationService struct {
	tx               repositories.Transactor
	tournamentRepo   repositories.TournamentRepository
	teamRepo         repositories.TeamRepository
	registrationRepo repositories.RegistrationRepository
	uploader         storage.FileUploader
	logger           *slog.Logger
}

func NewRegistrationService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	registrationRepo repositories.RegistrationRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) RegistrationService {
	return &registrationService{
		tx:               tx,
		tournamentRepo:   tournamentRepo,
		teamRepo:         teamRepo,
		registrationRepo: registrationRepo,
		uploader:         uploader,
		logger:           logger,
	}
}

func (s *registrationService) RegisterTeam(ctx context.Context, tournamentID, teamID, actorID uuid.UUID) (*models.Registration, error) {
	team, err := s.teamRepo.GetByID(ctx, nil, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %s: %w", teamID, err)
	}
	if team.CaptainID != actorID {
		return nil, ErrUserMustBeCaptain
	}

	reg := &models.Registration{TournamentID: tournamentID, TeamID: teamID}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return fmt.Errorf("failed to lock tournament %s: %w", tournamentID, err)
		}

		if tournament.Status != models.TournamentStatusOpen {
			return ErrRegistrationClosed
		}
		if !tournament.HasCapacity() {
			return ErrCapacityExceeded
		}

		// Уникальный индекс (tournament_id, team_id) - единственный источник правды о дубликатах.
		if err := s.registrationRepo.Create(ctx, exec, reg); err != nil {
			switch {
			case errors.Is(err, repositories.ErrRegistrationConflict):
				return ErrAlreadyRegistered
			case errors.Is(err, repositories.ErrRegistrationTeamInvalid):
				return ErrTeamNotFound
			case errors.Is(err, repositories.ErrRegistrationTournamentInvalid):
				return ErrTournamentNotFound
			}
			return err
		}

		if err := s.tournamentRepo.AdjustCurrentTeams(ctx, exec, tournamentID, 1); err != nil {
			if errors.Is(err, repositories.ErrTournamentCapacity) {
				return ErrCapacityExceeded
			}
			return fmt.Errorf("failed to increment team counter: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	populateTeamLogoURLs(s.uploader, team)
	reg.Team = team

	s.logger.InfoContext(ctx, "team registered for tournament",
		slog.String("tournament_id", tournamentID.String()),
		slog.String("team_id", teamID.String()))
	return reg, nil
}

func (s *registrationService) WithdrawTeam(ctx context.Context, tournamentID, teamID uuid.UUID, actor *models.User) error {
	team, err := s.teamRepo.GetByID(ctx, nil, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("failed to get team %s: %w", teamID, err)
	}

	return s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return fmt.Errorf("failed to lock tournament %s: %w", tournamentID, err)
		}

		if team.CaptainID != actor.ID && !canManageTournament(actor, tournament) {
			return ErrCaptainActionForbidden
		}
		if tournament.Status != models.TournamentStatusOpen {
			return ErrRegistrationClosed
		}

		if err := s.registrationRepo.Delete(ctx, exec, tournamentID, teamID); err != nil {
			if errors.Is(err, repositories.ErrRegistrationNotFound) {
				return ErrRegistrationNotFound
			}
			return err
		}

		if err := s.tournamentRepo.AdjustCurrentTeams(ctx, exec, tournamentID, -1); err != nil {
			return fmt.Errorf("failed to decrement team counter: %w", err)
		}
		return nil
	})
}

func (s *registrationService) ListRegistrations(ctx context.Context, tournamentID uuid.UUID) ([]models.Registration, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %s: %w", tournamentID, err)
	}

	registrations, err := s.registrationRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	populateTeamLogoURLs(s.uploader, joinedTeams(registrations, func(r *models.Registration) *models.Team { return r.Team })...)
	return registrations, nil
}
