package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Dosada05/bgmi-arena/models"
	"github.com/Dosada05/bgmi-arena/repositories"
	"github.com/Dosada05/bgmi-arena/storage"
	"github.com/google/uuid"
)

const teamLogoFolder = "teams/logos"

type CreateTeamInput struct {
	Name string `json:"name"`
	Tag  string `json:"tag"`
}

type TeamService interface {
	// CreateTeam создает команду и добавляет автора капитаном в одной транзакции.
	CreateTeam(ctx context.Context, actor *models.User, input CreateTeamInput) (*models.Team, error)
	GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error)
	ListTeams(ctx context.Context, limit, offset int) ([]models.Team, error)
	DeleteTeam(ctx context.Context, actor *models.User, id uuid.UUID) error
	ListMembers(ctx context.Context, teamID uuid.UUID) ([]models.TeamMember, error)
	// RemoveMember удаляет игрока из состава; это может сделать капитан или сам игрок.
	RemoveMember(ctx context.Context, actor *models.User, teamID, userID uuid.UUID) error
	// GetUserTeam возвращает первую команду пользователя или nil, если ее нет.
	GetUserTeam(ctx context.Context, userID uuid.UUID) (*models.Team, error)
	UploadLogo(ctx context.Context, actor *models.User, teamID uuid.UUID, file io.Reader, contentType string) (*models.Team, error)
}

type teamService struct {
	tx               repositories.Transactor
	teamRepo         repositories.TeamRepository
	memberRepo       repositories.TeamMemberRepository
	registrationRepo repositories.RegistrationRepository
	tournamentRepo   repositories.TournamentRepository
	resultRepo       repositories.MatchResultRepository
	uploader         storage.FileUploader
	logger           *slog.Logger
	now              func() time.Time
}

func NewTeamService(
	tx repositories.Transactor,
	teamRepo repositories.TeamRepository,
	memberRepo repositories.TeamMemberRepository,
	registrationRepo repositories.RegistrationRepository,
	tournamentRepo repositories.TournamentRepository,
	resultRepo repositories.MatchResultRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TeamService {
	return &teamService{
		tx:               tx,
		teamRepo:         teamRepo,
		memberRepo:       memberRepo,
		registrationRepo: registrationRepo,
		tournamentRepo:   tournamentRepo,
		resultRepo:       resultRepo,
		uploader:         uploader,
		logger:           logger,
		now:              time.Now,
	}
}

func (s *teamService) CreateTeam(ctx context.Context, actor *models.User, input CreateTeamInput) (*models.Team, error) {
	if actor == nil {
		return nil, ErrAuthenticationFailed
	}

	name := strings.TrimSpace(input.Name)
	tag := strings.ToUpper(strings.TrimSpace(input.Tag))

	v := newValidator()
	v.check(name != "", "name", "must be provided")
	v.check(utf8.RuneCountInString(name) <= 100, "name", "must not be more than 100 characters")
	v.check(tag != "", "tag", "must be provided")
	v.check(utf8.RuneCountInString(tag) <= 10, "tag", "must not be more than 10 characters")
	if err := v.err(); err != nil {
		return nil, err
	}

	team := &models.Team{Name: name, Tag: tag, CaptainID: actor.ID}

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.teamRepo.Create(ctx, exec, team); err != nil {
			if errors.Is(err, repositories.ErrTeamCaptainInvalid) {
				return ErrUserNotFound
			}
			return err
		}

		captain := &models.TeamMember{TeamID: team.ID, UserID: actor.ID, Role: models.TeamRoleCaptain}
		if _, err := s.memberRepo.Add(ctx, exec, captain); err != nil {
			return fmt.Errorf("failed to add captain to team: %w", err)
		}
		captain.User = actor
		team.Members = []models.TeamMember{*captain}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "team created",
		slog.String("team_id", team.ID.String()),
		slog.String("captain_id", actor.ID.String()))
	return team, nil
}

func (s *teamService) GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, repositories.ErrTeamNotFound, ErrTeamNotFound)
	}

	members, err := s.memberRepo.ListByTeam(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load members of team %s: %w", id, err)
	}
	team.Members = members
	populateTeamLogoURLs(s.uploader, team)
	return team, nil
}

func (s *teamService) ListTeams(ctx context.Context, limit, offset int) ([]models.Team, error) {
	teams, err := s.teamRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	populateTeamLogoURLs(s.uploader, teamRefs(teams)...)
	return teams, nil
}

func (s *teamService) DeleteTeam(ctx context.Context, actor *models.User, id uuid.UUID) error {
	team, err := s.teamRepo.GetByID(ctx, nil, id)
	if err != nil {
		return mapNotFound(err, repositories.ErrTeamNotFound, ErrTeamNotFound)
	}
	if actor == nil || (team.CaptainID != actor.ID && !actor.IsAdmin) {
		return ErrCaptainActionForbidden
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.deleteTeam(ctx, exec, id)
	})
	if err != nil {
		return err
	}

	if team.LogoKey != nil && s.uploader != nil {
		if err := s.uploader.Delete(ctx, *team.LogoKey); err != nil {
			s.logger.WarnContext(ctx, "failed to delete team logo",
				slog.String("key", *team.LogoKey), slog.Any("error", err))
		}
	}
	return nil
}

// deleteTeam снимает команду со всех турниров и удаляет ее. Турниры блокируются
// раньше команды, в том же порядке, что и при регистрации.
func (s *teamService) deleteTeam(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID) error {
	tournamentIDs, err := s.registrationRepo.ListTournamentIDsByTeam(ctx, exec, id)
	if err != nil {
		return err
	}
	locked := make(map[uuid.UUID]bool, len(tournamentIDs))
	lockTournaments := func(ids []uuid.UUID) error {
		for _, tid := range ids {
			if locked[tid] {
				continue
			}
			tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tid)
			if err != nil {
				return fmt.Errorf("failed to lock tournament %s: %w", tid, err)
			}
			if tournament.Status == models.TournamentStatusLive {
				return fmt.Errorf("%w: team is playing in a live tournament", ErrInvalidState)
			}
			locked[tid] = true
		}
		return nil
	}
	if err := lockTournaments(tournamentIDs); err != nil {
		return err
	}

	if _, err := s.teamRepo.GetByIDForUpdate(ctx, exec, id); err != nil {
		return mapNotFound(err, repositories.ErrTeamNotFound, ErrTeamNotFound)
	}
	// Регистрации, закоммиченные до блокировки команды.
	tournamentIDs, err = s.registrationRepo.ListTournamentIDsByTeam(ctx, exec, id)
	if err != nil {
		return err
	}
	if err := lockTournaments(tournamentIDs); err != nil {
		return err
	}

	played, err := s.resultRepo.CountByTeam(ctx, exec, id, []models.MatchStatus{models.MatchStatusLive, models.MatchStatusCompleted})
	if err != nil {
		return err
	}
	if played > 0 {
		return fmt.Errorf("%w: team has results in started matches", ErrInvalidState)
	}

	for _, tid := range tournamentIDs {
		if err := s.registrationRepo.Delete(ctx, exec, tid, id); err != nil {
			return fmt.Errorf("failed to withdraw team from tournament %s: %w", tid, err)
		}
		if err := s.tournamentRepo.AdjustCurrentTeams(ctx, exec, tid, -1); err != nil {
			return fmt.Errorf("failed to decrement team counter: %w", err)
		}
	}

	if err := s.teamRepo.Delete(ctx, exec, id); err != nil {
		return mapNotFound(err, repositories.ErrTeamNotFound, ErrTeamNotFound)
	}
	return nil
}

func (s *teamService) ListMembers(ctx context.Context, teamID uuid.UUID) ([]models.TeamMember, error) {
	if _, err := s.teamRepo.GetByID(ctx, nil, teamID); err != nil {
		return nil, mapNotFound(err, repositories.ErrTeamNotFound, ErrTeamNotFound)
	}
	members, err := s.memberRepo.ListByTeam(ctx, nil, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of team %s: %w", teamID, err)
	}
	return members, nil
}

func (s *teamService) RemoveMember(ctx context.Context, actor *models.User, teamID, userID uuid.UUID) error {
	team, err := s.teamRepo.GetByID(ctx, nil, teamID)
	if err != nil {
		return mapNotFound(err, repositories.ErrTeamNotFound, ErrTeamNotFound)
	}
	if actor == nil || (actor.ID != team.CaptainID && actor.ID != userID) {
		return ErrCaptainActionForbidden
	}
	if userID == team.CaptainID {
		return ErrCannotRemoveCaptain
	}

	if err := s.memberRepo.Remove(ctx, teamID, userID); err != nil {
		return mapNotFound(err, repositories.ErrTeamMemberNotFound, ErrTeamMemberNotFound)
	}
	return nil
}

func (s *teamService) GetUserTeam(ctx context.Context, userID uuid.UUID) (*models.Team, error) {
	team, err := s.teamRepo.GetByMember(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, nil
		}
		return nil, err
	}

	members, err := s.memberRepo.ListByTeam(ctx, nil, team.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load members of team %s: %w", team.ID, err)
	}
	team.Members = members
	populateTeamLogoURLs(s.uploader, team)
	return team, nil
}

func (s *teamService) UploadLogo(ctx context.Context, actor *models.User, teamID uuid.UUID, file io.Reader, contentType string) (*models.Team, error) {
	if s.uploader == nil {
		return nil, ErrUploadsDisabled
	}

	team, err := s.teamRepo.GetByID(ctx, nil, teamID)
	if err != nil {
		return nil, mapNotFound(err, repositories.ErrTeamNotFound, ErrTeamNotFound)
	}
	if actor == nil || team.CaptainID != actor.ID {
		return nil, ErrCaptainActionForbidden
	}

	ext, err := GetExtensionFromContentType(contentType)
	if err != nil {
		return nil, err
	}

	key := storage.ObjectKey(teamLogoFolder, teamID, ext, s.now())
	if _, err := s.uploader.Upload(ctx, key, contentType, file); err != nil {
		return nil, fmt.Errorf("failed to upload team logo: %w", err)
	}

	if err := s.teamRepo.UpdateLogoKey(ctx, teamID, &key); err != nil {
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "failed to clean up uploaded logo",
				slog.String("key", key), slog.Any("error", delErr))
		}
		return nil, mapNotFound(err, repositories.ErrTeamNotFound, ErrTeamNotFound)
	}

	oldKey := team.LogoKey
	team.LogoKey = &key
	if oldKey != nil && *oldKey != key {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil {
			s.logger.WarnContext(ctx, "failed to delete previous team logo",
				slog.String("key", *oldKey), slog.Any("error", err))
		}
	}

	populateTeamLogoURLs(s.uploader, team)
	return team, nil
}
