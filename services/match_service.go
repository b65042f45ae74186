package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Dosada05/bgmi-arena/models"
	"github.com/Dosada05/bgmi-arena/repositories"
	"github.com/Dosada05/bgmi-arena/storage"
	"github.com/google/uuid"
)

type CreateMatchInput struct {
	TournamentID uuid.UUID         `json:"tournament_id"`
	Name         string            `json:"name"`
	Round        models.MatchRound `json:"round"`
	RoomID       *string           `json:"room_id"`
	RoomPassword *string           `json:"room_password"`
	StartTime    *time.Time        `json:"start_time"`
	PlayersAlive *int              `json:"players_alive"`
}

// UpdateMatchInput перечисляет все изменяемые поля матча; остальные поля менять нельзя.
type UpdateMatchInput struct {
	Name         *string             `json:"name"`
	Round        *models.MatchRound  `json:"round"`
	Status       *models.MatchStatus `json:"status"`
	RoomID       *string             `json:"room_id"`
	RoomPassword *string             `json:"room_password"`
	StartTime    *time.Time          `json:"start_time"`
	EndTime      *time.Time          `json:"end_time"`
	CurrentZone  *int                `json:"current_zone"`
	PlayersAlive *int                `json:"players_alive"`
}

func (in UpdateMatchInput) isEmpty() bool {
	return in.Name == nil && in.Round == nil && in.Status == nil && in.RoomID == nil &&
		in.RoomPassword == nil && in.StartTime == nil && in.EndTime == nil &&
		in.CurrentZone == nil && in.PlayersAlive == nil
}

type CreateMatchResultInput struct {
	TeamID uuid.UUID `json:"team_id"`
	Kills  *int      `json:"kills"`
}

type EliminateInput struct {
	Position     *int       `json:"position"`
	EliminatedAt *time.Time `json:"eliminated_at"`
}

// UpdateMatchResultInput is the PATCH body for a match result.
// Status "eliminated" runs the elimination; Position and EliminatedAt only apply to it.
type UpdateMatchResultInput struct {
	Kills        *int                 `json:"kills"`
	Status       *models.ResultStatus `json:"status"`
	Position     *int                 `json:"position"`
	EliminatedAt *time.Time           `json:"eliminated_at"`
}

type ListMatchesFilter struct {
	TournamentID *uuid.UUID
	Status       *models.MatchStatus
}

type MatchService interface {
	CreateMatch(ctx context.Context, actor *models.User, input CreateMatchInput) (*models.Match, error)
	GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error)
	ListMatches(ctx context.Context, filter ListMatchesFilter) ([]models.Match, error)
	// UpdateMatch применяет разрешенные поля; смена статуса проходит через
	// scheduled -> live -> completed, а переход в completed подводит итоги матча.
	UpdateMatch(ctx context.Context, actor *models.User, id uuid.UUID, input UpdateMatchInput) (*models.Match, error)
	DeleteMatch(ctx context.Context, actor *models.User, id uuid.UUID) error

	CreateMatchResult(ctx context.Context, actor *models.User, matchID uuid.UUID, input CreateMatchResultInput) (*models.MatchResult, error)
	// ListMatchResults возвращает таблицу матча: живые команды по убийствам,
	// затем выбывшие по месту.
	ListMatchResults(ctx context.Context, matchID uuid.UUID) ([]models.MatchResult, error)
	UpdateMatchResult(ctx context.Context, actor *models.User, resultID uuid.UUID, input UpdateMatchResultInput) (*models.MatchResult, error)
	EliminateTeam(ctx context.Context, actor *models.User, resultID uuid.UUID, input EliminateInput) (*models.MatchResult, error)
	UpdateKills(ctx context.Context, actor *models.User, resultID uuid.UUID, kills int) (*models.MatchResult, error)
}

type matchService struct {
	tx               repositories.Transactor
	matchRepo        repositories.MatchRepository
	resultRepo       repositories.MatchResultRepository
	tournamentRepo   repositories.TournamentRepository
	teamRepo         repositories.TeamRepository
	memberRepo       repositories.TeamMemberRepository
	userRepo         repositories.UserRepository
	registrationRepo repositories.RegistrationRepository
	chatRepo         repositories.ChatRepository
	uploader         storage.FileUploader
	logger           *slog.Logger
	now              func() time.Time
}

func NewMatchService(
	tx repositories.Transactor,
	matchRepo repositories.MatchRepository,
	resultRepo repositories.MatchResultRepository,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	memberRepo repositories.TeamMemberRepository,
	userRepo repositories.UserRepository,
	registrationRepo repositories.RegistrationRepository,
	chatRepo repositories.ChatRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		tx:               tx,
		matchRepo:        matchRepo,
		resultRepo:       resultRepo,
		tournamentRepo:   tournamentRepo,
		teamRepo:         teamRepo,
		memberRepo:       memberRepo,
		userRepo:         userRepo,
		registrationRepo: registrationRepo,
		chatRepo:         chatRepo,
		uploader:         uploader,
		logger:           logger,
		now:              time.Now,
	}
}

// --- Матчи ---

func (s *matchService) CreateMatch(ctx context.Context, actor *models.User, input CreateMatchInput) (*models.Match, error) {
	v := newValidator()
	input.Name = strings.TrimSpace(input.Name)
	v.check(input.TournamentID != uuid.Nil, "tournament_id", "must be provided")
	v.check(input.Name != "", "name", "must be provided")
	v.check(len(input.Name) <= 255, "name", "must not be more than 255 characters")
	v.check(input.Round.IsValid(), "round", "must be one of qualifier, semi, final")
	if input.PlayersAlive != nil {
		v.check(*input.PlayersAlive >= 0, "players_alive", "must not be negative")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, nil, input.TournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %s: %w", input.TournamentID, err)
	}
	if !canManageTournament(actor, tournament) {
		return nil, ErrForbiddenOperation
	}
	if tournament.Status == models.TournamentStatusCompleted {
		return nil, fmt.Errorf("%w: tournament is completed", ErrInvalidState)
	}

	match := &models.Match{
		TournamentID: tournament.ID,
		Name:         input.Name,
		Round:        input.Round,
		Status:       models.MatchStatusScheduled,
		RoomID:       normalizeOptional(input.RoomID),
		RoomPassword: normalizeOptional(input.RoomPassword),
		StartTime:    input.StartTime,
		CurrentZone:  1,
	}
	if input.PlayersAlive != nil {
		match.PlayersAlive = *input.PlayersAlive
	}

	if err := s.matchRepo.Create(ctx, match); err != nil {
		if errors.Is(err, repositories.ErrMatchTournamentInvalid) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	return match, nil
}

func (s *matchService) GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapMatchErr(err)
	}
	return match, nil
}

func (s *matchService) ListMatches(ctx context.Context, filter ListMatchesFilter) ([]models.Match, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, fieldError("status", "must be one of scheduled, live, completed")
	}
	if filter.TournamentID != nil {
		if _, err := s.tournamentRepo.GetByID(ctx, nil, *filter.TournamentID); err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return nil, ErrTournamentNotFound
			}
			return nil, fmt.Errorf("failed to get tournament %s: %w", *filter.TournamentID, err)
		}
	}

	matches, err := s.matchRepo.List(ctx, repositories.ListMatchesFilter{
		TournamentID: filter.TournamentID,
		Status:       filter.Status,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return matches, nil
}

func validateUpdateMatchInput(input UpdateMatchInput) error {
	v := newValidator()
	if input.isEmpty() {
		v.add("body", "at least one field must be provided")
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		v.check(name != "", "name", "must not be empty")
		v.check(len(name) <= 255, "name", "must not be more than 255 characters")
	}
	if input.Round != nil {
		v.check(input.Round.IsValid(), "round", "must be one of qualifier, semi, final")
	}
	if input.Status != nil {
		v.check(input.Status.IsValid(), "status", "must be one of scheduled, live, completed")
	}
	if input.CurrentZone != nil {
		v.check(*input.CurrentZone >= 1, "current_zone", "must be at least 1")
	}
	if input.PlayersAlive != nil {
		v.check(*input.PlayersAlive >= 0, "players_alive", "must not be negative")
	}
	return v.err()
}

func (s *matchService) UpdateMatch(ctx context.Context, actor *models.User, id uuid.UUID, input UpdateMatchInput) (*models.Match, error) {
	if err := validateUpdateMatchInput(input); err != nil {
		return nil, err
	}

	var match *models.Match
	var completed bool
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		match, err = s.matchRepo.GetByIDForUpdate(ctx, exec, id)
		if err != nil {
			return mapMatchErr(err)
		}
		tournament, err := s.tournamentRepo.GetByID(ctx, exec, match.TournamentID)
		if err != nil {
			return fmt.Errorf("failed to get tournament of match %s: %w", id, err)
		}
		if !canManageTournament(actor, tournament) {
			return ErrForbiddenOperation
		}

		current := match.Status
		next := current
		if input.Status != nil {
			next = *input.Status
		}
		if !isValidStatusTransition(matchTransitions, current, next) {
			return fmt.Errorf("%w: match cannot move from %s to %s", ErrInvalidTransition, current, next)
		}
		if current == models.MatchStatusCompleted {
			return fmt.Errorf("%w: match is completed", ErrInvalidState)
		}
		if next != current && tournament.Status == models.TournamentStatusCompleted {
			return fmt.Errorf("%w: tournament is completed", ErrInvalidState)
		}

		applyMatchFields(match, input)

		now := s.now().UTC()
		if current == models.MatchStatusScheduled && next == models.MatchStatusLive && match.StartTime == nil {
			match.StartTime = &now
		}
		if match.StartTime != nil && match.EndTime != nil && match.EndTime.Before(*match.StartTime) {
			return fieldError("end_time", "must not be before start_time")
		}
		match.Status = next

		if current == models.MatchStatusLive && next == models.MatchStatusCompleted {
			if err := s.completeMatch(ctx, exec, match, now); err != nil {
				return err
			}
			completed = true
		}

		if err := s.matchRepo.Update(ctx, exec, match); err != nil {
			if errors.Is(err, repositories.ErrMatchInvalid) {
				return fmt.Errorf("%w: %v", ErrValidationFailed, err)
			}
			return fmt.Errorf("failed to update match %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if completed {
		s.logger.InfoContext(ctx, "match completed", slog.String("match_id", id.String()))
	}
	return match, nil
}

func applyMatchFields(match *models.Match, input UpdateMatchInput) {
	if input.Name != nil {
		match.Name = strings.TrimSpace(*input.Name)
	}
	if input.Round != nil {
		match.Round = *input.Round
	}
	if input.RoomID != nil {
		match.RoomID = normalizeOptional(input.RoomID)
	}
	if input.RoomPassword != nil {
		match.RoomPassword = normalizeOptional(input.RoomPassword)
	}
	if input.StartTime != nil {
		match.StartTime = input.StartTime
	}
	if input.EndTime != nil {
		match.EndTime = input.EndTime
	}
	if input.CurrentZone != nil {
		match.CurrentZone = *input.CurrentZone
	}
	if input.PlayersAlive != nil {
		match.PlayersAlive = *input.PlayersAlive
	}
}

// completeMatch подводит итоги матча внутри транзакции exec: выжившие команды
// занимают свободные места по убийствам, начисляются очки, победа и статистика игроков.
func (s *matchService) completeMatch(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, now time.Time) error {
	results, err := s.resultRepo.ListByMatch(ctx, exec, match.ID)
	if err != nil {
		return fmt.Errorf("failed to load results of match %s: %w", match.ID, err)
	}
	if len(results) == 0 {
		return fmt.Errorf("%w: match has no results", ErrInvalidState)
	}

	if err := finalizePlacements(results); err != nil {
		return err
	}

	teamIDs := make([]uuid.UUID, 0, len(results))
	var winner *models.MatchResult
	for i := range results {
		res := &results[i]
		if err := s.resultRepo.Update(ctx, exec, res); err != nil {
			return mapMatchResultErr(err)
		}
		teamIDs = append(teamIDs, res.TeamID)
		if *res.Position == 1 {
			winner = res
		}
	}

	if err := s.teamRepo.IncrementWins(ctx, exec, winner.TeamID); err != nil {
		return fmt.Errorf("failed to record win: %w", err)
	}

	rosters, err := s.memberRepo.ListUserIDsByTeams(ctx, exec, teamIDs)
	if err != nil {
		return err
	}
	for _, res := range results {
		if err := s.userRepo.AddMatchStats(ctx, exec, rosters[res.TeamID], res.Points, res.Kills); err != nil {
			return err
		}
	}

	if match.EndTime == nil {
		match.EndTime = &now
	}
	match.PlayersAlive = 0

	return s.postSystemMessage(ctx, exec, match.ID, fmt.Sprintf("Match completed. Winner: %s", teamDisplayName(winner.Team, winner.TeamID)))
}

// finalizePlacements assigns the free positions to surviving teams (most kills
// first), checks that positions form exactly 1..N and computes points.
func finalizePlacements(results []models.MatchResult) error {
	n := len(results)
	used := make(map[int]bool, n)
	alive := make([]int, 0, n)

	for i, res := range results {
		if res.Status == models.ResultEliminated {
			if res.Position == nil {
				return fmt.Errorf("%w: eliminated team %s has no position", ErrInvalidState, res.TeamID)
			}
			p := *res.Position
			if p < 1 || p > n || used[p] {
				return fmt.Errorf("%w: positions do not form 1..%d", ErrInvalidState, n)
			}
			used[p] = true
			continue
		}
		alive = append(alive, i)
	}

	sort.SliceStable(alive, func(a, b int) bool {
		ra, rb := results[alive[a]], results[alive[b]]
		if ra.Kills != rb.Kills {
			return ra.Kills > rb.Kills
		}
		return ra.TeamID.String() < rb.TeamID.String()
	})

	next := 1
	for _, idx := range alive {
		for used[next] {
			next++
		}
		p := next
		used[p] = true
		results[idx].Position = &p
	}

	for i := range results {
		results[i].Points = matchPoints(*results[i].Position, results[i].Kills)
	}
	return nil
}

func (s *matchService) DeleteMatch(ctx context.Context, actor *models.User, id uuid.UUID) error {
	match, err := s.matchRepo.GetByID(ctx, nil, id)
	if err != nil {
		return mapMatchErr(err)
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, match.TournamentID)
	if err != nil {
		return fmt.Errorf("failed to get tournament of match %s: %w", id, err)
	}
	if !canManageTournament(actor, tournament) {
		return ErrForbiddenOperation
	}
	if err := s.matchRepo.Delete(ctx, id); err != nil {
		return mapMatchErr(err)
	}
	return nil
}

// --- Результаты ---

func (s *matchService) CreateMatchResult(ctx context.Context, actor *models.User, matchID uuid.UUID, input CreateMatchResultInput) (*models.MatchResult, error) {
	v := newValidator()
	v.check(input.TeamID != uuid.Nil, "team_id", "must be provided")
	if input.Kills != nil {
		v.check(*input.Kills >= 0, "kills", "must not be negative")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	result := &models.MatchResult{
		MatchID: matchID,
		TeamID:  input.TeamID,
		Status:  models.ResultAlive,
	}
	if input.Kills != nil {
		result.Kills = *input.Kills
	}

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		match, err := s.lockManagedMatch(ctx, exec, actor, matchID)
		if err != nil {
			return err
		}
		// Состав лобби фиксируется при старте матча: N для мест не меняется после первого выбывания.
		if match.Status != models.MatchStatusScheduled {
			return fmt.Errorf("%w: results can only be added before the match starts", ErrInvalidState)
		}

		registered, err := s.registrationRepo.Exists(ctx, exec, match.TournamentID, input.TeamID)
		if err != nil {
			return err
		}
		if !registered {
			return ErrTeamNotRegistered
		}

		if err := s.resultRepo.Create(ctx, exec, result); err != nil {
			return mapMatchResultErr(err)
		}

		team, err := s.teamRepo.GetByID(ctx, exec, input.TeamID)
		if err != nil {
			return fmt.Errorf("failed to load team %s: %w", input.TeamID, err)
		}
		populateTeamLogoURLs(s.uploader, team)
		result.Team = team
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *matchService) ListMatchResults(ctx context.Context, matchID uuid.UUID) ([]models.MatchResult, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, mapMatchErr(err)
	}

	results, err := s.resultRepo.ListByMatch(ctx, nil, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results of match %s: %w", matchID, err)
	}
	populateTeamLogoURLs(s.uploader, joinedTeams(results, func(r *models.MatchResult) *models.Team { return r.Team })...)
	sortLeaderboard(results, match.Status == models.MatchStatusCompleted)
	return results, nil
}

// sortLeaderboard orders a finished match by position. While the match is
// running, alive teams come first by kills, then eliminated teams by position.
func sortLeaderboard(results []models.MatchResult, finished bool) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if !finished {
			aAlive, bAlive := a.Status == models.ResultAlive, b.Status == models.ResultAlive
			if aAlive != bAlive {
				return aAlive
			}
			if aAlive {
				if a.Kills != b.Kills {
					return a.Kills > b.Kills
				}
				return a.TeamID.String() < b.TeamID.String()
			}
		}
		switch {
		case a.Position != nil && b.Position != nil && *a.Position != *b.Position:
			return *a.Position < *b.Position
		case a.Position != nil && b.Position == nil:
			return true
		case a.Position == nil && b.Position != nil:
			return false
		}
		return a.TeamID.String() < b.TeamID.String()
	})
}

func validateUpdateMatchResultInput(input UpdateMatchResultInput) error {
	v := newValidator()
	if input.Kills == nil && input.Status == nil && input.Position == nil && input.EliminatedAt == nil {
		v.add("body", "at least one field must be provided")
	}
	if input.Kills != nil {
		v.check(*input.Kills >= 0, "kills", "must not be negative")
	}
	if input.Status != nil {
		v.check(input.Status.IsValid(), "status", "must be one of alive, eliminated")
	}
	eliminating := input.Status != nil && *input.Status == models.ResultEliminated
	if input.Position != nil && !eliminating {
		v.add("position", "can only be set together with status eliminated")
	}
	if input.EliminatedAt != nil && !eliminating {
		v.add("eliminated_at", "can only be set together with status eliminated")
	}
	return v.err()
}

func (s *matchService) UpdateMatchResult(ctx context.Context, actor *models.User, resultID uuid.UUID, input UpdateMatchResultInput) (*models.MatchResult, error) {
	if err := validateUpdateMatchResultInput(input); err != nil {
		return nil, err
	}

	var result *models.MatchResult
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		match, res, err := s.lockResult(ctx, exec, actor, resultID)
		if err != nil {
			return err
		}
		result = res

		if input.Kills != nil {
			if err := s.applyKills(ctx, exec, match, result, *input.Kills); err != nil {
				return err
			}
		}

		if input.Status != nil {
			switch *input.Status {
			case models.ResultEliminated:
				if err := s.eliminate(ctx, exec, match, result, EliminateInput{Position: input.Position, EliminatedAt: input.EliminatedAt}); err != nil {
					return err
				}
			case models.ResultAlive:
				if result.Status != models.ResultAlive {
					return fmt.Errorf("%w: an eliminated team cannot become alive again", ErrInvalidTransition)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *matchService) EliminateTeam(ctx context.Context, actor *models.User, resultID uuid.UUID, input EliminateInput) (*models.MatchResult, error) {
	var result *models.MatchResult
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		match, res, err := s.lockResult(ctx, exec, actor, resultID)
		if err != nil {
			return err
		}
		result = res
		return s.eliminate(ctx, exec, match, result, input)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *matchService) UpdateKills(ctx context.Context, actor *models.User, resultID uuid.UUID, kills int) (*models.MatchResult, error) {
	if kills < 0 {
		return nil, fieldError("kills", "must not be negative")
	}

	var result *models.MatchResult
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		match, res, err := s.lockResult(ctx, exec, actor, resultID)
		if err != nil {
			return err
		}
		result = res
		return s.applyKills(ctx, exec, match, result, kills)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// lockResult блокирует матч, затем результат (всегда в этом порядке) и проверяет права.
func (s *matchService) lockResult(ctx context.Context, exec repositories.SQLExecutor, actor *models.User, resultID uuid.UUID) (*models.Match, *models.MatchResult, error) {
	unlocked, err := s.resultRepo.GetByID(ctx, exec, resultID)
	if err != nil {
		return nil, nil, mapMatchResultErr(err)
	}
	match, err := s.lockManagedMatch(ctx, exec, actor, unlocked.MatchID)
	if err != nil {
		return nil, nil, err
	}
	result, err := s.resultRepo.GetByIDForUpdate(ctx, exec, resultID)
	if err != nil {
		return nil, nil, mapMatchResultErr(err)
	}
	return match, result, nil
}

func (s *matchService) lockManagedMatch(ctx context.Context, exec repositories.SQLExecutor, actor *models.User, matchID uuid.UUID) (*models.Match, error) {
	match, err := s.matchRepo.GetByIDForUpdate(ctx, exec, matchID)
	if err != nil {
		return nil, mapMatchErr(err)
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, exec, match.TournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament of match %s: %w", matchID, err)
	}
	if !canManageTournament(actor, tournament) {
		return nil, ErrForbiddenOperation
	}
	return match, nil
}

func (s *matchService) applyKills(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, result *models.MatchResult, kills int) error {
	if match.Status == models.MatchStatusCompleted {
		return fmt.Errorf("%w: match is completed", ErrInvalidState)
	}
	if result.Status != models.ResultAlive {
		return fmt.Errorf("%w: kills can only change while the team is alive", ErrInvalidState)
	}
	if kills < result.Kills {
		return fieldError("kills", fmt.Sprintf("must not decrease (current %d)", result.Kills))
	}
	if kills == result.Kills {
		return nil
	}

	result.Kills = kills
	if err := s.resultRepo.Update(ctx, exec, result); err != nil {
		return mapMatchResultErr(err)
	}
	return nil
}

// eliminate переводит результат alive -> eliminated. Без явной позиции команда
// получает худшее свободное место в 1..N.
func (s *matchService) eliminate(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, result *models.MatchResult, input EliminateInput) error {
	if match.Status != models.MatchStatusLive {
		return fmt.Errorf("%w: teams can only be eliminated in a live match", ErrInvalidState)
	}
	if result.Status != models.ResultAlive {
		return fmt.Errorf("%w: team is already eliminated", ErrInvalidState)
	}

	results, err := s.resultRepo.ListByMatch(ctx, exec, match.ID)
	if err != nil {
		return fmt.Errorf("failed to load results of match %s: %w", match.ID, err)
	}
	n := len(results)
	taken := make(map[int]bool, n)
	var team *models.Team
	for _, other := range results {
		if other.ID == result.ID {
			team = other.Team
			continue
		}
		if other.Position != nil {
			taken[*other.Position] = true
		}
	}

	var position int
	if input.Position != nil {
		position = *input.Position
		if position < 1 || position > n {
			return fieldError("position", fmt.Sprintf("must be between 1 and %d", n))
		}
		if taken[position] {
			return ErrPositionTaken
		}
	} else {
		for p := n; p >= 1; p-- {
			if !taken[p] {
				position = p
				break
			}
		}
		if position == 0 {
			return fmt.Errorf("%w: no free position left", ErrInvalidState)
		}
	}

	eliminatedAt := s.now().UTC()
	if input.EliminatedAt != nil {
		eliminatedAt = input.EliminatedAt.UTC()
	}

	result.Status = models.ResultEliminated
	result.Position = &position
	result.EliminatedAt = &eliminatedAt
	if err := s.resultRepo.Update(ctx, exec, result); err != nil {
		return mapMatchResultErr(err)
	}
	populateTeamLogoURLs(s.uploader, team)
	result.Team = team

	return s.postSystemMessage(ctx, exec, match.ID, fmt.Sprintf("%s eliminated at #%d with %d kills", teamDisplayName(team, result.TeamID), position, result.Kills))
}

func (s *matchService) postSystemMessage(ctx context.Context, exec repositories.SQLExecutor, matchID uuid.UUID, text string) error {
	msg := &models.ChatMessage{MatchID: matchID, Message: text, Type: models.ChatTypeSystem}
	if err := s.chatRepo.Create(ctx, exec, msg); err != nil {
		return fmt.Errorf("failed to post system message: %w", err)
	}
	return nil
}

func teamDisplayName(team *models.Team, id uuid.UUID) string {
	if team == nil {
		return "Team " + id.String()
	}
	if team.Tag != "" {
		return fmt.Sprintf("[%s] %s", team.Tag, team.Name)
	}
	return team.Name
}

func mapMatchErr(err error) error {
	if errors.Is(err, repositories.ErrMatchNotFound) {
		return ErrMatchNotFound
	}
	return err
}

func mapMatchResultErr(err error) error {
	switch {
	case errors.Is(err, repositories.ErrMatchResultNotFound):
		return ErrMatchResultNotFound
	case errors.Is(err, repositories.ErrMatchResultConflict):
		return ErrMatchResultConflict
	case errors.Is(err, repositories.ErrMatchResultPositionTaken):
		return ErrPositionTaken
	case errors.Is(err, repositories.ErrMatchResultInvalidRef):
		return ErrTeamNotFound
	case errors.Is(err, repositories.ErrMatchResultInvalid):
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return err
}
