package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/bgmi-arena/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrMatchResultNotFound      = errors.New("match result not found")
	ErrMatchResultConflict      = errors.New("team already has a result in this match")
	ErrMatchResultPositionTaken = errors.New("position is already assigned in this match")
	ErrMatchResultInvalidRef    = errors.New("match result references an unknown match or team")
	ErrMatchResultInvalid       = errors.New("match result violates a check constraint")
)

const (
	matchResultTeamConstraint     = "match_results_match_id_team_id_key"
	matchResultPositionConstraint = "match_results_match_id_position_key"
)

type MatchResultRepository interface {
	Create(ctx context.Context, exec SQLExecutor, result *models.MatchResult) error
	GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.MatchResult, error)
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.MatchResult, error)
	// ListByMatch возвращает результаты матча вместе с командами.
	ListByMatch(ctx context.Context, exec SQLExecutor, matchID uuid.UUID) ([]models.MatchResult, error)
	Update(ctx context.Context, exec SQLExecutor, result *models.MatchResult) error
	// CountByTeam считает результаты команды в матчах с одним из статусов.
	CountByTeam(ctx context.Context, exec SQLExecutor, teamID uuid.UUID, statuses []models.MatchStatus) (int, error)
	// TournamentStandings суммирует очки и убийства по завершенным матчам турнира.
	TournamentStandings(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) ([]models.TeamStanding, error)
}

type postgresMatchResultRepository struct {
	db *sql.DB
}

func NewPostgresMatchResultRepository(db *sql.DB) MatchResultRepository {
	return &postgresMatchResultRepository{db: db}
}

func (r *postgresMatchResultRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func mapMatchResultError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMatchResultNotFound
	}
	if pqErr, ok := asPQError(err); ok {
		switch string(pqErr.Code) {
		case pqUniqueViolation:
			switch pqErr.Constraint {
			case matchResultTeamConstraint:
				return ErrMatchResultConflict
			case matchResultPositionConstraint:
				return ErrMatchResultPositionTaken
			}
		case pqForeignKeyViolation:
			return ErrMatchResultInvalidRef
		case pqCheckViolation:
			return fmt.Errorf("%w: %s", ErrMatchResultInvalid, pqErr.Constraint)
		}
	}
	return err
}

const matchResultColumns = `r.id, r.match_id, r.team_id, r.position, r.kills, r.points, r.status, r.eliminated_at, r.created_at, r.updated_at`

func scanMatchResult(row rowScanner, res *models.MatchResult) error {
	return row.Scan(
		&res.ID, &res.MatchID, &res.TeamID, &res.Position, &res.Kills, &res.Points,
		&res.Status, &res.EliminatedAt, &res.CreatedAt, &res.UpdatedAt,
	)
}

func (r *postgresMatchResultRepository) Create(ctx context.Context, exec SQLExecutor, res *models.MatchResult) error {
	query := `
		INSERT INTO match_results (match_id, team_id, position, kills, points, status, eliminated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		res.MatchID, res.TeamID, res.Position, res.Kills, res.Points, res.Status, res.EliminatedAt,
	).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create match result: %w", mapMatchResultError(err))
	}
	return nil
}

func (r *postgresMatchResultRepository) GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.MatchResult, error) {
	res := &models.MatchResult{}
	query := `SELECT ` + matchResultColumns + ` FROM match_results r WHERE r.id = $1`
	if err := scanMatchResult(r.getExecutor(exec).QueryRowContext(ctx, query, id), res); err != nil {
		return nil, mapMatchResultError(err)
	}
	return res, nil
}

func (r *postgresMatchResultRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.MatchResult, error) {
	res := &models.MatchResult{}
	query := `SELECT ` + matchResultColumns + ` FROM match_results r WHERE r.id = $1 FOR UPDATE`
	if err := scanMatchResult(r.getExecutor(exec).QueryRowContext(ctx, query, id), res); err != nil {
		return nil, mapMatchResultError(err)
	}
	return res, nil
}

func (r *postgresMatchResultRepository) ListByMatch(ctx context.Context, exec SQLExecutor, matchID uuid.UUID) ([]models.MatchResult, error) {
	query := `
		SELECT ` + matchResultColumns + `,
		       ` + teamColumns + `
		FROM match_results r
		JOIN teams t ON t.id = r.team_id
		WHERE r.match_id = $1
		ORDER BY r.created_at ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results of match %s: %w", matchID, err)
	}
	defer rows.Close()

	results := make([]models.MatchResult, 0)
	for rows.Next() {
		var res models.MatchResult
		t := &models.Team{}
		if err := rows.Scan(
			&res.ID, &res.MatchID, &res.TeamID, &res.Position, &res.Kills, &res.Points,
			&res.Status, &res.EliminatedAt, &res.CreatedAt, &res.UpdatedAt,
			&t.ID, &t.Name, &t.Tag, &t.LogoKey, &t.CaptainID, &t.TotalWins, &t.TotalEarnings, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match result: %w", err)
		}
		res.Team = t
		results = append(results, res)
	}
	return results, rows.Err()
}

func (r *postgresMatchResultRepository) Update(ctx context.Context, exec SQLExecutor, res *models.MatchResult) error {
	query := `
		UPDATE match_results SET
			position = $1,
			kills = $2,
			points = $3,
			status = $4,
			eliminated_at = $5,
			updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		res.Position, res.Kills, res.Points, res.Status, res.EliminatedAt, res.ID,
	).Scan(&res.UpdatedAt)
	if err != nil {
		return mapMatchResultError(err)
	}
	return nil
}

func (r *postgresMatchResultRepository) TournamentStandings(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) ([]models.TeamStanding, error) {
	query := `
		SELECT r.team_id,
		       COALESCE(SUM(r.points), 0) AS points,
		       COALESCE(SUM(r.kills), 0) AS kills,
		       COUNT(*) AS matches_played,
		       COUNT(*) FILTER (WHERE r.position = 1) AS wins
		FROM match_results r
		JOIN matches m ON m.id = r.match_id
		WHERE m.tournament_id = $1 AND m.status = 'completed'
		GROUP BY r.team_id
		ORDER BY points DESC, kills DESC, wins DESC, r.team_id ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute standings of tournament %s: %w", tournamentID, err)
	}
	defer rows.Close()

	standings := make([]models.TeamStanding, 0)
	for rows.Next() {
		var s models.TeamStanding
		if err := rows.Scan(&s.TeamID, &s.Points, &s.Kills, &s.MatchesPlayed, &s.Wins); err != nil {
			return nil, fmt.Errorf("failed to scan standing: %w", err)
		}
		standings = append(standings, s)
	}
	return standings, rows.Err()
}

func (r *postgresMatchResultRepository) CountByTeam(ctx context.Context, exec SQLExecutor, teamID uuid.UUID, statuses []models.MatchStatus) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM match_results r
		JOIN matches m ON m.id = r.match_id
		WHERE r.team_id = $1 AND m.status = ANY($2)`

	var count int
	if err := r.getExecutor(exec).QueryRowContext(ctx, query, teamID, pq.Array(statusStrings(statuses))).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count results of team %s: %w", teamID, err)
	}
	return count, nil
}
