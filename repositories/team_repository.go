package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/bgmi-arena/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrTeamNotFound       = errors.New("team not found")
	ErrTeamCaptainInvalid = errors.New("invalid team captain reference")
)

type TeamRepository interface {
	Create(ctx context.Context, exec SQLExecutor, team *models.Team) error
	GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Team, error)
	// GetByIDForUpdate блокирует строку команды, чтобы проверки состава шли последовательно.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Team, error)
	GetByMember(ctx context.Context, userID uuid.UUID) (*models.Team, error)
	List(ctx context.Context, limit, offset int) ([]models.Team, error)
	ListTopTeams(ctx context.Context, limit int) ([]models.Team, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Team, error)
	UpdateLogoKey(ctx context.Context, id uuid.UUID, logoKey *string) error
	Delete(ctx context.Context, exec SQLExecutor, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
	IncrementWins(ctx context.Context, exec SQLExecutor, id uuid.UUID) error
	AddEarnings(ctx context.Context, exec SQLExecutor, id uuid.UUID, amount decimal.Decimal) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const teamColumns = `t.id, t.name, t.tag, t.logo_key, t.captain_id, t.total_wins, t.total_earnings, t.created_at, t.updated_at`

func scanTeam(row rowScanner, t *models.Team) error {
	return row.Scan(&t.ID, &t.Name, &t.Tag, &t.LogoKey, &t.CaptainID, &t.TotalWins, &t.TotalEarnings, &t.CreatedAt, &t.UpdatedAt)
}

func (r *postgresTeamRepository) queryTeams(ctx context.Context, query string, args ...interface{}) ([]models.Team, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query teams: %w", err)
	}
	defer rows.Close()

	teams := make([]models.Team, 0)
	for rows.Next() {
		var t models.Team
		if err := scanTeam(rows, &t); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

func (r *postgresTeamRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Team) error {
	query := `
		INSERT INTO teams (name, tag, logo_key, captain_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, total_wins, total_earnings, created_at, updated_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query, t.Name, t.Tag, t.LogoKey, t.CaptainID).
		Scan(&t.ID, &t.TotalWins, &t.TotalEarnings, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if isViolation(err, pqForeignKeyViolation, "teams_captain_id_fkey") {
			return ErrTeamCaptainInvalid
		}
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams t WHERE t.id = $1`

	t := &models.Team{}
	if err := scanTeam(r.getExecutor(exec).QueryRowContext(ctx, query, id), t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %s: %w", id, err)
	}
	return t, nil
}

// GetByMember возвращает команду, в которую пользователь вступил раньше всего.
func (r *postgresTeamRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams t WHERE t.id = $1 FOR UPDATE`

	t := &models.Team{}
	if err := scanTeam(r.getExecutor(exec).QueryRowContext(ctx, query, id), t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to lock team %s: %w", id, err)
	}
	return t, nil
}

func (r *postgresTeamRepository) GetByMember(ctx context.Context, userID uuid.UUID) (*models.Team, error) {
	query := `
		SELECT ` + teamColumns + `
		FROM teams t
		JOIN team_members tm ON tm.team_id = t.id
		WHERE tm.user_id = $1
		ORDER BY tm.joined_at ASC
		LIMIT 1`

	t := &models.Team{}
	if err := scanTeam(r.db.QueryRowContext(ctx, query, userID), t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team of user %s: %w", userID, err)
	}
	return t, nil
}

func (r *postgresTeamRepository) List(ctx context.Context, limit, offset int) ([]models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams t ORDER BY t.total_wins DESC, t.created_at ASC LIMIT $1 OFFSET $2`
	return r.queryTeams(ctx, query, limit, offset)
}

func (r *postgresTeamRepository) ListTopTeams(ctx context.Context, limit int) ([]models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams t ORDER BY t.total_wins DESC, t.total_earnings DESC, t.created_at ASC LIMIT $1`
	return r.queryTeams(ctx, query, limit)
}

func (r *postgresTeamRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Team, error) {
	if len(ids) == 0 {
		return []models.Team{}, nil
	}
	query := `SELECT ` + teamColumns + ` FROM teams t WHERE t.id = ANY($1::uuid[])`
	return r.queryTeams(ctx, query, pqUUIDArray(ids))
}

func (r *postgresTeamRepository) UpdateLogoKey(ctx context.Context, id uuid.UUID, logoKey *string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE teams SET logo_key = $1, updated_at = NOW() WHERE id = $2`, logoKey, id)
	if err != nil {
		return fmt.Errorf("failed to update team logo: %w", err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) Delete(ctx context.Context, exec SQLExecutor, id uuid.UUID) error {
	result, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete team %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM teams`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count teams: %w", err)
	}
	return count, nil
}

func (r *postgresTeamRepository) IncrementWins(ctx context.Context, exec SQLExecutor, id uuid.UUID) error {
	result, err := r.getExecutor(exec).ExecContext(ctx, `UPDATE teams SET total_wins = total_wins + 1, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment wins of team %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) AddEarnings(ctx context.Context, exec SQLExecutor, id uuid.UUID, amount decimal.Decimal) error {
	result, err := r.getExecutor(exec).ExecContext(ctx, `UPDATE teams SET total_earnings = total_earnings + $1, updated_at = NOW() WHERE id = $2`, amount, id)
	if err != nil {
		return fmt.Errorf("failed to add earnings to team %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}
