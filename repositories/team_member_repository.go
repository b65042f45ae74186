package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/bgmi-arena/models"
	"github.com/google/uuid"
)

var (
	ErrTeamMemberNotFound    = errors.New("team member not found")
	ErrTeamMemberInvalidRef  = errors.New("invalid team or user reference for team member")
	ErrTeamCaptainDuplicated = errors.New("team already has a captain")
)

type TeamMemberRepository interface {
	// Add вставляет участника; повторная вставка той же пары (team, user)
	// ничего не делает и возвращает inserted == false.
	Add(ctx context.Context, exec SQLExecutor, member *models.TeamMember) (inserted bool, err error)
	Get(ctx context.Context, exec SQLExecutor, teamID, userID uuid.UUID) (*models.TeamMember, error)
	ListByTeam(ctx context.Context, exec SQLExecutor, teamID uuid.UUID) ([]models.TeamMember, error)
	ListUserIDsByTeams(ctx context.Context, exec SQLExecutor, teamIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error)
	Count(ctx context.Context, exec SQLExecutor, teamID uuid.UUID) (int, error)
	Remove(ctx context.Context, teamID, userID uuid.UUID) error
}

type postgresTeamMemberRepository struct {
	db *sql.DB
}

func NewPostgresTeamMemberRepository(db *sql.DB) TeamMemberRepository {
	return &postgresTeamMemberRepository{db: db}
}

func (r *postgresTeamMemberRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTeamMemberRepository) Add(ctx context.Context, exec SQLExecutor, m *models.TeamMember) (bool, error) {
	query := `
		INSERT INTO team_members (team_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (team_id, user_id) DO NOTHING
		RETURNING id, joined_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query, m.TeamID, m.UserID, m.Role).Scan(&m.ID, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		if pqErr, ok := asPQError(err); ok {
			switch string(pqErr.Code) {
			case pqForeignKeyViolation:
				return false, ErrTeamMemberInvalidRef
			case pqUniqueViolation:
				if pqErr.Constraint == "team_members_one_captain_idx" {
					return false, ErrTeamCaptainDuplicated
				}
			}
		}
		return false, fmt.Errorf("failed to add team member: %w", err)
	}
	return true, nil
}

func (r *postgresTeamMemberRepository) Get(ctx context.Context, exec SQLExecutor, teamID, userID uuid.UUID) (*models.TeamMember, error) {
	query := `SELECT id, team_id, user_id, role, joined_at FROM team_members WHERE team_id = $1 AND user_id = $2`

	m := &models.TeamMember{}
	err := r.getExecutor(exec).QueryRowContext(ctx, query, teamID, userID).Scan(&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamMemberNotFound
		}
		return nil, fmt.Errorf("failed to get team member: %w", err)
	}
	return m, nil
}

// ListByTeam возвращает состав команды вместе с профилями игроков, капитан первым.
func (r *postgresTeamMemberRepository) ListByTeam(ctx context.Context, exec SQLExecutor, teamID uuid.UUID) ([]models.TeamMember, error) {
	query := `
		SELECT tm.id, tm.team_id, tm.user_id, tm.role, tm.joined_at,
		       u.id, u.email, u.username, u.first_name, u.last_name, u.profile_image_url,
		       u.is_admin, u.total_points, u.tournaments_won, u.total_kills, u.created_at, u.updated_at
		FROM team_members tm
		JOIN users u ON u.id = tm.user_id
		WHERE tm.team_id = $1
		ORDER BY (tm.role = 'captain') DESC, tm.joined_at ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of team %s: %w", teamID, err)
	}
	defer rows.Close()

	members := make([]models.TeamMember, 0, models.MaxTeamMembers)
	for rows.Next() {
		var m models.TeamMember
		u := &models.User{}
		if err := rows.Scan(
			&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.JoinedAt,
			&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &u.ProfileImageURL,
			&u.IsAdmin, &u.TotalPoints, &u.TournamentsWon, &u.TotalKills, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan team member: %w", err)
		}
		m.User = u
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *postgresTeamMemberRepository) ListUserIDsByTeams(ctx context.Context, exec SQLExecutor, teamIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	result := make(map[uuid.UUID][]uuid.UUID, len(teamIDs))
	if len(teamIDs) == 0 {
		return result, nil
	}

	query := `SELECT team_id, user_id FROM team_members WHERE team_id = ANY($1::uuid[])`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, pqUUIDArray(teamIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list team rosters: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var teamID, userID uuid.UUID
		if err := rows.Scan(&teamID, &userID); err != nil {
			return nil, fmt.Errorf("failed to scan team roster entry: %w", err)
		}
		result[teamID] = append(result[teamID], userID)
	}
	return result, rows.Err()
}

func (r *postgresTeamMemberRepository) Count(ctx context.Context, exec SQLExecutor, teamID uuid.UUID) (int, error) {
	var count int
	if err := r.getExecutor(exec).QueryRowContext(ctx, `SELECT COUNT(*) FROM team_members WHERE team_id = $1`, teamID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count members of team %s: %w", teamID, err)
	}
	return count, nil
}

func (r *postgresTeamMemberRepository) Remove(ctx context.Context, teamID, userID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM team_members WHERE team_id = $1 AND user_id = $2`, teamID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove team member: %w", err)
	}
	return checkAffectedRows(result, ErrTeamMemberNotFound)
}
