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
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchTournamentInvalid = errors.New("match tournament reference is invalid")
	ErrMatchInvalid           = errors.New("match violates a check constraint")
)

type ListMatchesFilter struct {
	TournamentID *uuid.UUID
	Status       *models.MatchStatus
}

type MatchRepository interface {
	Create(ctx context.Context, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Match, error)
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Match, error)
	List(ctx context.Context, filter ListMatchesFilter) ([]models.Match, error)
	Update(ctx context.Context, exec SQLExecutor, match *models.Match) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context, exec SQLExecutor, tournamentID *uuid.UUID, status models.MatchStatus) (int, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `id, tournament_id, name, round, status, room_id, room_password,
	start_time, end_time, current_zone, players_alive, created_at, updated_at`

func scanMatch(row rowScanner, m *models.Match) error {
	return row.Scan(
		&m.ID, &m.TournamentID, &m.Name, &m.Round, &m.Status, &m.RoomID, &m.RoomPassword,
		&m.StartTime, &m.EndTime, &m.CurrentZone, &m.PlayersAlive, &m.CreatedAt, &m.UpdatedAt,
	)
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMatchNotFound
	}
	if pqErr, ok := asPQError(err); ok {
		switch string(pqErr.Code) {
		case pqForeignKeyViolation:
			return ErrMatchTournamentInvalid
		case pqCheckViolation:
			return fmt.Errorf("%w: %s", ErrMatchInvalid, pqErr.Constraint)
		}
	}
	return err
}

func (r *postgresMatchRepository) Create(ctx context.Context, m *models.Match) error {
	query := `
		INSERT INTO matches (
			tournament_id, name, round, status, room_id, room_password,
			start_time, end_time, current_zone, players_alive
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		m.TournamentID, m.Name, m.Round, m.Status, m.RoomID, m.RoomPassword,
		m.StartTime, m.EndTime, m.CurrentZone, m.PlayersAlive,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Match, error) {
	m := &models.Match{}
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	if err := scanMatch(r.getExecutor(exec).QueryRowContext(ctx, query, id), m); err != nil {
		return nil, r.handleMatchError(err)
	}
	return m, nil
}

func (r *postgresMatchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Match, error) {
	m := &models.Match{}
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1 FOR UPDATE`
	if err := scanMatch(r.getExecutor(exec).QueryRowContext(ctx, query, id), m); err != nil {
		return nil, r.handleMatchError(err)
	}
	return m, nil
}

func (r *postgresMatchRepository) List(ctx context.Context, filter ListMatchesFilter) ([]models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE 1=1`
	args := []interface{}{}
	argID := 1

	if filter.TournamentID != nil {
		query += fmt.Sprintf(" AND tournament_id = $%d", argID)
		args = append(args, *filter.TournamentID)
		argID++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
	}
	query += " ORDER BY start_time ASC NULLS LAST, created_at ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	matches := make([]models.Match, 0)
	for rows.Next() {
		var m models.Match
		if err := scanMatch(rows, &m); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) Update(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		UPDATE matches SET
			name = $1,
			round = $2,
			status = $3,
			room_id = $4,
			room_password = $5,
			start_time = $6,
			end_time = $7,
			current_zone = $8,
			players_alive = $9,
			updated_at = NOW()
		WHERE id = $10
		RETURNING updated_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		m.Name, m.Round, m.Status, m.RoomID, m.RoomPassword,
		m.StartTime, m.EndTime, m.CurrentZone, m.PlayersAlive, m.ID,
	).Scan(&m.UpdatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete match %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

// CountByStatus считает матчи со статусом status, опционально в пределах одного турнира.
func (r *postgresMatchRepository) CountByStatus(ctx context.Context, exec SQLExecutor, tournamentID *uuid.UUID, status models.MatchStatus) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM matches WHERE status = $1 AND ($2::uuid IS NULL OR tournament_id = $2::uuid)`
	if err := r.getExecutor(exec).QueryRowContext(ctx, query, status, tournamentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return count, nil
}
