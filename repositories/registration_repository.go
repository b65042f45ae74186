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
	ErrRegistrationNotFound          = errors.New("registration not found")
	ErrRegistrationConflict          = errors.New("team is already registered for this tournament")
	ErrRegistrationTeamInvalid       = errors.New("registration team reference is invalid")
	ErrRegistrationTournamentInvalid = errors.New("registration tournament reference is invalid")
)

const registrationUniqueConstraint = "tournament_registrations_tournament_id_team_id_key"

type RegistrationRepository interface {
	// Create вставляет регистрацию. Нарушение уникальности (tournament_id, team_id)
	// возвращается как ErrRegistrationConflict.
	Create(ctx context.Context, exec SQLExecutor, reg *models.Registration) error
	Delete(ctx context.Context, exec SQLExecutor, tournamentID, teamID uuid.UUID) error
	Exists(ctx context.Context, exec SQLExecutor, tournamentID, teamID uuid.UUID) (bool, error)
	CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) (int, error)
	ListByTournament(ctx context.Context, tournamentID uuid.UUID) ([]models.Registration, error)
	// ListTournamentIDsByTeam возвращает турниры, в которых зарегистрирована команда, по возрастанию id.
	ListTournamentIDsByTeam(ctx context.Context, exec SQLExecutor, teamID uuid.UUID) ([]uuid.UUID, error)
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

func (r *postgresRegistrationRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func mapRegistrationError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := asPQError(err); ok {
		switch string(pqErr.Code) {
		case pqUniqueViolation:
			if pqErr.Constraint == registrationUniqueConstraint {
				return ErrRegistrationConflict
			}
		case pqForeignKeyViolation:
			switch pqErr.Constraint {
			case "tournament_registrations_team_id_fkey":
				return ErrRegistrationTeamInvalid
			case "tournament_registrations_tournament_id_fkey":
				return ErrRegistrationTournamentInvalid
			}
		}
	}
	return fmt.Errorf("failed to create registration: %w", err)
}

func (r *postgresRegistrationRepository) Create(ctx context.Context, exec SQLExecutor, reg *models.Registration) error {
	query := `
		INSERT INTO tournament_registrations (tournament_id, team_id)
		VALUES ($1, $2)
		RETURNING id, registered_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query, reg.TournamentID, reg.TeamID).Scan(&reg.ID, &reg.RegisteredAt)
	return mapRegistrationError(err)
}

func (r *postgresRegistrationRepository) Delete(ctx context.Context, exec SQLExecutor, tournamentID, teamID uuid.UUID) error {
	query := `DELETE FROM tournament_registrations WHERE tournament_id = $1 AND team_id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, tournamentID, teamID)
	if err != nil {
		return fmt.Errorf("failed to delete registration: %w", err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) Exists(ctx context.Context, exec SQLExecutor, tournamentID, teamID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM tournament_registrations WHERE tournament_id = $1 AND team_id = $2)`
	if err := r.getExecutor(exec).QueryRowContext(ctx, query, tournamentID, teamID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check registration: %w", err)
	}
	return exists, nil
}

func (r *postgresRegistrationRepository) CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM tournament_registrations WHERE tournament_id = $1`
	if err := r.getExecutor(exec).QueryRowContext(ctx, query, tournamentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return count, nil
}

func (r *postgresRegistrationRepository) ListByTournament(ctx context.Context, tournamentID uuid.UUID) ([]models.Registration, error) {
	query := `
		SELECT reg.id, reg.tournament_id, reg.team_id, reg.registered_at,
		       ` + teamColumns + `
		FROM tournament_registrations reg
		JOIN teams t ON t.id = reg.team_id
		WHERE reg.tournament_id = $1
		ORDER BY reg.registered_at ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations of tournament %s: %w", tournamentID, err)
	}
	defer rows.Close()

	registrations := make([]models.Registration, 0)
	for rows.Next() {
		var reg models.Registration
		t := &models.Team{}
		if err := rows.Scan(
			&reg.ID, &reg.TournamentID, &reg.TeamID, &reg.RegisteredAt,
			&t.ID, &t.Name, &t.Tag, &t.LogoKey, &t.CaptainID, &t.TotalWins, &t.TotalEarnings, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		reg.Team = t
		registrations = append(registrations, reg)
	}
	return registrations, rows.Err()
}

func (r *postgresRegistrationRepository) ListTournamentIDsByTeam(ctx context.Context, exec SQLExecutor, teamID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT tournament_id FROM tournament_registrations WHERE team_id = $1 ORDER BY tournament_id ASC`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations of team %s: %w", teamID, err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tournament id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
