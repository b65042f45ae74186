package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/bgmi-arena/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var (
	ErrTournamentNotFound       = errors.New("tournament not found")
	ErrTournamentInvalidCreator = errors.New("invalid tournament creator reference")
	ErrTournamentCapacity       = errors.New("tournament capacity constraint violated")
	ErrTournamentInvalid        = errors.New("tournament violates a check constraint")
)

type ListTournamentsFilter struct {
	Status    *models.TournamentStatus
	CreatedBy *uuid.UUID
	Limit     int
	Offset    int
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Tournament, error)
	// GetByIDForUpdate блокирует строку турнира до конца транзакции exec.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	Update(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	UpdateBannerKey(ctx context.Context, id uuid.UUID, bannerKey *string) error
	AdjustCurrentTeams(ctx context.Context, exec SQLExecutor, id uuid.UUID, delta int) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context, statuses []models.TournamentStatus) (int, error)
	SumPrizePoolByStatus(ctx context.Context, statuses []models.TournamentStatus) (decimal.Decimal, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `id, name, description, mode, type, status, entry_fee, prize_pool,
	max_teams, current_teams, start_date, end_date, rules, banner_key, created_by, created_at, updated_at`

func scanTournament(row rowScanner, t *models.Tournament) error {
	return row.Scan(
		&t.ID, &t.Name, &t.Description, &t.Mode, &t.Type, &t.Status, &t.EntryFee, &t.PrizePool,
		&t.MaxTeams, &t.CurrentTeams, &t.StartDate, &t.EndDate, &t.Rules, &t.BannerKey, &t.CreatedBy,
		&t.CreatedAt, &t.UpdatedAt,
	)
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTournamentNotFound
	}
	if pqErr, ok := asPQError(err); ok {
		switch string(pqErr.Code) {
		case pqForeignKeyViolation:
			if pqErr.Constraint == "tournaments_created_by_fkey" {
				return ErrTournamentInvalidCreator
			}
		case pqCheckViolation:
			if pqErr.Constraint == "chk_tournament_capacity" {
				return ErrTournamentCapacity
			}
			return fmt.Errorf("%w: %s", ErrTournamentInvalid, pqErr.Constraint)
		}
	}
	return err
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (
			name, description, mode, type, status, entry_fee, prize_pool,
			max_teams, start_date, end_date, rules, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, current_teams, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		t.Name, t.Description, t.Mode, t.Type, t.Status, t.EntryFee, t.PrizePool,
		t.MaxTeams, t.StartDate, t.EndDate, t.Rules, t.CreatedBy,
	).Scan(&t.ID, &t.CurrentTeams, &t.CreatedAt, &t.UpdatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`

	t := &models.Tournament{}
	if err := scanTournament(r.getExecutor(exec).QueryRowContext(ctx, query, id), t); err != nil {
		return nil, r.handleTournamentError(err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1 FOR UPDATE`

	t := &models.Tournament{}
	if err := scanTournament(r.getExecutor(exec).QueryRowContext(ctx, query, id), t); err != nil {
		return nil, r.handleTournamentError(err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}
	if filter.CreatedBy != nil {
		query += fmt.Sprintf(" AND created_by = $%d", argID)
		args = append(args, *filter.CreatedBy)
		argID++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if err := scanTournament(rows, &t); err != nil {
			return nil, fmt.Errorf("failed to scan tournament: %w", err)
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, rows.Err()
}

// Update перезаписывает редактируемые поля. current_teams меняется только через AdjustCurrentTeams.
func (r *postgresTournamentRepository) Update(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	query := `
		UPDATE tournaments SET
			name = $1,
			description = $2,
			status = $3,
			entry_fee = $4,
			prize_pool = $5,
			max_teams = $6,
			start_date = $7,
			end_date = $8,
			rules = $9,
			updated_at = NOW()
		WHERE id = $10
		RETURNING updated_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		t.Name, t.Description, t.Status, t.EntryFee, t.PrizePool,
		t.MaxTeams, t.StartDate, t.EndDate, t.Rules, t.ID,
	).Scan(&t.UpdatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) UpdateBannerKey(ctx context.Context, id uuid.UUID, bannerKey *string) error {
	query := `UPDATE tournaments SET banner_key = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, bannerKey, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament banner: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) AdjustCurrentTeams(ctx context.Context, exec SQLExecutor, id uuid.UUID, delta int) error {
	query := `UPDATE tournaments SET current_teams = current_teams + $1, updated_at = NOW() WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, delta, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tournament %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func statusStrings[S ~string](statuses []S) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func (r *postgresTournamentRepository) CountByStatus(ctx context.Context, statuses []models.TournamentStatus) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM tournaments WHERE status = ANY($1)`
	if err := r.db.QueryRowContext(ctx, query, pq.Array(statusStrings(statuses))).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tournaments: %w", err)
	}
	return count, nil
}

func (r *postgresTournamentRepository) SumPrizePoolByStatus(ctx context.Context, statuses []models.TournamentStatus) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `SELECT COALESCE(SUM(prize_pool), 0) FROM tournaments WHERE status = ANY($1)`
	if err := r.db.QueryRowContext(ctx, query, pq.Array(statusStrings(statuses))).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum prize pools: %w", err)
	}
	return total, nil
}
