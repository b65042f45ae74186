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
	ErrInvitationNotFound       = errors.New("invitation not found")
	ErrInvitationConflict       = errors.New("a pending invitation already exists for this user and team")
	ErrInvitationInvalidRef     = errors.New("invalid team or user reference for invitation")
	ErrInvitationStatusConflict = errors.New("invitation is no longer in the expected status")
)

// InvitationRepository определяет интерфейс для работы с приглашениями в команду.
type InvitationRepository interface {
	Create(ctx context.Context, invitation *models.TeamInvitation) error
	GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.TeamInvitation, error)
	// ListPendingByUser возвращает ожидающие приглашения пользователя вместе с командами.
	ListPendingByUser(ctx context.Context, userID uuid.UUID) ([]models.TeamInvitation, error)
	// UpdateStatus меняет статус только если текущий равен from; иначе ErrInvitationStatusConflict.
	UpdateStatus(ctx context.Context, exec SQLExecutor, id uuid.UUID, from, to models.InvitationStatus) error
}

type postgresInvitationRepository struct {
	db *sql.DB
}

func NewPostgresInvitationRepository(db *sql.DB) InvitationRepository {
	return &postgresInvitationRepository{db: db}
}

func (r *postgresInvitationRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresInvitationRepository) Create(ctx context.Context, inv *models.TeamInvitation) error {
	query := `
		INSERT INTO team_invitations (team_id, user_id, invited_by, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, inv.TeamID, inv.UserID, inv.InvitedBy, inv.Status).
		Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if pqErr, ok := asPQError(err); ok {
			switch string(pqErr.Code) {
			case pqUniqueViolation:
				return ErrInvitationConflict
			case pqForeignKeyViolation:
				return ErrInvitationInvalidRef
			}
		}
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

func (r *postgresInvitationRepository) GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.TeamInvitation, error) {
	query := `SELECT id, team_id, user_id, invited_by, status, created_at, updated_at FROM team_invitations WHERE id = $1`

	inv := &models.TeamInvitation{}
	err := r.getExecutor(exec).QueryRowContext(ctx, query, id).
		Scan(&inv.ID, &inv.TeamID, &inv.UserID, &inv.InvitedBy, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to get invitation %s: %w", id, err)
	}
	return inv, nil
}

func (r *postgresInvitationRepository) ListPendingByUser(ctx context.Context, userID uuid.UUID) ([]models.TeamInvitation, error) {
	query := `
		SELECT i.id, i.team_id, i.user_id, i.invited_by, i.status, i.created_at, i.updated_at,
		       ` + teamColumns + `
		FROM team_invitations i
		JOIN teams t ON t.id = i.team_id
		WHERE i.user_id = $1 AND i.status = 'pending'
		ORDER BY i.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations of user %s: %w", userID, err)
	}
	defer rows.Close()

	invitations := make([]models.TeamInvitation, 0)
	for rows.Next() {
		var inv models.TeamInvitation
		t := &models.Team{}
		if err := rows.Scan(
			&inv.ID, &inv.TeamID, &inv.UserID, &inv.InvitedBy, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt,
			&t.ID, &t.Name, &t.Tag, &t.LogoKey, &t.CaptainID, &t.TotalWins, &t.TotalEarnings, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		inv.Team = t
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

func (r *postgresInvitationRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id uuid.UUID, from, to models.InvitationStatus) error {
	query := `UPDATE team_invitations SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("failed to update invitation status: %w", err)
	}
	return checkAffectedRows(result, ErrInvitationStatusConflict)
}
