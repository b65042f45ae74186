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
	ErrUserNotFound      = errors.New("user not found")
	ErrUserEmailConflict = errors.New("email address is already in use")
)

type UserRepository interface {
	// Upsert создает пользователя или обновляет его профиль по ID из токена.
	// Счетчики и is_admin не перезаписываются.
	Upsert(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListTopPlayers(ctx context.Context, limit int) ([]models.User, error)
	AddMatchStats(ctx context.Context, exec SQLExecutor, userIDs []uuid.UUID, points, kills int) error
	IncrementTournamentsWon(ctx context.Context, exec SQLExecutor, userIDs []uuid.UUID) error
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

func (r *postgresUserRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const userColumns = `id, email, username, first_name, last_name, profile_image_url,
	is_admin, total_points, tournaments_won, total_kills, created_at, updated_at`

func scanUser(row rowScanner, u *models.User) error {
	return row.Scan(
		&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &u.ProfileImageURL,
		&u.IsAdmin, &u.TotalPoints, &u.TournamentsWon, &u.TotalKills, &u.CreatedAt, &u.UpdatedAt,
	)
}

func (r *postgresUserRepository) Upsert(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (id, email, username, first_name, last_name, profile_image_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			profile_image_url = EXCLUDED.profile_image_url,
			updated_at = NOW()
		RETURNING ` + userColumns

	row := r.db.QueryRowContext(ctx, query, u.ID, u.Email, u.Username, u.FirstName, u.LastName, u.ProfileImageURL)
	if err := scanUser(row, u); err != nil {
		if isViolation(err, pqUniqueViolation, "users_email_key") {
			return ErrUserEmailConflict
		}
		return fmt.Errorf("failed to upsert user %s: %w", u.ID, err)
	}
	return nil
}

func (r *postgresUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u := &models.User{}
	if err := scanUser(r.db.QueryRowContext(ctx, query, id), u); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return u, nil
}

func (r *postgresUserRepository) ListTopPlayers(ctx context.Context, limit int) ([]models.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		ORDER BY total_points DESC, tournaments_won DESC, created_at ASC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list player rankings: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0, limit)
	for rows.Next() {
		var u models.User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *postgresUserRepository) AddMatchStats(ctx context.Context, exec SQLExecutor, userIDs []uuid.UUID, points, kills int) error {
	if len(userIDs) == 0 {
		return nil
	}
	query := `
		UPDATE users SET
			total_points = total_points + $1,
			total_kills = total_kills + $2,
			updated_at = NOW()
		WHERE id = ANY($3::uuid[])`

	if _, err := r.getExecutor(exec).ExecContext(ctx, query, points, kills, pqUUIDArray(userIDs)); err != nil {
		return fmt.Errorf("failed to add match stats: %w", err)
	}
	return nil
}

func (r *postgresUserRepository) IncrementTournamentsWon(ctx context.Context, exec SQLExecutor, userIDs []uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}
	query := `UPDATE users SET tournaments_won = tournaments_won + 1, updated_at = NOW() WHERE id = ANY($1::uuid[])`

	if _, err := r.getExecutor(exec).ExecContext(ctx, query, pqUUIDArray(userIDs)); err != nil {
		return fmt.Errorf("failed to increment tournaments won: %w", err)
	}
	return nil
}
