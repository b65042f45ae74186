package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/bgmi-arena/models"
	"github.com/google/uuid"
)

var ErrChatMatchInvalid = errors.New("chat message references an unknown match")

type ChatRepository interface {
	Create(ctx context.Context, exec SQLExecutor, message *models.ChatMessage) error
	// ListByMatch возвращает последние limit сообщений матча в порядке создания.
	ListByMatch(ctx context.Context, matchID uuid.UUID, limit int) ([]models.ChatMessage, error)
}

type postgresChatRepository struct {
	db *sql.DB
}

func NewPostgresChatRepository(db *sql.DB) ChatRepository {
	return &postgresChatRepository{db: db}
}

func (r *postgresChatRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresChatRepository) Create(ctx context.Context, exec SQLExecutor, msg *models.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (match_id, user_id, message, type)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query, msg.MatchID, msg.UserID, msg.Message, msg.Type).
		Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		if isViolation(err, pqForeignKeyViolation, "chat_messages_match_id_fkey") {
			return ErrChatMatchInvalid
		}
		return fmt.Errorf("failed to create chat message: %w", err)
	}
	return nil
}

func (r *postgresChatRepository) ListByMatch(ctx context.Context, matchID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	query := `
		SELECT id, match_id, user_id, message, type, created_at, username, profile_image_url FROM (
			SELECT c.id, c.match_id, c.user_id, c.message, c.type, c.created_at,
			       u.username, u.profile_image_url
			FROM chat_messages c
			LEFT JOIN users u ON u.id = c.user_id
			WHERE c.match_id = $1
			ORDER BY c.created_at DESC, c.id DESC
			LIMIT $2
		) latest
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, matchID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat of match %s: %w", matchID, err)
	}
	defer rows.Close()

	messages := make([]models.ChatMessage, 0)
	for rows.Next() {
		var (
			msg      models.ChatMessage
			username *string
			avatar   *string
		)
		if err := rows.Scan(&msg.ID, &msg.MatchID, &msg.UserID, &msg.Message, &msg.Type, &msg.CreatedAt, &username, &avatar); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		if msg.UserID != nil {
			msg.User = &models.User{ID: *msg.UserID, Username: username, ProfileImageURL: avatar}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
