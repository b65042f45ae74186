package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Dosada05/bgmi-arena/models"
	"github.com/Dosada05/bgmi-arena/repositories"
	"github.com/google/uuid"
)

const (
	chatHistoryLimit = 100
	maxChatMessage   = 500
)

type PostChatMessageInput struct {
	Message string                 `json:"message"`
	Type    models.ChatMessageType `json:"type"`
}

type ChatService interface {
	// ListMessages возвращает последние сообщения матча в хронологическом порядке.
	ListMessages(ctx context.Context, matchID uuid.UUID) ([]models.ChatMessage, error)
	PostMessage(ctx context.Context, actor *models.User, matchID uuid.UUID, input PostChatMessageInput) (*models.ChatMessage, error)
}

type chatService struct {
	chatRepo  repositories.ChatRepository
	matchRepo repositories.MatchRepository
}

func NewChatService(chatRepo repositories.ChatRepository, matchRepo repositories.MatchRepository) ChatService {
	return &chatService{chatRepo: chatRepo, matchRepo: matchRepo}
}

func (s *chatService) ListMessages(ctx context.Context, matchID uuid.UUID) ([]models.ChatMessage, error) {
	if _, err := s.matchRepo.GetByID(ctx, nil, matchID); err != nil {
		return nil, mapMatchErr(err)
	}
	messages, err := s.chatRepo.ListByMatch(ctx, matchID, chatHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat of match %s: %w", matchID, err)
	}
	return messages, nil
}

func (s *chatService) PostMessage(ctx context.Context, actor *models.User, matchID uuid.UUID, input PostChatMessageInput) (*models.ChatMessage, error) {
	if actor == nil {
		return nil, ErrAuthenticationFailed
	}

	text := strings.TrimSpace(input.Message)
	msgType := input.Type
	if msgType == "" {
		msgType = models.ChatTypeUser
	}

	v := newValidator()
	v.check(text != "", "message", "must be provided")
	v.check(utf8.RuneCountInString(text) <= maxChatMessage, "message", fmt.Sprintf("must not be more than %d characters", maxChatMessage))
	v.check(msgType == models.ChatTypeUser || msgType == models.ChatTypeAdmin, "type", "must be one of user, admin")
	if err := v.err(); err != nil {
		return nil, err
	}
	if msgType == models.ChatTypeAdmin && !actor.IsAdmin {
		return nil, ErrForbiddenOperation
	}

	userID := actor.ID
	msg := &models.ChatMessage{
		MatchID: matchID,
		UserID:  &userID,
		Message: text,
		Type:    msgType,
		User:    actor,
	}
	if err := s.chatRepo.Create(ctx, nil, msg); err != nil {
		if errors.Is(err, repositories.ErrChatMatchInvalid) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return msg, nil
}
