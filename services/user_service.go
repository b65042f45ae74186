package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/bgmi-arena/models"
	"github.com/Dosada05/bgmi-arena/repositories"
	"github.com/google/uuid"
)

// UserIdentity is the verified profile carried by an access token.
type UserIdentity struct {
	ID              uuid.UUID
	Email           *string
	Username        *string
	FirstName       *string
	LastName        *string
	ProfileImageURL *string
}

type UserService interface {
	// SyncUser создает или обновляет пользователя по данным из токена.
	SyncUser(ctx context.Context, identity UserIdentity) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type userService struct {
	userRepo repositories.UserRepository
}

func NewUserService(userRepo repositories.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) SyncUser(ctx context.Context, identity UserIdentity) (*models.User, error) {
	if identity.ID == uuid.Nil {
		return nil, ErrAuthenticationFailed
	}

	user := &models.User{
		ID:              identity.ID,
		Email:           normalizeOptional(identity.Email),
		Username:        normalizeOptional(identity.Username),
		FirstName:       normalizeOptional(identity.FirstName),
		LastName:        normalizeOptional(identity.LastName),
		ProfileImageURL: normalizeOptional(identity.ProfileImageURL),
	}
	if err := s.userRepo.Upsert(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUserEmailConflict) {
			return nil, ErrUserEmailConflict
		}
		return nil, fmt.Errorf("failed to sync user %s: %w", identity.ID, err)
	}
	return user, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return user, nil
}
