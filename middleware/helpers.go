package middleware

import (
	"context"
	"errors"

	"github.com/Dosada05/bgmi-arena/models"
)

type contextKey string

const userContextKey contextKey = "user"

var ErrNoUserInContext = errors.New("authenticated user not found in context")

// WithUser возвращает контекст с текущим пользователем.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func GetUserFromContext(ctx context.Context) (*models.User, error) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	if !ok || user == nil {
		return nil, ErrNoUserInContext
	}
	return user, nil
}
