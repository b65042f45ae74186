package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Dosada05/bgmi-arena/services"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// accessClaims описывает токен внешнего провайдера идентификации.
type accessClaims struct {
	Email     *string `json:"email,omitempty"`
	Username  *string `json:"username,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Picture   *string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Authenticate проверяет Bearer токен (HS256), синхронизирует пользователя
// с базой и кладет его в контекст запроса.
func Authenticate(userService services.UserService, secret string) func(http.Handler) http.Handler {
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "missing or malformed authorization header")
				return
			}

			identity, err := parseIdentity(tokenString, key)
			if err != nil {
				slog.Debug("rejected access token", slog.Any("error", err))
				writeAuthError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			user, err := userService.SyncUser(r.Context(), identity)
			if err != nil {
				switch {
				case errors.Is(err, services.ErrAuthenticationFailed):
					writeAuthError(w, http.StatusUnauthorized, err.Error())
				case errors.Is(err, services.ErrUserEmailConflict):
					writeAuthError(w, http.StatusConflict, err.Error())
				default:
					slog.Error("failed to sync authenticated user", slog.String("user_id", identity.ID.String()), slog.Any("error", err))
					writeAuthError(w, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func parseIdentity(tokenString string, key []byte) (services.UserIdentity, error) {
	var claims accessClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return services.UserIdentity{}, err
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return services.UserIdentity{}, fmt.Errorf("invalid sub claim %q: %w", claims.Subject, err)
	}

	return services.UserIdentity{
		ID:              id,
		Email:           claims.Email,
		Username:        claims.Username,
		FirstName:       claims.FirstName,
		LastName:        claims.LastName,
		ProfileImageURL: claims.Picture,
	}, nil
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		slog.Error("failed to write auth error response", slog.Any("error", err))
	}
}
