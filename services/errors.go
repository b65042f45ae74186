package services

import (
	"errors"
	"sort"
	"strings"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	ErrUserNotFound         = errors.New("user not found")
	ErrTeamNotFound         = errors.New("team not found")
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrMatchNotFound        = errors.New("match not found")
	ErrMatchResultNotFound  = errors.New("match result not found")
	ErrInvitationNotFound   = errors.New("invitation not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrTeamMemberNotFound   = errors.New("team member not found")

	// Ошибки валидации
	ErrValidationFailed = errors.New("validation failed")

	// Конфликты состояния
	ErrAlreadyRegistered   = errors.New("team is already registered for this tournament")
	ErrCapacityExceeded    = errors.New("tournament has no free team slots")
	ErrRegistrationClosed  = errors.New("tournament registration is closed")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrInvalidState        = errors.New("operation is not allowed in the current state")
	ErrMatchResultConflict = errors.New("team already has a result in this match")
	ErrPositionTaken       = errors.New("position is already assigned in this match")
	ErrTeamNotRegistered   = errors.New("team is not registered for this tournament")
	ErrInvitationConflict  = errors.New("a pending invitation already exists for this user")
	ErrUserAlreadyInTeam   = errors.New("user is already a member of this team")
	ErrTeamFull            = errors.New("team roster is full")
	ErrUserEmailConflict   = errors.New("email address is already in use")

	// Ошибки аутентификации и авторизации
	ErrAuthenticationFailed   = errors.New("authentication failed")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")
	ErrCaptainActionForbidden = errors.New("only the team captain can perform this action")
	ErrUserMustBeCaptain      = errors.New("only the team captain can register the team")
	ErrCannotRemoveCaptain    = errors.New("cannot remove the team captain")

	// Файлы
	ErrUploadsDisabled = errors.New("file uploads are not configured")
	ErrInvalidFileType = errors.New("unsupported file type")
)

// ValidationError carries per-field problems. It matches ErrValidationFailed
// with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// validator собирает ошибки полей.
type validator struct {
	fields map[string]string
}

func newValidator() *validator {
	return &validator{fields: make(map[string]string)}
}

func (v *validator) check(ok bool, field, message string) {
	if !ok {
		v.add(field, message)
	}
}

func (v *validator) add(field, message string) {
	if _, exists := v.fields[field]; !exists {
		v.fields[field] = message
	}
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}

func fieldError(field, message string) error {
	return &ValidationError{Fields: map[string]string{field: message}}
}
