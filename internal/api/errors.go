package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/taskrelay/internal/domain"
	"github.com/phrazzld/taskrelay/internal/store"
	"github.com/phrazzld/taskrelay/internal/token"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes so
// handlers never leak internal error types to clients.
func MapErrorToStatusCode(err error) int {
	var validationErr *domain.ValidationError

	switch {
	// Token errors
	case errors.Is(err, token.ErrTokenInvalid),
		errors.Is(err, token.ErrTokenExpired):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, domain.ErrNotOwner):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, store.ErrTaskNotFound),
		errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors: lost races, duplicates and bad-state transitions
	case errors.Is(err, domain.ErrAlreadyTaken),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, store.ErrDuplicateTask),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Quota errors
	case errors.Is(err, domain.ErrQuotaExceeded):
		return http.StatusTooManyRequests

	// Bad request errors
	case errors.As(err, &validationErr),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidPublishMode),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, ErrBadDeadline):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-facing message for the
// given error.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErr *domain.ValidationError

	switch {
	case errors.Is(err, token.ErrTokenExpired):
		return "Delegation token has expired"

	case errors.Is(err, token.ErrTokenInvalid):
		return "Invalid delegation token"

	case errors.Is(err, domain.ErrNotOwner):
		return "You are not assigned to this task"

	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, domain.ErrAlreadyTaken):
		return "Task is no longer available"

	case errors.Is(err, domain.ErrInvalidState):
		return "Task status does not permit this operation"

	case errors.Is(err, store.ErrDuplicateTask):
		return "An active task with this URL already exists"

	case errors.Is(err, domain.ErrQuotaExceeded):
		return "Active task limit reached, finish or drop a task first"

	case errors.Is(err, ErrBadDeadline):
		return "Invalid deadline, use +6h, +30m or YYYY-MM-DD HH:MM"

	case errors.As(err, &validationErr):
		return validationErr.Error()

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidPublishMode),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"

	default:
		return "An unexpected error occurred"
	}
}
