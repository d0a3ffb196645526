package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phrazzld/taskrelay/internal/domain"
	"github.com/phrazzld/taskrelay/internal/store"
	"github.com/phrazzld/taskrelay/internal/token"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"token invalid", token.ErrTokenInvalid, http.StatusUnauthorized},
		{"token expired", token.ErrTokenExpired, http.StatusUnauthorized},
		{"not owner", domain.ErrNotOwner, http.StatusForbidden},
		{"task not found", store.ErrTaskNotFound, http.StatusNotFound},
		{"already taken", domain.ErrAlreadyTaken, http.StatusConflict},
		{"invalid state", domain.ErrInvalidState, http.StatusConflict},
		{"duplicate task", store.ErrDuplicateTask, http.StatusConflict},
		{"quota exceeded", domain.ErrQuotaExceeded, http.StatusTooManyRequests},
		{"bad deadline", ErrBadDeadline, http.StatusBadRequest},
		{"validation", domain.NewValidationError("title", "is required", domain.ErrValidation), http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapErrorToStatusCode(tt.err))
		})
	}
}

func TestMapWrappedError(t *testing.T) {
	wrapped := fmt.Errorf("claiming: %w", domain.ErrAlreadyTaken)
	assert.Equal(t, http.StatusConflict, MapErrorToStatusCode(wrapped))
}

func TestMapStoreError(t *testing.T) {
	// Sentinels wrapped in a StoreError must map the same as the bare sentinel.
	notFound := store.NewStoreError("task", "get", "lookup failed", store.ErrTaskNotFound)
	assert.Equal(t, http.StatusNotFound, MapErrorToStatusCode(notFound))
	assert.Equal(t, "Task not found", GetSafeErrorMessage(notFound))

	duplicate := store.NewStoreError("task", "create", "fingerprint collision", store.ErrDuplicateTask)
	assert.Equal(t, http.StatusConflict, MapErrorToStatusCode(duplicate))

	unknown := store.NewStoreError("task", "update", "database error", errors.New("SQL error"))
	assert.Equal(t, http.StatusInternalServerError, MapErrorToStatusCode(unknown))
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(unknown))
}

func TestGetSafeErrorMessageNeverEchoesInternals(t *testing.T) {
	internal := errors.New("pq: connection refused on 10.0.0.3:5432")
	msg := GetSafeErrorMessage(internal)
	assert.Equal(t, "An unexpected error occurred", msg)
	assert.NotContains(t, msg, "10.0.0.3")
}

func TestGetSafeErrorMessageKnownErrors(t *testing.T) {
	assert.Equal(t, "Task not found", GetSafeErrorMessage(store.ErrTaskNotFound))
	assert.Equal(t, "Task is no longer available", GetSafeErrorMessage(domain.ErrAlreadyTaken))
	assert.Contains(t, GetSafeErrorMessage(domain.ErrQuotaExceeded), "Active task limit")
}
