package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/taskrelay/internal/api/shared"
	"github.com/phrazzld/taskrelay/internal/domain"
)

// getActorID extracts the acting user's ID placed in the context by the
// actor middleware, writing a 401 response when it is absent.
func getActorID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	actorID, ok := shared.GetActorID(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Actor identity required")
		return 0, false
	}
	return actorID, true
}

// getPathID extracts a positive int64 from the named URL path parameter.
func getPathID(r *http.Request, paramName string) (int64, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return 0, domain.NewValidationError(paramName, "is required", domain.ErrValidation)
	}

	id, err := strconv.ParseInt(pathParam, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError(paramName, "must be a positive integer", domain.ErrValidation)
	}
	return id, nil
}

// decodeJSON decodes the request body into dst, writing a 400 response
// on malformed input.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
