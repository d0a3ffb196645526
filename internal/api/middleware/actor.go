package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/phrazzld/taskrelay/internal/api/shared"
	"github.com/phrazzld/taskrelay/internal/platform/logger"
	"github.com/phrazzld/taskrelay/internal/service"
)

// Actor identification headers. The caller is an already-authenticated
// platform gateway; these headers relay the end user's identity.
const (
	ActorIDHeader       = "X-Actor-ID"
	ActorUsernameHeader = "X-Actor-Username"
	ActorFullNameHeader = "X-Actor-Name"
)

// ActorMiddleware resolves the acting user from the request headers,
// upserts their identity so the users table tracks the latest observed
// attributes, and stores the actor in the request context. Requests
// without a valid actor ID are rejected.
func ActorMiddleware(users service.UserService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawID := r.Header.Get(ActorIDHeader)
			if rawID == "" {
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Actor identity required")
				return
			}

			actorID, err := strconv.ParseInt(rawID, 10, 64)
			if err != nil || actorID <= 0 {
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid actor identity")
				return
			}

			username := r.Header.Get(ActorUsernameHeader)
			fullName := r.Header.Get(ActorFullNameHeader)

			if _, err := users.Touch(r.Context(), actorID, username, fullName); err != nil {
				logger.FromContext(r.Context()).Error("actor upsert failed",
					slog.Int64("actor_id", actorID),
					slog.String("error", err.Error()))
				shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to resolve actor")
				return
			}

			ctx := shared.SetActor(r.Context(), actorID, username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireManager rejects requests whose actor is not on the manager
// allow-list. The role is a pure function of identity against static
// configuration, so no database read is needed here.
func RequireManager(users service.UserService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorID, ok := shared.GetActorID(r.Context())
			if !ok {
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Actor identity required")
				return
			}

			if !users.IsManager(actorID) {
				shared.RespondWithError(w, r, http.StatusForbidden, "Manager role required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
