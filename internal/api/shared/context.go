package shared

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

// ContextKey is the type for context values set by the API layer.
type ContextKey string

const (
	// ActorIDContextKey carries the acting user's platform ID, set by the
	// actor middleware.
	ActorIDContextKey ContextKey = "actorID"

	// ActorUsernameContextKey carries the acting user's username.
	ActorUsernameContextKey ContextKey = "actorUsername"

	// TraceIDKey carries the per-request trace ID.
	TraceIDKey ContextKey = "traceID"

	// traceIDLength is the number of random bytes in a trace ID.
	traceIDLength = 16
)

// SetTraceID adds a freshly generated trace ID to the context.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, generateTraceID())
}

// GetTraceID retrieves the trace ID from the context, or "" if absent.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// SetActor stores the acting user's identity in the context.
func SetActor(ctx context.Context, actorID int64, username string) context.Context {
	ctx = context.WithValue(ctx, ActorIDContextKey, actorID)
	return context.WithValue(ctx, ActorUsernameContextKey, username)
}

// GetActorID retrieves the acting user's ID from the context.
func GetActorID(ctx context.Context) (int64, bool) {
	actorID, ok := ctx.Value(ActorIDContextKey).(int64)
	if !ok || actorID == 0 {
		return 0, false
	}
	return actorID, true
}

// GetActorUsername retrieves the acting user's username from the context.
func GetActorUsername(ctx context.Context) string {
	username, _ := ctx.Value(ActorUsernameContextKey).(string)
	return username
}

func generateTraceID() string {
	b := make([]byte, traceIDLength)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return hex.EncodeToString(b)
}
