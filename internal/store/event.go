package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/taskrelay/internal/domain"
)

// EventStore defines the contract for the append-only audit log.
// Events are never updated or deleted. When an event must commit
// atomically with the transition that caused it, the caller appends it
// through a transaction-bound instance (WithTx).
type EventStore interface {
	// Append writes one audit event.
	Append(ctx context.Context, event *domain.Event) error

	// ListByTask returns all events referencing the given task in the
	// order they were appended.
	ListByTask(ctx context.Context, taskID int64) ([]*domain.Event, error)

	// WithTx returns a store instance bound to the provided transaction.
	WithTx(tx *sql.Tx) EventStore
}
