package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskrelay/internal/domain"
	"github.com/phrazzld/taskrelay/internal/store"
)

// PostgresEventStore implements the store.EventStore interface
// using a PostgreSQL database as the storage backend. The events table is
// append-only; there are no update or delete statements here by design of
// the audit contract.
type PostgresEventStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresEventStore creates a new PostgreSQL implementation of the EventStore interface.
func NewPostgresEventStore(db store.DBTX, logger *slog.Logger) *PostgresEventStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresEventStore{
		db:     db,
		logger: logger.With(slog.String("component", "event_store")),
	}
}

// Ensure PostgresEventStore implements store.EventStore interface
var _ store.EventStore = (*PostgresEventStore)(nil)

// WithTx implements store.EventStore.WithTx
func (s *PostgresEventStore) WithTx(tx *sql.Tx) store.EventStore {
	return &PostgresEventStore{
		db:     tx,
		logger: s.logger,
	}
}

// Append implements store.EventStore.Append
func (s *PostgresEventStore) Append(ctx context.Context, event *domain.Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO events (id, occurred_at, actor_id, action, task_id, meta)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.OccurredAt,
		event.ActorID,
		event.Action,
		event.TaskID,
		event.Meta,
	)
	if err != nil {
		s.logger.Error("failed to append event",
			slog.String("action", string(event.Action)),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	return nil
}

// ListByTask implements store.EventStore.ListByTask
func (s *PostgresEventStore) ListByTask(ctx context.Context, taskID int64) ([]*domain.Event, error) {
	query := `
		SELECT id, occurred_at, actor_id, action, task_id, meta
		FROM events
		WHERE task_id = $1
		ORDER BY occurred_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var events []*domain.Event
	for rows.Next() {
		var event domain.Event
		err := rows.Scan(
			&event.ID,
			&event.OccurredAt,
			&event.ActorID,
			&event.Action,
			&event.TaskID,
			&event.Meta,
		)
		if err != nil {
			return nil, MapError(err)
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return events, nil
}
