package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/taskrelay/internal/domain"
	"github.com/phrazzld/taskrelay/internal/store"
)

// taskColumns is the column list shared by all task SELECT statements,
// matching the scan order in scanTask.
const taskColumns = `id, title, url, level, est_hours, publish_mode, deadline,
	status, assignee_id, created_by, allowed_usernames, dedupe_hash, created_at, updated_at`

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.TaskStore.Create
// The partial unique index on (dedupe_hash) scoped to active statuses is
// the authoritative duplicate gate; violations surface as ErrDuplicateTask.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	allowed, err := json.Marshal(task.AllowedUsernames)
	if err != nil {
		return fmt.Errorf("failed to marshal allow-list: %w", err)
	}

	query := `
		INSERT INTO tasks (title, url, level, est_hours, publish_mode, deadline,
			status, assignee_id, created_by, allowed_usernames, dedupe_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`

	err = s.db.QueryRowContext(ctx, query,
		task.Title,
		task.URL,
		task.Level,
		task.EstHours,
		task.PublishMode,
		task.Deadline,
		task.Status,
		task.AssigneeID,
		task.CreatedBy,
		allowed,
		task.DedupeHash,
		task.CreatedAt,
		task.UpdatedAt,
	).Scan(&task.ID)

	if err != nil {
		s.logger.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("dedupe_hash", task.DedupeHash))
		return MapError(err)
	}

	return nil
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrTaskNotFound
		}
		return nil, MapError(err)
	}

	return task, nil
}

// FindActiveByFingerprint implements store.TaskStore.FindActiveByFingerprint
func (s *PostgresTaskStore) FindActiveByFingerprint(
	ctx context.Context,
	fingerprint string,
) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE dedupe_hash = $1 AND status IN ('new', 'taken')`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, fingerprint))
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrTaskNotFound
		}
		return nil, MapError(err)
	}

	return task, nil
}

// CountTakenByAssignee implements store.TaskStore.CountTakenByAssignee
func (s *PostgresTaskStore) CountTakenByAssignee(ctx context.Context, executorID int64) (int, error) {
	query := `SELECT COUNT(*) FROM tasks WHERE status = 'taken' AND assignee_id = $1`

	var count int
	if err := s.db.QueryRowContext(ctx, query, executorID).Scan(&count); err != nil {
		return 0, MapError(err)
	}

	return count, nil
}

// Claim implements store.TaskStore.Claim
// The WHERE status = 'new' condition together with the affected-row count
// is the compare-and-swap that closes the race between concurrent claimers.
func (s *PostgresTaskStore) Claim(
	ctx context.Context,
	id, executorID int64,
	now time.Time,
) (bool, error) {
	query := `
		UPDATE tasks
		SET status = 'taken', assignee_id = $1, updated_at = $2
		WHERE id = $3 AND status = 'new'
	`

	return s.conditionalUpdate(ctx, "claim", query, executorID, now.UTC(), id)
}

// MarkDone implements store.TaskStore.MarkDone
func (s *PostgresTaskStore) MarkDone(ctx context.Context, id int64, now time.Time) (bool, error) {
	query := `
		UPDATE tasks
		SET status = 'done', updated_at = $1
		WHERE id = $2 AND status = 'taken'
	`

	return s.conditionalUpdate(ctx, "mark_done", query, now.UTC(), id)
}

// MarkDropped implements store.TaskStore.MarkDropped
func (s *PostgresTaskStore) MarkDropped(
	ctx context.Context,
	id, executorID int64,
	now time.Time,
) (bool, error) {
	query := `
		UPDATE tasks
		SET status = 'dropped', updated_at = $1
		WHERE id = $2 AND status = 'taken' AND assignee_id = $3
	`

	return s.conditionalUpdate(ctx, "mark_dropped", query, now.UTC(), id, executorID)
}

// MarkExpired implements store.TaskStore.MarkExpired
func (s *PostgresTaskStore) MarkExpired(ctx context.Context, id int64, now time.Time) (bool, error) {
	query := `
		UPDATE tasks
		SET status = 'expired', updated_at = $1
		WHERE id = $2 AND status IN ('new', 'taken')
	`

	return s.conditionalUpdate(ctx, "mark_expired", query, now.UTC(), id)
}

// Touch implements store.TaskStore.Touch
func (s *PostgresTaskStore) Touch(ctx context.Context, id int64, now time.Time) error {
	query := `UPDATE tasks SET updated_at = $1 WHERE id = $2`

	result, err := s.db.ExecContext(ctx, query, now.UTC(), id)
	if err != nil {
		return MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return MapError(err)
	}

	if affected == 0 {
		return store.ErrTaskNotFound
	}

	return nil
}

// ListByStatus implements store.TaskStore.ListByStatus
func (s *PostgresTaskStore) ListByStatus(
	ctx context.Context,
	status domain.TaskStatus,
) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE status = $1
		ORDER BY deadline ASC NULLS LAST, created_at ASC`

	return s.queryTasks(ctx, query, status)
}

// ListNewByMode implements store.TaskStore.ListNewByMode
func (s *PostgresTaskStore) ListNewByMode(
	ctx context.Context,
	mode domain.PublishMode,
) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE status = 'new' AND publish_mode = $1
		ORDER BY deadline ASC NULLS LAST, created_at ASC`

	return s.queryTasks(ctx, query, mode)
}

// ListTakenByAssignee implements store.TaskStore.ListTakenByAssignee
func (s *PostgresTaskStore) ListTakenByAssignee(
	ctx context.Context,
	executorID int64,
) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE status = 'taken' AND assignee_id = $1
		ORDER BY deadline ASC NULLS LAST, created_at ASC`

	return s.queryTasks(ctx, query, executorID)
}

// ListOverdueActive implements store.TaskStore.ListOverdueActive
func (s *PostgresTaskStore) ListOverdueActive(
	ctx context.Context,
	now time.Time,
) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE status IN ('new', 'taken') AND deadline IS NOT NULL AND deadline < $1
		ORDER BY deadline ASC`

	return s.queryTasks(ctx, query, now.UTC())
}

// ListTakenWithDeadlineAfter implements store.TaskStore.ListTakenWithDeadlineAfter
func (s *PostgresTaskStore) ListTakenWithDeadlineAfter(
	ctx context.Context,
	now time.Time,
) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE status = 'taken' AND deadline IS NOT NULL AND deadline > $1
		ORDER BY deadline ASC`

	return s.queryTasks(ctx, query, now.UTC())
}

// ListCreatedSince implements store.TaskStore.ListCreatedSince
func (s *PostgresTaskStore) ListCreatedSince(
	ctx context.Context,
	since time.Time,
) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE created_at >= $1
		ORDER BY created_at DESC`

	return s.queryTasks(ctx, query, since.UTC())
}

// Search implements store.TaskStore.Search
func (s *PostgresTaskStore) Search(
	ctx context.Context,
	query string,
	limit int,
) ([]*domain.Task, error) {
	stmt := `SELECT ` + taskColumns + `
		FROM tasks t
		WHERE t.title ILIKE $1
			OR t.url ILIKE $1
			OR t.assignee_id IN (SELECT id FROM users WHERE LOWER(username) = LOWER($2))
		ORDER BY t.updated_at DESC
		LIMIT $3`

	pattern := "%" + query + "%"
	return s.queryTasks(ctx, stmt, pattern, query, limit)
}

// conditionalUpdate executes an UPDATE whose WHERE clause encodes the
// expected current state and reports whether exactly that state was found.
func (s *PostgresTaskStore) conditionalUpdate(
	ctx context.Context,
	operation, query string,
	args ...any,
) (bool, error) {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("conditional update failed",
			slog.String("operation", operation),
			slog.String("error", err.Error()))
		return false, MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, MapError(err)
	}

	return affected == 1, nil
}

// queryTasks runs a multi-row task query and scans the results.
func (s *PostgresTaskStore) queryTasks(
	ctx context.Context,
	query string,
	args ...any,
) ([]*domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, MapError(err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return tasks, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask scans one task row in taskColumns order.
func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task     domain.Task
		deadline sql.NullTime
		assignee sql.NullInt64
		allowed  []byte
	)

	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.URL,
		&task.Level,
		&task.EstHours,
		&task.PublishMode,
		&deadline,
		&task.Status,
		&assignee,
		&task.CreatedBy,
		&allowed,
		&task.DedupeHash,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if deadline.Valid {
		t := deadline.Time.UTC()
		task.Deadline = &t
	}

	if assignee.Valid {
		id := assignee.Int64
		task.AssigneeID = &id
	}

	if len(allowed) > 0 {
		if err := json.Unmarshal(allowed, &task.AllowedUsernames); err != nil {
			return nil, fmt.Errorf("failed to unmarshal allow-list: %w", err)
		}
	}

	return &task, nil
}
