package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/phrazzld/taskrelay/internal/domain"
)

// TaskStore defines the contract for task persistence. The tasks table is
// the single source of truth for task state; all mutating methods are
// conditional updates so concurrent writers can be detected by their
// affected-row counts, and callers compose them inside RunInTransaction
// when atomicity across statements is required.
type TaskStore interface {
	// Create persists a new task and assigns its ID. Returns
	// ErrDuplicateTask if another task with the same dedupe fingerprint
	// is currently active (the partial unique index is the authoritative
	// gate).
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Task, error)

	// FindActiveByFingerprint returns the active ("new" or "taken") task
	// with the given dedupe fingerprint, or ErrTaskNotFound.
	FindActiveByFingerprint(ctx context.Context, fingerprint string) (*domain.Task, error)

	// CountTakenByAssignee counts the executor's tasks currently in
	// "taken" status. Used for the claim quota fast path; a slightly
	// stale read is acceptable.
	CountTakenByAssignee(ctx context.Context, executorID int64) (int, error)

	// Claim conditionally transitions a task from "new" to "taken" for
	// the given executor. Returns false (and no error) when the task was
	// not in "new" status anymore — the caller lost the race.
	Claim(ctx context.Context, id, executorID int64, now time.Time) (bool, error)

	// MarkDone conditionally transitions a task from "taken" to "done".
	// Returns false when the task was not in "taken" status.
	MarkDone(ctx context.Context, id int64, now time.Time) (bool, error)

	// MarkDropped conditionally transitions a task from "taken" to
	// "dropped", but only if it is assigned to the given executor.
	// Returns false when the condition did not hold.
	MarkDropped(ctx context.Context, id, executorID int64, now time.Time) (bool, error)

	// MarkExpired conditionally transitions an active task to "expired".
	// Returns false when the task already left the active statuses.
	MarkExpired(ctx context.Context, id int64, now time.Time) (bool, error)

	// Touch bumps the task's updated-at timestamp without changing
	// status. Used by the review-rejection ("return") signal.
	Touch(ctx context.Context, id int64, now time.Time) error

	// ListByStatus returns all tasks in the given status ordered
	// FIFO-by-deadline (earliest deadline first, tasks without a
	// deadline last, created-at as tiebreaker).
	ListByStatus(ctx context.Context, status domain.TaskStatus) ([]*domain.Task, error)

	// ListNewByMode returns tasks in "new" status with the given publish
	// mode, FIFO-by-deadline.
	ListNewByMode(ctx context.Context, mode domain.PublishMode) ([]*domain.Task, error)

	// ListTakenByAssignee returns the executor's tasks in "taken" status.
	ListTakenByAssignee(ctx context.Context, executorID int64) ([]*domain.Task, error)

	// ListOverdueActive returns active tasks whose deadline has passed at
	// the given instant. Feed for the expiry sweep.
	ListOverdueActive(ctx context.Context, now time.Time) ([]*domain.Task, error)

	// ListTakenWithDeadlineAfter returns "taken" tasks whose deadline is
	// still ahead of the given instant. Feed for reminder restoration on
	// process startup.
	ListTakenWithDeadlineAfter(ctx context.Context, now time.Time) ([]*domain.Task, error)

	// ListCreatedSince returns tasks created at or after the given
	// instant, newest first. Feed for the weekly export.
	ListCreatedSince(ctx context.Context, since time.Time) ([]*domain.Task, error)

	// Search returns up to limit tasks whose title or URL contains the
	// query substring, or whose assignee's username matches it exactly,
	// ordered by most recently updated.
	Search(ctx context.Context, query string, limit int) ([]*domain.Task, error)

	// WithTx returns a store instance bound to the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}
