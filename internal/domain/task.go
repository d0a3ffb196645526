package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/phrazzld/taskrelay/internal/dedupe"
)

// Task-specific validation errors
var (
	// ErrTaskTitleEmpty is returned when a task title is empty.
	ErrTaskTitleEmpty = errors.New("task title cannot be empty")

	// ErrTaskURLEmpty is returned when a task's reference URL is empty.
	ErrTaskURLEmpty = errors.New("task reference URL cannot be empty")

	// ErrTaskCreatorEmpty is returned when a task has no creator identity.
	ErrTaskCreatorEmpty = errors.New("task creator cannot be empty")

	// ErrTaskEstHoursNegative is returned when the estimated effort is negative.
	ErrTaskEstHoursNegative = errors.New("task estimated hours cannot be negative")

	// ErrTaskAllowListEmpty is returned when a direct task has no allow-list.
	ErrTaskAllowListEmpty = errors.New("direct task requires at least one allowed username")
)

// TaskStatus represents the lifecycle status of a task.
type TaskStatus string

// Task lifecycle statuses. New and Taken are the "active" statuses; the
// dedupe uniqueness constraint is scoped to them. Done, Dropped and
// Expired are terminal.
const (
	TaskStatusNew     TaskStatus = "new"
	TaskStatusTaken   TaskStatus = "taken"
	TaskStatusDone    TaskStatus = "done"
	TaskStatusDropped TaskStatus = "dropped"
	TaskStatusExpired TaskStatus = "expired"
)

// IsValid checks whether the status is one of the known lifecycle statuses.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusNew, TaskStatusTaken, TaskStatusDone, TaskStatusDropped, TaskStatusExpired:
		return true
	}
	return false
}

// IsTerminal reports whether the status permits no further transitions.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusDone, TaskStatusDropped, TaskStatusExpired:
		return true
	}
	return false
}

// IsActive reports whether the status counts against the dedupe
// uniqueness constraint.
func (s TaskStatus) IsActive() bool {
	return s == TaskStatusNew || s == TaskStatusTaken
}

// PublishMode controls who may claim a task.
type PublishMode string

const (
	// PublishModeOpen tasks may be claimed by any executor.
	PublishModeOpen PublishMode = "open"

	// PublishModeDirect tasks may only be claimed by executors on the
	// task's allow-list, typically via a delegation link.
	PublishModeDirect PublishMode = "direct"
)

// IsValid checks whether the publish mode is known.
func (m PublishMode) IsValid() bool {
	return m == PublishModeOpen || m == PublishModeDirect
}

// Task represents a unit of work with a deadline, a lifecycle status and an
// optional assignee. Tasks are never physically deleted; terminal tasks are
// retained for audit and export.
type Task struct {
	ID               int64       `json:"id"`
	Title            string      `json:"title"`
	URL              string      `json:"url"`
	Level            string      `json:"level,omitempty"`
	EstHours         float64     `json:"est_hours,omitempty"`
	PublishMode      PublishMode `json:"publish_mode"`
	Deadline         *time.Time  `json:"deadline,omitempty"`
	Status           TaskStatus  `json:"status"`
	AssigneeID       *int64      `json:"assignee_id,omitempty"`
	CreatedBy        int64       `json:"created_by"`
	AllowedUsernames []string    `json:"allowed_usernames,omitempty"`
	DedupeHash       string      `json:"dedupe_hash"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// NewTask creates a new Task in status "new" with its dedupe fingerprint
// derived from the reference URL. Optional fields (level, estimated hours,
// deadline, allow-list) are set by the caller before Validate.
func NewTask(title, rawURL string, mode PublishMode, createdBy int64) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		Title:       strings.TrimSpace(title),
		URL:         strings.TrimSpace(rawURL),
		PublishMode: mode,
		Status:      TaskStatusNew,
		CreatedBy:   createdBy,
		DedupeHash:  dedupe.Fingerprint(rawURL),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.Title == "" {
		return ErrTaskTitleEmpty
	}

	if t.URL == "" {
		return ErrTaskURLEmpty
	}

	if t.CreatedBy == 0 {
		return ErrTaskCreatorEmpty
	}

	if !t.Status.IsValid() {
		return ErrInvalidStatus
	}

	if !t.PublishMode.IsValid() {
		return ErrInvalidPublishMode
	}

	if t.EstHours < 0 {
		return ErrTaskEstHoursNegative
	}

	if t.PublishMode == PublishModeDirect && len(t.AllowedUsernames) == 0 {
		return ErrTaskAllowListEmpty
	}

	return nil
}

// Take transitions the task from "new" to "taken" for the given executor.
// The store-level claim protocol is the authoritative gate; this method
// enforces the same rule for in-memory copies.
func (t *Task) Take(executorID int64, now time.Time) error {
	if t.Status != TaskStatusNew {
		return ErrInvalidState
	}

	t.Status = TaskStatusTaken
	t.AssigneeID = &executorID
	t.UpdatedAt = now.UTC()
	return nil
}

// Drop transitions the task from "taken" to "dropped". Only the current
// assignee may drop a task.
func (t *Task) Drop(executorID int64, now time.Time) error {
	if t.Status != TaskStatusTaken {
		return ErrInvalidState
	}

	if t.AssigneeID == nil || *t.AssigneeID != executorID {
		return ErrNotOwner
	}

	t.Status = TaskStatusDropped
	t.UpdatedAt = now.UTC()
	return nil
}

// CheckSubmit verifies that the given executor may submit the task for
// review. Submission is a pure review-request signal: it does not change
// the task status, so there is nothing to mutate here.
func (t *Task) CheckSubmit(executorID int64) error {
	if t.Status != TaskStatusTaken {
		return ErrInvalidState
	}

	if t.AssigneeID == nil || *t.AssigneeID != executorID {
		return ErrNotOwner
	}

	return nil
}

// Accept transitions the task from "taken" to "done".
func (t *Task) Accept(now time.Time) error {
	if t.Status != TaskStatusTaken {
		return ErrInvalidState
	}

	t.Status = TaskStatusDone
	t.UpdatedAt = now.UTC()
	return nil
}

// Return records a review rejection. The status deliberately stays
// "taken": return is a signal to the assignee, not a state change.
func (t *Task) Return(now time.Time) error {
	if t.Status != TaskStatusTaken {
		return ErrInvalidState
	}

	if t.AssigneeID == nil {
		return ErrInvalidState
	}

	t.UpdatedAt = now.UTC()
	return nil
}

// Expire transitions an active task to "expired". Tasks already in a
// terminal state are rejected so the expiry sweep stays idempotent.
func (t *Task) Expire(now time.Time) error {
	if !t.Status.IsActive() {
		return ErrInvalidState
	}

	t.Status = TaskStatusExpired
	t.UpdatedAt = now.UTC()
	return nil
}

// Overdue reports whether the task's deadline has passed at the given
// instant. Tasks without a deadline are never overdue.
func (t *Task) Overdue(now time.Time) bool {
	return t.Deadline != nil && t.Deadline.Before(now)
}

// AllowsUsername reports whether the given principal name is on the
// task's allow-list. Comparison is case-insensitive. Open tasks allow
// everybody.
func (t *Task) AllowsUsername(username string) bool {
	if t.PublishMode == PublishModeOpen {
		return true
	}

	for _, allowed := range t.AllowedUsernames {
		if strings.EqualFold(allowed, username) {
			return true
		}
	}
	return false
}
