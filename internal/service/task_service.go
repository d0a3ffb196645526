package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/taskrelay/internal/dedupe"
	"github.com/phrazzld/taskrelay/internal/domain"
	"github.com/phrazzld/taskrelay/internal/notify"
	"github.com/phrazzld/taskrelay/internal/platform/logger"
	"github.com/phrazzld/taskrelay/internal/store"
)

// searchLimit caps the number of results a free-text search returns.
const searchLimit = 20

// Reminders schedules and cancels deadline reminders for tasks. It is
// implemented by the scheduler package; the service only ever calls it
// after a transition has committed, so a scheduling failure can never
// roll back a claim.
type Reminders interface {
	ScheduleForTask(task *domain.Task)
	CancelForTask(taskID int64)
}

// CreateTaskInput carries everything needed to publish a new task.
type CreateTaskInput struct {
	Title            string
	URL              string
	Level            string
	EstHours         float64
	PublishMode      domain.PublishMode
	Deadline         *time.Time
	AllowedUsernames []string
	CreatedBy        int64
}

// TaskService exposes the task lifecycle operations.
type TaskService interface {
	// Create publishes a new task. Returns store.ErrDuplicateTask when an
	// active task already carries the same URL fingerprint.
	Create(ctx context.Context, input CreateTaskInput) (*domain.Task, error)

	// Get retrieves a single task.
	Get(ctx context.Context, id int64) (*domain.Task, error)

	// Claim atomically assigns a "new" task to the executor. Exactly one
	// concurrent claimer wins; losers receive domain.ErrAlreadyTaken.
	// Executors at their active-task quota receive domain.ErrQuotaExceeded.
	Claim(ctx context.Context, taskID, executorID int64) (*domain.Task, error)

	// Drop releases a taken task back to terminal "dropped" status. Only
	// the current assignee may drop.
	Drop(ctx context.Context, taskID, executorID int64) error

	// Submit signals that the assignee considers the work ready for
	// review. The status does not change.
	Submit(ctx context.Context, taskID, executorID int64) error

	// Accept marks a taken task as done after review.
	Accept(ctx context.Context, taskID, managerID int64) (*domain.Task, error)

	// Return signals a review rejection back to the assignee. The task
	// stays taken.
	Return(ctx context.Context, taskID, managerID int64) (*domain.Task, error)

	// ListByStatus returns all tasks in the given status, earliest
	// deadline first.
	ListByStatus(ctx context.Context, status domain.TaskStatus) ([]*domain.Task, error)

	// ListOpen returns unclaimed open-mode tasks.
	ListOpen(ctx context.Context) ([]*domain.Task, error)

	// ListDirectFor returns unclaimed direct-mode tasks whose allow-list
	// includes the given username.
	ListDirectFor(ctx context.Context, username string) ([]*domain.Task, error)

	// ListMine returns the executor's currently taken tasks.
	ListMine(ctx context.Context, executorID int64) ([]*domain.Task, error)

	// Search returns tasks matching the query by title or URL substring,
	// or by exact assignee username.
	Search(ctx context.Context, query string) ([]*domain.Task, error)

	// Events returns the audit trail for a task in append order.
	Events(ctx context.Context, taskID int64) ([]*domain.Event, error)
}

// txRunner matches store.RunInTransaction so tests can substitute the
// transaction barrier.
type txRunner func(ctx context.Context, db *sql.DB, fn store.TxFn) error

type taskService struct {
	db         *sql.DB
	tasks      store.TaskStore
	events     store.EventStore
	notifier   notify.Notifier
	reminders  Reminders
	managerIDs []int64
	maxActive  int

	runTx    txRunner
	timeFunc func() time.Time
}

// NewTaskService creates the task lifecycle service. maxActive is the
// per-executor quota of simultaneously taken tasks; managerIDs receive
// review and drop notifications.
func NewTaskService(
	db *sql.DB,
	tasks store.TaskStore,
	events store.EventStore,
	notifier notify.Notifier,
	reminders Reminders,
	managerIDs []int64,
	maxActive int,
) TaskService {
	return &taskService{
		db:         db,
		tasks:      tasks,
		events:     events,
		notifier:   notifier,
		reminders:  reminders,
		managerIDs: managerIDs,
		maxActive:  maxActive,
		runTx:      store.RunInTransaction,
		timeFunc:   time.Now,
	}
}

func (s *taskService) Create(ctx context.Context, input CreateTaskInput) (*domain.Task, error) {
	log := logger.FromContext(ctx)
	now := s.timeFunc().UTC()

	task := &domain.Task{
		Title:            strings.TrimSpace(input.Title),
		URL:              strings.TrimSpace(input.URL),
		Level:            input.Level,
		EstHours:         input.EstHours,
		PublishMode:      input.PublishMode,
		Deadline:         input.Deadline,
		Status:           domain.TaskStatusNew,
		CreatedBy:        input.CreatedBy,
		AllowedUsernames: normalizeUsernames(input.AllowedUsernames),
		DedupeHash:       dedupe.Fingerprint(input.URL),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}

	// Friendly pre-check so the common duplicate case can report the
	// existing task. The partial unique index remains the authoritative
	// gate for concurrent creates.
	existing, err := s.tasks.FindActiveByFingerprint(ctx, task.DedupeHash)
	if err == nil {
		return nil, fmt.Errorf("%w: active task %d has the same URL", store.ErrDuplicateTask, existing.ID)
	}
	if !errors.Is(err, store.ErrTaskNotFound) && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("checking for duplicate: %w", err)
	}

	err = s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.tasks.WithTx(tx).Create(ctx, task); err != nil {
			return err
		}
		return s.appendEvent(ctx, tx, input.CreatedBy, domain.EventActionCreate, task.ID, string(task.PublishMode))
	})
	if err != nil {
		return nil, err
	}

	log.Info("task created",
		slog.Int64("task_id", task.ID),
		slog.String("publish_mode", string(task.PublishMode)),
		slog.Int64("created_by", task.CreatedBy))
	return task, nil
}

func (s *taskService) Get(ctx context.Context, id int64) (*domain.Task, error) {
	return s.tasks.GetByID(ctx, id)
}

func (s *taskService) Claim(ctx context.Context, taskID, executorID int64) (*domain.Task, error) {
	log := logger.FromContext(ctx)

	// Quota fast path. A slightly stale count is acceptable: the quota
	// bounds workload, it is not a hard invariant like the claim itself.
	count, err := s.tasks.CountTakenByAssignee(ctx, executorID)
	if err != nil {
		return nil, fmt.Errorf("counting taken tasks: %w", err)
	}
	if count >= s.maxActive {
		return nil, domain.ErrQuotaExceeded
	}

	var claimed *domain.Task
	err = s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		tasks := s.tasks.WithTx(tx)
		now := s.timeFunc().UTC()

		ok, err := tasks.Claim(ctx, taskID, executorID, now)
		if err != nil {
			return err
		}
		if !ok {
			// Distinguish a missing task from a lost race.
			if _, err := tasks.GetByID(ctx, taskID); err != nil {
				return err
			}
			return domain.ErrAlreadyTaken
		}

		task, err := tasks.GetByID(ctx, taskID)
		if err != nil {
			return err
		}
		claimed = task

		return s.appendEvent(ctx, tx, executorID, domain.EventActionTake, taskID, "")
	})
	if err != nil {
		return nil, err
	}

	if s.reminders != nil && claimed.Deadline != nil {
		s.reminders.ScheduleForTask(claimed)
	}

	log.Info("task claimed",
		slog.Int64("task_id", taskID),
		slog.Int64("executor_id", executorID))
	return claimed, nil
}

func (s *taskService) Drop(ctx context.Context, taskID, executorID int64) error {
	log := logger.FromContext(ctx)

	var dropped *domain.Task
	err := s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		tasks := s.tasks.WithTx(tx)
		now := s.timeFunc().UTC()

		ok, err := tasks.MarkDropped(ctx, taskID, executorID, now)
		if err != nil {
			return err
		}
		if !ok {
			task, err := tasks.GetByID(ctx, taskID)
			if err != nil {
				return err
			}
			if task.Status != domain.TaskStatusTaken {
				return domain.ErrInvalidState
			}
			return domain.ErrNotOwner
		}

		task, err := tasks.GetByID(ctx, taskID)
		if err != nil {
			return err
		}
		dropped = task

		return s.appendEvent(ctx, tx, executorID, domain.EventActionDrop, taskID, "")
	})
	if err != nil {
		return err
	}

	if s.reminders != nil {
		s.reminders.CancelForTask(taskID)
	}
	s.notifyManagers(ctx, fmt.Sprintf("Task %d (%s) was dropped by its assignee", taskID, dropped.Title))

	log.Info("task dropped",
		slog.Int64("task_id", taskID),
		slog.Int64("executor_id", executorID))
	return nil
}

func (s *taskService) Submit(ctx context.Context, taskID, executorID int64) error {
	log := logger.FromContext(ctx)

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return err
	}
	if err := task.CheckSubmit(executorID); err != nil {
		return err
	}

	event, err := domain.NewEvent(executorID, domain.EventActionSubmit, &taskID, "")
	if err != nil {
		return err
	}
	if err := s.events.Append(ctx, event); err != nil {
		return err
	}

	s.notifyManagers(ctx, fmt.Sprintf("Task %d (%s) is ready for review", taskID, task.Title))

	log.Info("task submitted for review",
		slog.Int64("task_id", taskID),
		slog.Int64("executor_id", executorID))
	return nil
}

func (s *taskService) Accept(ctx context.Context, taskID, managerID int64) (*domain.Task, error) {
	log := logger.FromContext(ctx)

	var accepted *domain.Task
	err := s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		tasks := s.tasks.WithTx(tx)
		now := s.timeFunc().UTC()

		ok, err := tasks.MarkDone(ctx, taskID, now)
		if err != nil {
			return err
		}
		if !ok {
			if _, err := tasks.GetByID(ctx, taskID); err != nil {
				return err
			}
			return domain.ErrInvalidState
		}

		task, err := tasks.GetByID(ctx, taskID)
		if err != nil {
			return err
		}
		accepted = task

		return s.appendEvent(ctx, tx, managerID, domain.EventActionDone, taskID, "")
	})
	if err != nil {
		return nil, err
	}

	if s.reminders != nil {
		s.reminders.CancelForTask(taskID)
	}
	if accepted.AssigneeID != nil {
		s.notifyUser(ctx, *accepted.AssigneeID,
			fmt.Sprintf("Task %d (%s) was accepted. Nice work!", taskID, accepted.Title))
	}

	log.Info("task accepted",
		slog.Int64("task_id", taskID),
		slog.Int64("manager_id", managerID))
	return accepted, nil
}

func (s *taskService) Return(ctx context.Context, taskID, managerID int64) (*domain.Task, error) {
	log := logger.FromContext(ctx)

	var returned *domain.Task
	err := s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		tasks := s.tasks.WithTx(tx)
		now := s.timeFunc().UTC()

		task, err := tasks.GetByID(ctx, taskID)
		if err != nil {
			return err
		}
		if err := task.Return(now); err != nil {
			return err
		}
		if err := tasks.Touch(ctx, taskID, now); err != nil {
			return err
		}
		returned = task

		return s.appendEvent(ctx, tx, managerID, domain.EventActionReturn, taskID, "")
	})
	if err != nil {
		return nil, err
	}

	if returned.AssigneeID != nil {
		s.notifyUser(ctx, *returned.AssigneeID,
			fmt.Sprintf("Task %d (%s) was returned for rework", taskID, returned.Title))
	}

	log.Info("task returned for rework",
		slog.Int64("task_id", taskID),
		slog.Int64("manager_id", managerID))
	return returned, nil
}

func (s *taskService) ListByStatus(ctx context.Context, status domain.TaskStatus) ([]*domain.Task, error) {
	if !status.IsValid() {
		return nil, domain.ErrInvalidStatus
	}
	return s.tasks.ListByStatus(ctx, status)
}

func (s *taskService) ListOpen(ctx context.Context) ([]*domain.Task, error) {
	return s.tasks.ListNewByMode(ctx, domain.PublishModeOpen)
}

func (s *taskService) ListDirectFor(ctx context.Context, username string) ([]*domain.Task, error) {
	all, err := s.tasks.ListNewByMode(ctx, domain.PublishModeDirect)
	if err != nil {
		return nil, err
	}

	visible := make([]*domain.Task, 0, len(all))
	for _, task := range all {
		if task.AllowsUsername(username) {
			visible = append(visible, task)
		}
	}
	return visible, nil
}

func (s *taskService) ListMine(ctx context.Context, executorID int64) ([]*domain.Task, error) {
	return s.tasks.ListTakenByAssignee(ctx, executorID)
}

func (s *taskService) Search(ctx context.Context, query string) ([]*domain.Task, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewValidationError("query", "search query cannot be empty", domain.ErrValidation)
	}
	return s.tasks.Search(ctx, query, searchLimit)
}

func (s *taskService) Events(ctx context.Context, taskID int64) ([]*domain.Event, error) {
	if _, err := s.tasks.GetByID(ctx, taskID); err != nil {
		return nil, err
	}
	return s.events.ListByTask(ctx, taskID)
}

// appendEvent writes one audit event through the given transaction.
func (s *taskService) appendEvent(ctx context.Context, tx *sql.Tx, actorID int64, action domain.EventAction, taskID int64, meta string) error {
	event, err := domain.NewEvent(actorID, action, &taskID, meta)
	if err != nil {
		return err
	}
	return s.events.WithTx(tx).Append(ctx, event)
}

// notifyManagers fans a message out to every configured manager.
// Delivery failures are logged and swallowed.
func (s *taskService) notifyManagers(ctx context.Context, message string) {
	for _, id := range s.managerIDs {
		s.notifyUser(ctx, id, message)
	}
}

func (s *taskService) notifyUser(ctx context.Context, userID int64, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, message); err != nil {
		logger.FromContext(ctx).Warn("notification failed",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()))
	}
}

func normalizeUsernames(usernames []string) []string {
	if len(usernames) == 0 {
		return nil
	}
	out := make([]string, 0, len(usernames))
	for _, u := range usernames {
		u = strings.TrimSpace(strings.TrimPrefix(u, "@"))
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}
