// Package scheduler owns the time-driven side of the task lifecycle:
// deadline reminders for taken tasks and the recurring sweep that
// expires overdue work. Reminder timers live only in process memory and
// are rebuilt from persistent task state on startup, so the tasks table
// stays the single source of truth.
package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/taskrelay/internal/domain"
	"github.com/phrazzld/taskrelay/internal/notify"
	"github.com/phrazzld/taskrelay/internal/platform/logger"
	"github.com/phrazzld/taskrelay/internal/store"
)

// reminderKey identifies one pending reminder: a task and a lead time.
// Scheduling the same key again replaces the pending timer, which keeps
// reminder registration idempotent.
type reminderKey struct {
	taskID int64
	lead   int
}

// txRunner matches store.RunInTransaction so tests can substitute the
// transaction barrier.
type txRunner func(ctx context.Context, db *sql.DB, fn store.TxFn) error

// Scheduler fires deadline reminders and expires overdue tasks.
type Scheduler struct {
	db            *sql.DB
	tasks         store.TaskStore
	events        store.EventStore
	notifier      notify.Notifier
	managerIDs    []int64
	leads         []int
	sweepInterval time.Duration
	logger        *slog.Logger

	runTx    txRunner
	timeFunc func() time.Time

	mu     sync.Mutex
	timers map[reminderKey]*time.Timer

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Scheduler. leads are reminder lead times in minutes
// before the deadline; sweepInterval is how often overdue tasks are
// expired.
func New(
	db *sql.DB,
	tasks store.TaskStore,
	events store.EventStore,
	notifier notify.Notifier,
	managerIDs []int64,
	leads []int,
	sweepInterval time.Duration,
	log *slog.Logger,
) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		db:            db,
		tasks:         tasks,
		events:        events,
		notifier:      notifier,
		managerIDs:    managerIDs,
		leads:         leads,
		sweepInterval: sweepInterval,
		logger:        log.With(slog.String("component", "scheduler")),
		runTx:         store.RunInTransaction,
		timeFunc:      time.Now,
		timers:        make(map[reminderKey]*time.Timer),
	}
}

// Start launches the recurring expiry sweep. It returns immediately;
// call Stop to shut the scheduler down.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.sweepLoop(ctx)
}

// Stop cancels the sweep loop and all pending reminder timers.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}

	s.mu.Lock()
	for key, timer := range s.timers {
		timer.Stop()
		delete(s.timers, key)
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// Restore rebuilds reminder timers from persistent state: every taken
// task whose deadline is still ahead gets its reminders scheduled again.
// Called once on startup.
func (s *Scheduler) Restore(ctx context.Context) error {
	now := s.timeFunc().UTC()

	tasks, err := s.tasks.ListTakenWithDeadlineAfter(ctx, now)
	if err != nil {
		return fmt.Errorf("listing tasks for reminder restore: %w", err)
	}

	for _, task := range tasks {
		s.ScheduleForTask(task)
	}

	s.logger.Info("reminders restored", slog.Int("task_count", len(tasks)))
	return nil
}

// ScheduleForTask registers reminder timers for the task's deadline, one
// per configured lead time. Lead times already in the past are skipped;
// re-scheduling replaces any pending timers for the same task.
func (s *Scheduler) ScheduleForTask(task *domain.Task) {
	if task.Deadline == nil {
		return
	}

	now := s.timeFunc()
	deadline := task.Deadline.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, lead := range s.leads {
		fireAt := deadline.Add(-time.Duration(lead) * time.Minute)
		if !fireAt.After(now) {
			continue
		}

		key := reminderKey{taskID: task.ID, lead: lead}
		if existing, ok := s.timers[key]; ok {
			existing.Stop()
		}
		s.timers[key] = time.AfterFunc(fireAt.Sub(now), func() {
			s.fire(key)
		})
	}
}

// CancelForTask stops all pending reminders for a task. Called when the
// task leaves "taken" status; firing is also guarded by a status
// re-check, so cancellation is tidiness rather than correctness.
func (s *Scheduler) CancelForTask(taskID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, timer := range s.timers {
		if key.taskID == taskID {
			timer.Stop()
			delete(s.timers, key)
		}
	}
}

// PendingReminders reports how many reminder timers are currently armed.
func (s *Scheduler) PendingReminders() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// fire delivers one reminder. The task's current status decides whether
// the reminder is still wanted: a task that was dropped, accepted or
// expired since scheduling is silently skipped.
func (s *Scheduler) fire(key reminderKey) {
	s.mu.Lock()
	delete(s.timers, key)
	s.mu.Unlock()

	ctx := logger.WithLogger(context.Background(), s.logger)

	task, err := s.tasks.GetByID(ctx, key.taskID)
	if err != nil {
		s.logger.Warn("reminder task lookup failed",
			slog.Int64("task_id", key.taskID),
			slog.String("error", err.Error()))
		return
	}
	if task.Status != domain.TaskStatusTaken || task.AssigneeID == nil {
		s.logger.Debug("reminder skipped, task no longer taken",
			slog.Int64("task_id", key.taskID),
			slog.String("status", string(task.Status)))
		return
	}

	message := fmt.Sprintf("Reminder: %d min left on task %d (%s)", key.lead, task.ID, task.Title)
	if err := s.notifier.Notify(ctx, *task.AssigneeID, message); err != nil {
		s.logger.Warn("reminder notification failed",
			slog.Int64("task_id", task.ID),
			slog.String("error", err.Error()))
	}

	meta := fmt.Sprintf("%d min left", key.lead)
	event, err := domain.NewEvent(domain.SystemActorID, domain.EventActionRemind, &task.ID, meta)
	if err != nil {
		s.logger.Error("building remind event failed",
			slog.Int64("task_id", task.ID),
			slog.String("error", err.Error()))
		return
	}
	if err := s.events.Append(ctx, event); err != nil {
		s.logger.Error("recording remind event failed",
			slog.Int64("task_id", task.ID),
			slog.String("error", err.Error()))
	}

	s.logger.Info("reminder fired",
		slog.Int64("task_id", task.ID),
		slog.Int("lead_minutes", key.lead))
}

func (s *Scheduler) sweepLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	// Sweep immediately so work overdue across a restart expires without
	// waiting for the first tick.
	s.runSweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runSweep(ctx)
		}
	}
}

func (s *Scheduler) runSweep(ctx context.Context) {
	expired, err := s.SweepOnce(ctx)
	if err != nil {
		s.logger.Error("expiry sweep failed", slog.String("error", err.Error()))
		return
	}
	if expired > 0 {
		s.logger.Info("expiry sweep completed", slog.Int("expired_count", expired))
	}
}

// SweepOnce expires every active task whose deadline has passed. All
// status changes and their audit events commit in one transaction;
// notifications go out only after the commit succeeds. Returns the
// number of tasks expired.
func (s *Scheduler) SweepOnce(ctx context.Context) (int, error) {
	ctx = logger.WithLogger(ctx, s.logger)
	now := s.timeFunc().UTC()

	var expired []*domain.Task
	err := s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		expired = expired[:0]
		tasks := s.tasks.WithTx(tx)
		events := s.events.WithTx(tx)

		overdue, err := tasks.ListOverdueActive(ctx, now)
		if err != nil {
			return fmt.Errorf("listing overdue tasks: %w", err)
		}

		for _, task := range overdue {
			ok, err := tasks.MarkExpired(ctx, task.ID, now)
			if err != nil {
				return err
			}
			if !ok {
				// Lost a race with a concurrent transition; skip.
				continue
			}

			event, err := domain.NewEvent(domain.SystemActorID, domain.EventActionExpire, &task.ID, "")
			if err != nil {
				return err
			}
			if err := events.Append(ctx, event); err != nil {
				return err
			}

			expired = append(expired, task)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, task := range expired {
		s.CancelForTask(task.ID)

		message := fmt.Sprintf("Task %d (%s) expired: its deadline passed", task.ID, task.Title)
		if task.AssigneeID != nil {
			s.notify(ctx, *task.AssigneeID, message)
		}
		for _, managerID := range s.managerIDs {
			s.notify(ctx, managerID, message)
		}
	}

	return len(expired), nil
}

func (s *Scheduler) notify(ctx context.Context, userID int64, message string) {
	if err := s.notifier.Notify(ctx, userID, message); err != nil {
		s.logger.Warn("expiry notification failed",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()))
	}
}
