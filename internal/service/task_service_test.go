package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskrelay/internal/domain"
	"github.com/phrazzld/taskrelay/internal/mocks"
	"github.com/phrazzld/taskrelay/internal/store"
)

// fakeReminders records scheduling calls.
type fakeReminders struct {
	mu        sync.Mutex
	scheduled []int64
	cancelled []int64
}

func (f *fakeReminders) ScheduleForTask(task *domain.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, task.ID)
}

func (f *fakeReminders) CancelForTask(taskID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, taskID)
}

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// newTestTaskService wires a task service against mocks, replacing the
// transaction barrier with a direct call since the mocks have no real
// transactions.
func newTestTaskService(
	t *testing.T,
	tasks *mocks.MockTaskStore,
	events *mocks.MockEventStore,
	notifier *mocks.MockNotifier,
	reminders *fakeReminders,
) TaskService {
	t.Helper()

	svc := NewTaskService(nil, tasks, events, notifier, reminders, []int64{100, 101}, 3)
	impl := svc.(*taskService)
	impl.runTx = func(ctx context.Context, db *sql.DB, fn store.TxFn) error {
		return fn(ctx, nil)
	}
	impl.timeFunc = func() time.Time { return testNow }
	return svc
}

func seedTakenTask(tasks *mocks.MockTaskStore, executorID int64, deadline *time.Time) *domain.Task {
	return tasks.Seed(&domain.Task{
		Title:       "Seeded",
		URL:         "https://tracker.example.com/seeded",
		PublishMode: domain.PublishModeOpen,
		Status:      domain.TaskStatusTaken,
		AssigneeID:  &executorID,
		CreatedBy:   100,
		DedupeHash:  "seeded-hash",
		Deadline:    deadline,
		CreatedAt:   testNow,
		UpdatedAt:   testNow,
	})
}

func seedNewTask(tasks *mocks.MockTaskStore, hash string) *domain.Task {
	return tasks.Seed(&domain.Task{
		Title:       "Open task",
		URL:         "https://tracker.example.com/" + hash,
		PublishMode: domain.PublishModeOpen,
		Status:      domain.TaskStatusNew,
		CreatedBy:   100,
		DedupeHash:  hash,
		CreatedAt:   testNow,
		UpdatedAt:   testNow,
	})
}

func TestCreateTask(t *testing.T) {
	tasks := mocks.NewMockTaskStore()
	events := mocks.NewMockEventStore()
	svc := newTestTaskService(t, tasks, events, mocks.NewMockNotifier(), &fakeReminders{})

	created, err := svc.Create(context.Background(), CreateTaskInput{
		Title:       "Write onboarding doc",
		URL:         "https://tracker.example.com/tickets/42",
		PublishMode: domain.PublishModeOpen,
		CreatedBy:   100,
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	assert.Equal(t, domain.TaskStatusNew, created.Status)
	assert.NotEmpty(t, created.DedupeHash)

	actions := events.ActionsForTask(created.ID)
	require.Len(t, actions, 1)
	assert.Equal(t, domain.EventActionCreate, actions[0])
}

func TestCreateTaskDuplicateURL(t *testing.T) {
	tasks := mocks.NewMockTaskStore()
	events := mocks.NewMockEventStore()
	svc := newTestTaskService(t, tasks, events, mocks.NewMockNotifier(), &fakeReminders{})

	input := CreateTaskInput{
		Title:       "First",
		URL:         "https://tracker.example.com/tickets/7",
		PublishMode: domain.PublishModeOpen,
		CreatedBy:   100,
	}
	_, err := svc.Create(context.Background(), input)
	require.NoError(t, err)

	// Same URL with cosmetic differences must be rejected while the
	// first task is active.
	input.Title = "Second"
	input.URL = "https://Tracker.example.com/tickets/7/"
	_, err = svc.Create(context.Background(), input)
	assert.ErrorIs(t, err, store.ErrDuplicateTask)
}

func TestCreateTaskTerminalFingerprintReusable(t *testing.T) {
	tasks := mocks.NewMockTaskStore()
	events := mocks.NewMockEventStore()
	svc := newTestTaskService(t, tasks, events, mocks.NewMockNotifier(), &fakeReminders{})

	first, err := svc.Create(context.Background(), CreateTaskInput{
		Title:       "First",
		URL:         "https://tracker.example.com/tickets/9",
		PublishMode: domain.PublishModeOpen,
		CreatedBy:   100,
	})
	require.NoError(t, err)

	tasks.Tasks[first.ID].Status = domain.TaskStatusDropped

	_, err = svc.Create(context.Background(), CreateTaskInput{
		Title:       "Replacement",
		URL:         "https://tracker.example.com/tickets/9",
		PublishMode: domain.PublishModeOpen,
		CreatedBy:   100,
	})
	assert.NoError(t, err)
}

func TestCreateDirectTaskRequiresAllowList(t *testing.T) {
	svc := newTestTaskService(t, mocks.NewMockTaskStore(), mocks.NewMockEventStore(), mocks.NewMockNotifier(), &fakeReminders{})

	_, err := svc.Create(context.Background(), CreateTaskInput{
		Title:       "Direct",
		URL:         "https://tracker.example.com/tickets/8",
		PublishMode: domain.PublishModeDirect,
		CreatedBy:   100,
	})
	assert.ErrorIs(t, err, domain.ErrTaskAllowListEmpty)
}

func TestClaim(t *testing.T) {
	tasks := mocks.NewMockTaskStore()
	events := mocks.NewMockEventStore()
	reminders := &fakeReminders{}
	svc := newTestTaskService(t, tasks, events, mocks.NewMockNotifier(), reminders)

	deadline := testNow.Add(48 * time.Hour)
	task := tasks.Seed(&domain.Task{
		Title:       "With deadline",
		URL:         "https://tracker.example.com/tickets/11",
		PublishMode: domain.PublishModeOpen,
		Status:      domain.TaskStatusNew,
		CreatedBy:   100,
		DedupeHash:  "h11",
		Deadline:    &deadline,
	})

	claimed, err := svc.Claim(context.Background(), task.ID, 200)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusTaken, claimed.Status)
	require.NotNil(t, claimed.AssigneeID)
	assert.Equal(t, int64(200), *claimed.AssigneeID)

	actions := events.ActionsForTask(task.ID)
	require.Len(t, actions, 1)
	assert.Equal(t, domain.EventActionTake, actions[0])

	assert.Equal(t, []int64{task.ID}, reminders.scheduled)
}

func TestClaimQuotaExceeded(t *testing.T) {
	tasks := mocks.NewMockTaskStore()
	svc := newTestTaskService(t, tasks, mocks.NewMockEventStore(), mocks.NewMockNotifier(), &fakeReminders{})

	for range 3 {
		seedTakenTask(tasks, 200, nil)
	}
	target := seedNewTask(tasks, "h-quota")

	_, err := svc.Claim(context.Background(), target.ID, 200)
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)

	// The target task must be untouched.
	got, err := tasks.GetByID(context.Background(), target.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusNew, got.Status)
}

func TestClaimAlreadyTaken(t *testing.T) {
	tasks := mocks.NewMockTaskStore()
	svc := newTestTaskService(t, tasks, mocks.NewMockEventStore(), mocks.NewMockNotifier(), &fakeReminders{})

	task := seedTakenTask(tasks, 300, nil)

	_, err := svc.Claim(context.Background(), task.ID, 200)
	assert.ErrorIs(t, err, domain.ErrAlreadyTaken)
}

func TestClaimMissingTask(t *testing.T) {
	svc := newTestTaskService(t, mocks.NewMockTaskStore(), mocks.NewMockEventStore(), mocks.NewMockNotifier(), &fakeReminders{})

	_, err := svc.Claim(context.Background(), 9999, 200)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestConcurrentClaimExactlyOneWinner(t *testing.T) {
	tasks := mocks.NewMockTaskStore()
	events := mocks.NewMockEventStore()
	svc := newTestTaskService(t, tasks, events, mocks.NewMockNotifier(), &fakeReminders{})

	task := seedNewTask(tasks, "h-race")

	const claimers = 20
	errs := make([]error, claimers)

	var wg sync.WaitGroup
	for i := range claimers {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = svc.Claim(context.Background(), task.ID, int64(200+n))
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, domain.ErrAlreadyTaken)
		}
	}
	assert.Equal(t, 1, winners)

	actions := events.ActionsForTask(task.ID)
	require.Len(t, actions, 1)
	assert.Equal(t, domain.EventActionTake, actions[0])
}

func TestDrop(t *testing.T) {
	tasks := mocks.NewMockTaskStore()
	events := mocks.NewMockEventStore()
	notifier := mocks.NewMockNotifier()
	reminders := &fakeReminders{}
	svc := newTestTaskService(t, tasks, events, notifier, reminders)

	task := seedTakenTask(tasks, 200, nil)

	require.NoError(t, svc.Drop(context.Background(), task.ID, 200))

	got, err := tasks.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusDropped, got.Status)

	assert.Equal(t, []domain.EventAction{domain.EventActionDrop}, events.ActionsForTask(task.ID))
	assert.Equal(t, []int64{task.ID}, reminders.cancelled)

	// Both configured managers hear about the drop.
	assert.Len(t, notifier.SentTo(100), 1)
	assert.Len(t, notifier.SentTo(101), 1)
}

func TestDropNotOwner(t *testing.T) {
	tasks := mocks.NewMockTaskStore()
	svc := newTestTaskService(t, tasks, mocks.NewMockEventStore(), mocks.NewMockNotifier(), &fakeReminders{})

	task := seedTakenTask(tasks, 200, nil)

	err := svc.Drop(context.Background(), task.ID, 300)
	assert.ErrorIs(t, err, domain.ErrNotOwner)

	got, _ := tasks.GetByID(context.Background(), task.ID)
	assert.Equal(t, domain.TaskStatusTaken, got.Status)
}

func TestDropInvalidState(t *testing.T) {
	tasks := mocks.NewMockTaskStore()
	svc := newTestTaskService(t, tasks, mocks.NewMockEventStore(), mocks.NewMockNotifier(), &fakeReminders{})

	task := seedNewTask(tasks, "h-drop-new")

	err := svc.Drop(context.Background(), task.ID, 200)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestSubmitKeepsStatus(t *testing.T) {
	tasks := mocks.NewMockTaskStore()
	events := mocks.NewMockEventStore()
	notifier := mocks.NewMockNotifier()
	svc := newTestTaskService(t, tasks, events, notifier, &fakeReminders{})

	task := seedTakenTask(tasks, 200, nil)

	require.NoError(t, svc.Submit(context.Background(), task.ID, 200))

	got, err := tasks.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusTaken, got.Status)

	assert.Equal(t, []domain.EventAction{domain.EventActionSubmit}, events.ActionsForTask(task.ID))
	assert.NotEmpty(t, notifier.SentTo(100))
}

func TestSubmitNotOwner(t *testing.T) {
	tasks := mocks.NewMockTaskStore()
	svc := newTestTaskService(t, tasks, mocks.NewMockEventStore(), mocks.NewMockNotifier(), &fakeReminders{})

	task := seedTakenTask(tasks, 200, nil)

	err := svc.Submit(context.Background(), task.ID, 300)
	assert.ErrorIs(t, err, domain.ErrNotOwner)
}

func TestAccept(t *testing.T) {
	tasks := mocks.NewMockTaskStore()
	events := mocks.NewMockEventStore()
	notifier := mocks.NewMockNotifier()
	reminders := &fakeReminders{}
	svc := newTestTaskService(t, tasks, events, notifier, reminders)

	task := seedTakenTask(tasks, 200, nil)

	accepted, err := svc.Accept(context.Background(), task.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusDone, accepted.Status)

	assert.Equal(t, []domain.EventAction{domain.EventActionDone}, events.ActionsForTask(task.ID))
	assert.Equal(t, []int64{task.ID}, reminders.cancelled)
	assert.NotEmpty(t, notifier.SentTo(200))
}

func TestAcceptInvalidState(t *testing.T) {
	tasks := mocks.NewMockTaskStore()
	svc := newTestTaskService(t, tasks, mocks.NewMockEventStore(), mocks.NewMockNotifier(), &fakeReminders{})

	task := seedNewTask(tasks, "h-accept-new")

	_, err := svc.Accept(context.Background(), task.ID, 100)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestReturnKeepsTaken(t *testing.T) {
	tasks := mocks.NewMockTaskStore()
	events := mocks.NewMockEventStore()
	notifier := mocks.NewMockNotifier()
	svc := newTestTaskService(t, tasks, events, notifier, &fakeReminders{})

	task := seedTakenTask(tasks, 200, nil)

	returned, err := svc.Return(context.Background(), task.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusTaken, returned.Status)

	assert.Equal(t, []domain.EventAction{domain.EventActionReturn}, events.ActionsForTask(task.ID))
	assert.NotEmpty(t, notifier.SentTo(200))
}

func TestListDirectForFiltersAllowList(t *testing.T) {
	tasks := mocks.NewMockTaskStore()
	svc := newTestTaskService(t, tasks, mocks.NewMockEventStore(), mocks.NewMockNotifier(), &fakeReminders{})

	tasks.Seed(&domain.Task{
		Title:            "For alice",
		URL:              "https://tracker.example.com/a",
		PublishMode:      domain.PublishModeDirect,
		Status:           domain.TaskStatusNew,
		CreatedBy:        100,
		DedupeHash:       "ha",
		AllowedUsernames: []string{"alice"},
	})
	tasks.Seed(&domain.Task{
		Title:            "For bob",
		URL:              "https://tracker.example.com/b",
		PublishMode:      domain.PublishModeDirect,
		Status:           domain.TaskStatusNew,
		CreatedBy:        100,
		DedupeHash:       "hb",
		AllowedUsernames: []string{"bob"},
	})

	visible, err := svc.ListDirectFor(context.Background(), "Alice")
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "For alice", visible[0].Title)
}

func TestSearchEmptyQuery(t *testing.T) {
	svc := newTestTaskService(t, mocks.NewMockTaskStore(), mocks.NewMockEventStore(), mocks.NewMockNotifier(), &fakeReminders{})

	_, err := svc.Search(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
