package mocks

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/taskrelay/internal/domain"
	"github.com/phrazzld/taskrelay/internal/store"
)

// MockTaskStore implements store.TaskStore for testing. The default
// implementation keeps tasks in a mutex-guarded map, so conditional
// updates behave like their SQL counterparts under concurrency: exactly
// one claimer can move a task out of "new".
type MockTaskStore struct {
	mu sync.Mutex

	// Function fields for customizable behavior
	CreateFn               func(ctx context.Context, task *domain.Task) error
	GetByIDFn              func(ctx context.Context, id int64) (*domain.Task, error)
	ClaimFn                func(ctx context.Context, id, executorID int64, now time.Time) (bool, error)
	CountTakenByAssigneeFn func(ctx context.Context, executorID int64) (int, error)
	ListOverdueActiveFn    func(ctx context.Context, now time.Time) ([]*domain.Task, error)
	MarkExpiredFn          func(ctx context.Context, id int64, now time.Time) (bool, error)

	// Data for default implementation
	Tasks  map[int64]*domain.Task
	NextID int64
}

// NewMockTaskStore creates a new mock store with initialized defaults.
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{
		Tasks:  make(map[int64]*domain.Task),
		NextID: 1,
	}
}

// Seed inserts a task directly into the backing map, assigning an ID if
// the task has none.
func (m *MockTaskStore) Seed(task *domain.Task) *domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	if task.ID == 0 {
		task.ID = m.NextID
		m.NextID++
	} else if task.ID >= m.NextID {
		m.NextID = task.ID + 1
	}
	m.Tasks[task.ID] = task
	return task
}

func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, task)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.Tasks {
		if existing.DedupeHash == task.DedupeHash && existing.Status.IsActive() {
			return store.ErrDuplicateTask
		}
	}

	task.ID = m.NextID
	m.NextID++
	m.Tasks[task.ID] = task
	return nil
}

func (m *MockTaskStore) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.Tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (m *MockTaskStore) FindActiveByFingerprint(ctx context.Context, fingerprint string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, task := range m.Tasks {
		if task.DedupeHash == fingerprint && task.Status.IsActive() {
			copied := *task
			return &copied, nil
		}
	}
	return nil, store.ErrTaskNotFound
}

func (m *MockTaskStore) CountTakenByAssignee(ctx context.Context, executorID int64) (int, error) {
	if m.CountTakenByAssigneeFn != nil {
		return m.CountTakenByAssigneeFn(ctx, executorID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, task := range m.Tasks {
		if task.Status == domain.TaskStatusTaken && task.AssigneeID != nil && *task.AssigneeID == executorID {
			count++
		}
	}
	return count, nil
}

func (m *MockTaskStore) Claim(ctx context.Context, id, executorID int64, now time.Time) (bool, error) {
	if m.ClaimFn != nil {
		return m.ClaimFn(ctx, id, executorID, now)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.Tasks[id]
	if !ok || task.Status != domain.TaskStatusNew {
		return false, nil
	}

	task.Status = domain.TaskStatusTaken
	task.AssigneeID = &executorID
	task.UpdatedAt = now
	return true, nil
}

func (m *MockTaskStore) MarkDone(ctx context.Context, id int64, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.Tasks[id]
	if !ok || task.Status != domain.TaskStatusTaken {
		return false, nil
	}

	task.Status = domain.TaskStatusDone
	task.UpdatedAt = now
	return true, nil
}

func (m *MockTaskStore) MarkDropped(ctx context.Context, id, executorID int64, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.Tasks[id]
	if !ok || task.Status != domain.TaskStatusTaken {
		return false, nil
	}
	if task.AssigneeID == nil || *task.AssigneeID != executorID {
		return false, nil
	}

	task.Status = domain.TaskStatusDropped
	task.UpdatedAt = now
	return true, nil
}

func (m *MockTaskStore) MarkExpired(ctx context.Context, id int64, now time.Time) (bool, error) {
	if m.MarkExpiredFn != nil {
		return m.MarkExpiredFn(ctx, id, now)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.Tasks[id]
	if !ok || !task.Status.IsActive() {
		return false, nil
	}

	task.Status = domain.TaskStatusExpired
	task.UpdatedAt = now
	return true, nil
}

func (m *MockTaskStore) Touch(ctx context.Context, id int64, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.Tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	task.UpdatedAt = now
	return nil
}

func (m *MockTaskStore) ListByStatus(ctx context.Context, status domain.TaskStatus) ([]*domain.Task, error) {
	return m.filter(func(t *domain.Task) bool { return t.Status == status }), nil
}

func (m *MockTaskStore) ListNewByMode(ctx context.Context, mode domain.PublishMode) ([]*domain.Task, error) {
	return m.filter(func(t *domain.Task) bool {
		return t.Status == domain.TaskStatusNew && t.PublishMode == mode
	}), nil
}

func (m *MockTaskStore) ListTakenByAssignee(ctx context.Context, executorID int64) ([]*domain.Task, error) {
	return m.filter(func(t *domain.Task) bool {
		return t.Status == domain.TaskStatusTaken && t.AssigneeID != nil && *t.AssigneeID == executorID
	}), nil
}

func (m *MockTaskStore) ListOverdueActive(ctx context.Context, now time.Time) ([]*domain.Task, error) {
	if m.ListOverdueActiveFn != nil {
		return m.ListOverdueActiveFn(ctx, now)
	}

	return m.filter(func(t *domain.Task) bool {
		return t.Status.IsActive() && t.Overdue(now)
	}), nil
}

func (m *MockTaskStore) ListTakenWithDeadlineAfter(ctx context.Context, now time.Time) ([]*domain.Task, error) {
	return m.filter(func(t *domain.Task) bool {
		return t.Status == domain.TaskStatusTaken && t.Deadline != nil && t.Deadline.After(now)
	}), nil
}

func (m *MockTaskStore) ListCreatedSince(ctx context.Context, since time.Time) ([]*domain.Task, error) {
	return m.filter(func(t *domain.Task) bool {
		return !t.CreatedAt.Before(since)
	}), nil
}

func (m *MockTaskStore) Search(ctx context.Context, query string, limit int) ([]*domain.Task, error) {
	matched := m.filter(func(t *domain.Task) bool {
		q := strings.ToLower(query)
		return strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.URL), q)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// WithTx returns the mock itself: the mock has no real transactions.
func (m *MockTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return m
}

func (m *MockTaskStore) filter(keep func(*domain.Task) bool) []*domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Task
	for _, task := range m.Tasks {
		if keep(task) {
			copied := *task
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
