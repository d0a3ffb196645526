package mocks

import (
	"context"
	"database/sql"
	"sync"

	"github.com/phrazzld/taskrelay/internal/domain"
	"github.com/phrazzld/taskrelay/internal/store"
)

// MockEventStore implements store.EventStore for testing.
type MockEventStore struct {
	mu sync.Mutex

	// Function fields for customizable behavior
	AppendFn func(ctx context.Context, event *domain.Event) error

	// Data for default implementation
	Events []*domain.Event
}

// NewMockEventStore creates a new mock store with initialized defaults.
func NewMockEventStore() *MockEventStore {
	return &MockEventStore{}
}

// Append implements the EventStore interface.
func (m *MockEventStore) Append(ctx context.Context, event *domain.Event) error {
	if m.AppendFn != nil {
		return m.AppendFn(ctx, event)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return nil
}

// ListByTask implements the EventStore interface.
func (m *MockEventStore) ListByTask(ctx context.Context, taskID int64) ([]*domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Event
	for _, event := range m.Events {
		if event.TaskID != nil && *event.TaskID == taskID {
			out = append(out, event)
		}
	}
	return out, nil
}

// WithTx returns the mock itself: the mock has no real transactions.
func (m *MockEventStore) WithTx(tx *sql.Tx) store.EventStore {
	return m
}

// ActionsForTask returns the recorded actions for a task in append order.
// Test helper.
func (m *MockEventStore) ActionsForTask(taskID int64) []domain.EventAction {
	m.mu.Lock()
	defer m.mu.Unlock()

	var actions []domain.EventAction
	for _, event := range m.Events {
		if event.TaskID != nil && *event.TaskID == taskID {
			actions = append(actions, event.Action)
		}
	}
	return actions
}
