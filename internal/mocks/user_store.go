package mocks

import (
	"context"
	"database/sql"
	"sync"

	"github.com/phrazzld/taskrelay/internal/domain"
	"github.com/phrazzld/taskrelay/internal/store"
)

// MockUserStore implements store.UserStore for testing.
type MockUserStore struct {
	mu sync.Mutex

	// Function fields for customizable behavior
	UpsertFn  func(ctx context.Context, user *domain.User) error
	GetByIDFn func(ctx context.Context, id int64) (*domain.User, error)

	// Data for default implementation
	Users map[int64]*domain.User
}

// NewMockUserStore creates a new mock store with initialized defaults.
func NewMockUserStore() *MockUserStore {
	return &MockUserStore{
		Users: make(map[int64]*domain.User),
	}
}

// Upsert implements the UserStore interface.
func (m *MockUserStore) Upsert(ctx context.Context, user *domain.User) error {
	if m.UpsertFn != nil {
		return m.UpsertFn(ctx, user)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.Users[user.ID]; ok {
		user.CreatedAt = existing.CreatedAt
	}
	copied := *user
	copied.Active = true
	m.Users[user.ID] = &copied
	return nil
}

// GetByID implements the UserStore interface.
func (m *MockUserStore) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.Users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

// WithTx returns the mock itself: the mock has no real transactions.
func (m *MockUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return m
}
