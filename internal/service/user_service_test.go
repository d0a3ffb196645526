package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskrelay/internal/domain"
	"github.com/phrazzld/taskrelay/internal/mocks"
)

func TestTouchAssignsManagerRoleFromAllowList(t *testing.T) {
	users := mocks.NewMockUserStore()
	svc := NewUserService(users, []int64{100})

	manager, err := svc.Touch(context.Background(), 100, "boss", "The Boss")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleManager, manager.Role)

	executor, err := svc.Touch(context.Background(), 200, "worker", "A Worker")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleExecutor, executor.Role)
}

func TestTouchRefreshesIdentity(t *testing.T) {
	users := mocks.NewMockUserStore()
	svc := NewUserService(users, nil)

	_, err := svc.Touch(context.Background(), 200, "old_name", "Old Name")
	require.NoError(t, err)

	_, err = svc.Touch(context.Background(), 200, "new_name", "New Name")
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), 200)
	require.NoError(t, err)
	assert.Equal(t, "new_name", got.Username)
	assert.Equal(t, "New Name", got.FullName)
	assert.True(t, got.Active)
}

func TestRoleFor(t *testing.T) {
	svc := NewUserService(mocks.NewMockUserStore(), []int64{100, 101})

	assert.True(t, svc.IsManager(100))
	assert.False(t, svc.IsManager(200))
	assert.Equal(t, domain.RoleManager, svc.RoleFor(101))
	assert.Equal(t, domain.RoleExecutor, svc.RoleFor(200))
}
