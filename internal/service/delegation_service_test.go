package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskrelay/internal/domain"
	"github.com/phrazzld/taskrelay/internal/mocks"
	"github.com/phrazzld/taskrelay/internal/store"
	"github.com/phrazzld/taskrelay/internal/token"
)

const delegationTestSecret = "test-secret-key-that-is-long-enough!"

func newDelegationFixture(t *testing.T) (*mocks.MockTaskStore, DelegationService) {
	t.Helper()

	signer, err := token.NewSigner(delegationTestSecret, 7*24*time.Hour)
	require.NoError(t, err)

	tasks := mocks.NewMockTaskStore()
	return tasks, NewDelegationService(tasks, signer)
}

func TestIssueAndRedeem(t *testing.T) {
	tasks, svc := newDelegationFixture(t)
	task := seedNewTask(tasks, "h-delegate")

	signed, err := svc.Issue(context.Background(), task.ID)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	resolved, err := svc.Redeem(context.Background(), signed)
	require.NoError(t, err)
	assert.Equal(t, task.ID, resolved.ID)
}

func TestIssueForClaimedTask(t *testing.T) {
	tasks, svc := newDelegationFixture(t)
	task := seedTakenTask(tasks, 200, nil)

	_, err := svc.Issue(context.Background(), task.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestIssueForMissingTask(t *testing.T) {
	_, svc := newDelegationFixture(t)

	_, err := svc.Issue(context.Background(), 9999)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestRedeemAfterClaim(t *testing.T) {
	tasks, svc := newDelegationFixture(t)
	task := seedNewTask(tasks, "h-claimed")

	signed, err := svc.Issue(context.Background(), task.ID)
	require.NoError(t, err)

	_, err = tasks.Claim(context.Background(), task.ID, 200, time.Now())
	require.NoError(t, err)

	_, err = svc.Redeem(context.Background(), signed)
	assert.ErrorIs(t, err, domain.ErrAlreadyTaken)
}

func TestRedeemGarbageToken(t *testing.T) {
	_, svc := newDelegationFixture(t)

	_, err := svc.Redeem(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, token.ErrTokenInvalid)
}

func TestRedeemIsRepeatableWhileNew(t *testing.T) {
	tasks, svc := newDelegationFixture(t)
	task := seedNewTask(tasks, "h-repeat")

	signed, err := svc.Issue(context.Background(), task.ID)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		resolved, err := svc.Redeem(context.Background(), signed)
		require.NoError(t, err)
		assert.Equal(t, task.ID, resolved.ID)
	}
}
