package service

import (
	"context"
	"log/slog"

	"github.com/phrazzld/taskrelay/internal/domain"
	"github.com/phrazzld/taskrelay/internal/platform/logger"
	"github.com/phrazzld/taskrelay/internal/store"
	"github.com/phrazzld/taskrelay/internal/token"
)

// DelegationService issues and redeems delegation tokens: signed,
// time-limited references to a specific task that let a manager hand a
// direct task to an executor out of band. Tokens are bearer credentials;
// possession plus a task still in "new" status is the whole check, so a
// token may be redeemed repeatedly until the task is claimed or the
// token expires.
type DelegationService interface {
	// Issue creates a delegation token for the given task. The task must
	// still be unclaimed.
	Issue(ctx context.Context, taskID int64) (string, error)

	// Redeem verifies the token and resolves it to its task. Returns
	// token.ErrTokenExpired or token.ErrTokenInvalid for bad tokens, and
	// domain.ErrAlreadyTaken when the task has left "new" status since
	// the token was issued.
	Redeem(ctx context.Context, tokenString string) (*domain.Task, error)
}

type delegationService struct {
	tasks  store.TaskStore
	signer token.Signer
}

// NewDelegationService creates the delegation service.
func NewDelegationService(tasks store.TaskStore, signer token.Signer) DelegationService {
	return &delegationService{
		tasks:  tasks,
		signer: signer,
	}
}

func (s *delegationService) Issue(ctx context.Context, taskID int64) (string, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return "", err
	}
	if task.Status != domain.TaskStatusNew {
		return "", domain.ErrInvalidState
	}

	signed, err := s.signer.Issue(ctx, taskID)
	if err != nil {
		return "", err
	}

	logger.FromContext(ctx).Info("delegation token issued",
		slog.Int64("task_id", taskID))
	return signed, nil
}

func (s *delegationService) Redeem(ctx context.Context, tokenString string) (*domain.Task, error) {
	taskID, err := s.signer.Verify(ctx, tokenString)
	if err != nil {
		return nil, err
	}

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	// The token proves the referral was once valid; the task's current
	// status decides whether it still is.
	if task.Status != domain.TaskStatusNew {
		return nil, domain.ErrAlreadyTaken
	}

	logger.FromContext(ctx).Info("delegation token redeemed",
		slog.Int64("task_id", taskID))
	return task, nil
}
