package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/phrazzld/taskrelay/internal/domain"
	"github.com/phrazzld/taskrelay/internal/platform/logger"
	"github.com/phrazzld/taskrelay/internal/store"
)

// UserService tracks the identities the system interacts with. The role
// is never an assignment workflow: it is recomputed from the static
// manager allow-list on every interaction.
type UserService interface {
	// Touch upserts the user with the latest observed identity attributes
	// and the role derived from the manager allow-list.
	Touch(ctx context.Context, id int64, username, fullName string) (*domain.User, error)

	// Get retrieves a user by ID.
	Get(ctx context.Context, id int64) (*domain.User, error)

	// RoleFor returns the role the allow-list assigns to the given ID.
	RoleFor(id int64) domain.Role

	// IsManager reports whether the ID is on the manager allow-list.
	IsManager(id int64) bool
}

type userService struct {
	users      store.UserStore
	managerIDs map[int64]struct{}
	timeFunc   func() time.Time
}

// NewUserService creates the user service with the given manager
// allow-list.
func NewUserService(users store.UserStore, managerIDs []int64) UserService {
	set := make(map[int64]struct{}, len(managerIDs))
	for _, id := range managerIDs {
		set[id] = struct{}{}
	}
	return &userService{
		users:      users,
		managerIDs: set,
		timeFunc:   time.Now,
	}
}

func (s *userService) Touch(ctx context.Context, id int64, username, fullName string) (*domain.User, error) {
	user, err := domain.NewUser(id, username, fullName, s.RoleFor(id))
	if err != nil {
		return nil, err
	}

	now := s.timeFunc().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Debug("user touched",
		slog.Int64("user_id", id),
		slog.String("role", string(user.Role)))
	return user, nil
}

func (s *userService) Get(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *userService) RoleFor(id int64) domain.Role {
	if s.IsManager(id) {
		return domain.RoleManager
	}
	return domain.RoleExecutor
}

func (s *userService) IsManager(id int64) bool {
	_, ok := s.managerIDs[id]
	return ok
}
