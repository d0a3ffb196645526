package domain

import (
	"errors"
	"time"
)

// User-specific validation errors
var (
	// ErrUserIDEmpty is returned when a user's platform ID is zero.
	ErrUserIDEmpty = errors.New("user ID cannot be empty")

	// ErrInvalidRole is returned when a role is not "manager" or "executor".
	ErrInvalidRole = errors.New("invalid user role")
)

// Role classifies what a user may do: managers create and review tasks,
// executors claim and work on them.
type Role string

const (
	RoleManager  Role = "manager"
	RoleExecutor Role = "executor"
)

// IsValid checks whether the role is known.
func (r Role) IsValid() bool {
	return r == RoleManager || r == RoleExecutor
}

// User represents an external platform identity observed by the system.
// Users are upserted on every interaction: username and full name refresh
// from the latest observed identity, and the role is recomputed from the
// static manager allow-list rather than stored as an assignment workflow.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser creates a new active User with the given identity and role.
func NewUser(id int64, username, fullName string, role Role) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:        id,
		Username:  username,
		FullName:  fullName,
		Role:      role,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == 0 {
		return ErrUserIDEmpty
	}

	if !u.Role.IsValid() {
		return ErrInvalidRole
	}

	return nil
}

// IsManager reports whether the user holds the manager role.
func (u *User) IsManager() bool {
	return u.Role == RoleManager
}
