package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/taskrelay/internal/domain"
)

// UserStore defines the contract for user persistence. Users are
// upserted on every interaction: identity attributes refresh from the
// latest observed values and the role is recomputed by the caller from
// the static manager allow-list.
type UserStore interface {
	// Upsert inserts the user or, if the ID already exists, refreshes
	// username, full name, role and reactivates the record.
	Upsert(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by platform identity.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// WithTx returns a store instance bound to the provided transaction.
	WithTx(tx *sql.Tx) UserStore
}
