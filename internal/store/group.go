package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/postflight/campaign-api/internal/domain"
)

// GroupStore defines the interface for group data persistence.
// The store enforces a uniqueness constraint on the group name.
type GroupStore interface {
	// Create saves a new group to the store.
	// Returns ErrGroupNameExists if a group with the same name exists.
	Create(ctx context.Context, group *domain.Group) error

	// GetByID retrieves a group by its unique ID.
	// Returns ErrGroupNotFound if the group does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error)

	// GetByName retrieves a group by name.
	// Returns ErrGroupNotFound if no group has that name.
	GetByName(ctx context.Context, name string) (*domain.Group, error)

	// Update saves changes to an existing group.
	// Returns ErrGroupNotFound if the group does not exist.
	Update(ctx context.Context, group *domain.Group) error

	// List retrieves all groups ordered by name.
	List(ctx context.Context) ([]*domain.Group, error)

	// WithTx returns a new GroupStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) GroupStore
}
