package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/postflight/campaign-api/internal/domain"
)

// RecipientStore defines the interface for recipient data persistence.
// The store enforces a uniqueness constraint on the recipient email. All
// writes that could collide on the email go through GetOrCreate, so the
// store exposes no strict-create operation.
type RecipientStore interface {
	// GetByID retrieves a recipient by its unique ID.
	// Returns ErrRecipientNotFound if the recipient does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Recipient, error)

	// GetByEmail retrieves a recipient by email.
	// Returns ErrRecipientNotFound if no recipient has that email.
	GetByEmail(ctx context.Context, email string) (*domain.Recipient, error)

	// GetOrCreate returns the recipient with the given email, creating it
	// first if absent. Creation is race-tolerant: if a concurrent writer
	// creates the same email, the now-existing row is fetched and returned
	// instead of surfacing the uniqueness violation.
	GetOrCreate(ctx context.Context, recipient *domain.Recipient) (*domain.Recipient, error)

	// Update saves changes to an existing recipient.
	// Returns ErrRecipientNotFound if the recipient does not exist.
	Update(ctx context.Context, recipient *domain.Recipient) error

	// List retrieves recipients, optionally including opted-out ones.
	List(ctx context.Context, includeOptedOut bool) ([]*domain.Recipient, error)

	// ListByGroup retrieves recipients belonging to the given group,
	// optionally restricted to active (non-opted-out) recipients.
	ListByGroup(ctx context.Context, groupID uuid.UUID, activeOnly bool) ([]*domain.Recipient, error)

	// WithTx returns a new RecipientStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) RecipientStore
}
