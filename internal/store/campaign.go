package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/postflight/campaign-api/internal/domain"
)

// CampaignStore defines the interface for campaign data persistence.
type CampaignStore interface {
	// Create saves a new campaign to the store.
	// It handles domain validation internally.
	Create(ctx context.Context, campaign *domain.Campaign) error

	// GetByID retrieves a campaign by its unique ID without its recipient
	// associations. Returns ErrCampaignNotFound if the campaign does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Campaign, error)

	// GetWithRecipients retrieves a campaign with its linked recipients loaded.
	// Returns ErrCampaignNotFound if the campaign does not exist.
	GetWithRecipients(ctx context.Context, id uuid.UUID) (*domain.Campaign, error)

	// List retrieves all campaigns ordered by creation time, newest first,
	// with their linked recipients loaded.
	List(ctx context.Context) ([]*domain.Campaign, error)

	// UpdateStatus updates the status of an existing campaign.
	// Returns ErrCampaignNotFound if the campaign does not exist.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.CampaignStatus) error

	// LinkRecipient associates a recipient with a campaign. The association
	// is idempotent: linking an already-linked pair is a no-op and reports
	// created=false, so replayed reconciliation runs never create duplicate
	// links or double-count.
	LinkRecipient(ctx context.Context, campaignID, recipientID uuid.UUID) (created bool, err error)

	// WithTx returns a new CampaignStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) CampaignStore
}
