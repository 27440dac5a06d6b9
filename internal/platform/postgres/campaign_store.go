package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/postflight/campaign-api/internal/domain"
	"github.com/postflight/campaign-api/internal/platform/logger"
	"github.com/postflight/campaign-api/internal/store"
)

// PostgresCampaignStore implements the store.CampaignStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCampaignStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCampaignStore creates a new PostgreSQL implementation of the
// CampaignStore interface. It accepts a database connection or transaction
// that is initialized and managed by the caller.
func NewPostgresCampaignStore(db store.DBTX, logger *slog.Logger) *PostgresCampaignStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCampaignStore{
		db:     db,
		logger: logger.With(slog.String("component", "campaign_store")),
	}
}

// Ensure PostgresCampaignStore implements store.CampaignStore
var _ store.CampaignStore = (*PostgresCampaignStore)(nil)

// WithTx returns a new store instance bound to the provided transaction.
func (s *PostgresCampaignStore) WithTx(tx *sql.Tx) store.CampaignStore {
	return &PostgresCampaignStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.CampaignStore.Create.
func (s *PostgresCampaignStore) Create(ctx context.Context, campaign *domain.Campaign) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := campaign.Validate(); err != nil {
		log.Warn("campaign validation failed during create",
			slog.String("error", err.Error()),
			slog.String("campaign_id", campaign.ID.String()))
		return err
	}

	query := `
		INSERT INTO campaigns (id, title, message, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		campaign.ID,
		campaign.Title,
		campaign.Message,
		campaign.Status,
		campaign.CreatedAt,
		campaign.UpdatedAt,
	)

	if err != nil {
		log.Error("failed to create campaign",
			slog.String("error", err.Error()),
			slog.String("campaign_id", campaign.ID.String()))
		return MapError(err)
	}

	log.Info("campaign created",
		slog.String("campaign_id", campaign.ID.String()),
		slog.String("status", string(campaign.Status)))
	return nil
}

// GetByID implements store.CampaignStore.GetByID.
// Returns store.ErrCampaignNotFound if the campaign does not exist.
func (s *PostgresCampaignStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, title, message, status, created_at, updated_at
		FROM campaigns
		WHERE id = $1
	`

	var campaign domain.Campaign
	var status string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&campaign.ID,
		&campaign.Title,
		&campaign.Message,
		&status,
		&campaign.CreatedAt,
		&campaign.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("campaign not found", slog.String("campaign_id", id.String()))
			return nil, store.ErrCampaignNotFound
		}
		log.Error("failed to get campaign by ID",
			slog.String("error", err.Error()),
			slog.String("campaign_id", id.String()))
		return nil, MapError(err)
	}

	campaign.Status = domain.CampaignStatus(status)
	return &campaign, nil
}

// GetWithRecipients implements store.CampaignStore.GetWithRecipients.
// Returns store.ErrCampaignNotFound if the campaign does not exist.
func (s *PostgresCampaignStore) GetWithRecipients(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	campaign, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	recipients, err := s.loadRecipients(ctx, id)
	if err != nil {
		return nil, err
	}

	campaign.Recipients = recipients
	return campaign, nil
}

// List implements store.CampaignStore.List.
func (s *PostgresCampaignStore) List(ctx context.Context) ([]*domain.Campaign, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, title, message, status, created_at, updated_at
		FROM campaigns
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to list campaigns", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer closeRows(rows, log)

	campaigns := []*domain.Campaign{}
	for rows.Next() {
		var campaign domain.Campaign
		var status string

		if err := rows.Scan(
			&campaign.ID,
			&campaign.Title,
			&campaign.Message,
			&status,
			&campaign.CreatedAt,
			&campaign.UpdatedAt,
		); err != nil {
			log.Error("failed to scan campaign row", slog.String("error", err.Error()))
			return nil, MapError(err)
		}

		campaign.Status = domain.CampaignStatus(status)
		campaigns = append(campaigns, &campaign)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	for _, campaign := range campaigns {
		recipients, err := s.loadRecipients(ctx, campaign.ID)
		if err != nil {
			return nil, err
		}
		campaign.Recipients = recipients
	}

	return campaigns, nil
}

// UpdateStatus implements store.CampaignStore.UpdateStatus.
// Returns store.ErrCampaignNotFound if the campaign does not exist.
func (s *PostgresCampaignStore) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.CampaignStatus,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE campaigns
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to update campaign status",
			slog.String("error", err.Error()),
			slog.String("campaign_id", id.String()),
			slog.String("status", string(status)))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "campaign"); err != nil {
		return store.ErrCampaignNotFound
	}

	log.Info("campaign status updated",
		slog.String("campaign_id", id.String()),
		slog.String("status", string(status)))
	return nil
}

// LinkRecipient implements store.CampaignStore.LinkRecipient.
// ON CONFLICT DO NOTHING makes the link idempotent under replayed or
// concurrent reconciliation runs; the returned flag reports whether a new
// link row was created.
func (s *PostgresCampaignStore) LinkRecipient(
	ctx context.Context,
	campaignID, recipientID uuid.UUID,
) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO campaign_recipients (campaign_id, recipient_id)
		VALUES ($1, $2)
		ON CONFLICT (campaign_id, recipient_id) DO NOTHING
	`

	result, err := s.db.ExecContext(ctx, query, campaignID, recipientID)
	if err != nil {
		log.Error("failed to link recipient to campaign",
			slog.String("error", err.Error()),
			slog.String("campaign_id", campaignID.String()),
			slog.String("recipient_id", recipientID.String()))
		return false, MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, MapError(err)
	}

	return rowsAffected > 0, nil
}

// loadRecipients fetches the recipients linked to a campaign in link order.
func (s *PostgresCampaignStore) loadRecipients(ctx context.Context, campaignID uuid.UUID) ([]*domain.Recipient, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT r.id, r.email, r.name, r.group_id, r.opt_out, r.created_at, r.updated_at
		FROM recipients r
		JOIN campaign_recipients cr ON cr.recipient_id = r.id
		WHERE cr.campaign_id = $1
		ORDER BY r.created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, campaignID)
	if err != nil {
		log.Error("failed to load campaign recipients",
			slog.String("error", err.Error()),
			slog.String("campaign_id", campaignID.String()))
		return nil, MapError(err)
	}
	defer closeRows(rows, log)

	recipients := []*domain.Recipient{}
	for rows.Next() {
		recipient, err := scanRecipient(rows)
		if err != nil {
			log.Error("failed to scan recipient row", slog.String("error", err.Error()))
			return nil, MapError(err)
		}
		recipients = append(recipients, recipient)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return recipients, nil
}

// closeRows closes a result set, logging close failures instead of masking
// the primary error path.
func closeRows(rows *sql.Rows, log *slog.Logger) {
	if err := rows.Close(); err != nil {
		log.Error("failed to close rows", slog.String("error", err.Error()))
	}
}
