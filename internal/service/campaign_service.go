package service

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/postflight/campaign-api/internal/domain"
	"github.com/postflight/campaign-api/internal/events"
	"github.com/postflight/campaign-api/internal/store"
	"github.com/postflight/campaign-api/internal/task"
)

// CampaignService provides campaign operations. Creation and send requests
// return as soon as the campaign row is written; the recipient
// reconciliation and the dispatch run asynchronously behind emitted task
// request events.
type CampaignService interface {
	// CreateCampaign creates a campaign in pending status and requests
	// asynchronous reconciliation of the given email addresses.
	CreateCampaign(ctx context.Context, title, message string, emails []string) (*domain.Campaign, error)

	// RequestSend marks the campaign queued and requests asynchronous
	// dispatch. Returns ErrCampaignNotFound if the campaign does not exist.
	RequestSend(ctx context.Context, campaignID uuid.UUID) error

	// GetCampaign retrieves a campaign with its linked recipients.
	GetCampaign(ctx context.Context, campaignID uuid.UUID) (*domain.Campaign, error)

	// ListCampaigns retrieves all campaigns with linked recipients,
	// newest first.
	ListCampaigns(ctx context.Context) ([]*domain.Campaign, error)
}

type campaignServiceImpl struct {
	campaignStore store.CampaignStore
	txRunner      task.TxRunner
	eventEmitter  events.EventEmitter
	logger        *slog.Logger
}

// NewCampaignService creates a CampaignService. All dependencies are
// required except the logger, which falls back to slog.Default.
func NewCampaignService(
	campaignStore store.CampaignStore,
	txRunner task.TxRunner,
	eventEmitter events.EventEmitter,
	logger *slog.Logger,
) (CampaignService, error) {
	if campaignStore == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "campaignStore cannot be nil"}
	}
	if txRunner == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "txRunner cannot be nil"}
	}
	if eventEmitter == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "eventEmitter cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &campaignServiceImpl{
		campaignStore: campaignStore,
		txRunner:      txRunner,
		eventEmitter:  eventEmitter,
		logger:        logger.With("component", "campaign_service"),
	}, nil
}

func (s *campaignServiceImpl) CreateCampaign(
	ctx context.Context,
	title, message string,
	emails []string,
) (*domain.Campaign, error) {
	campaign, err := domain.NewCampaign(title, message)
	if err != nil {
		return nil, wrapError("create_campaign", "invalid campaign", err)
	}

	err = s.txRunner(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.campaignStore.WithTx(tx).Create(ctx, campaign)
	})
	if err != nil {
		s.logger.Error("failed to create campaign",
			"error", err,
			"campaign_id", campaign.ID)
		return nil, wrapError("create_campaign", "failed to save campaign", err)
	}

	s.logger.Info("campaign created",
		"campaign_id", campaign.ID,
		"email_count", len(emails))

	payload := task.ReconcileRecipientsPayload{
		CampaignID: campaign.ID,
		Emails:     emails,
	}
	if err := s.emit(ctx, task.TaskTypeReconcileRecipients, payload); err != nil {
		return nil, wrapError("create_campaign", "failed to request reconciliation", err)
	}

	return campaign, nil
}

func (s *campaignServiceImpl) RequestSend(ctx context.Context, campaignID uuid.UUID) error {
	err := s.txRunner(ctx, func(ctx context.Context, tx *sql.Tx) error {
		campaigns := s.campaignStore.WithTx(tx)

		campaign, err := campaigns.GetByID(ctx, campaignID)
		if err != nil {
			return err
		}
		return campaigns.UpdateStatus(ctx, campaign.ID, domain.CampaignStatusQueued)
	})
	if err != nil {
		s.logger.Error("failed to queue campaign",
			"error", err,
			"campaign_id", campaignID)
		return wrapError("request_send", "failed to queue campaign", err)
	}

	s.logger.Info("campaign queued for dispatch", "campaign_id", campaignID)

	payload := task.SendCampaignPayload{CampaignID: campaignID}
	if err := s.emit(ctx, task.TaskTypeSendCampaign, payload); err != nil {
		return wrapError("request_send", "failed to request dispatch", err)
	}

	return nil
}

func (s *campaignServiceImpl) GetCampaign(ctx context.Context, campaignID uuid.UUID) (*domain.Campaign, error) {
	campaign, err := s.campaignStore.GetWithRecipients(ctx, campaignID)
	if err != nil {
		return nil, wrapError("get_campaign", "failed to retrieve campaign", err)
	}
	return campaign, nil
}

func (s *campaignServiceImpl) ListCampaigns(ctx context.Context) ([]*domain.Campaign, error) {
	campaigns, err := s.campaignStore.List(ctx)
	if err != nil {
		return nil, wrapError("list_campaigns", "failed to list campaigns", err)
	}
	return campaigns, nil
}

func (s *campaignServiceImpl) emit(ctx context.Context, taskType string, payload any) error {
	event, err := events.NewTaskRequestEvent(taskType, payload)
	if err != nil {
		return err
	}

	if err := s.eventEmitter.EmitEvent(ctx, event); err != nil {
		s.logger.Error("failed to emit task request event",
			"error", err,
			"event_type", taskType,
			"event_id", event.ID)
		return err
	}

	s.logger.Debug("task request event emitted",
		"event_type", taskType,
		"event_id", event.ID)
	return nil
}
