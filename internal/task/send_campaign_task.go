package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/postflight/campaign-api/internal/domain"
	"github.com/postflight/campaign-api/internal/notify"
	"github.com/postflight/campaign-api/internal/store"
)

// SendCampaignPayload is the serialized payload for dispatch tasks.
type SendCampaignPayload struct {
	CampaignID uuid.UUID `json:"campaign_id"`
}

// DispatchError records one failed delivery attempt.
type DispatchError struct {
	Email    string `json:"email"`
	Notifier string `json:"notifier"`
	Err      string `json:"error"`
}

// DispatchResult summarizes a dispatch run.
type DispatchResult struct {
	SentCount  int             `json:"sent_count"`
	ErrorCount int             `json:"error_count"`
	Errors     []DispatchError `json:"errors,omitempty"`
}

// TokenIssuer signs the per-recipient opt-out tokens embedded in dispatched
// message bodies. *unsubscribe.TokenService satisfies it.
type TokenIssuer interface {
	Generate(ctx context.Context, email string) (string, error)
}

// tokenIssuerName labels token generation failures in DispatchResult.Errors,
// where delivery failures carry the transport name instead.
const tokenIssuerName = "unsubscribe_token"

// SendCampaignTask fans a campaign's message out to every active linked
// recipient through every registered notification transport. Each body
// carries a per-recipient signed opt-out link. Delivery failures are
// recorded and the fan-out continues; the campaign always leaves the run in
// a terminal state (sent, or sent_no_recipients when no active recipients
// are linked).
type SendCampaignTask struct {
	id             uuid.UUID
	payload        SendCampaignPayload
	rawPayload     []byte
	result         []byte
	campaignStore  store.CampaignStore
	notifiers      *notify.Registry
	tokens         TokenIssuer
	unsubscribeURL string
	txRunner       TxRunner
	logger         *slog.Logger
	status         TaskStatus
}

// NewSendCampaignTask creates a dispatch task for the given campaign.
// unsubscribeURL is the externally reachable opt-out endpoint the signed
// token is appended to.
func NewSendCampaignTask(
	campaignID uuid.UUID,
	campaignStore store.CampaignStore,
	notifiers *notify.Registry,
	tokens TokenIssuer,
	unsubscribeURL string,
	txRunner TxRunner,
	logger *slog.Logger,
) (*SendCampaignTask, error) {
	if campaignID == uuid.Nil {
		return nil, fmt.Errorf("campaign ID cannot be empty")
	}
	if campaignStore == nil {
		return nil, fmt.Errorf("campaign store cannot be nil")
	}
	if notifiers == nil {
		return nil, fmt.Errorf("notifier registry cannot be nil")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token issuer cannot be nil")
	}
	if unsubscribeURL == "" {
		return nil, fmt.Errorf("unsubscribe URL cannot be empty")
	}
	if txRunner == nil {
		return nil, fmt.Errorf("transaction runner cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	payload := SendCampaignPayload{CampaignID: campaignID}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}

	return &SendCampaignTask{
		id:             uuid.New(),
		payload:        payload,
		rawPayload:     raw,
		campaignStore:  campaignStore,
		notifiers:      notifiers,
		tokens:         tokens,
		unsubscribeURL: unsubscribeURL,
		txRunner:       txRunner,
		logger:         logger.With("task_type", TaskTypeSendCampaign),
		status:         TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *SendCampaignTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *SendCampaignTask) Type() string {
	return TaskTypeSendCampaign
}

// Payload returns the serialized task payload
func (t *SendCampaignTask) Payload() []byte {
	return t.rawPayload
}

// Status returns the current task status
func (t *SendCampaignTask) Status() TaskStatus {
	return t.status
}

// Result returns the serialized DispatchResult of the last Execute, or nil
// if the task has not completed a run.
func (t *SendCampaignTask) Result() []byte {
	return t.result
}

// Execute runs the dispatch. A missing campaign fails the task. With no
// active recipients the campaign moves to sent_no_recipients and no
// notifier is invoked. Otherwise every active recipient is attempted on
// every registered notifier; failures are logged and counted but never
// abort the fan-out, and the campaign moves to sent regardless of the
// error count. The task itself only fails on infrastructure errors, so a
// requeue cannot double-send past a recorded terminal status.
func (t *SendCampaignTask) Execute(ctx context.Context) error {
	log := t.logger.With("task_id", t.id, "campaign_id", t.payload.CampaignID)
	log.Info("starting campaign dispatch")

	startTime := time.Now()

	var result DispatchResult
	err := t.txRunner(ctx, func(ctx context.Context, tx *sql.Tx) error {
		campaigns := t.campaignStore.WithTx(tx)

		campaign, err := campaigns.GetWithRecipients(ctx, t.payload.CampaignID)
		if err != nil {
			return fmt.Errorf("failed to load campaign: %w", err)
		}

		active := campaign.ActiveRecipients()
		if len(active) == 0 {
			log.Info("campaign has no active recipients")
			return campaigns.UpdateStatus(ctx, campaign.ID, domain.CampaignStatusSentNoRecipients)
		}

		result = t.fanOut(ctx, campaign, active, log)

		return campaigns.UpdateStatus(ctx, campaign.ID, domain.CampaignStatusSent)
	})
	if err != nil {
		log.Error("campaign dispatch failed", "error", err)
		return err
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch result: %w", err)
	}
	t.result = raw

	log.Info("campaign dispatch completed",
		"sent_count", result.SentCount,
		"error_count", result.ErrorCount,
		"duration_ms", time.Since(startTime).Milliseconds())

	return nil
}

// fanOut attempts delivery to every recipient on every registered notifier.
// Each recipient gets a body with their own signed opt-out link; a token
// generation failure skips that recipient entirely and is accounted like a
// delivery failure.
func (t *SendCampaignTask) fanOut(
	ctx context.Context,
	campaign *domain.Campaign,
	recipients []*domain.Recipient,
	log *slog.Logger,
) DispatchResult {
	var result DispatchResult

	for _, recipient := range recipients {
		body, err := t.buildBody(ctx, campaign, recipient.Email)
		if err != nil {
			log.Warn("failed to generate unsubscribe token",
				"email", recipient.Email,
				"error", err)
			result.ErrorCount++
			result.Errors = append(result.Errors, DispatchError{
				Email:    recipient.Email,
				Notifier: tokenIssuerName,
				Err:      err.Error(),
			})
			continue
		}

		delivered := false
		for _, notifier := range t.notifiers.Notifiers() {
			if err := notifier.Send(ctx, recipient.Email, campaign.Title, body); err != nil {
				log.Warn("delivery failed",
					"email", recipient.Email,
					"notifier", notifier.Name(),
					"error", err)
				result.ErrorCount++
				result.Errors = append(result.Errors, DispatchError{
					Email:    recipient.Email,
					Notifier: notifier.Name(),
					Err:      err.Error(),
				})
				continue
			}
			delivered = true
		}
		// A recipient counts as sent once, however many transports
		// delivered it.
		if delivered {
			result.SentCount++
		}
	}

	return result
}

// buildBody appends the recipient's signed opt-out link to the campaign
// message.
func (t *SendCampaignTask) buildBody(
	ctx context.Context,
	campaign *domain.Campaign,
	email string,
) (string, error) {
	token, err := t.tokens.Generate(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to generate unsubscribe token: %w", err)
	}

	return fmt.Sprintf("%s\n\nUnsubscribe: %s?token=%s",
		campaign.Message, t.unsubscribeURL, url.QueryEscape(token)), nil
}

// SendCampaignTaskFactory rebinds persisted dispatch task rows to
// executable tasks and constructs tasks from emitted events.
type SendCampaignTaskFactory struct {
	campaignStore  store.CampaignStore
	notifiers      *notify.Registry
	tokens         TokenIssuer
	unsubscribeURL string
	txRunner       TxRunner
	logger         *slog.Logger
}

// NewSendCampaignTaskFactory creates a factory with the dependencies
// dispatch tasks need at execution time.
func NewSendCampaignTaskFactory(
	campaignStore store.CampaignStore,
	notifiers *notify.Registry,
	tokens TokenIssuer,
	unsubscribeURL string,
	txRunner TxRunner,
	logger *slog.Logger,
) *SendCampaignTaskFactory {
	return &SendCampaignTaskFactory{
		campaignStore:  campaignStore,
		notifiers:      notifiers,
		tokens:         tokens,
		unsubscribeURL: unsubscribeURL,
		txRunner:       txRunner,
		logger:         logger,
	}
}

// TaskType returns the task type this factory constructs.
func (f *SendCampaignTaskFactory) TaskType() string {
	return TaskTypeSendCampaign
}

// NewTask rebinds a task row to an executable dispatch task.
func (f *SendCampaignTaskFactory) NewTask(id uuid.UUID, payload []byte) (Task, error) {
	var p SendCampaignPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dispatch payload: %w", err)
	}
	if p.CampaignID == uuid.Nil {
		return nil, fmt.Errorf("dispatch payload has empty campaign ID")
	}

	return &SendCampaignTask{
		id:             id,
		payload:        p,
		rawPayload:     payload,
		campaignStore:  f.campaignStore,
		notifiers:      f.notifiers,
		tokens:         f.tokens,
		unsubscribeURL: f.unsubscribeURL,
		txRunner:       f.txRunner,
		logger:         f.logger.With("task_type", TaskTypeSendCampaign),
		status:         TaskStatusPending,
	}, nil
}
