package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/postflight/campaign-api/internal/domain"
	"github.com/postflight/campaign-api/internal/store"
)

// ReconcileRecipientsPayload is the serialized payload for recipient
// reconciliation tasks.
type ReconcileRecipientsPayload struct {
	CampaignID uuid.UUID `json:"campaign_id"`
	Emails     []string  `json:"emails"`
}

// EmailError records a per-address failure during reconciliation. The
// reconciliation run continues past individual failures.
type EmailError struct {
	Email string `json:"email"`
	Err   string `json:"error"`
}

// ReconcileResult summarizes a reconciliation run. Skipped counts only
// opted-out addresses; relinking an already-linked address on replay is a
// no-op and is not counted anywhere.
type ReconcileResult struct {
	Processed  int          `json:"processed"`
	Skipped    int          `json:"skipped"`
	ErrorCount int          `json:"error_count"`
	Errors     []EmailError `json:"errors,omitempty"`
}

// ReconcileRecipientsTask resolves a list of email addresses into recipient
// rows and links them to a campaign. Addresses that do not exist in the
// directory are created; opted-out addresses are skipped; already-linked
// addresses are left untouched on replay. The whole run executes in one
// transaction and leaves the campaign in the recipients_processed state.
type ReconcileRecipientsTask struct {
	id             uuid.UUID
	payload        ReconcileRecipientsPayload
	rawPayload     []byte
	result         []byte
	campaignStore  store.CampaignStore
	recipientStore store.RecipientStore
	txRunner       TxRunner
	logger         *slog.Logger
	status         TaskStatus
}

// NewReconcileRecipientsTask creates a reconciliation task for the given
// campaign and email list.
func NewReconcileRecipientsTask(
	campaignID uuid.UUID,
	emails []string,
	campaignStore store.CampaignStore,
	recipientStore store.RecipientStore,
	txRunner TxRunner,
	logger *slog.Logger,
) (*ReconcileRecipientsTask, error) {
	if campaignID == uuid.Nil {
		return nil, fmt.Errorf("campaign ID cannot be empty")
	}
	if campaignStore == nil {
		return nil, fmt.Errorf("campaign store cannot be nil")
	}
	if recipientStore == nil {
		return nil, fmt.Errorf("recipient store cannot be nil")
	}
	if txRunner == nil {
		return nil, fmt.Errorf("transaction runner cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	payload := ReconcileRecipientsPayload{
		CampaignID: campaignID,
		Emails:     emails,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}

	return &ReconcileRecipientsTask{
		id:             uuid.New(),
		payload:        payload,
		rawPayload:     raw,
		campaignStore:  campaignStore,
		recipientStore: recipientStore,
		txRunner:       txRunner,
		logger:         logger.With("task_type", TaskTypeReconcileRecipients),
		status:         TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *ReconcileRecipientsTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *ReconcileRecipientsTask) Type() string {
	return TaskTypeReconcileRecipients
}

// Payload returns the serialized task payload
func (t *ReconcileRecipientsTask) Payload() []byte {
	return t.rawPayload
}

// Status returns the current task status
func (t *ReconcileRecipientsTask) Status() TaskStatus {
	return t.status
}

// Result returns the serialized ReconcileResult of the last Execute, or nil
// if the task has not completed a run.
func (t *ReconcileRecipientsTask) Result() []byte {
	return t.result
}

// Execute runs the reconciliation. A missing campaign fails the task before
// any mutation. Per-address failures are recorded and the run continues; the
// campaign status advances to recipients_processed regardless of how many
// addresses errored, so dispatch is never blocked by a partially bad list.
func (t *ReconcileRecipientsTask) Execute(ctx context.Context) error {
	log := t.logger.With("task_id", t.id, "campaign_id", t.payload.CampaignID)
	log.Info("starting recipient reconciliation", "email_count", len(t.payload.Emails))

	startTime := time.Now()

	var result ReconcileResult
	err := t.txRunner(ctx, func(ctx context.Context, tx *sql.Tx) error {
		campaigns := t.campaignStore.WithTx(tx)
		recipients := t.recipientStore.WithTx(tx)

		if _, err := campaigns.GetByID(ctx, t.payload.CampaignID); err != nil {
			return fmt.Errorf("failed to load campaign: %w", err)
		}

		for _, email := range t.payload.Emails {
			recipient, err := t.reconcileOne(ctx, recipients, email)
			if err != nil {
				log.Warn("failed to reconcile recipient",
					"email", email, "error", err)
				result.ErrorCount++
				result.Errors = append(result.Errors, EmailError{Email: email, Err: err.Error()})
				continue
			}

			if recipient.OptOut {
				log.Debug("skipping opted-out recipient", "email", email)
				result.Skipped++
				continue
			}

			created, err := campaigns.LinkRecipient(ctx, t.payload.CampaignID, recipient.ID)
			if err != nil {
				log.Warn("failed to link recipient to campaign",
					"email", email, "error", err)
				result.ErrorCount++
				result.Errors = append(result.Errors, EmailError{Email: email, Err: err.Error()})
				continue
			}

			if created {
				result.Processed++
			} else {
				log.Debug("recipient already linked", "email", email)
			}
		}

		if err := campaigns.UpdateStatus(ctx, t.payload.CampaignID, domain.CampaignStatusRecipientsProcessed); err != nil {
			return fmt.Errorf("failed to update campaign status: %w", err)
		}

		return nil
	})
	if err != nil {
		log.Error("recipient reconciliation failed", "error", err)
		return err
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal reconcile result: %w", err)
	}
	t.result = raw

	log.Info("recipient reconciliation completed",
		"processed", result.Processed,
		"skipped", result.Skipped,
		"error_count", result.ErrorCount,
		"duration_ms", time.Since(startTime).Milliseconds())

	return nil
}

// reconcileOne resolves a single email address to a recipient row, creating
// one if the address is not yet in the directory.
func (t *ReconcileRecipientsTask) reconcileOne(
	ctx context.Context,
	recipients store.RecipientStore,
	email string,
) (*domain.Recipient, error) {
	candidate, err := domain.NewRecipient(email, "")
	if err != nil {
		return nil, err
	}

	recipient, err := recipients.GetOrCreate(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create recipient: %w", err)
	}

	return recipient, nil
}

// ReconcileRecipientsTaskFactory rebinds persisted reconciliation task rows
// to executable tasks and constructs tasks from emitted events.
type ReconcileRecipientsTaskFactory struct {
	campaignStore  store.CampaignStore
	recipientStore store.RecipientStore
	txRunner       TxRunner
	logger         *slog.Logger
}

// NewReconcileRecipientsTaskFactory creates a factory with the dependencies
// reconciliation tasks need at execution time.
func NewReconcileRecipientsTaskFactory(
	campaignStore store.CampaignStore,
	recipientStore store.RecipientStore,
	txRunner TxRunner,
	logger *slog.Logger,
) *ReconcileRecipientsTaskFactory {
	return &ReconcileRecipientsTaskFactory{
		campaignStore:  campaignStore,
		recipientStore: recipientStore,
		txRunner:       txRunner,
		logger:         logger,
	}
}

// TaskType returns the task type this factory constructs.
func (f *ReconcileRecipientsTaskFactory) TaskType() string {
	return TaskTypeReconcileRecipients
}

// NewTask rebinds a task row to an executable reconciliation task.
func (f *ReconcileRecipientsTaskFactory) NewTask(id uuid.UUID, payload []byte) (Task, error) {
	var p ReconcileRecipientsPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reconcile payload: %w", err)
	}
	if p.CampaignID == uuid.Nil {
		return nil, fmt.Errorf("reconcile payload has empty campaign ID")
	}

	return &ReconcileRecipientsTask{
		id:             id,
		payload:        p,
		rawPayload:     payload,
		campaignStore:  f.campaignStore,
		recipientStore: f.recipientStore,
		txRunner:       f.txRunner,
		logger:         f.logger.With("task_type", TaskTypeReconcileRecipients),
		status:         TaskStatusPending,
	}, nil
}
