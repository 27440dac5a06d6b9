package service

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/postflight/campaign-api/internal/domain"
	"github.com/postflight/campaign-api/internal/store"
	"github.com/postflight/campaign-api/internal/task"
)

// RecipientUpdate carries a partial update. Nil fields are left unchanged.
type RecipientUpdate struct {
	Name    *string
	GroupID *uuid.UUID
	OptOut  *bool
}

// RecipientService provides directory operations for recipients. Opt-out
// and opt-in are convergent: applying them to an unseen email creates the
// recipient with the target flag so the directory always reflects the
// latest expressed preference.
type RecipientService interface {
	// GetOrCreateRecipient returns the recipient with the given email,
	// creating one if absent. A non-nil groupID assigns the recipient to
	// that group; the group must exist.
	GetOrCreateRecipient(ctx context.Context, email, name string, groupID *uuid.UUID) (*domain.Recipient, error)

	// GetRecipient retrieves a recipient by ID.
	GetRecipient(ctx context.Context, id uuid.UUID) (*domain.Recipient, error)

	// UpdateRecipient applies a partial update. A new group must exist.
	UpdateRecipient(ctx context.Context, id uuid.UUID, update RecipientUpdate) (*domain.Recipient, error)

	// OptOut records that the email must never receive campaign messages,
	// creating the recipient if it has not been seen before.
	OptOut(ctx context.Context, email, reason string) (*domain.Recipient, error)

	// OptIn clears the opt-out flag, creating the recipient if absent.
	OptIn(ctx context.Context, email string) (*domain.Recipient, error)

	// ListRecipients retrieves recipients, optionally including opted-out
	// ones.
	ListRecipients(ctx context.Context, includeOptedOut bool) ([]*domain.Recipient, error)

	// ListByGroup retrieves a group's recipients, optionally restricted to
	// active ones. The group must exist.
	ListByGroup(ctx context.Context, groupID uuid.UUID, activeOnly bool) ([]*domain.Recipient, error)

	// AddRecipientsToGroup assigns the given emails to the group,
	// creating unseen recipients. Opted-out recipients are skipped and
	// reported in the second return value.
	AddRecipientsToGroup(ctx context.Context, groupID uuid.UUID, emails []string) (added []*domain.Recipient, skipped []string, err error)
}

type recipientServiceImpl struct {
	recipientStore store.RecipientStore
	groupStore     store.GroupStore
	txRunner       task.TxRunner
	logger         *slog.Logger
}

// NewRecipientService creates a RecipientService.
func NewRecipientService(
	recipientStore store.RecipientStore,
	groupStore store.GroupStore,
	txRunner task.TxRunner,
	logger *slog.Logger,
) (RecipientService, error) {
	if recipientStore == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "recipientStore cannot be nil"}
	}
	if groupStore == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "groupStore cannot be nil"}
	}
	if txRunner == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "txRunner cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &recipientServiceImpl{
		recipientStore: recipientStore,
		groupStore:     groupStore,
		txRunner:       txRunner,
		logger:         logger.With("component", "recipient_service"),
	}, nil
}

func (s *recipientServiceImpl) GetOrCreateRecipient(
	ctx context.Context,
	email, name string,
	groupID *uuid.UUID,
) (*domain.Recipient, error) {
	candidate, err := domain.NewRecipient(email, name)
	if err != nil {
		return nil, wrapError("get_or_create_recipient", "invalid recipient", err)
	}

	var recipient *domain.Recipient
	err = s.txRunner(ctx, func(ctx context.Context, tx *sql.Tx) error {
		recipients := s.recipientStore.WithTx(tx)

		if groupID != nil {
			if _, err := s.groupStore.WithTx(tx).GetByID(ctx, *groupID); err != nil {
				return err
			}
			candidate.AssignGroup(*groupID)
		}

		recipient, err = recipients.GetOrCreate(ctx, candidate)
		if err != nil {
			return err
		}

		// An existing recipient picks up the requested group.
		if groupID != nil && (recipient.GroupID == nil || *recipient.GroupID != *groupID) {
			recipient.AssignGroup(*groupID)
			return recipients.Update(ctx, recipient)
		}
		return nil
	})
	if err != nil {
		return nil, wrapError("get_or_create_recipient", "failed to get or create recipient", err)
	}

	return recipient, nil
}

func (s *recipientServiceImpl) GetRecipient(ctx context.Context, id uuid.UUID) (*domain.Recipient, error) {
	recipient, err := s.recipientStore.GetByID(ctx, id)
	if err != nil {
		return nil, wrapError("get_recipient", "failed to retrieve recipient", err)
	}
	return recipient, nil
}

func (s *recipientServiceImpl) UpdateRecipient(
	ctx context.Context,
	id uuid.UUID,
	update RecipientUpdate,
) (*domain.Recipient, error) {
	var recipient *domain.Recipient
	err := s.txRunner(ctx, func(ctx context.Context, tx *sql.Tx) error {
		recipients := s.recipientStore.WithTx(tx)

		var err error
		recipient, err = recipients.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if update.Name != nil {
			recipient.SetName(*update.Name)
		}
		if update.GroupID != nil {
			if _, err := s.groupStore.WithTx(tx).GetByID(ctx, *update.GroupID); err != nil {
				return err
			}
			recipient.AssignGroup(*update.GroupID)
		}
		if update.OptOut != nil {
			recipient.SetOptOut(*update.OptOut)
		}

		return recipients.Update(ctx, recipient)
	})
	if err != nil {
		return nil, wrapError("update_recipient", "failed to update recipient", err)
	}

	return recipient, nil
}

func (s *recipientServiceImpl) OptOut(ctx context.Context, email, reason string) (*domain.Recipient, error) {
	recipient, err := s.setOptOut(ctx, email, true)
	if err != nil {
		return nil, wrapError("opt_out", "failed to opt out recipient", err)
	}

	s.logger.Info("recipient opted out",
		"recipient_id", recipient.ID,
		"reason", reason)
	return recipient, nil
}

func (s *recipientServiceImpl) OptIn(ctx context.Context, email string) (*domain.Recipient, error) {
	recipient, err := s.setOptOut(ctx, email, false)
	if err != nil {
		return nil, wrapError("opt_in", "failed to opt in recipient", err)
	}

	s.logger.Info("recipient opted in", "recipient_id", recipient.ID)
	return recipient, nil
}

// setOptOut converges the recipient with the given email onto the target
// opt-out flag, creating the recipient if it does not exist.
func (s *recipientServiceImpl) setOptOut(ctx context.Context, email string, optOut bool) (*domain.Recipient, error) {
	candidate, err := domain.NewRecipient(email, "")
	if err != nil {
		return nil, err
	}
	candidate.SetOptOut(optOut)

	var recipient *domain.Recipient
	err = s.txRunner(ctx, func(ctx context.Context, tx *sql.Tx) error {
		recipients := s.recipientStore.WithTx(tx)

		recipient, err = recipients.GetOrCreate(ctx, candidate)
		if err != nil {
			return err
		}

		if recipient.OptOut != optOut {
			recipient.SetOptOut(optOut)
			return recipients.Update(ctx, recipient)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return recipient, nil
}

func (s *recipientServiceImpl) ListRecipients(ctx context.Context, includeOptedOut bool) ([]*domain.Recipient, error) {
	recipients, err := s.recipientStore.List(ctx, includeOptedOut)
	if err != nil {
		return nil, wrapError("list_recipients", "failed to list recipients", err)
	}
	return recipients, nil
}

func (s *recipientServiceImpl) ListByGroup(ctx context.Context, groupID uuid.UUID, activeOnly bool) ([]*domain.Recipient, error) {
	if _, err := s.groupStore.GetByID(ctx, groupID); err != nil {
		return nil, wrapError("list_by_group", "failed to retrieve group", err)
	}

	recipients, err := s.recipientStore.ListByGroup(ctx, groupID, activeOnly)
	if err != nil {
		return nil, wrapError("list_by_group", "failed to list group recipients", err)
	}
	return recipients, nil
}

func (s *recipientServiceImpl) AddRecipientsToGroup(
	ctx context.Context,
	groupID uuid.UUID,
	emails []string,
) ([]*domain.Recipient, []string, error) {
	var added []*domain.Recipient
	var skipped []string

	err := s.txRunner(ctx, func(ctx context.Context, tx *sql.Tx) error {
		recipients := s.recipientStore.WithTx(tx)

		if _, err := s.groupStore.WithTx(tx).GetByID(ctx, groupID); err != nil {
			return err
		}

		for _, email := range emails {
			candidate, err := domain.NewRecipient(email, "")
			if err != nil {
				return err
			}

			recipient, err := recipients.GetOrCreate(ctx, candidate)
			if err != nil {
				return err
			}

			if recipient.OptOut {
				skipped = append(skipped, email)
				continue
			}

			if recipient.GroupID == nil || *recipient.GroupID != groupID {
				recipient.AssignGroup(groupID)
				if err := recipients.Update(ctx, recipient); err != nil {
					return err
				}
			}
			added = append(added, recipient)
		}
		return nil
	})
	if err != nil {
		return nil, nil, wrapError("add_recipients_to_group", "failed to add recipients to group", err)
	}

	return added, skipped, nil
}
