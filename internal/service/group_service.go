package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/postflight/campaign-api/internal/domain"
	"github.com/postflight/campaign-api/internal/store"
	"github.com/postflight/campaign-api/internal/task"
)

// GroupUpdate carries a partial update. Nil fields are left unchanged.
type GroupUpdate struct {
	Name        *string
	Description *string
}

// GroupService provides directory operations for recipient groups.
type GroupService interface {
	// GetOrCreateGroup returns the group with the given name, creating it
	// if absent.
	GetOrCreateGroup(ctx context.Context, name, description string) (*domain.Group, error)

	// GetGroup retrieves a group by ID.
	GetGroup(ctx context.Context, id uuid.UUID) (*domain.Group, error)

	// UpdateGroup applies a partial update. Renaming onto a taken name
	// returns ErrGroupNameExists.
	UpdateGroup(ctx context.Context, id uuid.UUID, update GroupUpdate) (*domain.Group, error)

	// ListGroups retrieves all groups.
	ListGroups(ctx context.Context) ([]*domain.Group, error)
}

type groupServiceImpl struct {
	groupStore store.GroupStore
	txRunner   task.TxRunner
	logger     *slog.Logger
}

// NewGroupService creates a GroupService.
func NewGroupService(
	groupStore store.GroupStore,
	txRunner task.TxRunner,
	logger *slog.Logger,
) (GroupService, error) {
	if groupStore == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "groupStore cannot be nil"}
	}
	if txRunner == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "txRunner cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &groupServiceImpl{
		groupStore: groupStore,
		txRunner:   txRunner,
		logger:     logger.With("component", "group_service"),
	}, nil
}

func (s *groupServiceImpl) GetOrCreateGroup(ctx context.Context, name, description string) (*domain.Group, error) {
	var group *domain.Group
	err := s.txRunner(ctx, func(ctx context.Context, tx *sql.Tx) error {
		groups := s.groupStore.WithTx(tx)

		existing, err := groups.GetByName(ctx, name)
		if err == nil {
			group = existing
			return nil
		}
		if !errors.Is(err, store.ErrGroupNotFound) {
			return err
		}

		group, err = domain.NewGroup(name, description)
		if err != nil {
			return err
		}
		return groups.Create(ctx, group)
	})
	if err != nil {
		// A concurrent writer may have created the name between the
		// lookup and the insert; converge on the existing row.
		if errors.Is(err, store.ErrGroupNameExists) {
			existing, getErr := s.groupStore.GetByName(ctx, name)
			if getErr == nil {
				return existing, nil
			}
		}
		return nil, wrapError("get_or_create_group", "failed to get or create group", err)
	}

	return group, nil
}

func (s *groupServiceImpl) GetGroup(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	group, err := s.groupStore.GetByID(ctx, id)
	if err != nil {
		return nil, wrapError("get_group", "failed to retrieve group", err)
	}
	return group, nil
}

func (s *groupServiceImpl) UpdateGroup(ctx context.Context, id uuid.UUID, update GroupUpdate) (*domain.Group, error) {
	var group *domain.Group
	err := s.txRunner(ctx, func(ctx context.Context, tx *sql.Tx) error {
		groups := s.groupStore.WithTx(tx)

		var err error
		group, err = groups.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if update.Name != nil {
			group.Rename(*update.Name)
		}
		if update.Description != nil {
			group.SetDescription(*update.Description)
		}
		if err := group.Validate(); err != nil {
			return err
		}

		return groups.Update(ctx, group)
	})
	if err != nil {
		return nil, wrapError("update_group", "failed to update group", err)
	}

	return group, nil
}

func (s *groupServiceImpl) ListGroups(ctx context.Context) ([]*domain.Group, error) {
	groups, err := s.groupStore.List(ctx)
	if err != nil {
		return nil, wrapError("list_groups", "failed to list groups", err)
	}
	return groups, nil
}
