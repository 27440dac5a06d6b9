package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/postflight/campaign-api/internal/domain"
	"github.com/postflight/campaign-api/internal/platform/logger"
	"github.com/postflight/campaign-api/internal/store"
)

// PostgresGroupStore implements the store.GroupStore interface
// using a PostgreSQL database as the storage backend.
type PostgresGroupStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresGroupStore creates a new PostgreSQL implementation of the
// GroupStore interface.
func NewPostgresGroupStore(db store.DBTX, logger *slog.Logger) *PostgresGroupStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresGroupStore{
		db:     db,
		logger: logger.With(slog.String("component", "group_store")),
	}
}

// Ensure PostgresGroupStore implements store.GroupStore
var _ store.GroupStore = (*PostgresGroupStore)(nil)

// WithTx returns a new store instance bound to the provided transaction.
func (s *PostgresGroupStore) WithTx(tx *sql.Tx) store.GroupStore {
	return &PostgresGroupStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.GroupStore.Create.
// Returns store.ErrGroupNameExists if the name is already taken.
func (s *PostgresGroupStore) Create(ctx context.Context, group *domain.Group) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := group.Validate(); err != nil {
		log.Warn("group validation failed during create",
			slog.String("error", err.Error()),
			slog.String("name", group.Name))
		return err
	}

	query := `
		INSERT INTO groups (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		group.ID,
		group.Name,
		nullableString(group.Description),
		group.CreatedAt,
		group.UpdatedAt,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("group name already exists", slog.String("name", group.Name))
			return MapUniqueViolation(err, store.ErrGroupNameExists)
		}
		log.Error("failed to create group",
			slog.String("error", err.Error()),
			slog.String("name", group.Name))
		return MapError(err)
	}

	log.Info("group created",
		slog.String("group_id", group.ID.String()),
		slog.String("name", group.Name))
	return nil
}

// GetByID implements store.GroupStore.GetByID.
// Returns store.ErrGroupNotFound if the group does not exist.
func (s *PostgresGroupStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	query := groupSelect + ` WHERE id = $1`
	return s.getOne(ctx, query, id)
}

// GetByName implements store.GroupStore.GetByName.
// Returns store.ErrGroupNotFound if no group has that name.
func (s *PostgresGroupStore) GetByName(ctx context.Context, name string) (*domain.Group, error) {
	query := groupSelect + ` WHERE name = $1`
	return s.getOne(ctx, query, name)
}

// Update implements store.GroupStore.Update.
// Returns store.ErrGroupNotFound if the group does not exist.
func (s *PostgresGroupStore) Update(ctx context.Context, group *domain.Group) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := group.Validate(); err != nil {
		log.Warn("group validation failed during update",
			slog.String("error", err.Error()),
			slog.String("group_id", group.ID.String()))
		return err
	}

	query := `
		UPDATE groups
		SET name = $1, description = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		group.Name,
		nullableString(group.Description),
		group.UpdatedAt,
		group.ID,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return MapUniqueViolation(err, store.ErrGroupNameExists)
		}
		log.Error("failed to update group",
			slog.String("error", err.Error()),
			slog.String("group_id", group.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "group"); err != nil {
		return store.ErrGroupNotFound
	}

	log.Info("group updated", slog.String("group_id", group.ID.String()))
	return nil
}

// List implements store.GroupStore.List.
func (s *PostgresGroupStore) List(ctx context.Context) ([]*domain.Group, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := groupSelect + ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to list groups", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer closeRows(rows, log)

	groups := []*domain.Group{}
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			log.Error("failed to scan group row", slog.String("error", err.Error()))
			return nil, MapError(err)
		}
		groups = append(groups, group)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return groups, nil
}

const groupSelect = `
	SELECT id, name, description, created_at, updated_at
	FROM groups`

func (s *PostgresGroupStore) getOne(ctx context.Context, query string, args ...any) (*domain.Group, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	row := s.db.QueryRowContext(ctx, query, args...)
	group, err := scanGroup(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrGroupNotFound
		}
		log.Error("failed to get group", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return group, nil
}

func scanGroup(row rowScanner) (*domain.Group, error) {
	var group domain.Group
	var description sql.NullString

	if err := row.Scan(
		&group.ID,
		&group.Name,
		&description,
		&group.CreatedAt,
		&group.UpdatedAt,
	); err != nil {
		return nil, err
	}

	group.Description = description.String
	return &group, nil
}
