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

// PostgresRecipientStore implements the store.RecipientStore interface
// using a PostgreSQL database as the storage backend.
type PostgresRecipientStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresRecipientStore creates a new PostgreSQL implementation of the
// RecipientStore interface.
func NewPostgresRecipientStore(db store.DBTX, logger *slog.Logger) *PostgresRecipientStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresRecipientStore{
		db:     db,
		logger: logger.With(slog.String("component", "recipient_store")),
	}
}

// Ensure PostgresRecipientStore implements store.RecipientStore
var _ store.RecipientStore = (*PostgresRecipientStore)(nil)

// WithTx returns a new store instance bound to the provided transaction.
func (s *PostgresRecipientStore) WithTx(tx *sql.Tx) store.RecipientStore {
	return &PostgresRecipientStore{
		db:     tx,
		logger: s.logger,
	}
}

// GetByID implements store.RecipientStore.GetByID.
// Returns store.ErrRecipientNotFound if the recipient does not exist.
func (s *PostgresRecipientStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Recipient, error) {
	query := recipientSelect + ` WHERE id = $1`
	return s.getOne(ctx, query, id)
}

// GetByEmail implements store.RecipientStore.GetByEmail.
// Returns store.ErrRecipientNotFound if no recipient has that email.
func (s *PostgresRecipientStore) GetByEmail(ctx context.Context, email string) (*domain.Recipient, error) {
	query := recipientSelect + ` WHERE email = $1`
	return s.getOne(ctx, query, email)
}

// GetOrCreate implements store.RecipientStore.GetOrCreate.
// ON CONFLICT DO NOTHING followed by a fetch makes the lookup-or-create safe
// against two concurrent reconciliation runs inserting the same email: the
// loser of the race falls through to the fetch and uses the existing row.
func (s *PostgresRecipientStore) GetOrCreate(
	ctx context.Context,
	recipient *domain.Recipient,
) (*domain.Recipient, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := recipient.Validate(); err != nil {
		log.Warn("recipient validation failed during get-or-create",
			slog.String("error", err.Error()),
			slog.String("email", recipient.Email))
		return nil, err
	}

	query := `
		INSERT INTO recipients (id, email, name, group_id, opt_out, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (email) DO NOTHING
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		recipient.ID,
		recipient.Email,
		nullableString(recipient.Name),
		recipient.GroupID,
		recipient.OptOut,
		recipient.CreatedAt,
		recipient.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to insert recipient during get-or-create",
			slog.String("error", err.Error()),
			slog.String("email", recipient.Email))
		return nil, MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, MapError(err)
	}

	if rowsAffected > 0 {
		log.Info("recipient created",
			slog.String("recipient_id", recipient.ID.String()),
			slog.String("email", recipient.Email))
		return recipient, nil
	}

	// The row already existed (or a concurrent writer just created it).
	existing, err := s.GetByEmail(ctx, recipient.Email)
	if err != nil {
		return nil, err
	}

	log.Debug("found existing recipient", slog.String("email", existing.Email))
	return existing, nil
}

// Update implements store.RecipientStore.Update.
// Returns store.ErrRecipientNotFound if the recipient does not exist.
func (s *PostgresRecipientStore) Update(ctx context.Context, recipient *domain.Recipient) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := recipient.Validate(); err != nil {
		log.Warn("recipient validation failed during update",
			slog.String("error", err.Error()),
			slog.String("recipient_id", recipient.ID.String()))
		return err
	}

	query := `
		UPDATE recipients
		SET name = $1, group_id = $2, opt_out = $3, updated_at = $4
		WHERE id = $5
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		nullableString(recipient.Name),
		recipient.GroupID,
		recipient.OptOut,
		recipient.UpdatedAt,
		recipient.ID,
	)
	if err != nil {
		log.Error("failed to update recipient",
			slog.String("error", err.Error()),
			slog.String("recipient_id", recipient.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "recipient"); err != nil {
		return store.ErrRecipientNotFound
	}

	log.Info("recipient updated",
		slog.String("recipient_id", recipient.ID.String()),
		slog.Bool("opt_out", recipient.OptOut))
	return nil
}

// List implements store.RecipientStore.List.
func (s *PostgresRecipientStore) List(ctx context.Context, includeOptedOut bool) ([]*domain.Recipient, error) {
	query := recipientSelect
	if !includeOptedOut {
		query += ` WHERE opt_out = false`
	}
	query += ` ORDER BY created_at ASC`

	return s.getMany(ctx, query)
}

// ListByGroup implements store.RecipientStore.ListByGroup.
func (s *PostgresRecipientStore) ListByGroup(
	ctx context.Context,
	groupID uuid.UUID,
	activeOnly bool,
) ([]*domain.Recipient, error) {
	query := recipientSelect + ` WHERE group_id = $1`
	if activeOnly {
		query += ` AND opt_out = false`
	}
	query += ` ORDER BY created_at ASC`

	return s.getMany(ctx, query, groupID)
}

const recipientSelect = `
	SELECT id, email, name, group_id, opt_out, created_at, updated_at
	FROM recipients`

func (s *PostgresRecipientStore) getOne(ctx context.Context, query string, args ...any) (*domain.Recipient, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	row := s.db.QueryRowContext(ctx, query, args...)
	recipient, err := scanRecipient(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrRecipientNotFound
		}
		log.Error("failed to get recipient", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return recipient, nil
}

func (s *PostgresRecipientStore) getMany(ctx context.Context, query string, args ...any) ([]*domain.Recipient, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query recipients", slog.String("error", err.Error()))
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

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecipient(row rowScanner) (*domain.Recipient, error) {
	var recipient domain.Recipient
	var name sql.NullString
	var groupID uuid.NullUUID

	if err := row.Scan(
		&recipient.ID,
		&recipient.Email,
		&name,
		&groupID,
		&recipient.OptOut,
		&recipient.CreatedAt,
		&recipient.UpdatedAt,
	); err != nil {
		return nil, err
	}

	recipient.Name = name.String
	if groupID.Valid {
		recipient.GroupID = &groupID.UUID
	}

	return &recipient, nil
}

// nullableString maps an empty string to SQL NULL.
func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
