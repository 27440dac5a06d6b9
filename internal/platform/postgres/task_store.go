package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/postflight/campaign-api/internal/store"
	"github.com/postflight/campaign-api/internal/task"
)

// PostgresTaskStore implements the task.TaskStore interface using a
// PostgreSQL database as the storage backend. Task rows outlive the
// process, which is what lets the runner recover queued work after a
// restart.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements task.TaskStore
var _ task.TaskStore = (*PostgresTaskStore)(nil)

// WithTx returns a new store instance bound to the provided transaction.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) task.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// SaveTask persists a new task row in pending state.
func (s *PostgresTaskStore) SaveTask(ctx context.Context, t task.Task) error {
	query := `
		INSERT INTO tasks (id, type, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	now := time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		query,
		t.ID(),
		t.Type(),
		t.Payload(),
		string(task.TaskStatusPending),
		now,
		now,
	)
	if err != nil {
		s.logger.Error("failed to save task",
			slog.String("error", err.Error()),
			slog.String("task_id", t.ID().String()),
			slog.String("task_type", t.Type()))
		return fmt.Errorf("failed to save task: %w", MapError(err))
	}

	return nil
}

// UpdateTaskStatus updates a task row's status and error message.
func (s *PostgresTaskStore) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status task.TaskStatus, errMsg string) error {
	query := `
		UPDATE tasks
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`
	result, err := s.db.ExecContext(ctx, query, string(status), errMsg, time.Now().UTC(), taskID)
	if err != nil {
		s.logger.Error("failed to update task status",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()),
			slog.String("status", string(status)))
		return fmt.Errorf("failed to update task status: %w", MapError(err))
	}

	if err := CheckRowsAffected(result, "task"); err != nil {
		return err
	}

	return nil
}

// SaveTaskResult records a task's serialized result on its row. Job bodies
// report per-item accounting (processed, skipped, error counts) here so the
// outcome of a run survives the process.
func (s *PostgresTaskStore) SaveTaskResult(ctx context.Context, taskID uuid.UUID, result []byte) error {
	query := `
		UPDATE tasks
		SET result = $1, updated_at = $2
		WHERE id = $3
	`
	res, err := s.db.ExecContext(ctx, query, result, time.Now().UTC(), taskID)
	if err != nil {
		s.logger.Error("failed to save task result",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return fmt.Errorf("failed to save task result: %w", MapError(err))
	}

	if err := CheckRowsAffected(res, "task"); err != nil {
		return err
	}

	return nil
}

// GetPendingTasks returns all task rows in pending state, oldest first.
func (s *PostgresTaskStore) GetPendingTasks(ctx context.Context) ([]task.Task, error) {
	query := `
		SELECT id, type, payload, status
		FROM tasks
		WHERE status = $1
		ORDER BY created_at ASC
	`
	return s.queryTasks(ctx, query, string(task.TaskStatusPending))
}

// GetProcessingTasks returns task rows in processing state. With a non-zero
// age, only rows that have not been updated within that duration are
// returned; the runner treats those as stuck.
func (s *PostgresTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]task.Task, error) {
	if olderThan > 0 {
		query := `
			SELECT id, type, payload, status
			FROM tasks
			WHERE status = $1 AND updated_at < $2
			ORDER BY created_at ASC
		`
		cutoff := time.Now().UTC().Add(-olderThan)
		return s.queryTasks(ctx, query, string(task.TaskStatusProcessing), cutoff)
	}

	query := `
		SELECT id, type, payload, status
		FROM tasks
		WHERE status = $1
		ORDER BY created_at ASC
	`
	return s.queryTasks(ctx, query, string(task.TaskStatusProcessing))
}

func (s *PostgresTaskStore) queryTasks(ctx context.Context, query string, args ...any) ([]task.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", MapError(err))
	}
	defer closeRows(rows, s.logger)

	var tasks []task.Task
	for rows.Next() {
		var row taskRow
		var status string
		if err := rows.Scan(&row.id, &row.taskType, &row.payload, &status); err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		row.status = task.TaskStatus(status)
		tasks = append(tasks, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate task rows: %w", err)
	}

	return tasks, nil
}

// taskRow is a task loaded from the database. It carries identity, type,
// and payload only; the runner rebinds it to execution logic through the
// factory registered for its type.
type taskRow struct {
	id       uuid.UUID
	taskType string
	payload  []byte
	status   task.TaskStatus
}

var _ task.Task = (*taskRow)(nil)

func (r *taskRow) ID() uuid.UUID           { return r.id }
func (r *taskRow) Type() string            { return r.taskType }
func (r *taskRow) Payload() []byte         { return r.payload }
func (r *taskRow) Status() task.TaskStatus { return r.status }

// Execute always fails. Recovered rows must be rebound to a real task
// before they run.
func (r *taskRow) Execute(ctx context.Context) error {
	return fmt.Errorf("task %s of type %s was loaded from the database and is not executable", r.id, r.taskType)
}
