package task

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task type constants
const (
	// TaskTypeReconcileRecipients reconciles a campaign's raw email list
	// against the recipient directory.
	TaskTypeReconcileRecipients = "reconcile_recipients"

	// TaskTypeSendCampaign dispatches a campaign to its active recipients.
	TaskTypeSendCampaign = "send_campaign"
)

// Task represents a unit of background work to be processed
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Payload returns the task data as a byte slice
	Payload() []byte

	// Status returns the current task status
	Status() TaskStatus

	// Execute runs the task logic. A returned error marks the task row
	// failed; per-item errors inside a job are accounted in the job's
	// result instead of being returned.
	Execute(ctx context.Context) error
}

// ResultReporter is implemented by tasks that produce a structured result
// worth recording on the task row. The runner persists the result when the
// task completes.
type ResultReporter interface {
	// Result returns the serialized result of the last Execute, or nil if
	// no run has completed.
	Result() []byte
}

// TaskFactory builds executable tasks of one type from a serialized payload.
// The runner uses factories to rebind task rows recovered from the database
// to their execution logic; the event handler uses them to construct tasks
// from emitted events.
type TaskFactory interface {
	// TaskType returns the task type identifier this factory builds.
	TaskType() string

	// NewTask constructs an executable task with the given ID and payload.
	// The ID is preserved so recovered tasks update their original rows.
	NewTask(id uuid.UUID, payload []byte) (Task, error)
}

// TaskStore defines the interface for persisting tasks
type TaskStore interface {
	// SaveTask persists a task to the database
	SaveTask(ctx context.Context, task Task) error

	// UpdateTaskStatus updates the status of a task
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error

	// SaveTaskResult records a task's serialized result on its row
	SaveTaskResult(ctx context.Context, taskID uuid.UUID, result []byte) error

	// GetPendingTasks retrieves all tasks with "pending" status
	GetPendingTasks(ctx context.Context) ([]Task, error)

	// GetProcessingTasks retrieves tasks with "processing" status.
	// If olderThan is non-zero, only returns tasks that have been in this
	// state longer than the specified duration.
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Task, error)

	// WithTx returns a new TaskStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) TaskStore
}

// TxRunner executes a function within a single database transaction.
// Job bodies use it to commit all of a run's mutations as one unit of work.
type TxRunner func(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error
