package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/postflight/campaign-api/internal/events"
)

// TaskSubmitter accepts constructed tasks for execution. Satisfied by
// *TaskRunner.
type TaskSubmitter interface {
	Submit(ctx context.Context, task Task) error
}

// FactoryEventHandler turns task request events into queued tasks. Each
// event's type selects the registered factory that constructs the task
// from the event payload, so services emitting events never depend on
// task construction.
type FactoryEventHandler struct {
	submitter TaskSubmitter
	factories map[string]TaskFactory
	logger    *slog.Logger
}

// NewFactoryEventHandler creates a handler that routes events to the given
// factories and submits the resulting tasks.
func NewFactoryEventHandler(submitter TaskSubmitter, logger *slog.Logger, factories ...TaskFactory) *FactoryEventHandler {
	byType := make(map[string]TaskFactory, len(factories))
	for _, f := range factories {
		byType[f.TaskType()] = f
	}
	return &FactoryEventHandler{
		submitter: submitter,
		factories: byType,
		logger:    logger.With("component", "task_event_handler"),
	}
}

// HandleEvent constructs a task from the event and submits it.
func (h *FactoryEventHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	factory, ok := h.factories[event.Type]
	if !ok {
		return fmt.Errorf("no task factory registered for event type %q", event.Type)
	}

	task, err := factory.NewTask(uuid.New(), event.Payload)
	if err != nil {
		return fmt.Errorf("failed to construct task for event type %q: %w", event.Type, err)
	}

	if err := h.submitter.Submit(ctx, task); err != nil {
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.Debug("task submitted from event",
		"event_id", event.ID,
		"event_type", event.Type,
		"task_id", task.ID())

	return nil
}
