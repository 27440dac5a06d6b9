package task

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postflight/campaign-api/internal/events"
)

// recordingSubmitter captures submitted tasks.
type recordingSubmitter struct {
	tasks []Task
	err   error
}

func (s *recordingSubmitter) Submit(_ context.Context, task Task) error {
	if s.err != nil {
		return s.err
	}
	s.tasks = append(s.tasks, task)
	return nil
}

func TestHandleEventRoutesByType(t *testing.T) {
	submitter := &recordingSubmitter{}
	reconcile := newStaticTask("reconcile_recipients", nil)
	send := newStaticTask("send_campaign", nil)
	handler := NewFactoryEventHandler(submitter, testLogger(),
		&staticTaskFactory{taskType: "reconcile_recipients", task: reconcile},
		&staticTaskFactory{taskType: "send_campaign", task: send},
	)

	event, err := events.NewTaskRequestEvent("send_campaign", map[string]string{"campaign_id": "x"})
	require.NoError(t, err)

	require.NoError(t, handler.HandleEvent(context.Background(), event))

	require.Len(t, submitter.tasks, 1)
	assert.Equal(t, send.ID(), submitter.tasks[0].ID())
}

func TestHandleEventUnknownType(t *testing.T) {
	submitter := &recordingSubmitter{}
	handler := NewFactoryEventHandler(submitter, testLogger())

	event, err := events.NewTaskRequestEvent("retired_task_type", nil)
	require.NoError(t, err)

	err = handler.HandleEvent(context.Background(), event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no task factory registered")
	assert.Empty(t, submitter.tasks)
}

func TestHandleEventConstructionFailure(t *testing.T) {
	submitter := &recordingSubmitter{}
	handler := NewFactoryEventHandler(submitter, testLogger(),
		&staticTaskFactory{taskType: "send_campaign", err: errors.New("empty campaign ID")},
	)

	event, err := events.NewTaskRequestEvent("send_campaign", map[string]string{})
	require.NoError(t, err)

	err = handler.HandleEvent(context.Background(), event)
	require.Error(t, err)
	assert.Empty(t, submitter.tasks)
}

func TestHandleEventSubmitFailure(t *testing.T) {
	submitter := &recordingSubmitter{err: errors.New("queue is full")}
	handler := NewFactoryEventHandler(submitter, testLogger(),
		&staticTaskFactory{taskType: "send_campaign", task: newStaticTask("send_campaign", nil)},
	)

	event, err := events.NewTaskRequestEvent("send_campaign", nil)
	require.NoError(t, err)

	err = handler.HandleEvent(context.Background(), event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to submit task")
}
