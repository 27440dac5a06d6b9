package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:            1,
		QueueSize:              8,
		StuckTaskAge:           time.Minute,
		StuckTaskCheckInterval: time.Hour,
	}
}

func waitForExecution(t *testing.T, executed <-chan struct{}) {
	t.Helper()
	select {
	case <-executed:
	case <-time.After(2 * time.Second):
		t.Fatal("task was not executed in time")
	}
}

func waitForStatus(t *testing.T, store *fakeTaskStore, task Task, want TaskStatus) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		history := store.statusHistory(task.ID())
		if len(history) > 0 && history[len(history)-1] == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("task never reached status %q, history: %v", want, history)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSubmitPersistsBeforeQueueing(t *testing.T) {
	store := newFakeTaskStore()
	runner := NewTaskRunner(store, testRunnerConfig(), testLogger())

	task := newStaticTask("noop", nil)
	require.NoError(t, runner.Submit(context.Background(), task))

	require.Len(t, store.saved, 1)
	assert.Equal(t, task.ID(), store.saved[0].ID())
}

func TestSubmitFailsWhenSaveFails(t *testing.T) {
	store := newFakeTaskStore()
	store.saveErr = errors.New("connection refused")
	runner := NewTaskRunner(store, testRunnerConfig(), testLogger())

	err := runner.Submit(context.Background(), newStaticTask("noop", nil))
	require.Error(t, err)
	assert.Empty(t, store.saved, "a task that could not be persisted must not be queued")
}

func TestSubmitFailsWhenQueueFull(t *testing.T) {
	store := newFakeTaskStore()
	config := testRunnerConfig()
	config.QueueSize = 1
	runner := NewTaskRunner(store, config, testLogger())

	// Workers are not started, so the first submit fills the buffer.
	require.NoError(t, runner.Submit(context.Background(), newStaticTask("noop", nil)))
	err := runner.Submit(context.Background(), newStaticTask("noop", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue is full")
}

func TestRunnerExecutesSubmittedTask(t *testing.T) {
	store := newFakeTaskStore()
	runner := NewTaskRunner(store, testRunnerConfig(), testLogger())
	require.NoError(t, runner.Start())
	defer runner.Stop()

	task := newStaticTask("noop", nil)
	require.NoError(t, runner.Submit(context.Background(), task))

	waitForExecution(t, task.executed)
	waitForStatus(t, store, task, TaskStatusCompleted)

	history := store.statusHistory(task.ID())
	assert.Equal(t, []TaskStatus{TaskStatusProcessing, TaskStatusCompleted}, history)
}

func TestRunnerPersistsTaskResult(t *testing.T) {
	store := newFakeTaskStore()
	runner := NewTaskRunner(store, testRunnerConfig(), testLogger())
	require.NoError(t, runner.Start())
	defer runner.Stop()

	task := newStaticTask("counting", nil)
	task.result = []byte(`{"processed":2,"skipped":1,"error_count":0}`)
	require.NoError(t, runner.Submit(context.Background(), task))

	waitForExecution(t, task.executed)
	waitForStatus(t, store, task, TaskStatusCompleted)

	assert.JSONEq(t, `{"processed":2,"skipped":1,"error_count":0}`,
		string(store.resultFor(task.ID())),
		"a completed task's result must land on its row")
}

func TestRunnerMarksFailedExecution(t *testing.T) {
	store := newFakeTaskStore()
	runner := NewTaskRunner(store, testRunnerConfig(), testLogger())
	require.NoError(t, runner.Start())
	defer runner.Stop()

	task := newStaticTask("noop", errors.New("boom"))
	require.NoError(t, runner.Submit(context.Background(), task))

	waitForExecution(t, task.executed)
	waitForStatus(t, store, task, TaskStatusFailed)
}

func TestRecoverRequeuesPendingTasks(t *testing.T) {
	store := newFakeTaskStore()
	runner := NewTaskRunner(store, testRunnerConfig(), testLogger())

	task := newStaticTask("recoverable", nil)
	runner.RegisterFactory(&staticTaskFactory{taskType: "recoverable", task: task})
	store.pending = []Task{task}

	require.NoError(t, runner.Start())
	defer runner.Stop()

	waitForExecution(t, task.executed)
	waitForStatus(t, store, task, TaskStatusCompleted)
}

func TestRecoverResetsProcessingTasks(t *testing.T) {
	store := newFakeTaskStore()
	runner := NewTaskRunner(store, testRunnerConfig(), testLogger())

	task := newStaticTask("recoverable", nil)
	runner.RegisterFactory(&staticTaskFactory{taskType: "recoverable", task: task})
	store.processing = []Task{task}

	require.NoError(t, runner.Start())
	defer runner.Stop()

	waitForExecution(t, task.executed)
	waitForStatus(t, store, task, TaskStatusCompleted)

	history := store.statusHistory(task.ID())
	require.NotEmpty(t, history)
	assert.Equal(t, TaskStatusPending, history[0],
		"an interrupted processing row is reset to pending before requeueing")
}

func TestRecoverMarksUnknownTypeFailed(t *testing.T) {
	store := newFakeTaskStore()
	runner := NewTaskRunner(store, testRunnerConfig(), testLogger())

	orphan := newStaticTask("retired_task_type", nil)
	store.pending = []Task{orphan}

	require.NoError(t, runner.Recover())

	waitForStatus(t, store, orphan, TaskStatusFailed)
	select {
	case <-orphan.executed:
		t.Fatal("a task with no registered factory must not execute")
	default:
	}
}

func TestRecoverMarksUnboundPayloadFailed(t *testing.T) {
	store := newFakeTaskStore()
	runner := NewTaskRunner(store, testRunnerConfig(), testLogger())

	orphan := newStaticTask("recoverable", nil)
	runner.RegisterFactory(&staticTaskFactory{
		taskType: "recoverable",
		err:      errors.New("payload has empty campaign ID"),
	})
	store.pending = []Task{orphan}

	require.NoError(t, runner.Recover())

	waitForStatus(t, store, orphan, TaskStatusFailed)
}
