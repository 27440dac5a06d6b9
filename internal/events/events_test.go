package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskRequestEvent(t *testing.T) {
	type payload struct {
		CampaignID uuid.UUID `json:"campaign_id"`
		Emails     []string  `json:"emails"`
	}

	p := payload{
		CampaignID: uuid.New(),
		Emails:     []string{"a@example.com", "b@example.com"},
	}

	event, err := NewTaskRequestEvent("reconcile_recipients", p)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, "reconcile_recipients", event.Type)
	assert.WithinDuration(t, time.Now(), event.CreatedAt, 2*time.Second)

	var decoded payload
	require.NoError(t, event.UnmarshalPayload(&decoded))
	assert.Equal(t, p, decoded)
}

func TestNewTaskRequestEventRejectsEmptyType(t *testing.T) {
	_, err := NewTaskRequestEvent("", map[string]string{"k": "v"})
	assert.Error(t, err)
}

func TestNewTaskRequestEventRejectsUnserializablePayload(t *testing.T) {
	_, err := NewTaskRequestEvent("send_campaign", make(chan int))
	assert.Error(t, err)
}

func TestUnmarshalPayloadRejectsMismatchedShape(t *testing.T) {
	event := &TaskRequestEvent{
		ID:      uuid.New(),
		Type:    "send_campaign",
		Payload: json.RawMessage(`{"campaign_id": 42}`),
	}

	var p struct {
		CampaignID uuid.UUID `json:"campaign_id"`
	}
	assert.Error(t, event.UnmarshalPayload(&p))
}

// recordingHandler captures handled events for assertions.
type recordingHandler struct {
	events []*TaskRequestEvent
	err    error
}

func (h *recordingHandler) HandleEvent(_ context.Context, event *TaskRequestEvent) error {
	h.events = append(h.events, event)
	return h.err
}
