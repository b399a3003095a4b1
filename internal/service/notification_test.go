package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helphub/internal/chat"
	"github.com/spec-kit/helphub/internal/domain"
	"github.com/spec-kit/helphub/internal/events"
)

func newNotificationFixture() (*chat.MockAdapter, events.Dispatcher) {
	adapter := chat.NewMockAdapter()
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewNotificationService(dispatcher, adapter, zap.NewNop())
	svc.RegisterHandlers()
	return adapter, dispatcher
}

func publishEvent(dispatcher events.Dispatcher, event events.Event) {
	event.ID = "evt-1"
	event.Timestamp = time.Now()
	_ = dispatcher.Publish(context.Background(), event)
}

func TestNotifyOnTicketCreated(t *testing.T) {
	adapter, dispatcher := newNotificationFixture()

	publishEvent(dispatcher, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: "TK-ABC123",
		UserRef:  "user-1",
		Payload: events.TicketCreatedPayload{
			Summary:             "Login broken",
			Category:            domain.TicketCategoryBug,
			Priority:            domain.TicketPriorityHigh,
			SuggestedResolution: "Clear the app cache",
			AutoResolvable:      true,
		},
	})

	sent := adapter.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "user-1", sent[0].UserRef)
	assert.Contains(t, sent[0].Text, "TK-ABC123")
	assert.Contains(t, sent[0].Text, "Clear the app cache")
	assert.Contains(t, sent[0].Text, "resolve TK-ABC123")
}

func TestNotifyOnStatusChanged(t *testing.T) {
	adapter, dispatcher := newNotificationFixture()

	publishEvent(dispatcher, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: "TK-ABC123",
		UserRef:  "user-1",
		Payload: events.TicketStatusChangedPayload{
			OldStatus: domain.TicketStatusOpen,
			NewStatus: domain.TicketStatusResolved,
			Comment:   "fixed in v2.4",
		},
	})

	sent := adapter.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text, "is now resolved")
	assert.Contains(t, sent[0].Text, "fixed in v2.4")
}

func TestNotifyOnIngestFailed(t *testing.T) {
	adapter, dispatcher := newNotificationFixture()

	publishEvent(dispatcher, events.Event{
		Type:    events.EventIngestFailed,
		UserRef: "user-1",
		Payload: events.IngestFailedPayload{Reason: "TRANSCRIPTION_FAILED"},
	})

	sent := adapter.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text, "voice message")
}

func TestNotifyDeliveryFailureDoesNotPropagate(t *testing.T) {
	adapter := chat.NewMockAdapter()
	adapter.FailSends(errors.New("gateway down"))
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewNotificationService(dispatcher, adapter, zap.NewNop())
	svc.RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:    events.EventTicketCreated,
		UserRef: "user-1",
		Payload: events.TicketCreatedPayload{Summary: "x"},
	})
	assert.NoError(t, err)
}

func TestNotifyUser(t *testing.T) {
	adapter := chat.NewMockAdapter()
	svc := NewNotificationService(nil, adapter, zap.NewNop())

	require.NoError(t, svc.NotifyUser(context.Background(), "user-1", "an agent will contact you shortly"))

	sent := adapter.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "user-1", sent[0].UserRef)
}

func TestNotifyUserWithoutAdapter(t *testing.T) {
	svc := NewNotificationService(nil, nil, zap.NewNop())
	assert.Error(t, svc.NotifyUser(context.Background(), "user-1", "hello"))
}
