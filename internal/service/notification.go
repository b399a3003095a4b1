package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helphub/internal/chat"
	"github.com/spec-kit/helphub/internal/events"
)

// NotificationService relays domain events back to the originating chat
// channel. Delivery is best-effort: failures are logged, never propagated
// into ticket durability.
type NotificationService struct {
	dispatcher events.Dispatcher
	adapter    chat.Adapter
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, adapter chat.Adapter, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		adapter:    adapter,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketReclassified, n.handleTicketReclassified)
	n.dispatcher.Subscribe(events.EventIngestFailed, n.handleIngestFailed)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	text := fmt.Sprintf("🎫 Ticket created: %s\n\nSummary: %s\nCategory: %s\nPriority: %s",
		event.TicketID, payload.Summary, payload.Category, payload.Priority)
	if payload.SuggestedResolution != "" {
		text += fmt.Sprintf("\n\nSuggested resolution: %s", payload.SuggestedResolution)
	}
	if payload.AutoResolvable {
		text += fmt.Sprintf("\n\nIf this solves your issue, reply `resolve %s`.", event.TicketID)
	}
	n.send(ctx, event.UserRef, text)
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	text := fmt.Sprintf("Ticket %s is now %s.", event.TicketID, payload.NewStatus)
	if payload.Comment != "" {
		text += " " + payload.Comment
	}
	n.send(ctx, event.UserRef, text)
	return nil
}

func (n *NotificationService) handleTicketReclassified(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketReclassifiedPayload)
	if !ok {
		return nil
	}
	text := fmt.Sprintf("Ticket %s was re-triaged: category %s, priority %s.",
		event.TicketID, payload.NewCategory, payload.NewPriority)
	n.send(ctx, event.UserRef, text)
	return nil
}

func (n *NotificationService) handleIngestFailed(ctx context.Context, event events.Event) error {
	n.send(ctx, event.UserRef, "❌ Sorry, we could not process your voice message. Please try again or send your issue as text.")
	return nil
}

// NotifyUser relays a free-form message from the dashboard to a user.
func (n *NotificationService) NotifyUser(ctx context.Context, userRef, text string) error {
	if n.adapter == nil {
		return fmt.Errorf("chat transport not configured")
	}
	return n.adapter.Send(ctx, chat.OutboundMessage{UserRef: userRef, Text: text})
}

func (n *NotificationService) send(ctx context.Context, userRef, text string) {
	if n.adapter == nil {
		return
	}
	if err := n.adapter.Send(ctx, chat.OutboundMessage{UserRef: userRef, Text: text}); err != nil {
		n.logger.Warn("notification delivery failed",
			zap.String("user_ref", userRef), zap.Error(err))
	}
}
