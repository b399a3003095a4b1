// Package bot routes inbound chat messages: commands and quick actions are
// handled directly, everything else flows into the ingestion pipeline.
package bot

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helphub/internal/chat"
	"github.com/spec-kit/helphub/internal/domain"
	"github.com/spec-kit/helphub/internal/ingest"
	"github.com/spec-kit/helphub/internal/service"
	apperrors "github.com/spec-kit/helphub/pkg/util/errorutil"
)

const welcomeText = "🔥 Welcome to HelpHub!\nSend a voice or text message describing your issue. " +
	"I'll create a support ticket, analyze it, and guide you forward."

const helpText = "HelpHub commands:\n/start - start the bot\n/help - show this help\n" +
	"/mystatus - your recent tickets\n\nQuick actions: `resolve <ticket-id>`, " +
	"`forward <ticket-id>`, `status <ticket-id>`"

// Listener consumes inbound messages from a chat adapter and drives the
// pipeline and user-facing quick actions.
type Listener struct {
	adapter   chat.Adapter
	pipeline  *ingest.Pipeline
	actions   *service.ActionService
	dashboard *service.DashboardService
	logger    *zap.Logger
}

// NewListener constructs the listener.
func NewListener(adapter chat.Adapter, pipeline *ingest.Pipeline, actions *service.ActionService, dashboard *service.DashboardService, logger *zap.Logger) *Listener {
	return &Listener{
		adapter:   adapter,
		pipeline:  pipeline,
		actions:   actions,
		dashboard: dashboard,
		logger:    logger,
	}
}

// Run connects the adapter and processes messages until ctx is cancelled.
// Each message is an independent unit of work.
func (l *Listener) Run(ctx context.Context) error {
	if err := l.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("connect chat adapter: %w", err)
	}
	inbound, err := l.adapter.Listen(ctx)
	if err != nil {
		return fmt.Errorf("listen on chat adapter: %w", err)
	}
	l.logger.Info("chat listener started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-inbound:
			if !ok {
				return nil
			}
			go l.handle(ctx, msg)
		}
	}
}

func (l *Listener) handle(ctx context.Context, msg chat.InboundMessage) {
	if msg.Kind == chat.PayloadText {
		if handled := l.handleCommand(ctx, msg); handled {
			return
		}
	}
	l.ingest(ctx, msg)
}

func (l *Listener) handleCommand(ctx context.Context, msg chat.InboundMessage) bool {
	text := strings.TrimSpace(msg.Text)
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return true
	}

	switch fields[0] {
	case "/start":
		l.reply(ctx, msg, welcomeText)
		return true
	case "/help":
		l.reply(ctx, msg, helpText)
		return true
	case "/mystatus":
		l.replyStatusList(ctx, msg)
		return true
	case "resolve", "forward", "status":
		if len(fields) != 2 {
			return false
		}
		l.quickAction(ctx, msg, fields[0], strings.ToUpper(fields[1]))
		return true
	}
	return false
}

func (l *Listener) quickAction(ctx context.Context, msg chat.InboundMessage, action, ticketID string) {
	ticket, err := l.dashboard.Get(ctx, ticketID)
	if err != nil {
		l.reply(ctx, msg, fmt.Sprintf("❌ Ticket %s not found.", ticketID))
		return
	}
	// Quick actions are restricted to the ticket's own submitter.
	if ticket.UserRef != msg.UserRef {
		l.reply(ctx, msg, fmt.Sprintf("❌ Ticket %s not found.", ticketID))
		return
	}

	switch action {
	case "resolve":
		if _, err := l.actions.Resolve(ctx, ticketID, "resolved by customer"); err != nil {
			l.replyActionError(ctx, msg, ticketID, err)
		}
	case "forward":
		if _, err := l.actions.Forward(ctx, ticketID); err != nil {
			l.replyActionError(ctx, msg, ticketID, err)
		}
	case "status":
		l.reply(ctx, msg, fmt.Sprintf("📋 Ticket %s\nStatus: %s\nCategory: %s\nPriority: %s\nCreated: %s\nSummary: %s",
			ticket.ID, ticket.Status, ticket.Category, ticket.Priority,
			ticket.CreatedAt.Format("2006-01-02 15:04"), ticket.Summary))
	}
}

func (l *Listener) replyActionError(ctx context.Context, msg chat.InboundMessage, ticketID string, err error) {
	if apperrors.HasCode(err, apperrors.CodeInvalidTransition) {
		l.reply(ctx, msg, fmt.Sprintf("❌ Ticket %s cannot change to that status.", ticketID))
		return
	}
	l.logger.Warn("quick action failed", zap.String("id", ticketID), zap.Error(err))
	l.reply(ctx, msg, fmt.Sprintf("❌ Could not update ticket %s. Please try again.", ticketID))
}

func (l *Listener) replyStatusList(ctx context.Context, msg chat.InboundMessage) {
	tickets, err := l.dashboard.UserTickets(ctx, msg.UserRef, 5)
	if err != nil {
		l.logger.Warn("mystatus lookup failed", zap.String("user_ref", msg.UserRef), zap.Error(err))
		l.reply(ctx, msg, "❌ Could not load your tickets. Please try again.")
		return
	}
	if len(tickets) == 0 {
		l.reply(ctx, msg, "📋 You don't have any tickets yet.")
		return
	}

	var b strings.Builder
	b.WriteString("📋 Your recent tickets:\n\n")
	for _, ticket := range tickets {
		summary := ticket.Summary
		if runes := []rune(summary); len(runes) > 50 {
			summary = string(runes[:50]) + "..."
		}
		b.WriteString(fmt.Sprintf("%s %s (%s)\n%s\n\n", statusIcon(ticket.Status), ticket.ID, ticket.Status, summary))
	}
	l.reply(ctx, msg, strings.TrimSpace(b.String()))
}

func (l *Listener) ingest(ctx context.Context, msg chat.InboundMessage) {
	_, err := l.pipeline.Ingest(ctx, ingest.Message{
		UserRef:      msg.UserRef,
		Kind:         ingest.PayloadKind(msg.Kind),
		Text:         msg.Text,
		AudioURL:     msg.AudioURL,
		Continuation: msg.Continuation,
	})
	if err == nil {
		return
	}
	// Transcription failures already notify the sender through the event
	// dispatcher; everything else gets a generic reply here.
	if apperrors.HasCode(err, apperrors.CodeTranscriptionFailed) {
		return
	}
	l.logger.Warn("ingest failed", zap.String("user_ref", msg.UserRef), zap.Error(err))
	l.reply(ctx, msg, "❌ Failed to create a ticket from your message. Please try again.")
}

func (l *Listener) reply(ctx context.Context, msg chat.InboundMessage, text string) {
	err := l.adapter.Send(ctx, chat.OutboundMessage{ChannelID: msg.ChannelID, UserRef: msg.UserRef, Text: text})
	if err != nil {
		l.logger.Warn("reply delivery failed", zap.String("user_ref", msg.UserRef), zap.Error(err))
	}
}

func statusIcon(status domain.TicketStatus) string {
	switch status {
	case domain.TicketStatusOpen:
		return "🟡"
	case domain.TicketStatusAssigned:
		return "🔵"
	case domain.TicketStatusForwarded:
		return "🔄"
	case domain.TicketStatusResolved:
		return "✅"
	}
	return "❓"
}
