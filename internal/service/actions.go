package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helphub/internal/classify"
	"github.com/spec-kit/helphub/internal/domain"
	"github.com/spec-kit/helphub/internal/events"
	"github.com/spec-kit/helphub/internal/store"
	apperrors "github.com/spec-kit/helphub/pkg/util/errorutil"
)

// ActionService applies agent-initiated state transitions to existing
// tickets and re-runs classification on demand. Per-ticket serialization is
// delegated to the store's updated_at compare-and-swap: of two concurrent
// conflicting transitions exactly one wins.
type ActionService struct {
	tickets    store.TicketStore
	classifier classify.Classifier
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewActionService constructs the service.
func NewActionService(tickets store.TicketStore, classifier classify.Classifier, dispatcher events.Dispatcher, logger *zap.Logger) *ActionService {
	return &ActionService{
		tickets:    tickets,
		classifier: classifier,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Transition moves a ticket to the requested status. Assignment requires an
// assignee; resolved is terminal. Each successful transition notifies the
// submitting user through the event dispatcher.
func (s *ActionService) Transition(ctx context.Context, ticketID string, next domain.TicketStatus, assignee *string, comment string) (*domain.Ticket, error) {
	current, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	expected := current.UpdatedAt
	patch := store.TicketPatch{
		Status:            &next,
		Assignee:          assignee,
		ExpectedUpdatedAt: &expected,
	}
	updated, err := s.tickets.Update(ctx, ticketID, patch)
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket status changed",
		zap.String("id", updated.ID),
		zap.String("from", string(current.Status)),
		zap.String("to", string(updated.Status)))
	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: updated.ID,
		UserRef:  updated.UserRef,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: current.Status,
			NewStatus: updated.Status,
			Assignee:  updated.Assignee,
			Comment:   comment,
		},
	})
	return updated, nil
}

// Resolve closes a ticket. Allowed from open (direct close), assigned, and
// forwarded.
func (s *ActionService) Resolve(ctx context.Context, ticketID, comment string) (*domain.Ticket, error) {
	return s.Transition(ctx, ticketID, domain.TicketStatusResolved, nil, comment)
}

// Forward hands a ticket to human support.
func (s *ActionService) Forward(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	return s.Transition(ctx, ticketID, domain.TicketStatusForwarded, nil, "")
}

// Assign moves a ticket to assigned with the given agent.
func (s *ActionService) Assign(ctx context.Context, ticketID, assignee string) (*domain.Ticket, error) {
	if assignee == "" {
		return nil, apperrors.NewInvalidTransition("assignment requires an assignee", nil)
	}
	return s.Transition(ctx, ticketID, domain.TicketStatusAssigned, &assignee, "")
}

// Reclassify re-runs classification on the ticket's immutable raw input and
// overwrites the classification fields. Idempotent when the external answer
// is deterministic. Rejected on resolved tickets.
func (s *ActionService) Reclassify(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	current, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.TicketStatusResolved {
		return nil, apperrors.NewInvalidTransition("cannot reclassify a resolved ticket", map[string]any{"id": ticketID})
	}

	result := s.classifier.Classify(ctx, current.RawInput, false)
	if result.Fallback {
		return nil, apperrors.NewServiceUnavailable("classification service", nil)
	}

	expected := current.UpdatedAt
	updated, err := s.tickets.Update(ctx, ticketID, store.TicketPatch{
		Summary:           &result.Summary,
		Category:          &result.Category,
		Priority:          &result.Priority,
		Sentiment:         &result.Sentiment,
		ExpectedUpdatedAt: &expected,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket reclassified",
		zap.String("id", updated.ID),
		zap.String("category", string(updated.Category)),
		zap.String("priority", string(updated.Priority)))
	s.publish(ctx, events.Event{
		Type:     events.EventTicketReclassified,
		TicketID: updated.ID,
		UserRef:  updated.UserRef,
		Payload: events.TicketReclassifiedPayload{
			OldCategory: current.Category,
			NewCategory: updated.Category,
			OldPriority: current.Priority,
			NewPriority: updated.Priority,
		},
	})
	return updated, nil
}

func (s *ActionService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
