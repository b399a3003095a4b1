// Package store provides ticket persistence over Postgres with an in-memory
// mock fallback and a read-your-writes cache on top.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helphub/internal/domain"
	apperrors "github.com/spec-kit/helphub/pkg/util/errorutil"
)

// TicketDraft describes a ticket before the store assigns identity and
// timestamps.
type TicketDraft struct {
	UserRef   string
	RawInput  string
	Summary   string
	Category  domain.TicketCategory
	Priority  domain.TicketPriority
	Sentiment string
}

// TicketPatch applies a partial mutation. Nil fields are left untouched.
type TicketPatch struct {
	Summary   *string
	Category  *domain.TicketCategory
	Priority  *domain.TicketPriority
	Sentiment *string
	Status    *domain.TicketStatus
	Assignee  *string

	// ExpectedUpdatedAt serializes concurrent mutations on the same ticket:
	// when set, the update applies only while the stored updated_at still
	// matches. A mismatch fails with INVALID_TRANSITION.
	ExpectedUpdatedAt *time.Time
}

// TicketFilter captures dashboard query parameters. Results are ordered by
// created_at descending.
type TicketFilter struct {
	UserRef     *string
	Statuses    []domain.TicketStatus
	Categories  []domain.TicketCategory
	Priorities  []domain.TicketPriority
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketStore encapsulates ticket persistence. Every successful Create and
// Update is observable by subsequent Get and List calls.
type TicketStore interface {
	Create(ctx context.Context, draft TicketDraft) (*domain.Ticket, error)
	Get(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Update(ctx context.Context, id string, patch TicketPatch) (*domain.Ticket, error)
}

// NewTicketID generates a ticket identifier.
func NewTicketID() string {
	return "TK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

// validateDraft enforces the invariants every stored ticket must satisfy.
func validateDraft(draft TicketDraft) error {
	if strings.TrimSpace(draft.UserRef) == "" {
		return apperrors.NewValidationError("user_ref required", nil)
	}
	if strings.TrimSpace(draft.RawInput) == "" {
		return apperrors.NewValidationError("raw_input required", nil)
	}
	if draft.Category == "" || draft.Priority == "" {
		return apperrors.NewValidationError("category and priority required", nil)
	}
	return nil
}

// validateStatusChange checks a patch against the ticket state machine.
func validateStatusChange(current *domain.Ticket, patch TicketPatch) error {
	if patch.Status == nil {
		return nil
	}
	next := *patch.Status
	if !domain.ValidStatus(next) {
		return apperrors.NewValidationError("unknown status", map[string]any{"status": next})
	}
	if !domain.CanTransition(current.Status, next) {
		return apperrors.NewInvalidTransition("status transition not allowed", map[string]any{
			"from": current.Status,
			"to":   next,
		})
	}
	if next == domain.TicketStatusAssigned && patch.Assignee == nil && current.Assignee == nil {
		return apperrors.NewInvalidTransition("assignment requires an assignee", nil)
	}
	return nil
}

// applyPatch mutates a copy of the ticket in memory. Callers persist the result.
func applyPatch(ticket domain.Ticket, patch TicketPatch, now time.Time) domain.Ticket {
	if patch.Summary != nil {
		ticket.Summary = *patch.Summary
	}
	if patch.Category != nil {
		ticket.Category = *patch.Category
	}
	if patch.Priority != nil {
		ticket.Priority = *patch.Priority
	}
	if patch.Sentiment != nil {
		ticket.Sentiment = *patch.Sentiment
	}
	if patch.Status != nil {
		ticket.Status = *patch.Status
	}
	if patch.Assignee != nil {
		assignee := *patch.Assignee
		ticket.Assignee = &assignee
	}
	ticket.UpdatedAt = now
	return ticket
}
