package dto

import (
	"time"

	"github.com/spec-kit/helphub/internal/domain"
)

// TicketResponse is the dashboard view of a ticket.
type TicketResponse struct {
	ID        string                `json:"id"`
	UserRef   string                `json:"user_ref"`
	RawInput  string                `json:"raw_input"`
	Summary   string                `json:"summary"`
	Category  domain.TicketCategory `json:"category"`
	Priority  domain.TicketPriority `json:"priority"`
	Sentiment string                `json:"sentiment,omitempty"`
	Status    domain.TicketStatus   `json:"status"`
	Assignee  *string               `json:"assignee,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// FromTicket maps a domain ticket into its response shape.
func FromTicket(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:        ticket.ID,
		UserRef:   ticket.UserRef,
		RawInput:  ticket.RawInput,
		Summary:   ticket.Summary,
		Category:  ticket.Category,
		Priority:  ticket.Priority,
		Sentiment: ticket.Sentiment,
		Status:    ticket.Status,
		Assignee:  ticket.Assignee,
		CreatedAt: ticket.CreatedAt,
		UpdatedAt: ticket.UpdatedAt,
	}
}

// UpdateStatusRequest payload for status transitions.
type UpdateStatusRequest struct {
	Status   domain.TicketStatus `json:"status"`
	Assignee *string             `json:"assignee,omitempty"`
	Comment  string              `json:"comment,omitempty"`
}

// NotifyRequest relays a dashboard message to a user's channel.
type NotifyRequest struct {
	UserRef string `json:"user_ref"`
	Message string `json:"message"`
}

// LoginRequest payload for agent login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RootCauseRequest selects the category to analyze.
type RootCauseRequest struct {
	Category domain.TicketCategory `json:"category"`
	Limit    int                   `json:"limit,omitempty"`
}

// RootCauseResponse carries the model analysis.
type RootCauseResponse struct {
	Category domain.TicketCategory `json:"category"`
	Analysis string                `json:"analysis"`
}
