package events

import (
	"time"

	"github.com/spec-kit/helphub/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketReclassified  EventType = "ticket_reclassified"
	EventIngestFailed        EventType = "ingest_failed"
)

// Event represents a domain event emitted by the pipeline and services.
// UserRef identifies the submitting user's channel for notifications.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	UserRef   string      `json:"user_ref"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Summary             string                `json:"summary"`
	Category            domain.TicketCategory `json:"category"`
	Priority            domain.TicketPriority `json:"priority"`
	Sentiment           string                `json:"sentiment,omitempty"`
	SuggestedResolution string                `json:"suggested_resolution,omitempty"`
	AutoResolvable      bool                  `json:"auto_resolvable"`
	UsedFallback        bool                  `json:"used_fallback"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Assignee  *string             `json:"assignee,omitempty"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketReclassifiedPayload payload.
type TicketReclassifiedPayload struct {
	OldCategory domain.TicketCategory `json:"old_category"`
	NewCategory domain.TicketCategory `json:"new_category"`
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// IngestFailedPayload payload for per-message pipeline failures.
type IngestFailedPayload struct {
	Reason string `json:"reason"`
}
