package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen      TicketStatus = "open"
	TicketStatusAssigned  TicketStatus = "assigned"
	TicketStatusForwarded TicketStatus = "forwarded"
	TicketStatusResolved  TicketStatus = "resolved"
)

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// TicketCategory enumerates issue categories assigned by classification.
type TicketCategory string

const (
	TicketCategoryBilling        TicketCategory = "billing"
	TicketCategoryBug            TicketCategory = "bug"
	TicketCategoryFeatureRequest TicketCategory = "feature-request"
	TicketCategoryAccount        TicketCategory = "account"
	TicketCategoryOther          TicketCategory = "other"

	// TicketCategoryUncategorized is the sentinel applied when classification
	// falls back; tickets carrying it are candidates for reclassification.
	TicketCategoryUncategorized TicketCategory = "uncategorized"
)

// Ticket is the sole persisted aggregate. RawInput is immutable once set;
// Status is mutated only through the status action service.
type Ticket struct {
	ID        string
	UserRef   string
	RawInput  string
	Summary   string
	Category  TicketCategory
	Priority  TicketPriority
	Sentiment string
	Status    TicketStatus
	Assignee  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NeedsReclassification reports whether the ticket was stored with
// fallback classification values.
func (t *Ticket) NeedsReclassification() bool {
	return t.Category == TicketCategoryUncategorized
}

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:      {TicketStatusAssigned, TicketStatusForwarded, TicketStatusResolved},
	TicketStatusAssigned:  {TicketStatusResolved},
	TicketStatusForwarded: {TicketStatusResolved},
	TicketStatusResolved:  {},
}

// CanTransition reports whether moving from current to next is allowed.
// Resolved is terminal.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusAssigned, TicketStatusForwarded, TicketStatusResolved:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known priority.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}
