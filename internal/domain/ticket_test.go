package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name    string
		from    TicketStatus
		to      TicketStatus
		allowed bool
	}{
		{"open to assigned", TicketStatusOpen, TicketStatusAssigned, true},
		{"open to forwarded", TicketStatusOpen, TicketStatusForwarded, true},
		{"open to resolved", TicketStatusOpen, TicketStatusResolved, true},
		{"assigned to resolved", TicketStatusAssigned, TicketStatusResolved, true},
		{"forwarded to resolved", TicketStatusForwarded, TicketStatusResolved, true},
		{"assigned to forwarded", TicketStatusAssigned, TicketStatusForwarded, false},
		{"forwarded to assigned", TicketStatusForwarded, TicketStatusAssigned, false},
		{"open to open", TicketStatusOpen, TicketStatusOpen, false},
		{"unknown source", TicketStatus("bogus"), TicketStatusResolved, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allowed, CanTransition(tc.from, tc.to))
		})
	}
}

func TestResolvedIsTerminal(t *testing.T) {
	for _, next := range []TicketStatus{TicketStatusOpen, TicketStatusAssigned, TicketStatusForwarded, TicketStatusResolved} {
		assert.False(t, CanTransition(TicketStatusResolved, next), "resolved -> %s must be rejected", next)
	}
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(TicketStatusOpen))
	assert.True(t, ValidStatus(TicketStatusResolved))
	assert.False(t, ValidStatus(TicketStatus("closed")))
	assert.False(t, ValidStatus(TicketStatus("")))
}

func TestValidPriority(t *testing.T) {
	assert.True(t, ValidPriority(TicketPriorityCritical))
	assert.False(t, ValidPriority(TicketPriority("urgent")))
}

func TestNeedsReclassification(t *testing.T) {
	ticket := &Ticket{Category: TicketCategoryUncategorized}
	assert.True(t, ticket.NeedsReclassification())

	ticket.Category = TicketCategoryBug
	assert.False(t, ticket.NeedsReclassification())
}
