package service

import (
	"context"
	"time"

	"github.com/spec-kit/helphub/internal/classify"
	"github.com/spec-kit/helphub/internal/domain"
	"github.com/spec-kit/helphub/internal/store"
	apperrors "github.com/spec-kit/helphub/pkg/util/errorutil"
)

// statsScanLimit bounds the number of tickets walked when computing
// aggregate views.
const statsScanLimit = 10000

// TicketStats summarizes counts by lifecycle state.
type TicketStats struct {
	Total     int `json:"total"`
	Open      int `json:"open"`
	Assigned  int `json:"assigned"`
	Forwarded int `json:"forwarded"`
	Resolved  int `json:"resolved"`
}

// ActivityEntry is a compact recent-activity row.
type ActivityEntry struct {
	ID        string                `json:"id"`
	UserRef   string                `json:"user_ref"`
	Status    domain.TicketStatus   `json:"status"`
	Category  domain.TicketCategory `json:"category"`
	Priority  domain.TicketPriority `json:"priority"`
	CreatedAt time.Time             `json:"created_at"`
}

// DashboardService serves the read side of the dashboard: listing, search,
// and aggregate views over the ticket store, plus the model-backed root
// cause analysis.
type DashboardService struct {
	tickets  store.TicketStore
	analyzer RootCauseAnalyzer
}

// RootCauseAnalyzer produces a common-cause analysis over summaries.
type RootCauseAnalyzer interface {
	RootCause(ctx context.Context, category domain.TicketCategory, summaries []string) (string, error)
}

// NewDashboardService constructs the service. analyzer may be nil when the
// classification credentials are absent; root cause analysis then fails with
// a typed error.
func NewDashboardService(tickets store.TicketStore, analyzer RootCauseAnalyzer) *DashboardService {
	return &DashboardService{tickets: tickets, analyzer: analyzer}
}

// List returns tickets matching the filter, newest first.
func (s *DashboardService) List(ctx context.Context, filter store.TicketFilter) ([]domain.Ticket, error) {
	return s.tickets.List(ctx, filter)
}

// Get fetches a single ticket.
func (s *DashboardService) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	return s.tickets.Get(ctx, id)
}

// UserTickets returns the most recent tickets submitted by a user.
func (s *DashboardService) UserTickets(ctx context.Context, userRef string, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.tickets.List(ctx, store.TicketFilter{UserRef: &userRef, Limit: limit})
}

// Stats computes ticket counts per status.
func (s *DashboardService) Stats(ctx context.Context) (*TicketStats, error) {
	all, err := s.tickets.List(ctx, store.TicketFilter{Limit: statsScanLimit})
	if err != nil {
		return nil, err
	}
	stats := &TicketStats{Total: len(all)}
	for _, ticket := range all {
		switch ticket.Status {
		case domain.TicketStatusOpen:
			stats.Open++
		case domain.TicketStatusAssigned:
			stats.Assigned++
		case domain.TicketStatusForwarded:
			stats.Forwarded++
		case domain.TicketStatusResolved:
			stats.Resolved++
		}
	}
	return stats, nil
}

// CategoryDistribution counts tickets per category.
func (s *DashboardService) CategoryDistribution(ctx context.Context) (map[domain.TicketCategory]int, error) {
	all, err := s.tickets.List(ctx, store.TicketFilter{Limit: statsScanLimit})
	if err != nil {
		return nil, err
	}
	dist := make(map[domain.TicketCategory]int)
	for _, ticket := range all {
		dist[ticket.Category]++
	}
	return dist, nil
}

// PriorityDistribution counts tickets per priority.
func (s *DashboardService) PriorityDistribution(ctx context.Context) (map[domain.TicketPriority]int, error) {
	all, err := s.tickets.List(ctx, store.TicketFilter{Limit: statsScanLimit})
	if err != nil {
		return nil, err
	}
	dist := make(map[domain.TicketPriority]int)
	for _, ticket := range all {
		dist[ticket.Priority]++
	}
	return dist, nil
}

// RecentActivity returns a compact feed of the newest tickets.
func (s *DashboardService) RecentActivity(ctx context.Context, limit int) ([]ActivityEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	tickets, err := s.tickets.List(ctx, store.TicketFilter{Limit: limit})
	if err != nil {
		return nil, err
	}
	entries := make([]ActivityEntry, 0, len(tickets))
	for _, ticket := range tickets {
		entries = append(entries, ActivityEntry{
			ID:        ticket.ID,
			UserRef:   ticket.UserRef,
			Status:    ticket.Status,
			Category:  ticket.Category,
			Priority:  ticket.Priority,
			CreatedAt: ticket.CreatedAt,
		})
	}
	return entries, nil
}

// RootCause collects recent summaries of a category and asks the model for a
// common-cause analysis.
func (s *DashboardService) RootCause(ctx context.Context, category domain.TicketCategory, limit int) (string, error) {
	if s.analyzer == nil {
		return "", apperrors.NewServiceUnavailable("classification service", nil)
	}
	if limit <= 0 {
		limit = 50
	}
	tickets, err := s.tickets.List(ctx, store.TicketFilter{
		Categories: []domain.TicketCategory{category},
		Limit:      limit,
	})
	if err != nil {
		return "", err
	}
	summaries := make([]string, 0, len(tickets))
	for _, ticket := range tickets {
		if ticket.Summary != "" {
			summaries = append(summaries, ticket.Summary)
		}
	}
	return s.analyzer.RootCause(ctx, category, summaries)
}

var _ RootCauseAnalyzer = (*classify.Client)(nil)
