package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/helphub/internal/domain"
	apperrors "github.com/spec-kit/helphub/pkg/util/errorutil"
)

// MemoryStore is the in-process mock ticket store used when the persistence
// endpoint is unconfigured or unreachable. It starts empty and lives for the
// process lifetime; callers inject it explicitly rather than reaching for a
// singleton.
type MemoryStore struct {
	mu      sync.RWMutex
	tickets map[string]domain.Ticket
}

// NewMemoryStore initializes an empty mock store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tickets: make(map[string]domain.Ticket)}
}

func (s *MemoryStore) Create(ctx context.Context, draft TicketDraft) (*domain.Ticket, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ticket := domain.Ticket{
		ID:        NewTicketID(),
		UserRef:   draft.UserRef,
		RawInput:  draft.RawInput,
		Summary:   draft.Summary,
		Category:  draft.Category,
		Priority:  draft.Priority,
		Sentiment: draft.Sentiment,
		Status:    domain.TicketStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.tickets[ticket.ID] = ticket
	s.mu.Unlock()

	out := ticket
	return &out, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	s.mu.RLock()
	ticket, ok := s.tickets[id]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	out := ticket
	return &out, nil
}

func (s *MemoryStore) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	s.mu.RLock()
	all := make([]domain.Ticket, 0, len(s.tickets))
	for _, ticket := range s.tickets {
		all = append(all, ticket)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	matched := []domain.Ticket{}
	for _, ticket := range all {
		if !matchesFilter(ticket, filter) {
			continue
		}
		matched = append(matched, ticket)
	}

	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []domain.Ticket{}, nil
	}
	matched = matched[offset:]

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, patch TicketPatch) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.tickets[id]
	if !ok {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	if patch.ExpectedUpdatedAt != nil && !current.UpdatedAt.Equal(*patch.ExpectedUpdatedAt) {
		return nil, apperrors.NewInvalidTransition("ticket was modified concurrently", map[string]any{"id": id})
	}
	if err := validateStatusChange(&current, patch); err != nil {
		return nil, err
	}

	updated := applyPatch(current, patch, time.Now().UTC())
	s.tickets[id] = updated

	out := updated
	return &out, nil
}

func matchesFilter(ticket domain.Ticket, filter TicketFilter) bool {
	if filter.UserRef != nil && ticket.UserRef != *filter.UserRef {
		return false
	}
	if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
		return false
	}
	if len(filter.Categories) > 0 && !containsCategory(filter.Categories, ticket.Category) {
		return false
	}
	if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, ticket.Priority) {
		return false
	}
	if filter.CreatedFrom != nil && ticket.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedTo != nil && ticket.CreatedAt.After(*filter.CreatedTo) {
		return false
	}
	if filter.SearchTerm != nil {
		term := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
		if term != "" {
			if !strings.Contains(strings.ToLower(ticket.RawInput), term) &&
				!strings.Contains(strings.ToLower(ticket.Summary), term) &&
				!strings.Contains(strings.ToLower(ticket.ID), term) {
				return false
			}
		}
	}
	return true
}

func containsStatus(list []domain.TicketStatus, v domain.TicketStatus) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsCategory(list []domain.TicketCategory, v domain.TicketCategory) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, v domain.TicketPriority) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
