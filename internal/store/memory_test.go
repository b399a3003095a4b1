package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helphub/internal/domain"
	apperrors "github.com/spec-kit/helphub/pkg/util/errorutil"
)

func draft(userRef, text string) TicketDraft {
	return TicketDraft{
		UserRef:   userRef,
		RawInput:  text,
		Summary:   text,
		Category:  domain.TicketCategoryBug,
		Priority:  domain.TicketPriorityMedium,
		Sentiment: "neutral",
	}
}

func strPtr(s string) *string { return &s }

func statusPtr(s domain.TicketStatus) *domain.TicketStatus { return &s }

func TestMemoryStoreCreate(t *testing.T) {
	s := NewMemoryStore()

	ticket, err := s.Create(context.Background(), draft("user-1", "app crashes on login"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ticket.ID, "TK-"), "id %q", ticket.ID)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Nil(t, ticket.Assignee)
	assert.False(t, ticket.CreatedAt.IsZero())
	assert.Equal(t, ticket.CreatedAt, ticket.UpdatedAt)

	stored, err := s.Get(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, stored.ID)
}

func TestMemoryStoreCreateValidation(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Create(context.Background(), draft("", "text"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	_, err = s.Create(context.Background(), draft("user-1", "   "))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	bad := draft("user-1", "text")
	bad.Category = ""
	_, err = s.Create(context.Background(), bad)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestMemoryStoreGetNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Get(context.Background(), "TK-MISSING")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestMemoryStoreListOrderingAndFilters(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.Create(ctx, draft("user-1", "cannot reset password"))
	require.NoError(t, err)
	// Force distinct creation times so ordering is deterministic.
	s.mu.Lock()
	older := s.tickets[first.ID]
	older.CreatedAt = older.CreatedAt.Add(-time.Minute)
	s.tickets[first.ID] = older
	s.mu.Unlock()

	second, err := s.Create(ctx, draft("user-2", "billing statement wrong"))
	require.NoError(t, err)

	all, err := s.List(ctx, TicketFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID, "newest first")
	assert.Equal(t, first.ID, all[1].ID)

	byUser, err := s.List(ctx, TicketFilter{UserRef: strPtr("user-1")})
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Equal(t, first.ID, byUser[0].ID)

	bySearch, err := s.List(ctx, TicketFilter{SearchTerm: strPtr("BILLING")})
	require.NoError(t, err)
	require.Len(t, bySearch, 1)
	assert.Equal(t, second.ID, bySearch[0].ID)

	byStatus, err := s.List(ctx, TicketFilter{Statuses: []domain.TicketStatus{domain.TicketStatusResolved}})
	require.NoError(t, err)
	assert.Empty(t, byStatus)
}

func TestMemoryStoreListPagination(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.Create(ctx, draft("user-1", "issue"))
		require.NoError(t, err)
	}

	page, err := s.List(ctx, TicketFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := s.List(ctx, TicketFilter{Limit: 10, Offset: 4})
	require.NoError(t, err)
	assert.Len(t, rest, 1)

	empty, err := s.List(ctx, TicketFilter{Offset: 100})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryStoreUpdateStatus(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ticket, err := s.Create(ctx, draft("user-1", "issue"))
	require.NoError(t, err)

	updated, err := s.Update(ctx, ticket.ID, TicketPatch{
		Status:   statusPtr(domain.TicketStatusAssigned),
		Assignee: strPtr("agent-7"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAssigned, updated.Status)
	require.NotNil(t, updated.Assignee)
	assert.Equal(t, "agent-7", *updated.Assignee)
	assert.True(t, updated.UpdatedAt.After(ticket.UpdatedAt) || updated.UpdatedAt.Equal(ticket.UpdatedAt))

	resolved, err := s.Update(ctx, ticket.ID, TicketPatch{Status: statusPtr(domain.TicketStatusResolved)})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, resolved.Status)

	_, err = s.Update(ctx, ticket.ID, TicketPatch{Status: statusPtr(domain.TicketStatusOpen)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition), "resolved is terminal")
}

func TestMemoryStoreAssignRequiresAssignee(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ticket, err := s.Create(ctx, draft("user-1", "issue"))
	require.NoError(t, err)

	_, err = s.Update(ctx, ticket.ID, TicketPatch{Status: statusPtr(domain.TicketStatusAssigned)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
}

func TestMemoryStoreUpdateConcurrencyToken(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ticket, err := s.Create(ctx, draft("user-1", "issue"))
	require.NoError(t, err)

	stale := ticket.UpdatedAt.Add(-time.Second)
	_, err = s.Update(ctx, ticket.ID, TicketPatch{
		Status:            statusPtr(domain.TicketStatusResolved),
		ExpectedUpdatedAt: &stale,
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))

	fresh := ticket.UpdatedAt
	_, err = s.Update(ctx, ticket.ID, TicketPatch{
		Status:            statusPtr(domain.TicketStatusResolved),
		ExpectedUpdatedAt: &fresh,
	})
	assert.NoError(t, err)
}

func TestMemoryStoreUpdateNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Update(context.Background(), "TK-MISSING", TicketPatch{Summary: strPtr("x")})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestNewTicketID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewTicketID()
		assert.True(t, strings.HasPrefix(id, "TK-"))
		assert.Len(t, id, 13)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
