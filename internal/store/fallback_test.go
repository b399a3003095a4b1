package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helphub/internal/domain"
	"github.com/spec-kit/helphub/internal/observability"
	apperrors "github.com/spec-kit/helphub/pkg/util/errorutil"
)

// failingStore simulates a primary whose backend is gone.
type failingStore struct {
	err error
}

func (f *failingStore) Create(ctx context.Context, draft TicketDraft) (*domain.Ticket, error) {
	return nil, f.err
}

func (f *failingStore) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	return nil, f.err
}

func (f *failingStore) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	return nil, f.err
}

func (f *failingStore) Update(ctx context.Context, id string, patch TicketPatch) (*domain.Ticket, error) {
	return nil, f.err
}

func TestFallbackStoreDegradesOnStorageUnavailable(t *testing.T) {
	primary := &failingStore{err: apperrors.NewStorageUnavailable(errors.New("connection refused"))}
	s := NewFallbackStore(primary, NewMemoryStore(), zap.NewNop(), observability.NewMetrics())

	assert.False(t, s.Degraded())

	ticket, err := s.Create(context.Background(), draft("user-1", "issue"))
	require.NoError(t, err, "fallback must absorb the failure")
	assert.True(t, s.Degraded())

	// Once degraded the primary is never consulted again; reads see the
	// ticket written to the fallback.
	got, err := s.Get(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, got.ID)
}

func TestFallbackStoreDoesNotDegradeOnDomainErrors(t *testing.T) {
	primary := &failingStore{err: apperrors.NewNotFound("ticket", nil)}
	s := NewFallbackStore(primary, NewMemoryStore(), zap.NewNop(), observability.NewMetrics())

	_, err := s.Get(context.Background(), "TK-MISSING")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	assert.False(t, s.Degraded(), "NOT_FOUND must not trigger mock mode")
}

func TestFallbackStoreNilPrimaryStartsDegraded(t *testing.T) {
	s := NewFallbackStore(nil, NewMemoryStore(), zap.NewNop(), observability.NewMetrics())
	assert.True(t, s.Degraded())

	ticket, err := s.Create(context.Background(), draft("user-1", "issue"))
	require.NoError(t, err)

	listed, err := s.List(context.Background(), TicketFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, ticket.ID, listed[0].ID)
}

func TestFallbackStorePassthroughWhenHealthy(t *testing.T) {
	primary := NewMemoryStore()
	s := NewFallbackStore(primary, NewMemoryStore(), zap.NewNop(), observability.NewMetrics())

	ticket, err := s.Create(context.Background(), draft("user-1", "issue"))
	require.NoError(t, err)
	assert.False(t, s.Degraded())

	// Ticket lives in the primary, not the fallback.
	_, err = primary.Get(context.Background(), ticket.ID)
	assert.NoError(t, err)
}
