package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helphub/internal/domain"
)

const cacheKeyPrefix = "helphub:ticket:"

// CachedStore layers a Redis cache of just-written tickets over an inner
// store, giving Get a read-your-writes guarantee even when the backing store
// lags. Cache failures degrade silently to the inner store.
type CachedStore struct {
	inner  TicketStore
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedStore wraps inner with the just-written ticket cache. A nil client
// disables caching.
func NewCachedStore(inner TicketStore, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedStore{inner: inner, client: client, ttl: ttl, logger: logger}
}

func (s *CachedStore) Create(ctx context.Context, draft TicketDraft) (*domain.Ticket, error) {
	ticket, err := s.inner.Create(ctx, draft)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, ticket)
	return ticket, nil
}

func (s *CachedStore) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	if cached := s.lookup(ctx, id); cached != nil {
		return cached, nil
	}
	return s.inner.Get(ctx, id)
}

func (s *CachedStore) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	return s.inner.List(ctx, filter)
}

func (s *CachedStore) Update(ctx context.Context, id string, patch TicketPatch) (*domain.Ticket, error) {
	ticket, err := s.inner.Update(ctx, id, patch)
	if err != nil {
		// A stale cached copy must not outlive a failed or conflicting
		// update; drop it and let reads hit the inner store.
		s.forget(ctx, id)
		return nil, err
	}
	s.remember(ctx, ticket)
	return ticket, nil
}

func (s *CachedStore) remember(ctx context.Context, ticket *domain.Ticket) {
	if s.client == nil {
		return
	}
	payload, err := json.Marshal(ticket)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, cacheKeyPrefix+ticket.ID, payload, s.ttl).Err(); err != nil {
		s.logger.Debug("ticket cache write failed", zap.String("id", ticket.ID), zap.Error(err))
	}
}

func (s *CachedStore) lookup(ctx context.Context, id string) *domain.Ticket {
	if s.client == nil {
		return nil
	}
	payload, err := s.client.Get(ctx, cacheKeyPrefix+id).Bytes()
	if err != nil {
		return nil
	}
	var ticket domain.Ticket
	if err := json.Unmarshal(payload, &ticket); err != nil {
		return nil
	}
	return &ticket
}

func (s *CachedStore) forget(ctx context.Context, id string) {
	if s.client == nil {
		return
	}
	if err := s.client.Del(ctx, cacheKeyPrefix+id).Err(); err != nil {
		s.logger.Debug("ticket cache delete failed", zap.String("id", id), zap.Error(err))
	}
}
