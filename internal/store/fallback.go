package store

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/spec-kit/helphub/internal/domain"
	"github.com/spec-kit/helphub/internal/observability"
	apperrors "github.com/spec-kit/helphub/pkg/util/errorutil"
)

// FallbackStore fronts a primary ticket store and degrades to the in-memory
// mock store for the remainder of the process session once the primary
// reports STORAGE_UNAVAILABLE. The switch is surfaced to operators through a
// warning log and a metric, never to end users.
type FallbackStore struct {
	primary  TicketStore
	fallback *MemoryStore
	logger   *zap.Logger
	metrics  *observability.Metrics
	degraded atomic.Bool
}

// NewFallbackStore wraps primary with mock-mode degradation. A nil primary
// starts degraded immediately.
func NewFallbackStore(primary TicketStore, fallback *MemoryStore, logger *zap.Logger, metrics *observability.Metrics) *FallbackStore {
	s := &FallbackStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		metrics:  metrics,
	}
	if primary == nil {
		s.degraded.Store(true)
	}
	return s
}

// Degraded reports whether the store is running on the in-memory fallback.
func (s *FallbackStore) Degraded() bool {
	return s.degraded.Load()
}

func (s *FallbackStore) active() TicketStore {
	if s.degraded.Load() {
		return s.fallback
	}
	return s.primary
}

func (s *FallbackStore) degrade(err error) {
	if s.degraded.CompareAndSwap(false, true) {
		s.logger.Warn("ticket store degraded to in-memory mock mode", zap.Error(err))
		s.metrics.RecordDegradedMode()
	}
}

func (s *FallbackStore) Create(ctx context.Context, draft TicketDraft) (*domain.Ticket, error) {
	ticket, err := s.active().Create(ctx, draft)
	if err != nil && apperrors.HasCode(err, apperrors.CodeStorageUnavailable) {
		s.degrade(err)
		return s.fallback.Create(ctx, draft)
	}
	return ticket, err
}

func (s *FallbackStore) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.active().Get(ctx, id)
	if err != nil && apperrors.HasCode(err, apperrors.CodeStorageUnavailable) {
		s.degrade(err)
		return s.fallback.Get(ctx, id)
	}
	return ticket, err
}

func (s *FallbackStore) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.active().List(ctx, filter)
	if err != nil && apperrors.HasCode(err, apperrors.CodeStorageUnavailable) {
		s.degrade(err)
		return s.fallback.List(ctx, filter)
	}
	return tickets, err
}

func (s *FallbackStore) Update(ctx context.Context, id string, patch TicketPatch) (*domain.Ticket, error) {
	ticket, err := s.active().Update(ctx, id, patch)
	if err != nil && apperrors.HasCode(err, apperrors.CodeStorageUnavailable) {
		s.degrade(err)
		return s.fallback.Update(ctx, id, patch)
	}
	return ticket, err
}
