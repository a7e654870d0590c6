package rating

import (
	"context"
	"log/slog"
	"sync"

	"github.com/doecerto/doecerto/internal/stats"
)

// Service coordinates rating writes: it validates and upserts the
// rating, tracks insert/update statistics, and marks the ONG for
// aggregate reconciliation.
type Service struct {
	repo    Repository
	tracker *DirtyTracker
	stats   *stats.UpsertStats
	logger  *slog.Logger
}

// NewService creates a new rating service.
func NewService(repo Repository, tracker *DirtyTracker, upsertStats *stats.UpsertStats, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		tracker: tracker,
		stats:   upsertStats,
		logger:  logger,
	}
}

// Rate records a donor's rating of an ONG, replacing any previous
// rating by the same donor.
func (s *Service) Rate(ctx context.Context, rating *Rating) error {
	created, err := s.repo.Upsert(ctx, rating)
	if err != nil {
		return err
	}

	if s.stats != nil {
		if created {
			s.stats.RecordInsert()
		} else {
			s.stats.RecordUpdate()
		}
	}
	if s.tracker != nil {
		s.tracker.MarkDirty(rating.OngID)
	}

	s.logger.Debug("rating recorded",
		"donor_id", rating.DonorID,
		"ong_id", rating.OngID,
		"score", rating.Score,
		"created", created)
	return nil
}

// Remove deletes a donor's rating of an ONG.
func (s *Service) Remove(ctx context.Context, donorID, ongID int64) error {
	if err := s.repo.Delete(ctx, donorID, ongID); err != nil {
		return err
	}
	if s.tracker != nil {
		s.tracker.MarkDirty(ongID)
	}
	return nil
}

// Get retrieves a donor's rating of an ONG.
func (s *Service) Get(ctx context.Context, donorID, ongID int64) (*Rating, error) {
	return s.repo.GetByDonorAndOng(ctx, donorID, ongID)
}

// ListByOng returns an ONG's ratings, newest first.
func (s *Service) ListByOng(ctx context.Context, ongID int64) ([]Rating, error) {
	return s.repo.ListByOng(ctx, ongID)
}

// InMemoryAggregateStore is an in-memory implementation of
// AggregateStore for testing.
type InMemoryAggregateStore struct {
	mu         sync.RWMutex
	aggregates map[int64]Aggregate
}

// NewInMemoryAggregateStore creates a new in-memory aggregate store.
func NewInMemoryAggregateStore() *InMemoryAggregateStore {
	return &InMemoryAggregateStore{aggregates: make(map[int64]Aggregate)}
}

// SaveAggregate stores a recomputed aggregate.
func (s *InMemoryAggregateStore) SaveAggregate(_ context.Context, agg Aggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aggregates[agg.OngID] = agg
	return nil
}

// GetAggregate retrieves a stored aggregate by ONG ID.
func (s *InMemoryAggregateStore) GetAggregate(ongID int64) (Aggregate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agg, ok := s.aggregates[ongID]
	return agg, ok
}
