package rating

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository defines the interface for rating persistence.
type Repository interface {
	// Upsert stores a rating, replacing any previous rating by the
	// same donor for the same ONG. Reports whether a new rating was
	// created (as opposed to an existing one updated).
	Upsert(ctx context.Context, rating *Rating) (created bool, err error)

	// GetByDonorAndOng retrieves a donor's rating of an ONG.
	GetByDonorAndOng(ctx context.Context, donorID, ongID int64) (*Rating, error)

	// ListByOng returns an ONG's ratings, newest first.
	ListByOng(ctx context.Context, ongID int64) ([]Rating, error)

	// Delete removes a donor's rating of an ONG.
	Delete(ctx context.Context, donorID, ongID int64) error

	// AggregateForOng computes the current aggregate over an ONG's
	// stored ratings.
	AggregateForOng(ctx context.Context, ongID int64) (Aggregate, error)
}

// pairKey identifies the unique (donor, ong) rating slot.
type pairKey struct {
	donorID int64
	ongID   int64
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex; used for testing and development.
type InMemoryRepository struct {
	mu      sync.RWMutex
	nextID  int64
	ratings map[pairKey]*Rating
}

// NewInMemoryRepository creates a new in-memory rating repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{ratings: make(map[pairKey]*Rating)}
}

// Upsert stores a rating, replacing any previous one for the pair.
func (r *InMemoryRepository) Upsert(_ context.Context, rating *Rating) (bool, error) {
	if err := rating.Validate(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey{donorID: rating.DonorID, ongID: rating.OngID}
	now := time.Now()

	existing, ok := r.ratings[key]
	if ok {
		existing.Score = rating.Score
		existing.Comment = copyComment(rating.Comment)
		existing.UpdatedAt = now
		rating.ID = existing.ID
		rating.CreatedAt = existing.CreatedAt
		rating.UpdatedAt = existing.UpdatedAt
		return false, nil
	}

	r.nextID++
	rating.ID = r.nextID
	rating.CreatedAt = now
	rating.UpdatedAt = now
	r.ratings[key] = copyRating(rating)
	return true, nil
}

// GetByDonorAndOng retrieves a donor's rating of an ONG.
func (r *InMemoryRepository) GetByDonorAndOng(_ context.Context, donorID, ongID int64) (*Rating, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rating, ok := r.ratings[pairKey{donorID: donorID, ongID: ongID}]
	if !ok {
		return nil, ErrRatingNotFound
	}
	return copyRating(rating), nil
}

// ListByOng returns an ONG's ratings, newest first.
func (r *InMemoryRepository) ListByOng(_ context.Context, ongID int64) ([]Rating, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Rating
	for _, rating := range r.ratings {
		if rating.OngID == ongID {
			out = append(out, *copyRating(rating))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Delete removes a donor's rating of an ONG.
func (r *InMemoryRepository) Delete(_ context.Context, donorID, ongID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey{donorID: donorID, ongID: ongID}
	if _, ok := r.ratings[key]; !ok {
		return ErrRatingNotFound
	}
	delete(r.ratings, key)
	return nil
}

// AggregateForOng computes the current aggregate over stored ratings.
func (r *InMemoryRepository) AggregateForOng(_ context.Context, ongID int64) (Aggregate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ratings []Rating
	for _, rating := range r.ratings {
		if rating.OngID == ongID {
			ratings = append(ratings, *rating)
		}
	}
	average, count := ComputeAggregate(ratings)
	return Aggregate{OngID: ongID, Average: average, Count: count, ComputedAt: time.Now()}, nil
}

func copyRating(rating *Rating) *Rating {
	copied := *rating
	copied.Comment = copyComment(rating.Comment)
	return &copied
}

func copyComment(comment *string) *string {
	if comment == nil {
		return nil
	}
	v := *comment
	return &v
}
