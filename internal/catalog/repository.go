package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// SortField enumerates the supported section sort keys. The set is closed
// on purpose: each section orders by exactly one of these, and the
// comparator never traverses arbitrary field paths.
type SortField int

const (
	// SortByAverageRating orders by the denormalized average rating.
	SortByAverageRating SortField = iota
	// SortByRatingCount orders by the denormalized rating count.
	SortByRatingCount
	// SortByCreatedAt orders by NGO creation time.
	SortByCreatedAt
)

// Direction is a sort direction for the section sort key.
type Direction string

// Sort directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Candidate is one verified NGO as returned by the data layer, carrying
// the denormalized fields the ranking needs.
type Candidate struct {
	ID         int64
	Name       string
	AvatarURL  *string
	Categories []Category
	CreatedAt  time.Time
	// AverageRating is nil until the NGO has received a rating.
	AverageRating *float64
	RatingCount   int64
}

// Query describes one data-layer fetch of verified NGOs.
type Query struct {
	// SearchTerm, when non-empty, restricts results to NGOs whose name
	// or any associated category name contains the term.
	SearchTerm string
	// CategoryIDs, when non-empty, restricts results to NGOs having at
	// least one of the given categories.
	CategoryIDs []int64
	// OrderBy and Direction give the natural ordering hint. The data
	// layer always appends id ascending as the final tie-break.
	OrderBy   SortField
	Direction Direction
	Limit     int
	Offset    int
}

// Repository is the catalog's view of the relational store. Only NGOs
// with verification status "verified" are ever returned.
type Repository interface {
	ListVerified(ctx context.Context, q Query) ([]Candidate, error)
}

// InMemoryRepository implements Repository over a fixed candidate set.
// Used for tests and development.
type InMemoryRepository struct {
	mu         sync.RWMutex
	candidates []Candidate
}

// NewInMemoryRepository creates an in-memory repository seeded with the
// given verified candidates.
func NewInMemoryRepository(candidates []Candidate) *InMemoryRepository {
	repo := &InMemoryRepository{}
	repo.candidates = append(repo.candidates, candidates...)
	return repo
}

// ListVerified applies the query's filters, ordering, and pagination to
// the seeded candidate set.
func (r *InMemoryRepository) ListVerified(_ context.Context, q Query) ([]Candidate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Candidate
	for _, c := range r.candidates {
		if !matchesQuery(c, q) {
			continue
		}
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		cmp := compareField(fieldValue(out[i], q.OrderBy), fieldValue(out[j], q.OrderBy), q.Direction)
		if cmp != 0 {
			return cmp < 0
		}
		return out[i].ID < out[j].ID
	})

	if q.Offset >= len(out) {
		return nil, nil
	}
	out = out[q.Offset:]
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}

	// Copy so callers cannot mutate the seeded set.
	result := make([]Candidate, len(out))
	copy(result, out)
	return result, nil
}

// matchesQuery applies the category and text predicates.
func matchesQuery(c Candidate, q Query) bool {
	if len(q.CategoryIDs) > 0 && overlapCount(c.Categories, q.CategoryIDs) == 0 {
		return false
	}
	if q.SearchTerm != "" {
		term := strings.ToLower(q.SearchTerm)
		if strings.Contains(strings.ToLower(c.Name), term) {
			return true
		}
		for _, cat := range c.Categories {
			if strings.Contains(strings.ToLower(cat.Name), term) {
				return true
			}
		}
		return false
	}
	return true
}
