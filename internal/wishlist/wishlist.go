// Package wishlist provides models and repository for ONG wishlist
// items: the goods an ONG asks donors for.
package wishlist

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Urgency levels for wishlist items.
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// Common errors for wishlist operations.
var (
	ErrItemNotFound    = errors.New("wishlist item not found")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidUrgency  = errors.New("invalid urgency level")
	ErrNotOwner        = errors.New("wishlist item belongs to another ong")
)

// Item is one wishlist entry owned by an ONG.
type Item struct {
	ID          int64     `json:"id"`
	OngID       int64     `json:"ong_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Quantity    int       `json:"quantity"`
	Urgency     string    `json:"urgency"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ValidUrgency reports whether urgency is one of the known levels.
func ValidUrgency(urgency string) bool {
	switch urgency {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return true
	}
	return false
}

// validate checks the item invariants shared by create and update.
func validate(item *Item) error {
	if item.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if item.Urgency == "" {
		item.Urgency = UrgencyMedium
	}
	if !ValidUrgency(item.Urgency) {
		return ErrInvalidUrgency
	}
	return nil
}

// Repository defines the interface for wishlist persistence.
type Repository interface {
	// Create stores a new item. Quantity defaults are validated; urgency
	// defaults to medium.
	Create(ctx context.Context, item *Item) error

	// GetByID retrieves an item by ID.
	GetByID(ctx context.Context, id int64) (*Item, error)

	// ListByOng returns an ONG's items, most urgent first, then newest.
	ListByOng(ctx context.Context, ongID int64) ([]Item, error)

	// Update replaces the mutable fields of an item owned by ongID.
	// Returns ErrNotOwner when the item belongs to another ONG.
	Update(ctx context.Context, ongID int64, item *Item) error

	// Delete removes an item owned by ongID.
	Delete(ctx context.Context, ongID, id int64) error
}

// urgencyRank orders urgency levels high to low.
var urgencyRank = map[string]int{
	UrgencyHigh:   0,
	UrgencyMedium: 1,
	UrgencyLow:    2,
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex; used for testing and development.
type InMemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]*Item
}

// NewInMemoryRepository creates a new in-memory wishlist repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{items: make(map[int64]*Item)}
}

// Create stores a new item, assigning the next sequential ID.
func (r *InMemoryRepository) Create(_ context.Context, item *Item) error {
	if err := validate(item); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	item.ID = r.nextID
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	r.items[item.ID] = copyItem(item)
	return nil
}

// GetByID retrieves an item by ID.
func (r *InMemoryRepository) GetByID(_ context.Context, id int64) (*Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, ErrItemNotFound
	}
	return copyItem(item), nil
}

// ListByOng returns an ONG's items, most urgent first, then newest.
func (r *InMemoryRepository) ListByOng(_ context.Context, ongID int64) ([]Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Item
	for _, item := range r.items {
		if item.OngID == ongID {
			out = append(out, *copyItem(item))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if urgencyRank[out[i].Urgency] != urgencyRank[out[j].Urgency] {
			return urgencyRank[out[i].Urgency] < urgencyRank[out[j].Urgency]
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Update replaces the mutable fields of an item owned by ongID.
func (r *InMemoryRepository) Update(_ context.Context, ongID int64, item *Item) error {
	if err := validate(item); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[item.ID]
	if !ok {
		return ErrItemNotFound
	}
	if existing.OngID != ongID {
		return ErrNotOwner
	}

	updated := copyItem(item)
	updated.OngID = existing.OngID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now()
	r.items[item.ID] = updated
	return nil
}

// Delete removes an item owned by ongID.
func (r *InMemoryRepository) Delete(_ context.Context, ongID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[id]
	if !ok {
		return ErrItemNotFound
	}
	if existing.OngID != ongID {
		return ErrNotOwner
	}
	delete(r.items, id)
	return nil
}

func copyItem(item *Item) *Item {
	copied := *item
	if item.Description != nil {
		v := *item.Description
		copied.Description = &v
	}
	return &copied
}
