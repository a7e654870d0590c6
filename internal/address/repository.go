package address

import (
	"context"
	"sync"
	"time"
)

// Repository defines the interface for address persistence. Each donor
// and each ONG has at most one address.
type Repository interface {
	// Create stores a new address. A second address for the same owner
	// returns ErrAlreadyExists.
	Create(ctx context.Context, a *Address) error

	// GetByID retrieves an address by ID.
	GetByID(ctx context.Context, id int64) (*Address, error)

	// GetByOwner retrieves the address of a donor or ONG by user ID.
	GetByOwner(ctx context.Context, userID int64) (*Address, error)

	// Update replaces the mutable fields of an existing address.
	Update(ctx context.Context, a *Address) error

	// Delete removes an address.
	Delete(ctx context.Context, id int64) error
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex; used for testing and development.
type InMemoryRepository struct {
	mu        sync.RWMutex
	nextID    int64
	addresses map[int64]*Address
	byOwner   map[int64]int64 // owner user ID -> address ID
}

// NewInMemoryRepository creates a new in-memory address repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		addresses: make(map[int64]*Address),
		byOwner:   make(map[int64]int64),
	}
}

func ownerID(a *Address) int64 {
	if a.DonorID != nil {
		return *a.DonorID
	}
	return *a.OngID
}

// Create stores a new address.
func (r *InMemoryRepository) Create(_ context.Context, a *Address) error {
	if err := a.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	owner := ownerID(a)
	if _, ok := r.byOwner[owner]; ok {
		return ErrAlreadyExists
	}

	r.nextID++
	a.ID = r.nextID
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.Country == "" {
		a.Country = "Brasil"
	}

	r.addresses[a.ID] = copyAddress(a)
	r.byOwner[owner] = a.ID
	return nil
}

// GetByID retrieves an address by ID.
func (r *InMemoryRepository) GetByID(_ context.Context, id int64) (*Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.addresses[id]
	if !ok {
		return nil, ErrAddressNotFound
	}
	return copyAddress(a), nil
}

// GetByOwner retrieves the address of a donor or ONG by user ID.
func (r *InMemoryRepository) GetByOwner(_ context.Context, userID int64) (*Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byOwner[userID]
	if !ok {
		return nil, ErrAddressNotFound
	}
	return copyAddress(r.addresses[id]), nil
}

// Update replaces the mutable fields of an existing address. Ownership
// never changes.
func (r *InMemoryRepository) Update(_ context.Context, a *Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.addresses[a.ID]
	if !ok {
		return ErrAddressNotFound
	}

	updated := copyAddress(a)
	updated.DonorID = existing.DonorID
	updated.OngID = existing.OngID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now()

	r.addresses[a.ID] = updated
	return nil
}

// Delete removes an address.
func (r *InMemoryRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.addresses[id]
	if !ok {
		return ErrAddressNotFound
	}
	delete(r.byOwner, ownerID(a))
	delete(r.addresses, id)
	return nil
}

// copyAddress deep copies an address so callers cannot mutate stored state.
func copyAddress(a *Address) *Address {
	copied := *a
	if a.DonorID != nil {
		v := *a.DonorID
		copied.DonorID = &v
	}
	if a.OngID != nil {
		v := *a.OngID
		copied.OngID = &v
	}
	if a.Complement != nil {
		v := *a.Complement
		copied.Complement = &v
	}
	if a.Latitude != nil {
		v := *a.Latitude
		copied.Latitude = &v
	}
	if a.Longitude != nil {
		v := *a.Longitude
		copied.Longitude = &v
	}
	return &copied
}
