package profile

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository defines the interface for profile persistence. Profiles use
// upsert semantics: the first write creates the row, later writes update
// it in place.
type Repository interface {
	// UpsertOngProfile creates or updates the profile for an ONG and
	// replaces its category set with CategoryIDs.
	UpsertOngProfile(ctx context.Context, p *OngProfile) error

	// GetOngProfile retrieves an ONG's profile with its category IDs.
	GetOngProfile(ctx context.Context, ongID int64) (*OngProfile, error)

	// UpsertDonorProfile creates or updates the profile for a donor.
	UpsertDonorProfile(ctx context.Context, p *DonorProfile) error

	// GetDonorProfile retrieves a donor's profile.
	GetDonorProfile(ctx context.Context, donorID int64) (*DonorProfile, error)

	// SetOngMedia updates only the avatar and banner references, used by
	// the upload flow. Nil leaves the existing value untouched.
	SetOngMedia(ctx context.Context, ongID int64, avatarURL, bannerURL *string) error
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex; used for testing and development.
type InMemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	ongs   map[int64]*OngProfile   // keyed by ONG user ID
	donors map[int64]*DonorProfile // keyed by donor user ID
}

// NewInMemoryRepository creates a new in-memory profile repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		ongs:   make(map[int64]*OngProfile),
		donors: make(map[int64]*DonorProfile),
	}
}

// UpsertOngProfile creates or updates an ONG profile.
func (r *InMemoryRepository) UpsertOngProfile(_ context.Context, p *OngProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	existing, ok := r.ongs[p.OngID]
	if ok {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	} else {
		r.nextID++
		p.ID = r.nextID
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	r.ongs[p.OngID] = copyOngProfile(p)
	return nil
}

// GetOngProfile retrieves an ONG's profile.
func (r *InMemoryRepository) GetOngProfile(_ context.Context, ongID int64) (*OngProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.ongs[ongID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return copyOngProfile(p), nil
}

// UpsertDonorProfile creates or updates a donor profile.
func (r *InMemoryRepository) UpsertDonorProfile(_ context.Context, p *DonorProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	existing, ok := r.donors[p.DonorID]
	if ok {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	} else {
		r.nextID++
		p.ID = r.nextID
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	r.donors[p.DonorID] = copyDonorProfile(p)
	return nil
}

// GetDonorProfile retrieves a donor's profile.
func (r *InMemoryRepository) GetDonorProfile(_ context.Context, donorID int64) (*DonorProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.donors[donorID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return copyDonorProfile(p), nil
}

// SetOngMedia updates only the avatar and banner references.
func (r *InMemoryRepository) SetOngMedia(_ context.Context, ongID int64, avatarURL, bannerURL *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.ongs[ongID]
	if !ok {
		return ErrProfileNotFound
	}
	if avatarURL != nil {
		v := *avatarURL
		p.AvatarURL = &v
	}
	if bannerURL != nil {
		v := *bannerURL
		p.BannerURL = &v
	}
	p.UpdatedAt = time.Now()
	return nil
}

func copyOngProfile(p *OngProfile) *OngProfile {
	copied := *p
	copied.Bio = copyStringPtr(p.Bio)
	copied.AvatarURL = copyStringPtr(p.AvatarURL)
	copied.BannerURL = copyStringPtr(p.BannerURL)
	copied.ContactNumber = copyStringPtr(p.ContactNumber)
	copied.WebsiteURL = copyStringPtr(p.WebsiteURL)
	copied.CategoryIDs = append([]int64(nil), p.CategoryIDs...)
	sort.Slice(copied.CategoryIDs, func(i, j int) bool { return copied.CategoryIDs[i] < copied.CategoryIDs[j] })
	return &copied
}

func copyDonorProfile(p *DonorProfile) *DonorProfile {
	copied := *p
	copied.Bio = copyStringPtr(p.Bio)
	copied.AvatarURL = copyStringPtr(p.AvatarURL)
	copied.ContactNumber = copyStringPtr(p.ContactNumber)
	return &copied
}

func copyStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
