package donation

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository defines the interface for donation persistence.
type Repository interface {
	// Create stores a new donation in pending status.
	Create(ctx context.Context, donation *Donation) error

	// GetByID retrieves a donation by ID.
	GetByID(ctx context.Context, id int64) (*Donation, error)

	// ListByDonor returns a donor's donations, newest first.
	ListByDonor(ctx context.Context, donorID int64) ([]Donation, error)

	// ListByOng returns an ONG's incoming donations, newest first.
	ListByOng(ctx context.Context, ongID int64) ([]Donation, error)

	// Confirm moves a pending donation to confirmed. Only the
	// receiving ONG may confirm.
	Confirm(ctx context.Context, ongID, id int64) error

	// MarkDelivered moves a confirmed donation to delivered. Only the
	// receiving ONG may mark delivery.
	MarkDelivered(ctx context.Context, ongID, id int64) error

	// Cancel moves a donation to cancelled. The donor may cancel while
	// pending; the ONG may cancel while pending or confirmed.
	Cancel(ctx context.Context, actorID, id int64) error
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex; used for testing and development.
type InMemoryRepository struct {
	mu        sync.RWMutex
	nextID    int64
	donations map[int64]*Donation
}

// NewInMemoryRepository creates a new in-memory donation repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{donations: make(map[int64]*Donation)}
}

// Create stores a new donation, assigning the next sequential ID.
func (r *InMemoryRepository) Create(_ context.Context, donation *Donation) error {
	if donation.Quantity <= 0 {
		return ErrInvalidQuantity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	donation.ID = r.nextID
	donation.Status = StatusPending
	now := time.Now()
	donation.CreatedAt = now
	donation.UpdatedAt = now

	r.donations[donation.ID] = copyDonation(donation)
	return nil
}

// GetByID retrieves a donation by ID.
func (r *InMemoryRepository) GetByID(_ context.Context, id int64) (*Donation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	donation, ok := r.donations[id]
	if !ok {
		return nil, ErrDonationNotFound
	}
	return copyDonation(donation), nil
}

// ListByDonor returns a donor's donations, newest first.
func (r *InMemoryRepository) ListByDonor(_ context.Context, donorID int64) ([]Donation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Donation
	for _, donation := range r.donations {
		if donation.DonorID == donorID {
			out = append(out, *copyDonation(donation))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// ListByOng returns an ONG's incoming donations, newest first.
func (r *InMemoryRepository) ListByOng(_ context.Context, ongID int64) ([]Donation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Donation
	for _, donation := range r.donations {
		if donation.OngID == ongID {
			out = append(out, *copyDonation(donation))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// Confirm moves a pending donation to confirmed.
func (r *InMemoryRepository) Confirm(_ context.Context, ongID, id int64) error {
	return r.transition(ongID, id, StatusConfirmed, false)
}

// MarkDelivered moves a confirmed donation to delivered.
func (r *InMemoryRepository) MarkDelivered(_ context.Context, ongID, id int64) error {
	return r.transition(ongID, id, StatusDelivered, false)
}

// Cancel moves a donation to cancelled.
func (r *InMemoryRepository) Cancel(_ context.Context, actorID, id int64) error {
	return r.transition(actorID, id, StatusCancelled, true)
}

// transition applies a status change on behalf of actorID. When
// donorMayAct is set, the donor may also act, but only while pending.
func (r *InMemoryRepository) transition(actorID, id int64, to string, donorMayAct bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	donation, ok := r.donations[id]
	if !ok {
		return ErrDonationNotFound
	}

	isOng := donation.OngID == actorID
	isDonor := donorMayAct && donation.DonorID == actorID
	if !isOng && !isDonor {
		return ErrNotParticipant
	}
	if !isValidTransition(donation.Status, to) {
		return ErrInvalidTransition
	}
	if isDonor && !isOng && donation.Status != StatusPending {
		return ErrInvalidTransition
	}

	donation.Status = to
	donation.UpdatedAt = time.Now()
	return nil
}

func sortNewestFirst(donations []Donation) {
	sort.Slice(donations, func(i, j int) bool {
		if !donations[i].CreatedAt.Equal(donations[j].CreatedAt) {
			return donations[i].CreatedAt.After(donations[j].CreatedAt)
		}
		return donations[i].ID > donations[j].ID
	})
}

func copyDonation(donation *Donation) *Donation {
	copied := *donation
	if donation.WishlistItemID != nil {
		v := *donation.WishlistItemID
		copied.WishlistItemID = &v
	}
	if donation.Note != nil {
		v := *donation.Note
		copied.Note = &v
	}
	return &copied
}
