package ong

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository defines the interface for ONG persistence and the
// verification workflow.
type Repository interface {
	// Create registers a new ONG in the pending state. CNPJs are unique;
	// a duplicate returns ErrCNPJTaken.
	Create(ctx context.Context, o *Ong) error

	// GetByUserID retrieves an ONG by its backing user ID.
	GetByUserID(ctx context.Context, userID int64) (*Ong, error)

	// ListByStatus returns ONGs in the given verification status,
	// oldest registration first.
	ListByStatus(ctx context.Context, status string) ([]Ong, error)

	// Verify approves a pending ONG, recording the deciding admin. A
	// decision is final: verifying an already decided ONG returns
	// ErrAlreadyDecided.
	Verify(ctx context.Context, userID, adminID int64) error

	// Reject declines a pending ONG with a mandatory reason.
	Reject(ctx context.Context, userID, adminID int64, reason string) error

	// SetStripeAccount records the connected Stripe account for a
	// verified ONG.
	SetStripeAccount(ctx context.Context, userID int64, accountID string) error
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex; used for testing and development.
type InMemoryRepository struct {
	mu     sync.RWMutex
	ongs   map[int64]*Ong
	byCNPJ map[string]int64
}

// NewInMemoryRepository creates a new in-memory ONG repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		ongs:   make(map[int64]*Ong),
		byCNPJ: make(map[string]int64),
	}
}

// Create registers a new ONG in the pending state.
func (r *InMemoryRepository) Create(_ context.Context, o *Ong) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byCNPJ[o.CNPJ]; ok {
		return ErrCNPJTaken
	}

	o.VerificationStatus = StatusPending
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}

	r.ongs[o.UserID] = copyOng(o)
	r.byCNPJ[o.CNPJ] = o.UserID
	return nil
}

// GetByUserID retrieves an ONG by its backing user ID.
func (r *InMemoryRepository) GetByUserID(_ context.Context, userID int64) (*Ong, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.ongs[userID]
	if !ok {
		return nil, ErrOngNotFound
	}
	return copyOng(o), nil
}

// ListByStatus returns ONGs in the given status, oldest first.
func (r *InMemoryRepository) ListByStatus(_ context.Context, status string) ([]Ong, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Ong
	for _, o := range r.ongs {
		if o.VerificationStatus == status {
			out = append(out, *copyOng(o))
		}
	}
	sortByCreatedAt(out)
	return out, nil
}

// Verify approves a pending ONG.
func (r *InMemoryRepository) Verify(_ context.Context, userID, adminID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.ongs[userID]
	if !ok {
		return ErrOngNotFound
	}
	if o.VerificationStatus != StatusPending {
		return ErrAlreadyDecided
	}

	now := time.Now()
	o.VerificationStatus = StatusVerified
	o.VerifiedAt = &now
	o.VerifiedBy = &adminID
	o.RejectionReason = nil
	return nil
}

// Reject declines a pending ONG with a mandatory reason.
func (r *InMemoryRepository) Reject(_ context.Context, userID, adminID int64, reason string) error {
	if reason == "" {
		return ErrMissingReason
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.ongs[userID]
	if !ok {
		return ErrOngNotFound
	}
	if o.VerificationStatus != StatusPending {
		return ErrAlreadyDecided
	}

	now := time.Now()
	o.VerificationStatus = StatusRejected
	o.VerifiedAt = &now
	o.VerifiedBy = &adminID
	o.RejectionReason = &reason
	return nil
}

// SetStripeAccount records the connected Stripe account for a verified ONG.
func (r *InMemoryRepository) SetStripeAccount(_ context.Context, userID int64, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.ongs[userID]
	if !ok {
		return ErrOngNotFound
	}
	if o.VerificationStatus != StatusVerified {
		return ErrNotVerified
	}
	o.StripeAccountID = &accountID
	return nil
}

// copyOng deep copies an ONG so callers cannot mutate stored state.
func copyOng(o *Ong) *Ong {
	copied := *o
	if o.VerifiedAt != nil {
		v := *o.VerifiedAt
		copied.VerifiedAt = &v
	}
	if o.VerifiedBy != nil {
		v := *o.VerifiedBy
		copied.VerifiedBy = &v
	}
	if o.RejectionReason != nil {
		v := *o.RejectionReason
		copied.RejectionReason = &v
	}
	if o.StripeAccountID != nil {
		v := *o.StripeAccountID
		copied.StripeAccountID = &v
	}
	if o.AverageRating != nil {
		v := *o.AverageRating
		copied.AverageRating = &v
	}
	return &copied
}

// sortByCreatedAt orders ONGs oldest first, user ID as tie-break.
func sortByCreatedAt(ongs []Ong) {
	sort.Slice(ongs, func(i, j int) bool {
		if !ongs[i].CreatedAt.Equal(ongs[j].CreatedAt) {
			return ongs[i].CreatedAt.Before(ongs[j].CreatedAt)
		}
		return ongs[i].UserID < ongs[j].UserID
	})
}
