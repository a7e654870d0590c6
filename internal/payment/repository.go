// Package payment provides repository for payment record persistence.
package payment

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrPaymentRecordNotFound is returned when a payment record is not found.
var ErrPaymentRecordNotFound = errors.New("payment record not found")

// ErrDuplicateSessionID is returned when a record already exists for the session.
var ErrDuplicateSessionID = errors.New("payment record already exists for session")

// ErrInvalidStatusTransition is returned when a status change is not allowed.
var ErrInvalidStatusTransition = errors.New("invalid payment status transition")

// ErrPaymentIntentMismatch is returned when a completed record is re-marked with a
// different payment intent ID.
var ErrPaymentIntentMismatch = errors.New("payment intent ID mismatch")

// isValidStatusTransition reports whether a payment may move from one status to
// another. Pending is the only state with multiple exits; refunds are only
// reachable from succeeded. Terminal states never transition.
func isValidStatusTransition(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusSucceeded || to == StatusFailed || to == StatusCanceled
	case StatusSucceeded:
		return to == StatusRefunded
	default:
		return false
	}
}

// PaymentRepository defines methods for payment record persistence.
type PaymentRepository interface {
	CreatePending(record *PaymentRecord) error
	GetByID(id string) (*PaymentRecord, error)
	GetBySessionID(sessionID string) (*PaymentRecord, error)
	MarkCompleted(sessionID, paymentIntentID string) error
	MarkFailed(sessionID, reason string) error
	MarkCanceled(sessionID string) error
	MarkRefunded(sessionID string) error
}

// InMemoryPaymentRepository implements PaymentRepository with in-memory storage.
type InMemoryPaymentRepository struct {
	mu        sync.RWMutex
	records   map[string]*PaymentRecord
	bySession map[string]string // session ID -> record ID
}

// NewInMemoryPaymentRepository creates a new in-memory payment repository.
func NewInMemoryPaymentRepository() *InMemoryPaymentRepository {
	return &InMemoryPaymentRepository{
		records:   make(map[string]*PaymentRecord),
		bySession: make(map[string]string),
	}
}

// copyPaymentRecord deep copies a record so callers cannot mutate stored state.
func copyPaymentRecord(record *PaymentRecord) *PaymentRecord {
	copied := *record
	if record.PaymentIntentID != nil {
		v := *record.PaymentIntentID
		copied.PaymentIntentID = &v
	}
	if record.WishlistItemID != nil {
		v := *record.WishlistItemID
		copied.WishlistItemID = &v
	}
	if record.FailureReason != nil {
		v := *record.FailureReason
		copied.FailureReason = &v
	}
	if record.CreatedAt != nil {
		v := *record.CreatedAt
		copied.CreatedAt = &v
	}
	if record.UpdatedAt != nil {
		v := *record.UpdatedAt
		copied.UpdatedAt = &v
	}
	return &copied
}

// CreatePending inserts a new record in the pending state.
func (r *InMemoryPaymentRepository) CreatePending(record *PaymentRecord) error {
	record.Status = StatusPending
	return r.insert(record)
}

// insert stores a record, filling ID, timestamps and currency defaults. The
// session ID must be unique across the repository.
func (r *InMemoryPaymentRepository) insert(record *PaymentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bySession[record.SessionID]; ok {
		return ErrDuplicateSessionID
	}

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.Currency == "" {
		record.Currency = DefaultCurrency
	}

	now := time.Now()
	if record.CreatedAt == nil {
		record.CreatedAt = &now
	}
	if record.UpdatedAt == nil {
		record.UpdatedAt = &now
	}

	r.records[record.ID] = copyPaymentRecord(record)
	r.bySession[record.SessionID] = record.ID

	return nil
}

// GetByID retrieves a payment record by ID.
func (r *InMemoryPaymentRepository) GetByID(id string) (*PaymentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[id]
	if !ok {
		return nil, ErrPaymentRecordNotFound
	}

	return copyPaymentRecord(record), nil
}

// GetBySessionID retrieves a payment record by session ID.
func (r *InMemoryPaymentRepository) GetBySessionID(sessionID string) (*PaymentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.bySession[sessionID]
	if !ok {
		return nil, ErrPaymentRecordNotFound
	}

	return copyPaymentRecord(r.records[id]), nil
}

// MarkCompleted transitions a pending record to succeeded and stores the
// payment intent ID. Re-marking with the same intent ID is a no-op; a
// different intent ID for an already-succeeded record is rejected.
func (r *InMemoryPaymentRepository) MarkCompleted(sessionID, paymentIntentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, err := r.lookupBySession(sessionID)
	if err != nil {
		return err
	}

	if record.Status == StatusSucceeded {
		if record.PaymentIntentID != nil && *record.PaymentIntentID != paymentIntentID {
			return ErrPaymentIntentMismatch
		}
		return nil
	}

	if !isValidStatusTransition(record.Status, StatusSucceeded) {
		return ErrInvalidStatusTransition
	}

	record.Status = StatusSucceeded
	record.PaymentIntentID = &paymentIntentID
	r.touch(record)
	return nil
}

// MarkFailed transitions a pending record to failed. Re-marking an already
// failed record is allowed and may update the failure reason.
func (r *InMemoryPaymentRepository) MarkFailed(sessionID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, err := r.lookupBySession(sessionID)
	if err != nil {
		return err
	}

	if record.Status == StatusFailed {
		record.FailureReason = &reason
		r.touch(record)
		return nil
	}

	if !isValidStatusTransition(record.Status, StatusFailed) {
		return ErrInvalidStatusTransition
	}

	record.Status = StatusFailed
	record.FailureReason = &reason
	r.touch(record)
	return nil
}

// MarkCanceled transitions a pending record to canceled. Idempotent.
func (r *InMemoryPaymentRepository) MarkCanceled(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, err := r.lookupBySession(sessionID)
	if err != nil {
		return err
	}

	if record.Status == StatusCanceled {
		return nil
	}

	if !isValidStatusTransition(record.Status, StatusCanceled) {
		return ErrInvalidStatusTransition
	}

	record.Status = StatusCanceled
	r.touch(record)
	return nil
}

// MarkRefunded transitions a succeeded record to refunded. Idempotent.
func (r *InMemoryPaymentRepository) MarkRefunded(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, err := r.lookupBySession(sessionID)
	if err != nil {
		return err
	}

	if record.Status == StatusRefunded {
		return nil
	}

	if !isValidStatusTransition(record.Status, StatusRefunded) {
		return ErrInvalidStatusTransition
	}

	record.Status = StatusRefunded
	r.touch(record)
	return nil
}

// lookupBySession returns the stored record for a session. Caller must hold the lock.
func (r *InMemoryPaymentRepository) lookupBySession(sessionID string) (*PaymentRecord, error) {
	id, ok := r.bySession[sessionID]
	if !ok {
		return nil, ErrPaymentRecordNotFound
	}
	return r.records[id], nil
}

// touch refreshes the UpdatedAt timestamp. Caller must hold the lock.
func (r *InMemoryPaymentRepository) touch(record *PaymentRecord) {
	now := time.Now()
	record.UpdatedAt = &now
}
