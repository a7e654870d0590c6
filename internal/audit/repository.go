package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for audit log operations.
type Repository interface {
	// LogAccess records an access event to the audit log.
	// Returns the created audit log entry.
	LogAccess(entry LogEntry) (*AuditLog, error)

	// QueryByEntity retrieves audit logs for a specific entity, sorted by time (newest first).
	// Limit specifies the maximum number of entries to return (0 = no limit).
	QueryByEntity(entityType, entityID string, limit int) ([]*AuditLog, error)

	// QueryByUser retrieves audit logs for a specific user, sorted by time (newest first).
	// Limit specifies the maximum number of entries to return (0 = no limit).
	QueryByUser(userID int64, limit int) ([]*AuditLog, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used for testing and development. Thread-safe via RWMutex.
// Entries form a hash chain: each log carries the SHA-256 hash of its
// predecessor so tampering with stored entries is detectable.
type InMemoryRepository struct {
	mu   sync.RWMutex
	logs map[string]*AuditLog
	// Maintain insertion order for queries and chain verification
	order []string
}

// NewInMemoryRepository creates a new in-memory audit repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		logs:  make(map[string]*AuditLog),
		order: make([]string, 0),
	}
}

// LogAccess records an access event to the audit log.
func (r *InMemoryRepository) LogAccess(entry LogEntry) (*AuditLog, error) {
	outcome := entry.Outcome
	if outcome == "" {
		outcome = OutcomeSuccess
	}

	log := &AuditLog{
		ID:         uuid.New().String(),
		UserID:     entry.UserID,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Action:     entry.Action,
		Outcome:    outcome,
		CreatedAt:  time.Now().UTC(),
		RequestID:  entry.RequestID,
		IPAddress:  entry.IPAddress,
		UserAgent:  entry.UserAgent,
	}

	r.mu.Lock()
	if len(r.order) > 0 {
		last := r.logs[r.order[len(r.order)-1]]
		log.PreviousHash = ComputeLogHash(last)
	}
	r.logs[log.ID] = log
	r.order = append(r.order, log.ID)
	r.mu.Unlock()

	// Return a copy to prevent external modification
	logCopy := *log
	return &logCopy, nil
}

// GetLastHash returns the hash of the most recent log entry, or an empty
// string if the repository is empty.
func (r *InMemoryRepository) GetLastHash() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.order) == 0 {
		return "", nil
	}
	last := r.logs[r.order[len(r.order)-1]]
	return ComputeLogHash(last), nil
}

// VerifyHashChain walks the chain from oldest to newest and checks that each
// entry's PreviousHash matches the recomputed hash of its predecessor.
// Returns false if any link is broken.
func (r *InMemoryRepository) VerifyHashChain() (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var prevHash string
	for _, id := range r.order {
		log := r.logs[id]
		if log.PreviousHash != prevHash {
			return false, nil
		}
		prevHash = ComputeLogHash(log)
	}
	return true, nil
}

// QueryByEntity retrieves audit logs for a specific entity, sorted by time (newest first).
func (r *InMemoryRepository) QueryByEntity(entityType, entityID string, limit int) ([]*AuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*AuditLog

	// Iterate in reverse order (newest first)
	for i := len(r.order) - 1; i >= 0; i-- {
		id := r.order[i]
		log := r.logs[id]

		if log.EntityType == entityType && log.EntityID == entityID {
			// Create a copy to prevent external modification
			logCopy := *log
			results = append(results, &logCopy)

			if limit > 0 && len(results) >= limit {
				break
			}
		}
	}

	return results, nil
}

// QueryByUser retrieves audit logs for a specific user, sorted by time (newest first).
func (r *InMemoryRepository) QueryByUser(userID int64, limit int) ([]*AuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*AuditLog

	// Iterate in reverse order (newest first)
	for i := len(r.order) - 1; i >= 0; i-- {
		id := r.order[i]
		log := r.logs[id]

		if log.UserID == userID {
			// Create a copy to prevent external modification
			logCopy := *log
			results = append(results, &logCopy)

			if limit > 0 && len(results) >= limit {
				break
			}
		}
	}

	return results, nil
}
