package user

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Repository defines the interface for user account persistence.
type Repository interface {
	// Create stores a new user. Email addresses are unique; a duplicate
	// returns ErrEmailTaken. The stored ID is written back to the user.
	Create(ctx context.Context, u *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByEmail retrieves a user by email (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*User, error)

	// UpdateName changes the display name.
	UpdateName(ctx context.Context, id int64, name string) error
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex; used for testing and development.
type InMemoryRepository struct {
	mu      sync.RWMutex
	nextID  int64
	users   map[int64]*User
	byEmail map[string]int64
}

// NewInMemoryRepository creates a new in-memory user repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		users:   make(map[int64]*User),
		byEmail: make(map[string]int64),
	}
}

// Create stores a new user, assigning the next sequential ID.
func (r *InMemoryRepository) Create(_ context.Context, u *User) error {
	if !ValidRole(u.Role) {
		return ErrInvalidRole
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(u.Email)
	if _, ok := r.byEmail[key]; ok {
		return ErrEmailTaken
	}

	r.nextID++
	u.ID = r.nextID

	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	copied := *u
	r.users[u.ID] = &copied
	r.byEmail[key] = u.ID
	return nil
}

// GetByID retrieves a user by ID.
func (r *InMemoryRepository) GetByID(_ context.Context, id int64) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

// GetByEmail retrieves a user by email, case-insensitively.
func (r *InMemoryRepository) GetByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *r.users[id]
	return &copied, nil
}

// UpdateName changes the display name.
func (r *InMemoryRepository) UpdateName(_ context.Context, id int64, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Name = name
	u.UpdatedAt = time.Now()
	return nil
}
