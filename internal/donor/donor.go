// Package donor provides models and repository for donor accounts.
package donor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
)

// Common errors for donor operations.
var (
	ErrDonorNotFound = errors.New("donor not found")
	ErrCPFTaken      = errors.New("cpf already registered")
)

// Donor represents a donor account. The primary key is the backing user ID.
type Donor struct {
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	CPF       string    `json:"-"` // Never exposed in API responses
	CreatedAt time.Time `json:"created_at"`
}

// Repository defines the interface for donor persistence.
type Repository interface {
	// Create registers a new donor. CPFs are unique; a duplicate returns
	// ErrCPFTaken.
	Create(ctx context.Context, d *Donor) error

	// GetByUserID retrieves a donor by its backing user ID.
	GetByUserID(ctx context.Context, userID int64) (*Donor, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
type InMemoryRepository struct {
	mu     sync.RWMutex
	donors map[int64]*Donor
	byCPF  map[string]int64
}

// NewInMemoryRepository creates a new in-memory donor repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		donors: make(map[int64]*Donor),
		byCPF:  make(map[string]int64),
	}
}

// Create registers a new donor.
func (r *InMemoryRepository) Create(_ context.Context, d *Donor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byCPF[d.CPF]; ok {
		return ErrCPFTaken
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}

	copied := *d
	r.donors[d.UserID] = &copied
	r.byCPF[d.CPF] = d.UserID
	return nil
}

// GetByUserID retrieves a donor by its backing user ID.
func (r *InMemoryRepository) GetByUserID(_ context.Context, userID int64) (*Donor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.donors[userID]
	if !ok {
		return nil, ErrDonorNotFound
	}
	copied := *d
	return &copied, nil
}

// uniqueViolation is the Postgres error code for unique constraint violations.
const uniqueViolation = "23505"

// PostgresRepository implements Repository over PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create registers a new donor row. The backing user row must already exist.
func (r *PostgresRepository) Create(ctx context.Context, d *Donor) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO donors (user_id, cpf)
		VALUES ($1, $2)
		RETURNING created_at`,
		d.UserID, d.CPF,
	).Scan(&d.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrCPFTaken
		}
		return fmt.Errorf("failed to insert donor: %w", err)
	}
	return nil
}

// GetByUserID retrieves a donor by its backing user ID.
func (r *PostgresRepository) GetByUserID(ctx context.Context, userID int64) (*Donor, error) {
	var d Donor
	err := r.db.QueryRowContext(ctx, `
		SELECT d.user_id, u.name, d.cpf, d.created_at
		FROM donors d JOIN users u ON u.id = d.user_id
		WHERE d.user_id = $1`, userID,
	).Scan(&d.UserID, &d.Name, &d.CPF, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDonorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan donor row: %w", err)
	}
	return &d, nil
}
