// Package category provides the reference data for causes an ONG can
// associate with its profile.
package category

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/lib/pq"

	"github.com/doecerto/doecerto/internal/color"
)

// Common errors for category operations.
var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrNameTaken        = errors.New("category name already exists")
	ErrInvalidColor     = errors.New("color must be a #RRGGBB hex value")
)

// Category is one cause, e.g. "Educação" or "Meio Ambiente". Color is
// an optional #RRGGBB accent used by clients when rendering the cause.
type Category struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Validate checks the accent color when one is set.
func (c *Category) Validate() error {
	if c.Color != "" && !color.IsValidHexColor(c.Color) {
		return ErrInvalidColor
	}
	return nil
}

// Repository defines the interface for category persistence.
type Repository interface {
	// Create stores a new category. Names are unique.
	Create(ctx context.Context, c *Category) error

	// GetByID retrieves a category by ID.
	GetByID(ctx context.Context, id int64) (*Category, error)

	// List returns all categories ordered by name.
	List(ctx context.Context) ([]Category, error)

	// Delete removes a category.
	Delete(ctx context.Context, id int64) error
}

// InMemoryRepository is an in-memory implementation of Repository.
type InMemoryRepository struct {
	mu         sync.RWMutex
	nextID     int64
	categories map[int64]*Category
	byName     map[string]int64
}

// NewInMemoryRepository creates a new in-memory category repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		categories: make(map[int64]*Category),
		byName:     make(map[string]int64),
	}
}

// Create stores a new category, assigning the next sequential ID.
func (r *InMemoryRepository) Create(_ context.Context, c *Category) error {
	if err := c.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(c.Name)
	if _, ok := r.byName[key]; ok {
		return ErrNameTaken
	}

	r.nextID++
	c.ID = r.nextID
	copied := *c
	r.categories[c.ID] = &copied
	r.byName[key] = c.ID
	return nil
}

// GetByID retrieves a category by ID.
func (r *InMemoryRepository) GetByID(_ context.Context, id int64) (*Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.categories[id]
	if !ok {
		return nil, ErrCategoryNotFound
	}
	copied := *c
	return &copied, nil
}

// List returns all categories ordered by name.
func (r *InMemoryRepository) List(_ context.Context) ([]Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Category, 0, len(r.categories))
	for _, c := range r.categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes a category.
func (r *InMemoryRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.categories[id]
	if !ok {
		return ErrCategoryNotFound
	}
	delete(r.byName, strings.ToLower(c.Name))
	delete(r.categories, id)
	return nil
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

// Create stores a new category and writes the generated ID back.
func (r *PostgresRepository) Create(ctx context.Context, c *Category) error {
	if err := c.Validate(); err != nil {
		return err
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO categories (name, color) VALUES ($1, $2) RETURNING id`,
		c.Name, c.Color,
	).Scan(&c.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrNameTaken
		}
		return fmt.Errorf("failed to insert category: %w", err)
	}
	return nil
}

// GetByID retrieves a category by ID.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Category, error) {
	var c Category
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, color FROM categories WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Color)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan category row: %w", err)
	}
	return &c, nil
}

// List returns all categories ordered by name.
func (r *PostgresRepository) List(ctx context.Context) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, color FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color); err != nil {
			return nil, fmt.Errorf("failed to scan category row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read category rows: %w", err)
	}
	return out, nil
}

// Delete removes a category.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}
