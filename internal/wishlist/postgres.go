package wishlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresRepository implements Repository over PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create stores a new item and writes the generated fields back.
func (r *PostgresRepository) Create(ctx context.Context, item *Item) error {
	if err := validate(item); err != nil {
		return err
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO wishlist_items (ong_id, name, description, quantity, urgency)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		item.OngID, item.Name, item.Description, item.Quantity, item.Urgency,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert wishlist item: %w", err)
	}
	return nil
}

// GetByID retrieves an item by ID.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Item, error) {
	var item Item
	err := r.db.QueryRowContext(ctx, `
		SELECT id, ong_id, name, description, quantity, urgency, created_at, updated_at
		FROM wishlist_items WHERE id = $1`, id,
	).Scan(&item.ID, &item.OngID, &item.Name, &item.Description,
		&item.Quantity, &item.Urgency, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan wishlist item row: %w", err)
	}
	return &item, nil
}

// ListByOng returns an ONG's items, most urgent first, then newest.
func (r *PostgresRepository) ListByOng(ctx context.Context, ongID int64) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, ong_id, name, description, quantity, urgency, created_at, updated_at
		FROM wishlist_items
		WHERE ong_id = $1
		ORDER BY CASE urgency WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END,
		         created_at DESC, id DESC`, ongID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wishlist items: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.OngID, &item.Name, &item.Description,
			&item.Quantity, &item.Urgency, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan wishlist item row: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read wishlist item rows: %w", err)
	}
	return out, nil
}

// Update replaces the mutable fields of an item owned by ongID.
func (r *PostgresRepository) Update(ctx context.Context, ongID int64, item *Item) error {
	if err := validate(item); err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE wishlist_items
		SET name = $3, description = $4, quantity = $5, urgency = $6, updated_at = now()
		WHERE id = $1 AND ong_id = $2`,
		item.ID, ongID, item.Name, item.Description, item.Quantity, item.Urgency)
	if err != nil {
		return fmt.Errorf("failed to update wishlist item: %w", err)
	}
	return r.ownershipOutcome(ctx, res, item.ID)
}

// Delete removes an item owned by ongID.
func (r *PostgresRepository) Delete(ctx context.Context, ongID, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM wishlist_items WHERE id = $1 AND ong_id = $2`, id, ongID)
	if err != nil {
		return fmt.Errorf("failed to delete wishlist item: %w", err)
	}
	return r.ownershipOutcome(ctx, res, id)
}

// ownershipOutcome distinguishes a missing item from one owned by
// another ONG when a guarded write matched no rows.
func (r *PostgresRepository) ownershipOutcome(ctx context.Context, res sql.Result, id int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrNotOwner
}
