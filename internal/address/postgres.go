package address

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

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

const addressColumns = `
	id, donor_id, ong_id, street, number, complement, neighborhood,
	city, state, zip_code, country, latitude, longitude, geohash, created_at, updated_at`

// Create stores a new address and writes the generated fields back.
func (r *PostgresRepository) Create(ctx context.Context, a *Address) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if a.Country == "" {
		a.Country = "Brasil"
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO addresses (donor_id, ong_id, street, number, complement,
		                       neighborhood, city, state, zip_code, country,
		                       latitude, longitude, geohash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`,
		a.DonorID, a.OngID, a.Street, a.Number, a.Complement,
		a.Neighborhood, a.City, a.State, a.ZipCode, a.Country,
		a.Latitude, a.Longitude, a.Geohash,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert address: %w", err)
	}
	return nil
}

// GetByID retrieves an address by ID.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Address, error) {
	return scanAddress(r.db.QueryRowContext(ctx, `
		SELECT `+addressColumns+` FROM addresses WHERE id = $1`, id))
}

// GetByOwner retrieves the address of a donor or ONG by user ID.
func (r *PostgresRepository) GetByOwner(ctx context.Context, userID int64) (*Address, error) {
	return scanAddress(r.db.QueryRowContext(ctx, `
		SELECT `+addressColumns+`
		FROM addresses WHERE donor_id = $1 OR ong_id = $1`, userID))
}

// Update replaces the mutable fields of an existing address.
func (r *PostgresRepository) Update(ctx context.Context, a *Address) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE addresses
		SET street = $2, number = $3, complement = $4, neighborhood = $5,
		    city = $6, state = $7, zip_code = $8, country = $9,
		    latitude = $10, longitude = $11, geohash = $12, updated_at = now()
		WHERE id = $1`,
		a.ID, a.Street, a.Number, a.Complement, a.Neighborhood,
		a.City, a.State, a.ZipCode, a.Country, a.Latitude, a.Longitude, a.Geohash)
	if err != nil {
		return fmt.Errorf("failed to update address: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrAddressNotFound
	}
	return nil
}

// Delete removes an address.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM addresses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrAddressNotFound
	}
	return nil
}

func scanAddress(row *sql.Row) (*Address, error) {
	var a Address
	err := row.Scan(&a.ID, &a.DonorID, &a.OngID, &a.Street, &a.Number,
		&a.Complement, &a.Neighborhood, &a.City, &a.State, &a.ZipCode,
		&a.Country, &a.Latitude, &a.Longitude, &a.Geohash, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan address row: %w", err)
	}
	return &a, nil
}
