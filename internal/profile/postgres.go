package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresRepository implements Repository over PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// UpsertOngProfile creates or updates an ONG profile and synchronizes its
// category set inside one transaction.
func (r *PostgresRepository) UpsertOngProfile(ctx context.Context, p *OngProfile) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO ong_profiles (ong_id, bio, avatar_url, banner_url, contact_number, website_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (ong_id) DO UPDATE SET
			bio = EXCLUDED.bio,
			avatar_url = EXCLUDED.avatar_url,
			banner_url = EXCLUDED.banner_url,
			contact_number = EXCLUDED.contact_number,
			website_url = EXCLUDED.website_url,
			updated_at = now()
		RETURNING id, created_at, updated_at`,
		p.OngID, p.Bio, p.AvatarURL, p.BannerURL, p.ContactNumber, p.WebsiteURL,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert ong profile: %w", err)
	}

	// Replace the category set wholesale; the request carries the full
	// desired set.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM ong_profile_categories
		WHERE profile_id = $1 AND category_id <> ALL($2)`,
		p.ID, pq.Array(p.CategoryIDs),
	); err != nil {
		return fmt.Errorf("failed to prune profile categories: %w", err)
	}
	if len(p.CategoryIDs) > 0 {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ong_profile_categories (profile_id, category_id)
			SELECT $1, unnest($2::bigint[])
			ON CONFLICT DO NOTHING`,
			p.ID, pq.Array(p.CategoryIDs),
		); err != nil {
			return fmt.Errorf("failed to insert profile categories: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit profile upsert: %w", err)
	}
	return nil
}

// GetOngProfile retrieves an ONG's profile with its category IDs.
func (r *PostgresRepository) GetOngProfile(ctx context.Context, ongID int64) (*OngProfile, error) {
	var (
		p           OngProfile
		categoryIDs pq.Int64Array
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT p.id, p.ong_id, p.bio, p.avatar_url, p.banner_url,
		       p.contact_number, p.website_url,
		       COALESCE(array_agg(pc.category_id ORDER BY pc.category_id)
		                FILTER (WHERE pc.category_id IS NOT NULL), '{}'),
		       p.created_at, p.updated_at
		FROM ong_profiles p
		LEFT JOIN ong_profile_categories pc ON pc.profile_id = p.id
		WHERE p.ong_id = $1
		GROUP BY p.id`,
		ongID,
	).Scan(&p.ID, &p.OngID, &p.Bio, &p.AvatarURL, &p.BannerURL,
		&p.ContactNumber, &p.WebsiteURL, &categoryIDs, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan ong profile row: %w", err)
	}
	p.CategoryIDs = categoryIDs
	return &p, nil
}

// UpsertDonorProfile creates or updates a donor profile.
func (r *PostgresRepository) UpsertDonorProfile(ctx context.Context, p *DonorProfile) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO donor_profiles (donor_id, bio, avatar_url, contact_number)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (donor_id) DO UPDATE SET
			bio = EXCLUDED.bio,
			avatar_url = EXCLUDED.avatar_url,
			contact_number = EXCLUDED.contact_number,
			updated_at = now()
		RETURNING id, created_at, updated_at`,
		p.DonorID, p.Bio, p.AvatarURL, p.ContactNumber,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert donor profile: %w", err)
	}
	return nil
}

// GetDonorProfile retrieves a donor's profile.
func (r *PostgresRepository) GetDonorProfile(ctx context.Context, donorID int64) (*DonorProfile, error) {
	var p DonorProfile
	err := r.db.QueryRowContext(ctx, `
		SELECT id, donor_id, bio, avatar_url, contact_number, created_at, updated_at
		FROM donor_profiles WHERE donor_id = $1`,
		donorID,
	).Scan(&p.ID, &p.DonorID, &p.Bio, &p.AvatarURL, &p.ContactNumber, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan donor profile row: %w", err)
	}
	return &p, nil
}

// SetOngMedia updates only the avatar and banner references. Nil leaves
// the existing value untouched.
func (r *PostgresRepository) SetOngMedia(ctx context.Context, ongID int64, avatarURL, bannerURL *string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE ong_profiles
		SET avatar_url = COALESCE($2, avatar_url),
		    banner_url = COALESCE($3, banner_url),
		    updated_at = now()
		WHERE ong_id = $1`,
		ongID, avatarURL, bannerURL)
	if err != nil {
		return fmt.Errorf("failed to update ong media: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrProfileNotFound
	}
	return nil
}
