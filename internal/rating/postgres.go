package rating

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresRepository implements Repository over PostgreSQL.
//
// Writes maintain the ONG's denormalized average_rating and
// number_of_ratings columns in the same transaction, so the catalog
// never serves an aggregate that disagrees with the stored ratings.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert stores a rating, replacing any previous one for the pair,
// and refreshes the ONG's aggregates transactionally.
func (r *PostgresRepository) Upsert(ctx context.Context, rating *Rating) (bool, error) {
	if err := rating.Validate(); err != nil {
		return false, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// xmax = 0 holds only for freshly inserted rows, which is how we
	// tell an insert from a conflict update.
	var created bool
	err = tx.QueryRowContext(ctx, `
		INSERT INTO ratings (donor_id, ong_id, score, comment)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (donor_id, ong_id)
		DO UPDATE SET score = EXCLUDED.score, comment = EXCLUDED.comment, updated_at = now()
		RETURNING id, created_at, updated_at, (xmax = 0)`,
		rating.DonorID, rating.OngID, rating.Score, rating.Comment,
	).Scan(&rating.ID, &rating.CreatedAt, &rating.UpdatedAt, &created)
	if err != nil {
		return false, fmt.Errorf("failed to upsert rating: %w", err)
	}

	if err := refreshAggregates(ctx, tx, rating.OngID); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit rating upsert: %w", err)
	}
	return created, nil
}

// GetByDonorAndOng retrieves a donor's rating of an ONG.
func (r *PostgresRepository) GetByDonorAndOng(ctx context.Context, donorID, ongID int64) (*Rating, error) {
	var rating Rating
	err := r.db.QueryRowContext(ctx, `
		SELECT id, donor_id, ong_id, score, comment, created_at, updated_at
		FROM ratings WHERE donor_id = $1 AND ong_id = $2`, donorID, ongID,
	).Scan(&rating.ID, &rating.DonorID, &rating.OngID, &rating.Score,
		&rating.Comment, &rating.CreatedAt, &rating.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRatingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan rating row: %w", err)
	}
	return &rating, nil
}

// ListByOng returns an ONG's ratings, newest first.
func (r *PostgresRepository) ListByOng(ctx context.Context, ongID int64) ([]Rating, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, donor_id, ong_id, score, comment, created_at, updated_at
		FROM ratings
		WHERE ong_id = $1
		ORDER BY created_at DESC, id DESC`, ongID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings: %w", err)
	}
	defer rows.Close()

	var out []Rating
	for rows.Next() {
		var rating Rating
		if err := rows.Scan(&rating.ID, &rating.DonorID, &rating.OngID, &rating.Score,
			&rating.Comment, &rating.CreatedAt, &rating.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rating row: %w", err)
		}
		out = append(out, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rating rows: %w", err)
	}
	return out, nil
}

// Delete removes a donor's rating of an ONG and refreshes the ONG's
// aggregates transactionally.
func (r *PostgresRepository) Delete(ctx context.Context, donorID, ongID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM ratings WHERE donor_id = $1 AND ong_id = $2`, donorID, ongID)
	if err != nil {
		return fmt.Errorf("failed to delete rating: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrRatingNotFound
	}

	if err := refreshAggregates(ctx, tx, ongID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rating delete: %w", err)
	}
	return nil
}

// AggregateForOng computes the current aggregate over stored ratings.
func (r *PostgresRepository) AggregateForOng(ctx context.Context, ongID int64) (Aggregate, error) {
	agg := Aggregate{OngID: ongID, ComputedAt: time.Now()}
	var average sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `
		SELECT AVG(score)::float8, COUNT(*) FROM ratings WHERE ong_id = $1`, ongID,
	).Scan(&average, &agg.Count)
	if err != nil {
		return Aggregate{}, fmt.Errorf("failed to aggregate ratings: %w", err)
	}
	agg.Average = average.Float64
	return agg, nil
}

// refreshAggregates rewrites the ONG's denormalized rating columns
// from the ratings table inside the caller's transaction.
func refreshAggregates(ctx context.Context, tx *sql.Tx, ongID int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE ongs SET
			average_rating = (SELECT AVG(score)::float8 FROM ratings WHERE ong_id = $1),
			number_of_ratings = (SELECT COUNT(*) FROM ratings WHERE ong_id = $1)
		WHERE user_id = $1`, ongID)
	if err != nil {
		return fmt.Errorf("failed to refresh ong rating aggregates: %w", err)
	}
	return nil
}

// PostgresAggregateStore persists reconciled aggregates onto the ongs
// table. Used by the reconcile job.
type PostgresAggregateStore struct {
	db *sql.DB
}

// NewPostgresAggregateStore creates a new PostgresAggregateStore.
func NewPostgresAggregateStore(db *sql.DB) *PostgresAggregateStore {
	return &PostgresAggregateStore{db: db}
}

// SaveAggregate writes an aggregate to the ONG's denormalized columns.
func (s *PostgresAggregateStore) SaveAggregate(ctx context.Context, agg Aggregate) error {
	var average *float64
	if agg.Count > 0 {
		average = &agg.Average
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE ongs SET average_rating = $2, number_of_ratings = $3
		WHERE user_id = $1`, agg.OngID, average, agg.Count)
	if err != nil {
		return fmt.Errorf("failed to save ong rating aggregate: %w", err)
	}
	return nil
}
