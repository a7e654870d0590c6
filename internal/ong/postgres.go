package ong

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

const ongColumns = `
	o.user_id, u.name, o.cnpj, o.verification_status,
	o.verified_at, o.verified_by, o.rejection_reason, o.stripe_account_id,
	o.average_rating, o.number_of_ratings, o.created_at`

// Create registers a new ONG row in the pending state. The backing user
// row must already exist.
func (r *PostgresRepository) Create(ctx context.Context, o *Ong) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO ongs (user_id, cnpj)
		VALUES ($1, $2)
		RETURNING verification_status, created_at`,
		o.UserID, o.CNPJ,
	).Scan(&o.VerificationStatus, &o.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrCNPJTaken
		}
		return fmt.Errorf("failed to insert ong: %w", err)
	}
	return nil
}

// GetByUserID retrieves an ONG by its backing user ID.
func (r *PostgresRepository) GetByUserID(ctx context.Context, userID int64) (*Ong, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+ongColumns+`
		FROM ongs o JOIN users u ON u.id = o.user_id
		WHERE o.user_id = $1`, userID)
	o, err := scanOng(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOngNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// ListByStatus returns ONGs in the given status, oldest first.
func (r *PostgresRepository) ListByStatus(ctx context.Context, status string) ([]Ong, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+ongColumns+`
		FROM ongs o JOIN users u ON u.id = o.user_id
		WHERE o.verification_status = $1
		ORDER BY o.created_at ASC, o.user_id ASC`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query ongs: %w", err)
	}
	defer rows.Close()

	var out []Ong
	for rows.Next() {
		o, err := scanOng(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ong rows: %w", err)
	}
	return out, nil
}

// Verify approves a pending ONG. The status guard in the WHERE clause
// makes the decision final without a read-modify-write race.
func (r *PostgresRepository) Verify(ctx context.Context, userID, adminID int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE ongs
		SET verification_status = 'verified', verified_at = now(),
		    verified_by = $2, rejection_reason = NULL
		WHERE user_id = $1 AND verification_status = 'pending'`,
		userID, adminID)
	if err != nil {
		return fmt.Errorf("failed to verify ong: %w", err)
	}
	return r.decisionOutcome(ctx, res, userID)
}

// Reject declines a pending ONG with a mandatory reason.
func (r *PostgresRepository) Reject(ctx context.Context, userID, adminID int64, reason string) error {
	if reason == "" {
		return ErrMissingReason
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE ongs
		SET verification_status = 'rejected', verified_at = now(),
		    verified_by = $2, rejection_reason = $3
		WHERE user_id = $1 AND verification_status = 'pending'`,
		userID, adminID, reason)
	if err != nil {
		return fmt.Errorf("failed to reject ong: %w", err)
	}
	return r.decisionOutcome(ctx, res, userID)
}

// SetStripeAccount records the connected Stripe account for a verified ONG.
func (r *PostgresRepository) SetStripeAccount(ctx context.Context, userID int64, accountID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE ongs SET stripe_account_id = $2
		WHERE user_id = $1 AND verification_status = 'verified'`,
		userID, accountID)
	if err != nil {
		return fmt.Errorf("failed to set stripe account: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := r.GetByUserID(ctx, userID); err != nil {
			return err
		}
		return ErrNotVerified
	}
	return nil
}

// decisionOutcome distinguishes a missing ONG from an already decided one
// when a guarded verification update matched no rows.
func (r *PostgresRepository) decisionOutcome(ctx context.Context, res sql.Result, userID int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	if _, err := r.GetByUserID(ctx, userID); err != nil {
		return err
	}
	return ErrAlreadyDecided
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanOng(row rowScanner) (*Ong, error) {
	var (
		o               Ong
		verifiedAt      sql.NullTime
		verifiedBy      sql.NullInt64
		rejectionReason sql.NullString
		stripeAccountID sql.NullString
		averageRating   sql.NullFloat64
	)
	err := row.Scan(&o.UserID, &o.Name, &o.CNPJ, &o.VerificationStatus,
		&verifiedAt, &verifiedBy, &rejectionReason, &stripeAccountID,
		&averageRating, &o.NumberOfRatings, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan ong row: %w", err)
	}
	if verifiedAt.Valid {
		o.VerifiedAt = &verifiedAt.Time
	}
	if verifiedBy.Valid {
		o.VerifiedBy = &verifiedBy.Int64
	}
	if rejectionReason.Valid {
		o.RejectionReason = &rejectionReason.String
	}
	if stripeAccountID.Valid {
		o.StripeAccountID = &stripeAccountID.String
	}
	if averageRating.Valid {
		o.AverageRating = &averageRating.Float64
	}
	return &o, nil
}
