package donation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const donationColumns = `id, donor_id, ong_id, wishlist_item_id, quantity, status, note, created_at, updated_at`

// PostgresRepository implements Repository over PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create stores a new pending donation and writes the generated
// fields back.
func (r *PostgresRepository) Create(ctx context.Context, donation *Donation) error {
	if donation.Quantity <= 0 {
		return ErrInvalidQuantity
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO donations (donor_id, ong_id, wishlist_item_id, quantity, note)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, status, created_at, updated_at`,
		donation.DonorID, donation.OngID, donation.WishlistItemID,
		donation.Quantity, donation.Note,
	).Scan(&donation.ID, &donation.Status, &donation.CreatedAt, &donation.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert donation: %w", err)
	}
	return nil
}

// GetByID retrieves a donation by ID.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Donation, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+donationColumns+` FROM donations WHERE id = $1`, id)
	return scanDonation(row)
}

// ListByDonor returns a donor's donations, newest first.
func (r *PostgresRepository) ListByDonor(ctx context.Context, donorID int64) ([]Donation, error) {
	return r.list(ctx, `
		SELECT `+donationColumns+` FROM donations
		WHERE donor_id = $1
		ORDER BY created_at DESC, id DESC`, donorID)
}

// ListByOng returns an ONG's incoming donations, newest first.
func (r *PostgresRepository) ListByOng(ctx context.Context, ongID int64) ([]Donation, error) {
	return r.list(ctx, `
		SELECT `+donationColumns+` FROM donations
		WHERE ong_id = $1
		ORDER BY created_at DESC, id DESC`, ongID)
}

func (r *PostgresRepository) list(ctx context.Context, query string, arg int64) ([]Donation, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query donations: %w", err)
	}
	defer rows.Close()

	var out []Donation
	for rows.Next() {
		donation, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *donation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read donation rows: %w", err)
	}
	return out, nil
}

// Confirm moves a pending donation to confirmed.
func (r *PostgresRepository) Confirm(ctx context.Context, ongID, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE donations
		SET status = 'confirmed', updated_at = now()
		WHERE id = $1 AND ong_id = $2 AND status = 'pending'`, id, ongID)
	if err != nil {
		return fmt.Errorf("failed to confirm donation: %w", err)
	}
	return r.transitionOutcome(ctx, res, id, ongID, false)
}

// MarkDelivered moves a confirmed donation to delivered.
func (r *PostgresRepository) MarkDelivered(ctx context.Context, ongID, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE donations
		SET status = 'delivered', updated_at = now()
		WHERE id = $1 AND ong_id = $2 AND status = 'confirmed'`, id, ongID)
	if err != nil {
		return fmt.Errorf("failed to mark donation delivered: %w", err)
	}
	return r.transitionOutcome(ctx, res, id, ongID, false)
}

// Cancel moves a donation to cancelled. The donor may cancel while
// pending; the ONG may cancel while pending or confirmed.
func (r *PostgresRepository) Cancel(ctx context.Context, actorID, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE donations
		SET status = 'cancelled', updated_at = now()
		WHERE id = $1
		  AND ((ong_id = $2 AND status IN ('pending', 'confirmed'))
		    OR (donor_id = $2 AND status = 'pending'))`, id, actorID)
	if err != nil {
		return fmt.Errorf("failed to cancel donation: %w", err)
	}
	return r.transitionOutcome(ctx, res, id, actorID, true)
}

// transitionOutcome distinguishes a missing donation, a foreign one,
// and an invalid status when a guarded transition matched no rows.
func (r *PostgresRepository) transitionOutcome(ctx context.Context, res sql.Result, id, actorID int64, donorMayAct bool) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	donation, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if donation.OngID != actorID && !(donorMayAct && donation.DonorID == actorID) {
		return ErrNotParticipant
	}
	return ErrInvalidTransition
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDonation(row rowScanner) (*Donation, error) {
	var donation Donation
	err := row.Scan(&donation.ID, &donation.DonorID, &donation.OngID,
		&donation.WishlistItemID, &donation.Quantity, &donation.Status,
		&donation.Note, &donation.CreatedAt, &donation.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDonationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan donation row: %w", err)
	}
	return &donation, nil
}
