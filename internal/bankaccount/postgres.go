package bankaccount

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const accountColumns = `id, ong_profile_id, bank_name, agency_number, account_number, account_type, pix_key, created_at, updated_at`

// PostgresRepository implements Repository over PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create stores a new bank account and writes the generated fields back.
func (r *PostgresRepository) Create(ctx context.Context, account *BankAccount) error {
	if err := account.Validate(); err != nil {
		return err
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO ong_bank_accounts (ong_profile_id, bank_name, agency_number, account_number, account_type, pix_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		account.OngProfileID, account.BankName, account.AgencyNumber,
		account.AccountNumber, account.AccountType, account.PixKey,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert bank account: %w", err)
	}
	return nil
}

// ListByProfile returns an ONG profile's accounts, oldest first.
func (r *PostgresRepository) ListByProfile(ctx context.Context, ongProfileID int64) ([]BankAccount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+accountColumns+` FROM ong_bank_accounts
		WHERE ong_profile_id = $1
		ORDER BY id`, ongProfileID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bank accounts: %w", err)
	}
	defer rows.Close()

	var out []BankAccount
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read bank account rows: %w", err)
	}
	return out, nil
}

// GetByProfile returns the profile's primary (oldest) account.
func (r *PostgresRepository) GetByProfile(ctx context.Context, ongProfileID int64) (*BankAccount, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+` FROM ong_bank_accounts
		WHERE ong_profile_id = $1
		ORDER BY id
		LIMIT 1`, ongProfileID)
	return scanAccount(row)
}

// Update replaces the fields of the profile's primary account.
func (r *PostgresRepository) Update(ctx context.Context, ongProfileID int64, account *BankAccount) error {
	if err := account.Validate(); err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE ong_bank_accounts
		SET bank_name = $2, agency_number = $3, account_number = $4,
		    account_type = $5, pix_key = $6, updated_at = now()
		WHERE id = (
			SELECT id FROM ong_bank_accounts
			WHERE ong_profile_id = $1 ORDER BY id LIMIT 1)`,
		ongProfileID, account.BankName, account.AgencyNumber,
		account.AccountNumber, account.AccountType, account.PixKey)
	if err != nil {
		return fmt.Errorf("failed to update bank account: %w", err)
	}
	return noneAffectedIsNotFound(res)
}

// Delete removes the profile's primary account.
func (r *PostgresRepository) Delete(ctx context.Context, ongProfileID int64) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM ong_bank_accounts
		WHERE id = (
			SELECT id FROM ong_bank_accounts
			WHERE ong_profile_id = $1 ORDER BY id LIMIT 1)`, ongProfileID)
	if err != nil {
		return fmt.Errorf("failed to delete bank account: %w", err)
	}
	return noneAffectedIsNotFound(res)
}

func noneAffectedIsNotFound(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*BankAccount, error) {
	var account BankAccount
	err := row.Scan(&account.ID, &account.OngProfileID, &account.BankName,
		&account.AgencyNumber, &account.AccountNumber, &account.AccountType,
		&account.PixKey, &account.CreatedAt, &account.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan bank account row: %w", err)
	}
	return &account, nil
}
