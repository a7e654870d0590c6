// Package bankaccount provides models and repository for ONG bank
// accounts, keyed to the ONG's profile.
package bankaccount

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Account types accepted for an ONG bank account.
const (
	TypeChecking = "checking"
	TypeSavings  = "savings"
)

// Field length bounds.
const (
	minAgencyLen  = 3
	maxAgencyLen  = 10
	minAccountLen = 3
	maxAccountLen = 20
)

// Common errors for bank account operations.
var (
	ErrAccountNotFound      = errors.New("bank account not found")
	ErrInvalidAccountType   = errors.New("invalid account type: must be checking or savings")
	ErrInvalidAgencyNumber  = errors.New("agency number must be 3 to 10 characters")
	ErrInvalidAccountNumber = errors.New("account number must be 3 to 20 characters")
	ErrMissingBankName      = errors.New("bank name is required")
)

// BankAccount is an ONG's bank account for receiving donations
// outside the platform.
type BankAccount struct {
	ID            int64     `json:"id"`
	OngProfileID  int64     `json:"ong_profile_id"`
	BankName      string    `json:"bank_name"`
	AgencyNumber  string    `json:"agency_number"`
	AccountNumber string    `json:"account_number"`
	AccountType   string    `json:"account_type"`
	PixKey        *string   `json:"pix_key,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PublicAccount is the donor-facing view of a bank account: just the
// transfer details, no internal identifiers or timestamps.
type PublicAccount struct {
	BankName      string  `json:"bank_name"`
	AgencyNumber  string  `json:"agency_number"`
	AccountNumber string  `json:"account_number"`
	AccountType   string  `json:"account_type"`
	PixKey        *string `json:"pix_key,omitempty"`
}

// Public returns the donor-facing view of the account.
func (a *BankAccount) Public() PublicAccount {
	return PublicAccount{
		BankName:      a.BankName,
		AgencyNumber:  a.AgencyNumber,
		AccountNumber: a.AccountNumber,
		AccountType:   a.AccountType,
		PixKey:        copyPixKey(a.PixKey),
	}
}

// ValidAccountType checks if an account type is one of the known types.
func ValidAccountType(accountType string) bool {
	return accountType == TypeChecking || accountType == TypeSavings
}

// Validate checks the account's fields.
func (a *BankAccount) Validate() error {
	if a.BankName == "" {
		return ErrMissingBankName
	}
	if len(a.AgencyNumber) < minAgencyLen || len(a.AgencyNumber) > maxAgencyLen {
		return ErrInvalidAgencyNumber
	}
	if len(a.AccountNumber) < minAccountLen || len(a.AccountNumber) > maxAccountLen {
		return ErrInvalidAccountNumber
	}
	if !ValidAccountType(a.AccountType) {
		return ErrInvalidAccountType
	}
	return nil
}

// Repository defines the interface for bank account persistence.
type Repository interface {
	// Create stores a new bank account for an ONG profile.
	Create(ctx context.Context, account *BankAccount) error

	// ListByProfile returns an ONG profile's accounts, oldest first.
	ListByProfile(ctx context.Context, ongProfileID int64) ([]BankAccount, error)

	// GetByProfile returns the ONG profile's primary (oldest) account.
	GetByProfile(ctx context.Context, ongProfileID int64) (*BankAccount, error)

	// Update replaces the fields of the profile's primary account.
	Update(ctx context.Context, ongProfileID int64, account *BankAccount) error

	// Delete removes the profile's primary account.
	Delete(ctx context.Context, ongProfileID int64) error
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex; used for testing and development.
type InMemoryRepository struct {
	mu       sync.RWMutex
	nextID   int64
	accounts map[int64]*BankAccount
}

// NewInMemoryRepository creates a new in-memory bank account repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{accounts: make(map[int64]*BankAccount)}
}

// Create stores a new bank account, assigning the next sequential ID.
func (r *InMemoryRepository) Create(_ context.Context, account *BankAccount) error {
	if err := account.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	account.ID = r.nextID
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	r.accounts[account.ID] = copyAccount(account)
	return nil
}

// ListByProfile returns an ONG profile's accounts, oldest first.
func (r *InMemoryRepository) ListByProfile(_ context.Context, ongProfileID int64) ([]BankAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []BankAccount
	for _, account := range r.accounts {
		if account.OngProfileID == ongProfileID {
			out = append(out, *copyAccount(account))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetByProfile returns the profile's primary (oldest) account.
func (r *InMemoryRepository) GetByProfile(_ context.Context, ongProfileID int64) (*BankAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	primary := r.primaryLocked(ongProfileID)
	if primary == nil {
		return nil, ErrAccountNotFound
	}
	return copyAccount(primary), nil
}

// Update replaces the fields of the profile's primary account.
func (r *InMemoryRepository) Update(_ context.Context, ongProfileID int64, account *BankAccount) error {
	if err := account.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	primary := r.primaryLocked(ongProfileID)
	if primary == nil {
		return ErrAccountNotFound
	}

	primary.BankName = account.BankName
	primary.AgencyNumber = account.AgencyNumber
	primary.AccountNumber = account.AccountNumber
	primary.AccountType = account.AccountType
	primary.PixKey = copyPixKey(account.PixKey)
	primary.UpdatedAt = time.Now()
	return nil
}

// Delete removes the profile's primary account.
func (r *InMemoryRepository) Delete(_ context.Context, ongProfileID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	primary := r.primaryLocked(ongProfileID)
	if primary == nil {
		return ErrAccountNotFound
	}
	delete(r.accounts, primary.ID)
	return nil
}

// primaryLocked returns the profile's lowest-ID account.
// Caller must hold at least a read lock.
func (r *InMemoryRepository) primaryLocked(ongProfileID int64) *BankAccount {
	var primary *BankAccount
	for _, account := range r.accounts {
		if account.OngProfileID != ongProfileID {
			continue
		}
		if primary == nil || account.ID < primary.ID {
			primary = account
		}
	}
	return primary
}

func copyAccount(account *BankAccount) *BankAccount {
	copied := *account
	copied.PixKey = copyPixKey(account.PixKey)
	return &copied
}

func copyPixKey(pixKey *string) *string {
	if pixKey == nil {
		return nil
	}
	v := *pixKey
	return &v
}
