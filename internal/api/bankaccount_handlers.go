package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/doecerto/doecerto/internal/audit"
	"github.com/doecerto/doecerto/internal/bankaccount"
	"github.com/doecerto/doecerto/internal/middleware"
	"github.com/doecerto/doecerto/internal/profile"
)

// BankAccountHandlers holds dependencies for ONG bank account handlers.
// Every view or change of raw account data leaves an audit trail.
type BankAccountHandlers struct {
	accounts  bankaccount.Repository
	profiles  profile.Repository
	auditRepo audit.Repository
}

// NewBankAccountHandlers creates a new BankAccountHandlers instance.
func NewBankAccountHandlers(accounts bankaccount.Repository, profiles profile.Repository, auditRepo audit.Repository) *BankAccountHandlers {
	return &BankAccountHandlers{accounts: accounts, profiles: profiles, auditRepo: auditRepo}
}

// BankAccountRequest is the payload for creating or replacing the
// primary bank account.
type BankAccountRequest struct {
	BankName      string  `json:"bank_name"`
	AgencyNumber  string  `json:"agency_number"`
	AccountNumber string  `json:"account_number"`
	AccountType   string  `json:"account_type"`
	PixKey        *string `json:"pix_key"`
}

// profileIDFor resolves the caller's ONG profile ID; bank accounts hang
// off the profile row, not the user row.
func (h *BankAccountHandlers) profileIDFor(w http.ResponseWriter, r *http.Request) (int64, bool) {
	ctx := r.Context()
	p, err := h.profiles.GetOngProfile(ctx, middleware.GetUserID(ctx))
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "create an ONG profile before adding bank accounts")
		return 0, false
	}
	return p.ID, true
}

func (h *BankAccountHandlers) auditBankAccess(w http.ResponseWriter, r *http.Request, profileID int64, action string) bool {
	ctx := r.Context()
	if err := audit.LogAccessFromRequest(r, h.auditRepo, "bank_account", strconv.FormatInt(profileID, 10), action); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "audit logging failed")
		return false
	}
	return true
}

func writeBankAccountError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, bankaccount.ErrAccountNotFound):
		ctx = middleware.SetErrorCode(ctx, ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "bank account not found")
	case errors.Is(err, bankaccount.ErrInvalidAccountType),
		errors.Is(err, bankaccount.ErrInvalidAgencyNumber),
		errors.Is(err, bankaccount.ErrInvalidAccountNumber),
		errors.Is(err, bankaccount.ErrMissingBankName):
		ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
	default:
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "bank account operation failed")
	}
}

// CreateAccount handles POST /me/bank-accounts.
func (h *BankAccountHandlers) CreateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profileID, ok := h.profileIDFor(w, r)
	if !ok {
		return
	}

	var req BankAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	if !h.auditBankAccess(w, r, profileID, "modify_bank_account") {
		return
	}

	account := &bankaccount.BankAccount{
		OngProfileID:  profileID,
		BankName:      req.BankName,
		AgencyNumber:  req.AgencyNumber,
		AccountNumber: req.AccountNumber,
		AccountType:   req.AccountType,
		PixKey:        req.PixKey,
	}
	if err := h.accounts.Create(ctx, account); err != nil {
		writeBankAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// ListMyAccounts handles GET /me/bank-accounts: the ONG's own accounts
// with full detail.
func (h *BankAccountHandlers) ListMyAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profileID, ok := h.profileIDFor(w, r)
	if !ok {
		return
	}
	if !h.auditBankAccess(w, r, profileID, "view_bank_account") {
		return
	}

	accounts, err := h.accounts.ListByProfile(ctx, profileID)
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to list bank accounts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

// UpdatePrimaryAccount handles PUT /me/bank-accounts: replaces the
// primary (oldest) account in place.
func (h *BankAccountHandlers) UpdatePrimaryAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profileID, ok := h.profileIDFor(w, r)
	if !ok {
		return
	}

	var req BankAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	if !h.auditBankAccess(w, r, profileID, "modify_bank_account") {
		return
	}

	account := &bankaccount.BankAccount{
		BankName:      req.BankName,
		AgencyNumber:  req.AgencyNumber,
		AccountNumber: req.AccountNumber,
		AccountType:   req.AccountType,
		PixKey:        req.PixKey,
	}
	if err := h.accounts.Update(ctx, profileID, account); err != nil {
		writeBankAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// DeletePrimaryAccount handles DELETE /me/bank-accounts.
func (h *BankAccountHandlers) DeletePrimaryAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profileID, ok := h.profileIDFor(w, r)
	if !ok {
		return
	}
	if !h.auditBankAccess(w, r, profileID, "modify_bank_account") {
		return
	}

	if err := h.accounts.Delete(ctx, profileID); err != nil {
		writeBankAccountError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPublicAccount handles GET /ongs/{id}/bank-account: the redacted
// donor-facing view of the ONG's primary account.
func (h *BankAccountHandlers) GetPublicAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ongID, ok := ongIDFromPath(r.URL.Path)
	if !ok {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid ONG id")
		return
	}

	p, err := h.profiles.GetOngProfile(ctx, ongID)
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "bank account not found")
		return
	}

	account, err := h.accounts.GetByProfile(ctx, p.ID)
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "bank account not found")
		return
	}
	writeJSON(w, http.StatusOK, account.Public())
}
