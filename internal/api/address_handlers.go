package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/doecerto/doecerto/internal/address"
	"github.com/doecerto/doecerto/internal/middleware"
	"github.com/doecerto/doecerto/internal/user"
)

// AddressHandlers holds dependencies for address handlers.
type AddressHandlers struct {
	addresses *address.Service
}

// NewAddressHandlers creates a new AddressHandlers instance.
func NewAddressHandlers(addresses *address.Service) *AddressHandlers {
	return &AddressHandlers{addresses: addresses}
}

// AddressRequest is the payload for creating or replacing the caller's
// address. The owner is taken from the authenticated identity.
type AddressRequest struct {
	Street       string  `json:"street"`
	Number       string  `json:"number"`
	Complement   *string `json:"complement"`
	Neighborhood string  `json:"neighborhood"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	ZipCode      string  `json:"zip_code"`
	Country      string  `json:"country"`
}

// addressFromRequest builds an Address owned by the authenticated user.
func addressFromRequest(userID int64, role string, req *AddressRequest) *address.Address {
	a := &address.Address{
		Street:       req.Street,
		Number:       req.Number,
		Complement:   req.Complement,
		Neighborhood: req.Neighborhood,
		City:         req.City,
		State:        req.State,
		ZipCode:      req.ZipCode,
		Country:      req.Country,
	}
	switch role {
	case user.RoleDonor:
		a.DonorID = &userID
	case user.RoleOng:
		a.OngID = &userID
	}
	return a
}

// CreateMyAddress handles POST /me/address.
func (h *AddressHandlers) CreateMyAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req AddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	a := addressFromRequest(middleware.GetUserID(ctx), middleware.GetUserRole(ctx), &req)
	if err := h.addresses.Create(ctx, a); err != nil {
		switch {
		case errors.Is(err, address.ErrAlreadyExists):
			ctx = middleware.SetErrorCode(ctx, ErrCodeConflict)
			WriteError(w, ctx, http.StatusConflict, ErrCodeConflict, "account already has an address")
		case errors.Is(err, address.ErrAmbiguousOwner):
			ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "address must belong to a donor or an ONG")
		default:
			ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to save address")
		}
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// UpdateMyAddress handles PUT /me/address. The address is re-geocoded
// with the new fields.
func (h *AddressHandlers) UpdateMyAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req AddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	existing, err := h.addresses.GetByOwner(ctx, userID)
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "address not found")
		return
	}

	a := addressFromRequest(userID, middleware.GetUserRole(ctx), &req)
	a.ID = existing.ID
	if err := h.addresses.Update(ctx, a); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to save address")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// GetMyAddress handles GET /me/address.
func (h *AddressHandlers) GetMyAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	a, err := h.addresses.GetByOwner(ctx, middleware.GetUserID(ctx))
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "address not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}
