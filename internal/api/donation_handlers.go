package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/doecerto/doecerto/internal/donation"
	"github.com/doecerto/doecerto/internal/middleware"
	"github.com/doecerto/doecerto/internal/ong"
	"github.com/doecerto/doecerto/internal/user"
	"github.com/doecerto/doecerto/internal/wishlist"
)

// DonationHandlers holds dependencies for in-kind donation handlers.
type DonationHandlers struct {
	donations donation.Repository
	ongs      ong.Repository
	items     wishlist.Repository
}

// NewDonationHandlers creates a new DonationHandlers instance.
func NewDonationHandlers(donations donation.Repository, ongs ong.Repository, items wishlist.Repository) *DonationHandlers {
	return &DonationHandlers{donations: donations, ongs: ongs, items: items}
}

// CreateDonationRequest is the payload for pledging an in-kind donation.
type CreateDonationRequest struct {
	OngID          int64   `json:"ong_id"`
	WishlistItemID *int64  `json:"wishlist_item_id"`
	Quantity       int     `json:"quantity"`
	Note           *string `json:"note"`
}

// donationIDFromPath extracts the donation ID from /donations/{id}[/action].
func donationIDFromPath(path string) (int64, bool) {
	part := strings.TrimPrefix(path, "/donations/")
	if i := strings.IndexByte(part, '/'); i >= 0 {
		part = part[:i]
	}
	id, err := strconv.ParseInt(part, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// CreateDonation handles POST /donations. Only verified ONGs can receive
// pledges; a wishlist item reference must belong to the target ONG.
func (h *DonationHandlers) CreateDonation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateDonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	target, err := h.ongs.GetByUserID(ctx, req.OngID)
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "ONG not found")
		return
	}
	if !target.Verified() {
		ctx = middleware.SetErrorCode(ctx, ErrCodeOngNotVerified)
		WriteError(w, ctx, http.StatusUnprocessableEntity, ErrCodeOngNotVerified, "ONG has not been verified yet")
		return
	}

	if req.WishlistItemID != nil {
		item, err := h.items.GetByID(ctx, *req.WishlistItemID)
		if err != nil || item.OngID != req.OngID {
			ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "wishlist item does not belong to this ONG")
			return
		}
	}

	d := &donation.Donation{
		DonorID:        middleware.GetUserID(ctx),
		OngID:          req.OngID,
		WishlistItemID: req.WishlistItemID,
		Quantity:       req.Quantity,
		Note:           req.Note,
	}
	if err := h.donations.Create(ctx, d); err != nil {
		if errors.Is(err, donation.ErrInvalidQuantity) {
			ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "quantity must be positive")
			return
		}
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to create donation")
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// GetDonation handles GET /donations/{id}. Only the donor, the ONG, or
// an admin may view a donation.
func (h *DonationHandlers) GetDonation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := donationIDFromPath(r.URL.Path)
	if !ok {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid donation id")
		return
	}

	d, err := h.donations.GetByID(ctx, id)
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "donation not found")
		return
	}

	userID := middleware.GetUserID(ctx)
	if d.DonorID != userID && d.OngID != userID && middleware.GetUserRole(ctx) != user.RoleAdmin {
		ctx = middleware.SetErrorCode(ctx, ErrCodeForbidden)
		WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "donation belongs to another account")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ListMyDonations handles GET /me/donations: the caller's donations as
// donor or as receiving ONG, newest first.
func (h *DonationHandlers) ListMyDonations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var (
		donations []donation.Donation
		err       error
	)
	if middleware.GetUserRole(ctx) == user.RoleOng {
		donations, err = h.donations.ListByOng(ctx, userID)
	} else {
		donations, err = h.donations.ListByDonor(ctx, userID)
	}
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to list donations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"donations": donations})
}

// ConfirmDonation handles POST /donations/{id}/confirm. ONG only.
func (h *DonationHandlers) ConfirmDonation(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, actorID, id int64) error {
		return h.donations.Confirm(ctx, actorID, id)
	})
}

// DeliverDonation handles POST /donations/{id}/deliver. ONG only.
func (h *DonationHandlers) DeliverDonation(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, actorID, id int64) error {
		return h.donations.MarkDelivered(ctx, actorID, id)
	})
}

// CancelDonation handles POST /donations/{id}/cancel. The donor may
// cancel while pending; the ONG until delivery.
func (h *DonationHandlers) CancelDonation(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, actorID, id int64) error {
		return h.donations.Cancel(ctx, actorID, id)
	})
}

func (h *DonationHandlers) transition(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, actorID, id int64) error) {
	ctx := r.Context()

	id, ok := donationIDFromPath(r.URL.Path)
	if !ok {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid donation id")
		return
	}

	if err := apply(ctx, middleware.GetUserID(ctx), id); err != nil {
		switch {
		case errors.Is(err, donation.ErrDonationNotFound):
			ctx = middleware.SetErrorCode(ctx, ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "donation not found")
		case errors.Is(err, donation.ErrNotParticipant):
			ctx = middleware.SetErrorCode(ctx, ErrCodeForbidden)
			WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "donation belongs to another account")
		case errors.Is(err, donation.ErrInvalidTransition):
			ctx = middleware.SetErrorCode(ctx, ErrCodeInvalidTransition)
			WriteError(w, ctx, http.StatusConflict, ErrCodeInvalidTransition, "donation status does not allow this change")
		default:
			ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to update donation")
		}
		return
	}

	d, err := h.donations.GetByID(ctx, id)
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to reload donation")
		return
	}
	writeJSON(w, http.StatusOK, d)
}
