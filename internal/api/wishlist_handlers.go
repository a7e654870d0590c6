package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/doecerto/doecerto/internal/middleware"
	"github.com/doecerto/doecerto/internal/wishlist"
)

// WishlistHandlers holds dependencies for wishlist handlers.
type WishlistHandlers struct {
	items wishlist.Repository
}

// NewWishlistHandlers creates a new WishlistHandlers instance.
func NewWishlistHandlers(items wishlist.Repository) *WishlistHandlers {
	return &WishlistHandlers{items: items}
}

// WishlistItemRequest is the payload for creating or updating an item.
type WishlistItemRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Quantity    int     `json:"quantity"`
	Urgency     string  `json:"urgency"`
}

// wishlistItemIDFromPath extracts the item ID from /me/wishlist/{id}.
func wishlistItemIDFromPath(path string) (int64, bool) {
	part := strings.TrimPrefix(path, "/me/wishlist/")
	if i := strings.IndexByte(part, '/'); i >= 0 {
		part = part[:i]
	}
	id, err := strconv.ParseInt(part, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ListOngWishlist handles GET /ongs/{id}/wishlist: the public view of an
// ONG's needs, most urgent first.
func (h *WishlistHandlers) ListOngWishlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ongID, ok := ongIDFromPath(r.URL.Path)
	if !ok {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid ONG id")
		return
	}

	items, err := h.items.ListByOng(ctx, ongID)
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to list wishlist")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// CreateItem handles POST /me/wishlist.
func (h *WishlistHandlers) CreateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req WishlistItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "name is required")
		return
	}

	item := &wishlist.Item{
		OngID:       middleware.GetUserID(ctx),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Quantity:    req.Quantity,
		Urgency:     req.Urgency,
	}
	if err := h.items.Create(ctx, item); err != nil {
		writeWishlistError(w, ctx, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// UpdateItem handles PUT /me/wishlist/{id}.
func (h *WishlistHandlers) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := wishlistItemIDFromPath(r.URL.Path)
	if !ok {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid item id")
		return
	}

	var req WishlistItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	item := &wishlist.Item{
		ID:          id,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Quantity:    req.Quantity,
		Urgency:     req.Urgency,
	}
	if err := h.items.Update(ctx, middleware.GetUserID(ctx), item); err != nil {
		writeWishlistError(w, ctx, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// DeleteItem handles DELETE /me/wishlist/{id}.
func (h *WishlistHandlers) DeleteItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := wishlistItemIDFromPath(r.URL.Path)
	if !ok {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid item id")
		return
	}

	if err := h.items.Delete(ctx, middleware.GetUserID(ctx), id); err != nil {
		writeWishlistError(w, ctx, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeWishlistError(w http.ResponseWriter, ctx context.Context, err error) {
	switch {
	case errors.Is(err, wishlist.ErrItemNotFound):
		ctx = middleware.SetErrorCode(ctx, ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "wishlist item not found")
	case errors.Is(err, wishlist.ErrNotOwner):
		ctx = middleware.SetErrorCode(ctx, ErrCodeForbidden)
		WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "wishlist item belongs to another ONG")
	case errors.Is(err, wishlist.ErrInvalidQuantity), errors.Is(err, wishlist.ErrInvalidUrgency):
		ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
	default:
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "wishlist operation failed")
	}
}
