package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/doecerto/doecerto/internal/middleware"
	"github.com/doecerto/doecerto/internal/ong"
	"github.com/doecerto/doecerto/internal/rating"
)

// RatingHandlers holds dependencies for rating handlers.
type RatingHandlers struct {
	ratings *rating.Service
	ongs    ong.Repository
}

// NewRatingHandlers creates a new RatingHandlers instance.
func NewRatingHandlers(ratings *rating.Service, ongs ong.Repository) *RatingHandlers {
	return &RatingHandlers{ratings: ratings, ongs: ongs}
}

// RateRequest is the payload for rating an ONG. Submitting a second
// rating for the same ONG replaces the first.
type RateRequest struct {
	Score   int     `json:"score"`
	Comment *string `json:"comment"`
}

// RateOng handles PUT /ongs/{id}/rating.
func (h *RatingHandlers) RateOng(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ongID, ok := ongIDFromPath(r.URL.Path)
	if !ok {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid ONG id")
		return
	}

	var req RateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	if _, err := h.ongs.GetByUserID(ctx, ongID); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "ONG not found")
		return
	}

	rt := &rating.Rating{
		DonorID: middleware.GetUserID(ctx),
		OngID:   ongID,
		Score:   req.Score,
		Comment: req.Comment,
	}
	if err := h.ratings.Rate(ctx, rt); err != nil {
		if errors.Is(err, rating.ErrInvalidScore) {
			ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "score must be between 1 and 5")
			return
		}
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to save rating")
		return
	}
	writeJSON(w, http.StatusOK, rt)
}

// DeleteMyRating handles DELETE /ongs/{id}/rating.
func (h *RatingHandlers) DeleteMyRating(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ongID, ok := ongIDFromPath(r.URL.Path)
	if !ok {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid ONG id")
		return
	}

	if err := h.ratings.Remove(ctx, middleware.GetUserID(ctx), ongID); err != nil {
		if errors.Is(err, rating.ErrRatingNotFound) {
			ctx = middleware.SetErrorCode(ctx, ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "rating not found")
			return
		}
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to delete rating")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListOngRatings handles GET /ongs/{id}/ratings.
func (h *RatingHandlers) ListOngRatings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ongID, ok := ongIDFromPath(r.URL.Path)
	if !ok {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid ONG id")
		return
	}

	ratings, err := h.ratings.ListByOng(ctx, ongID)
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to list ratings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ratings": ratings})
}
