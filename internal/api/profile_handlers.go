package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/doecerto/doecerto/internal/middleware"
	"github.com/doecerto/doecerto/internal/profile"
	"github.com/doecerto/doecerto/internal/user"
)

// ProfileHandlers holds dependencies for ONG and donor profile handlers.
type ProfileHandlers struct {
	profiles profile.Repository
}

// NewProfileHandlers creates a new ProfileHandlers instance.
func NewProfileHandlers(profiles profile.Repository) *ProfileHandlers {
	return &ProfileHandlers{profiles: profiles}
}

// OngProfileRequest is the payload for creating or updating an ONG profile.
type OngProfileRequest struct {
	Bio           *string `json:"bio"`
	ContactNumber *string `json:"contact_number"`
	WebsiteURL    *string `json:"website_url"`
	CategoryIDs   []int64 `json:"category_ids"`
}

// DonorProfileRequest is the payload for creating or updating a donor profile.
type DonorProfileRequest struct {
	Bio           *string `json:"bio"`
	ContactNumber *string `json:"contact_number"`
}

// UpsertMyProfile handles PUT /me/profile. The authenticated role decides
// which profile kind is written; the media fields are managed by the
// upload flow and cannot be set here.
func (h *ProfileHandlers) UpsertMyProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	switch middleware.GetUserRole(ctx) {
	case user.RoleOng:
		var req OngProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
			return
		}
		p := &profile.OngProfile{
			OngID:         userID,
			Bio:           req.Bio,
			ContactNumber: req.ContactNumber,
			WebsiteURL:    req.WebsiteURL,
			CategoryIDs:   req.CategoryIDs,
		}
		if err := h.profiles.UpsertOngProfile(ctx, p); err != nil {
			ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to save profile")
			return
		}
		writeJSON(w, http.StatusOK, p)

	case user.RoleDonor:
		var req DonorProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
			return
		}
		p := &profile.DonorProfile{
			DonorID:       userID,
			Bio:           req.Bio,
			ContactNumber: req.ContactNumber,
		}
		if err := h.profiles.UpsertDonorProfile(ctx, p); err != nil {
			ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to save profile")
			return
		}
		writeJSON(w, http.StatusOK, p)

	default:
		ctx = middleware.SetErrorCode(ctx, ErrCodeForbidden)
		WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "admins do not have profiles")
	}
}

// OngMediaRequest is the payload for attaching uploaded media to an ONG
// profile. Nil fields leave the existing reference untouched.
type OngMediaRequest struct {
	AvatarURL *string `json:"avatar_url"`
	BannerURL *string `json:"banner_url"`
}

// SetMyOngMedia handles PUT /me/profile/media: records avatar and banner
// object keys produced by the signed upload flow.
func (h *ProfileHandlers) SetMyOngMedia(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req OngMediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	ongID := middleware.GetUserID(ctx)
	if err := h.profiles.SetOngMedia(ctx, ongID, req.AvatarURL, req.BannerURL); err != nil {
		if errors.Is(err, profile.ErrProfileNotFound) {
			ctx = middleware.SetErrorCode(ctx, ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "profile not found")
			return
		}
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to update media")
		return
	}

	p, err := h.profiles.GetOngProfile(ctx, ongID)
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to reload profile")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetOngProfile handles GET /ongs/{id}/profile.
func (h *ProfileHandlers) GetOngProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := ongIDFromPath(r.URL.Path)
	if !ok {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid ONG id")
		return
	}

	p, err := h.profiles.GetOngProfile(ctx, id)
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetDonorProfile handles GET /donors/{id}/profile.
func (h *ProfileHandlers) GetDonorProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	part := strings.TrimPrefix(r.URL.Path, "/donors/")
	if i := strings.IndexByte(part, '/'); i >= 0 {
		part = part[:i]
	}
	id, err := strconv.ParseInt(part, 10, 64)
	if err != nil || id <= 0 {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid donor id")
		return
	}

	p, err := h.profiles.GetDonorProfile(ctx, id)
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
