// Package api provides HTTP handlers for upload operations.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/doecerto/doecerto/internal/middleware"
	"github.com/doecerto/doecerto/internal/upload"
)

// SignUploadRequest represents the request body for POST /uploads/sign.
// Kind selects the bucket prefix: avatars, ongs or items.
type SignUploadRequest struct {
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	Kind        string `json:"kind"`
}

// SignUploadResponse represents the response for POST /uploads/sign.
type SignUploadResponse struct {
	URL       string `json:"url"`
	Key       string `json:"key"`
	ExpiresAt string `json:"expires_at"` // ISO 8601 format
}

// UploadHandlers holds dependencies for upload HTTP handlers.
type UploadHandlers struct {
	uploadService *upload.Service
}

// NewUploadHandlers creates a new UploadHandlers instance.
func NewUploadHandlers(uploadService *upload.Service) *UploadHandlers {
	return &UploadHandlers{
		uploadService: uploadService,
	}
}

// SignUpload handles POST /uploads/sign - generates a pre-signed upload
// URL owned by the authenticated account.
func (h *UploadHandlers) SignUpload(w http.ResponseWriter, r *http.Request) {
	var req SignUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if req.ContentType == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "content_type is required")
		return
	}
	if req.SizeBytes <= 0 {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "size_bytes must be positive")
		return
	}

	ownerID := strconv.FormatInt(middleware.GetUserID(r.Context()), 10)

	signedURL, err := h.uploadService.GenerateSignedURL(r.Context(), upload.SignedURLRequest{
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		Kind:        req.Kind,
		OwnerID:     &ownerID,
	})
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrUnsupportedType):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeUnsupportedType)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeUnsupportedType,
				"Unsupported content type. Allowed types: image/jpeg, image/png, image/webp")
		case errors.Is(err, upload.ErrFileTooLarge):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "File size exceeds maximum allowed")
		case errors.Is(err, upload.ErrInvalidKind):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Invalid upload kind")
		default:
			slog.ErrorContext(r.Context(), "failed to generate signed URL", "error", err)
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to generate signed URL")
		}
		return
	}

	response := SignUploadResponse{
		URL:       signedURL.URL,
		Key:       signedURL.Key,
		ExpiresAt: signedURL.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
		return
	}
}
