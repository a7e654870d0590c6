package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/doecerto/doecerto/internal/category"
	"github.com/doecerto/doecerto/internal/middleware"
)

// CategoryHandlers holds dependencies for category handlers.
type CategoryHandlers struct {
	categories category.Repository
}

// NewCategoryHandlers creates a new CategoryHandlers instance.
func NewCategoryHandlers(categories category.Repository) *CategoryHandlers {
	return &CategoryHandlers{categories: categories}
}

// ListCategories handles GET /categories.
func (h *CategoryHandlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	all, err := h.categories.List(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list categories", "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to list categories")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": all})
}

// CreateCategoryRequest represents the request body for creating a category.
type CreateCategoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// CreateCategory handles POST /admin/categories.
func (h *CategoryHandlers) CreateCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON in request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "name is required")
		return
	}

	c := &category.Category{Name: name, Color: strings.TrimSpace(req.Color)}
	if err := h.categories.Create(ctx, c); err != nil {
		if errors.Is(err, category.ErrNameTaken) {
			ctx = middleware.SetErrorCode(ctx, ErrCodeConflict)
			WriteError(w, ctx, http.StatusConflict, ErrCodeConflict, "category name already exists")
			return
		}
		if errors.Is(err, category.ErrInvalidColor) {
			ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "color must be a #RRGGBB hex value")
			return
		}
		slog.ErrorContext(ctx, "failed to create category", "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to create category")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// DeleteCategory handles DELETE /admin/categories/{id}.
func (h *CategoryHandlers) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw := strings.TrimPrefix(r.URL.Path, "/admin/categories/")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid category id")
		return
	}

	if err := h.categories.Delete(ctx, id); err != nil {
		if errors.Is(err, category.ErrCategoryNotFound) {
			ctx = middleware.SetErrorCode(ctx, ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "category not found")
			return
		}
		slog.ErrorContext(ctx, "failed to delete category", "category_id", id, "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to delete category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
