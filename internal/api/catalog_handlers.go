package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/doecerto/doecerto/internal/catalog"
	"github.com/doecerto/doecerto/internal/middleware"
)

// CatalogHandlers holds dependencies for the discovery catalog handler.
type CatalogHandlers struct {
	engine *catalog.Engine
}

// NewCatalogHandlers creates a new CatalogHandlers instance.
func NewCatalogHandlers(engine *catalog.Engine) *CatalogHandlers {
	return &CatalogHandlers{engine: engine}
}

// parseCategoryIDs parses a comma-separated category id list.
func parseCategoryIDs(raw string) ([]int64, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, true
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

// GetCatalog handles GET /catalog.
//
// Query parameters: search (selects search mode when non-blank),
// categories (comma-separated ids), limit, offset.
func (h *CatalogHandlers) GetCatalog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	categoryIDs, ok := parseCategoryIDs(query.Get("categories"))
	if !ok {
		ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "categories must be a comma-separated list of positive integers")
		return
	}

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "limit must be a non-negative integer")
			return
		}
		limit = v
	}
	offset := 0
	if raw := query.Get("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "offset must be a non-negative integer")
			return
		}
		offset = v
	}

	result, err := h.engine.GetCatalog(ctx, catalog.Filter{
		SearchTerm:  query.Get("search"),
		CategoryIDs: categoryIDs,
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to assemble catalog", "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to load catalog")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sections":    result.Sections,
		"search_mode": result.SearchMode,
	})
}
