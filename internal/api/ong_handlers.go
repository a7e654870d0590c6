package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/doecerto/doecerto/internal/audit"
	"github.com/doecerto/doecerto/internal/middleware"
	"github.com/doecerto/doecerto/internal/ong"
)

// OngHandlers holds dependencies for ONG and admin verification handlers.
type OngHandlers struct {
	ongs      ong.Repository
	auditRepo audit.Repository
}

// NewOngHandlers creates a new OngHandlers instance.
func NewOngHandlers(ongs ong.Repository, auditRepo audit.Repository) *OngHandlers {
	return &OngHandlers{ongs: ongs, auditRepo: auditRepo}
}

// ongIDFromPath extracts the ONG user ID from /ongs/{id}[/suffix].
func ongIDFromPath(path string) (int64, bool) {
	part := strings.TrimPrefix(path, "/ongs/")
	if i := strings.IndexByte(part, '/'); i >= 0 {
		part = part[:i]
	}
	id, err := strconv.ParseInt(part, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// OngResponse is the public projection of an ONG. The CNPJ and
// Stripe account never appear here.
type OngResponse struct {
	ID                 int64    `json:"id"`
	Name               string   `json:"name"`
	VerificationStatus string   `json:"verification_status"`
	AverageRating      *float64 `json:"average_rating"`
	NumberOfRatings    int      `json:"number_of_ratings"`
}

func toOngResponse(o *ong.Ong) OngResponse {
	return OngResponse{
		ID:                 o.UserID,
		Name:               o.Name,
		VerificationStatus: o.VerificationStatus,
		AverageRating:      o.AverageRating,
		NumberOfRatings:    int(o.NumberOfRatings),
	}
}

// GetOng handles GET /ongs/{id}.
func (h *OngHandlers) GetOng(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := ongIDFromPath(r.URL.Path)
	if !ok {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid ONG id")
		return
	}

	o, err := h.ongs.GetByUserID(ctx, id)
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "ONG not found")
		return
	}
	writeJSON(w, http.StatusOK, toOngResponse(o))
}

// ListPending handles GET /admin/ongs/pending: the admin review queue,
// oldest registration first.
func (h *OngHandlers) ListPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pending, err := h.ongs.ListByStatus(ctx, ong.StatusPending)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list pending ongs", "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to list pending ONGs")
		return
	}

	out := make([]OngResponse, 0, len(pending))
	for i := range pending {
		out = append(out, toOngResponse(&pending[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"ongs": out})
}

// VerifyOng handles POST /admin/ongs/{id}/verify. The decision is
// recorded in the audit log; a failure to audit fails the request.
func (h *OngHandlers) VerifyOng(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "verify")
}

// RejectOngRequest represents the request body for an ONG rejection.
type RejectOngRequest struct {
	Reason string `json:"reason"`
}

// RejectOng handles POST /admin/ongs/{id}/reject.
func (h *OngHandlers) RejectOng(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "reject")
}

func (h *OngHandlers) decide(w http.ResponseWriter, r *http.Request, decision string) {
	ctx := r.Context()
	adminID := middleware.GetUserID(ctx)

	id, ok := ongIDFromPath(strings.TrimPrefix(r.URL.Path, "/admin"))
	if !ok {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid ONG id")
		return
	}

	var err error
	action := "verify_ong"
	if decision == "reject" {
		action = "reject_ong"
		var req RejectOngRequest
		if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
			ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON in request body")
			return
		}
		err = h.ongs.Reject(ctx, id, adminID, strings.TrimSpace(req.Reason))
	} else {
		err = h.ongs.Verify(ctx, id, adminID)
	}

	switch {
	case err == nil:
	case errors.Is(err, ong.ErrOngNotFound):
		ctx = middleware.SetErrorCode(ctx, ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "ONG not found")
		return
	case errors.Is(err, ong.ErrAlreadyDecided):
		ctx = middleware.SetErrorCode(ctx, ErrCodeAlreadyDecided)
		WriteError(w, ctx, http.StatusConflict, ErrCodeAlreadyDecided, "ONG verification was already decided")
		return
	case errors.Is(err, ong.ErrMissingReason):
		ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "a rejection reason is required")
		return
	default:
		slog.ErrorContext(ctx, "failed to decide ong verification", "ong_id", id, "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to record decision")
		return
	}

	if auditErr := audit.LogAccessFromRequest(r, h.auditRepo, "ong", strconv.FormatInt(id, 10), action); auditErr != nil {
		slog.ErrorContext(ctx, "failed to audit ong decision", "ong_id", id, "action", action, "error", auditErr)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to record decision audit")
		return
	}

	o, err := h.ongs.GetByUserID(ctx, id)
	if err != nil {
		slog.ErrorContext(ctx, "failed to reload ong after decision", "ong_id", id, "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "decision recorded but reload failed")
		return
	}
	writeJSON(w, http.StatusOK, toOngResponse(o))
}
