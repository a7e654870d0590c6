package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/doecerto/doecerto/internal/middleware"
	"github.com/doecerto/doecerto/internal/ong"
	"github.com/doecerto/doecerto/internal/payment"
)

// Checkout amounts are bounded to keep obviously bogus requests away
// from Stripe. Amounts are in cents.
const (
	minDonationAmount = 100      // R$ 1,00
	maxDonationAmount = 10000000 // R$ 100.000,00
)

// PaymentHandlers holds dependencies for Stripe onboarding and monetary
// donation handlers.
type PaymentHandlers struct {
	ongs                  ong.Repository
	paymentRepo           payment.PaymentRepository
	stripeClient          payment.Client
	returnURL             string
	refreshURL            string
	applicationFeePercent float64
}

// NewPaymentHandlers creates a new PaymentHandlers instance.
func NewPaymentHandlers(
	ongs ong.Repository,
	paymentRepo payment.PaymentRepository,
	stripeClient payment.Client,
	returnURL string,
	refreshURL string,
	applicationFeePercent float64,
) *PaymentHandlers {
	return &PaymentHandlers{
		ongs:                  ongs,
		paymentRepo:           paymentRepo,
		stripeClient:          stripeClient,
		returnURL:             returnURL,
		refreshURL:            refreshURL,
		applicationFeePercent: applicationFeePercent,
	}
}

// OnboardResponse carries the Stripe-hosted onboarding link.
type OnboardResponse struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at"`
}

// OnboardOng creates a Stripe Connect Express onboarding link for the
// authenticated ONG. Calling it again before onboarding finishes reuses
// the existing connected account and issues a fresh link.
// POST /me/stripe/onboard
func (h *PaymentHandlers) OnboardOng(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	o, err := h.ongs.GetByUserID(ctx, userID)
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "ONG not found")
		return
	}
	if !o.Verified() {
		ctx = middleware.SetErrorCode(ctx, ErrCodeOngNotVerified)
		WriteError(w, ctx, http.StatusUnprocessableEntity, ErrCodeOngNotVerified, "only verified ONGs can receive monetary donations")
		return
	}

	accountID := ""
	if o.StripeAccountID != nil {
		accountID = *o.StripeAccountID
	}
	if accountID == "" {
		account, err := h.stripeClient.CreateConnectAccount()
		if err != nil {
			slog.ErrorContext(ctx, "failed to create connect account", "ong_id", userID, "error", err)
			ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to create Stripe account")
			return
		}
		accountID = account.ID

		if err := h.ongs.SetStripeAccount(ctx, userID, accountID); err != nil {
			slog.ErrorContext(ctx, "failed to store stripe account", "ong_id", userID, "error", err)
			ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to store Stripe account")
			return
		}
	}

	link, err := h.stripeClient.CreateAccountLink(accountID, h.returnURL, h.refreshURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create account link", "ong_id", userID, "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to create onboarding link")
		return
	}

	writeJSON(w, http.StatusOK, OnboardResponse{
		URL:       link.URL,
		ExpiresAt: time.Unix(link.ExpiresAt, 0).UTC().Format(time.RFC3339),
	})
}

// CheckoutRequest is the payload for starting a monetary donation.
// Amount is in cents.
type CheckoutRequest struct {
	OngID          int64  `json:"ong_id"`
	Amount         int64  `json:"amount"`
	WishlistItemID *int64 `json:"wishlist_item_id"`
	SuccessURL     string `json:"success_url"`
	CancelURL      string `json:"cancel_url"`
}

// CheckoutResponse carries the Stripe-hosted checkout page.
type CheckoutResponse struct {
	SessionURL string `json:"session_url"`
	SessionID  string `json:"session_id"`
}

// CreateCheckoutSession starts a Stripe Checkout Session for a monetary
// donation to an onboarded ONG, with the platform fee applied.
// POST /payments/checkout
func (h *PaymentHandlers) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	donorID := middleware.GetUserID(ctx)

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	if req.Amount < minDonationAmount || req.Amount > maxDonationAmount {
		ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "amount out of range")
		return
	}
	if req.SuccessURL == "" || req.CancelURL == "" {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "success_url and cancel_url are required")
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
	if target.StripeAccountID == nil || *target.StripeAccountID == "" {
		ctx = middleware.SetErrorCode(ctx, "not_onboarded")
		WriteError(w, ctx, http.StatusBadRequest, "not_onboarded", "ONG has not completed Stripe onboarding")
		return
	}

	applicationFee := int64(float64(req.Amount) * h.applicationFeePercent / 100.0)

	session, err := h.stripeClient.CreateCheckoutSession(&payment.CheckoutSessionParams{
		ConnectedAccountID: *target.StripeAccountID,
		Amount:             req.Amount,
		Description:        "Doação para " + target.Name,
		SuccessURL:         req.SuccessURL,
		CancelURL:          req.CancelURL,
		ApplicationFee:     applicationFee,
		DonorID:            donorID,
		OngID:              req.OngID,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create checkout session", "ong_id", req.OngID, "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to create checkout session")
		return
	}

	record := &payment.PaymentRecord{
		SessionID:      session.ID,
		Amount:         req.Amount,
		Fee:            applicationFee,
		Currency:       payment.DefaultCurrency,
		DonorID:        donorID,
		OngID:          req.OngID,
		WishlistItemID: req.WishlistItemID,
	}
	if err := h.paymentRepo.CreatePending(record); err != nil {
		// The session exists either way; the webhook reconciles by
		// session ID, so log and keep going.
		slog.ErrorContext(ctx, "failed to insert payment record", "session_id", session.ID, "error", err)
	}

	writeJSON(w, http.StatusOK, CheckoutResponse{
		SessionURL: session.URL,
		SessionID:  session.ID,
	})
}

// GetPayment returns one payment record for the donor or ONG involved.
// GET /payments/{id} is routed with the ID as the trailing path element.
func (h *PaymentHandlers) GetPayment(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	record, err := h.paymentRepo.GetByID(id)
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "payment not found")
		return
	}

	userID := middleware.GetUserID(ctx)
	if record.DonorID != userID && record.OngID != userID {
		ctx = middleware.SetErrorCode(ctx, ErrCodeForbidden)
		WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "payment belongs to another account")
		return
	}
	writeJSON(w, http.StatusOK, record)
}
