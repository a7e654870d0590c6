package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/doecerto/doecerto/internal/middleware"
	"github.com/doecerto/doecerto/internal/payment"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

// WebhookHandlers holds dependencies for Stripe webhook handlers. Payment
// records are resolved by checkout session ID because donation sessions
// carry donor and ONG metadata on the session, not the PaymentIntent.
type WebhookHandlers struct {
	webhookSecret string
	paymentRepo   payment.PaymentRepository
	webhookRepo   payment.WebhookRepository
}

// NewWebhookHandlers creates a new WebhookHandlers instance.
func NewWebhookHandlers(
	webhookSecret string,
	paymentRepo payment.PaymentRepository,
	webhookRepo payment.WebhookRepository,
) *WebhookHandlers {
	return &WebhookHandlers{
		webhookSecret: webhookSecret,
		paymentRepo:   paymentRepo,
		webhookRepo:   webhookRepo,
	}
}

// HandleStripeWebhook processes Stripe webhook events with signature
// verification and event-level idempotency.
// POST /internal/stripe
func (h *WebhookHandlers) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "failed to read request body")
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "missing Stripe-Signature header")
		return
	}

	event, err := webhook.ConstructEvent(body, signature, h.webhookSecret)
	if err != nil {
		slog.WarnContext(ctx, "webhook signature verification failed", "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid signature")
		return
	}

	// Log minimal event info (type and ID only, not full payload).
	slog.InfoContext(ctx, "webhook event received", "event_type", event.Type, "event_id", event.ID)

	if err := h.webhookRepo.RecordEvent(event.ID, string(event.Type)); err != nil {
		if errors.Is(err, payment.ErrEventAlreadyProcessed) {
			slog.InfoContext(ctx, "webhook event already processed, ignoring", "event_id", event.ID)
			w.WriteHeader(http.StatusOK)
			return
		}
		slog.ErrorContext(ctx, "failed to record webhook event", "event_id", event.ID, "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to process webhook")
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		h.handleCheckoutSessionCompleted(ctx, event)
	case "checkout.session.expired":
		h.handleCheckoutSessionExpired(ctx, event)
	case "checkout.session.async_payment_failed":
		h.handleCheckoutSessionFailed(ctx, event)
	case "account.updated":
		h.handleAccountUpdated(ctx, event)
	default:
		slog.InfoContext(ctx, "ignoring unhandled webhook event type", "event_type", event.Type, "event_id", event.ID)
	}

	// Always acknowledge; Stripe retries on anything else.
	w.WriteHeader(http.StatusOK)
}

// handleCheckoutSessionCompleted marks the donation as succeeded and
// records the PaymentIntent that settled it.
func (h *WebhookHandlers) handleCheckoutSessionCompleted(ctx context.Context, event stripe.Event) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		slog.ErrorContext(ctx, "failed to parse checkout session", "event_id", event.ID, "error", err)
		return
	}

	paymentIntentID := ""
	if session.PaymentIntent != nil {
		paymentIntentID = session.PaymentIntent.ID
	}

	if err := h.paymentRepo.MarkCompleted(session.ID, paymentIntentID); err != nil {
		if errors.Is(err, payment.ErrPaymentRecordNotFound) {
			slog.WarnContext(ctx, "payment record not found for completed session", "session_id", session.ID)
			return
		}
		slog.ErrorContext(ctx, "failed to mark payment completed",
			"session_id", session.ID,
			"payment_intent_id", paymentIntentID,
			"error", err)
		return
	}

	slog.InfoContext(ctx, "donation payment completed",
		"session_id", session.ID,
		"payment_intent_id", paymentIntentID,
		"amount", session.AmountTotal,
		"currency", session.Currency)
}

// handleCheckoutSessionExpired cancels the provisional record when the
// donor abandons the checkout page.
func (h *WebhookHandlers) handleCheckoutSessionExpired(ctx context.Context, event stripe.Event) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		slog.ErrorContext(ctx, "failed to parse checkout session", "event_id", event.ID, "error", err)
		return
	}

	if err := h.paymentRepo.MarkCanceled(session.ID); err != nil {
		if errors.Is(err, payment.ErrPaymentRecordNotFound) {
			slog.WarnContext(ctx, "payment record not found for expired session", "session_id", session.ID)
			return
		}
		slog.ErrorContext(ctx, "failed to mark payment canceled", "session_id", session.ID, "error", err)
		return
	}

	slog.InfoContext(ctx, "donation payment canceled", "session_id", session.ID)
}

// handleCheckoutSessionFailed marks the record failed when a delayed
// payment method (e.g. boleto) does not clear.
func (h *WebhookHandlers) handleCheckoutSessionFailed(ctx context.Context, event stripe.Event) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		slog.ErrorContext(ctx, "failed to parse checkout session", "event_id", event.ID, "error", err)
		return
	}

	if err := h.paymentRepo.MarkFailed(session.ID, "async payment failed"); err != nil {
		if errors.Is(err, payment.ErrPaymentRecordNotFound) {
			slog.WarnContext(ctx, "payment record not found for failed session", "session_id", session.ID)
			return
		}
		slog.ErrorContext(ctx, "failed to mark payment as failed", "session_id", session.ID, "error", err)
		return
	}

	slog.InfoContext(ctx, "donation payment failed", "session_id", session.ID)
}

// handleAccountUpdated logs Connect onboarding progress. The connected
// account ID is already stored on the ONG; this event confirms the
// transfers capability went active.
func (h *WebhookHandlers) handleAccountUpdated(ctx context.Context, event stripe.Event) {
	var account stripe.Account
	if err := json.Unmarshal(event.Data.Raw, &account); err != nil {
		slog.ErrorContext(ctx, "failed to parse account", "event_id", event.ID, "error", err)
		return
	}

	transfersActive := account.Capabilities != nil &&
		account.Capabilities.Transfers == stripe.AccountCapabilityStatusActive

	if !transfersActive {
		slog.InfoContext(ctx, "connect account capabilities not yet active", "account_id", account.ID)
		return
	}

	slog.InfoContext(ctx, "connect account capabilities activated",
		"account_id", account.ID,
		"details_submitted", account.DetailsSubmitted,
		"charges_enabled", account.ChargesEnabled)
}
