// Package payment provides models and services for payment processing.
package payment

import "time"

// PaymentStatus represents the status of a payment record.
const (
	StatusPending   = "pending"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
	StatusRefunded  = "refunded"
)

// DefaultCurrency is applied when a record is created without an explicit currency.
const DefaultCurrency = "brl"

// PaymentRecord represents a provisional payment record for a Stripe Checkout Session.
type PaymentRecord struct {
	ID              string     `json:"id"`
	SessionID       string     `json:"session_id"`                  // Stripe Checkout Session ID
	PaymentIntentID *string    `json:"payment_intent_id,omitempty"` // Set when the payment succeeds
	Status          string     `json:"status"`                      // pending, succeeded, failed, canceled, refunded
	Amount          int64      `json:"amount"`                      // Total amount in cents
	Fee             int64      `json:"fee"`                         // Platform fee in cents
	Currency        string     `json:"currency"`
	DonorID         int64      `json:"donor_id"`                    // Donor making the payment
	OngID           int64      `json:"ong_id"`                      // ONG receiving the payment
	WishlistItemID  *int64     `json:"wishlist_item_id,omitempty"`  // Optional wishlist item being funded
	FailureReason   *string    `json:"failure_reason,omitempty"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}
