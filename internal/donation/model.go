// Package donation provides models and repository for in-kind
// donations: a donor pledges goods to an ONG, optionally against a
// wishlist item, and the ONG confirms and later marks delivery.
package donation

import (
	"errors"
	"time"
)

// Donation status values.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

// Common errors for donation operations.
var (
	ErrDonationNotFound  = errors.New("donation not found")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInvalidTransition = errors.New("invalid donation status transition")
	ErrNotParticipant    = errors.New("donation belongs to another donor or ong")
)

// Donation is one pledge from a donor to an ONG.
type Donation struct {
	ID             int64     `json:"id"`
	DonorID        int64     `json:"donor_id"`
	OngID          int64     `json:"ong_id"`
	WishlistItemID *int64    `json:"wishlist_item_id,omitempty"`
	Quantity       int       `json:"quantity"`
	Status         string    `json:"status"`
	Note           *string   `json:"note,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Active reports whether the donation still awaits delivery.
func (d *Donation) Active() bool {
	return d.Status == StatusPending || d.Status == StatusConfirmed
}

// isValidTransition reports whether a donation may move from one
// status to another. Delivered and cancelled are terminal.
func isValidTransition(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusDelivered || to == StatusCancelled
	}
	return false
}
