// Package ong provides models and repository for ONG accounts and the
// admin verification workflow. Only verified ONGs appear in the public
// catalog.
package ong

import (
	"errors"
	"time"
)

// Verification statuses.
const (
	StatusPending  = "pending"
	StatusVerified = "verified"
	StatusRejected = "rejected"
)

// Common errors for ONG operations.
var (
	ErrOngNotFound    = errors.New("ong not found")
	ErrCNPJTaken      = errors.New("cnpj already registered")
	ErrAlreadyDecided = errors.New("ong verification already decided")
	ErrNotVerified    = errors.New("ong is not verified")
	ErrMissingReason  = errors.New("rejection reason is required")
)

// Ong represents an ONG account. The primary key is the backing user ID.
// AverageRating and NumberOfRatings are denormalized aggregates maintained
// by the rating package.
type Ong struct {
	UserID             int64      `json:"user_id"`
	Name               string     `json:"name"`
	CNPJ               string     `json:"cnpj"`
	VerificationStatus string     `json:"verification_status"`
	VerifiedAt         *time.Time `json:"verified_at,omitempty"`
	VerifiedBy         *int64     `json:"verified_by,omitempty"`
	RejectionReason    *string    `json:"rejection_reason,omitempty"`
	StripeAccountID    *string    `json:"-"`
	AverageRating      *float64   `json:"average_rating,omitempty"`
	NumberOfRatings    int64      `json:"number_of_ratings"`
	CreatedAt          time.Time  `json:"created_at"`
}

// Verified reports whether the ONG passed admin verification.
func (o *Ong) Verified() bool {
	return o.VerificationStatus == StatusVerified
}
