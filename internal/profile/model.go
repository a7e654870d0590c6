// Package profile provides models and repository for ONG and donor
// public profiles, including the ONG-to-category association.
package profile

import (
	"errors"
	"time"
)

// Common errors for profile operations.
var (
	ErrProfileNotFound = errors.New("profile not found")
)

// OngProfile is the public presentation of an ONG: bio, contact data,
// media references and the set of cause categories.
type OngProfile struct {
	ID            int64     `json:"id"`
	OngID         int64     `json:"ong_id"`
	Bio           *string   `json:"bio,omitempty"`
	AvatarURL     *string   `json:"avatar_url,omitempty"`
	BannerURL     *string   `json:"banner_url,omitempty"`
	ContactNumber *string   `json:"contact_number,omitempty"`
	WebsiteURL    *string   `json:"website_url,omitempty"`
	CategoryIDs   []int64   `json:"category_ids"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DonorProfile is the public presentation of a donor.
type DonorProfile struct {
	ID            int64     `json:"id"`
	DonorID       int64     `json:"donor_id"`
	Bio           *string   `json:"bio,omitempty"`
	AvatarURL     *string   `json:"avatar_url,omitempty"`
	ContactNumber *string   `json:"contact_number,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
