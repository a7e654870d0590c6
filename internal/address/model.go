// Package address provides models, repository and service for donor and
// ONG addresses, including best-effort geocoding.
package address

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Common errors for address operations.
var (
	ErrAddressNotFound = errors.New("address not found")
	ErrAmbiguousOwner  = errors.New("address must belong to exactly one donor or ong")
	ErrAlreadyExists   = errors.New("owner already has an address")
	ErrNotOwner        = errors.New("address belongs to another account")
)

// Address is one postal address owned by either a donor or an ONG.
// Latitude/Longitude are filled by geocoding when available.
type Address struct {
	ID           int64    `json:"id"`
	DonorID      *int64   `json:"donor_id,omitempty"`
	OngID        *int64   `json:"ong_id,omitempty"`
	Street       string   `json:"street"`
	Number       string   `json:"number"`
	Complement   *string  `json:"complement,omitempty"`
	Neighborhood string   `json:"neighborhood"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	ZipCode      string   `json:"zip_code"`
	Country      string   `json:"country"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	// Geohash is a coarse public location derived from the coordinates;
	// precise coordinates stay private to the owner.
	Geohash string `json:"geohash,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the XOR ownership constraint.
func (a *Address) Validate() error {
	if (a.DonorID == nil) == (a.OngID == nil) {
		return ErrAmbiguousOwner
	}
	return nil
}

// FullAddress renders the address as a single line for geocoding.
func (a *Address) FullAddress() string {
	parts := []string{
		fmt.Sprintf("%s, %s", a.Street, a.Number),
		a.Neighborhood,
		a.City,
		a.State,
		a.ZipCode,
		a.Country,
	}
	return strings.Join(parts, ", ")
}

// OwnedBy reports whether the address belongs to the given principal.
func (a *Address) OwnedBy(userID int64) bool {
	if a.DonorID != nil && *a.DonorID == userID {
		return true
	}
	if a.OngID != nil && *a.OngID == userID {
		return true
	}
	return false
}
