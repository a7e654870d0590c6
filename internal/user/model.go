// Package user provides models and repository for platform accounts.
// Every donor, ONG and admin is backed by one user row carrying the
// credentials and role.
package user

import (
	"errors"
	"time"
)

// Account roles.
const (
	RoleDonor = "donor"
	RoleOng   = "ong"
	RoleAdmin = "admin"
)

// Common errors for user operations.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
	ErrInvalidRole  = errors.New("invalid role")
)

// User represents a platform account. PasswordHash is the bcrypt hash
// and never leaves the package in API responses.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ValidRole reports whether role is one of the known account roles.
func ValidRole(role string) bool {
	switch role {
	case RoleDonor, RoleOng, RoleAdmin:
		return true
	}
	return false
}
