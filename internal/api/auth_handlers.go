// Package api provides HTTP handlers for the DoeCerto API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/doecerto/doecerto/internal/auth"
	"github.com/doecerto/doecerto/internal/donor"
	"github.com/doecerto/doecerto/internal/middleware"
	"github.com/doecerto/doecerto/internal/ong"
	"github.com/doecerto/doecerto/internal/user"
	"github.com/doecerto/doecerto/internal/validate"
)

// AuthHandlers holds dependencies for registration and login handlers.
type AuthHandlers struct {
	users      user.Repository
	donors     donor.Repository
	ongs       ong.Repository
	jwtService *auth.JWTService
}

// NewAuthHandlers creates a new AuthHandlers instance.
func NewAuthHandlers(users user.Repository, donors donor.Repository, ongs ong.Repository, jwtService *auth.JWTService) *AuthHandlers {
	return &AuthHandlers{
		users:      users,
		donors:     donors,
		ongs:       ongs,
		jwtService: jwtService,
	}
}

// RegisterDonorRequest represents the request body for donor registration.
type RegisterDonorRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	CPF      string `json:"cpf"`
}

// RegisterOngRequest represents the request body for ONG registration.
type RegisterOngRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	CNPJ     string `json:"cnpj"`
}

// TokenPairResponse carries a fresh access/refresh token pair.
type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RegisterResponse represents a successful registration.
type RegisterResponse struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	TokenPairResponse
}

// validateCredentials checks the fields shared by both registration flows.
func validateCredentials(name, email, password string) string {
	if strings.TrimSpace(name) == "" {
		return "name is required"
	}
	if !strings.Contains(email, "@") {
		return "a valid email is required"
	}
	if len(password) < auth.MinPasswordLength {
		return "password must be at least 8 characters"
	}
	return ""
}

// RegisterDonor handles POST /auth/register/donor.
func (h *AuthHandlers) RegisterDonor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RegisterDonorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON in request body")
		return
	}

	if msg := validateCredentials(req.Name, req.Email, req.Password); msg != "" {
		ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, msg)
		return
	}
	cpf, err := validate.CPF(req.CPF)
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeInvalidDocument)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidDocument, "invalid CPF")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash password", "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "registration failed")
		return
	}

	account := &user.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		PasswordHash: hash,
		Role:         user.RoleDonor,
	}
	if err := h.users.Create(ctx, account); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			ctx = middleware.SetErrorCode(ctx, ErrCodeDuplicateEmail)
			WriteError(w, ctx, http.StatusConflict, ErrCodeDuplicateEmail, "email is already registered")
			return
		}
		slog.ErrorContext(ctx, "failed to create user", "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "registration failed")
		return
	}

	if err := h.donors.Create(ctx, &donor.Donor{UserID: account.ID, Name: account.Name, CPF: cpf}); err != nil {
		if errors.Is(err, donor.ErrCPFTaken) {
			ctx = middleware.SetErrorCode(ctx, ErrCodeDuplicateDocument)
			WriteError(w, ctx, http.StatusConflict, ErrCodeDuplicateDocument, "CPF is already registered")
			return
		}
		slog.ErrorContext(ctx, "failed to create donor", "user_id", account.ID, "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "registration failed")
		return
	}

	h.writeRegistered(w, ctx, account)
}

// RegisterOng handles POST /auth/register/ong. New ONGs start in
// pending verification status and are invisible to the catalog until
// an admin verifies them.
func (h *AuthHandlers) RegisterOng(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RegisterOngRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON in request body")
		return
	}

	if msg := validateCredentials(req.Name, req.Email, req.Password); msg != "" {
		ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, msg)
		return
	}
	cnpj, err := validate.CNPJ(req.CNPJ)
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeInvalidDocument)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidDocument, "invalid CNPJ")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash password", "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "registration failed")
		return
	}

	account := &user.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		PasswordHash: hash,
		Role:         user.RoleOng,
	}
	if err := h.users.Create(ctx, account); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			ctx = middleware.SetErrorCode(ctx, ErrCodeDuplicateEmail)
			WriteError(w, ctx, http.StatusConflict, ErrCodeDuplicateEmail, "email is already registered")
			return
		}
		slog.ErrorContext(ctx, "failed to create user", "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "registration failed")
		return
	}

	if err := h.ongs.Create(ctx, &ong.Ong{UserID: account.ID, Name: account.Name, CNPJ: cnpj}); err != nil {
		if errors.Is(err, ong.ErrCNPJTaken) {
			ctx = middleware.SetErrorCode(ctx, ErrCodeDuplicateDocument)
			WriteError(w, ctx, http.StatusConflict, ErrCodeDuplicateDocument, "CNPJ is already registered")
			return
		}
		slog.ErrorContext(ctx, "failed to create ong", "user_id", account.ID, "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "registration failed")
		return
	}

	h.writeRegistered(w, ctx, account)
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON in request body")
		return
	}

	account, err := h.users.GetByEmail(ctx, req.Email)
	if err != nil {
		// Same response for unknown email and wrong password.
		ctx = middleware.SetErrorCode(ctx, ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "invalid credentials")
		return
	}
	if err := auth.CheckPassword(account.PasswordHash, req.Password); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "invalid credentials")
		return
	}

	pair, err := h.tokenPair(account)
	if err != nil {
		slog.ErrorContext(ctx, "failed to issue tokens", "user_id", account.ID, "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// RefreshRequest represents the request body for token refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /auth/refresh: exchanges a valid refresh token
// for a new token pair.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON in request body")
		return
	}

	claims, err := h.jwtService.ValidateToken(req.RefreshToken)
	if err != nil || claims.Type != auth.TokenTypeRefresh {
		ctx = middleware.SetErrorCode(ctx, ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "invalid refresh token")
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "invalid refresh token")
		return
	}

	account, err := h.users.GetByID(ctx, userID)
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "invalid refresh token")
		return
	}

	pair, err := h.tokenPair(account)
	if err != nil {
		slog.ErrorContext(ctx, "failed to issue tokens", "user_id", account.ID, "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "token refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (h *AuthHandlers) tokenPair(account *user.User) (TokenPairResponse, error) {
	access, err := h.jwtService.GenerateAccessToken(account.ID, account.Role)
	if err != nil {
		return TokenPairResponse{}, err
	}
	refresh, err := h.jwtService.GenerateRefreshToken(account.ID)
	if err != nil {
		return TokenPairResponse{}, err
	}
	return TokenPairResponse{AccessToken: access, RefreshToken: refresh}, nil
}

func (h *AuthHandlers) writeRegistered(w http.ResponseWriter, ctx context.Context, account *user.User) {
	pair, err := h.tokenPair(account)
	if err != nil {
		slog.ErrorContext(ctx, "failed to issue tokens", "user_id", account.ID, "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "registration failed")
		return
	}

	writeJSON(w, http.StatusCreated, RegisterResponse{
		UserID:            account.ID,
		Role:              account.Role,
		TokenPairResponse: pair,
	})
}
