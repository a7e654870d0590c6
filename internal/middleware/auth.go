// Package middleware provides HTTP middleware components for the API server.
package middleware

import (
	"io"
	"net/http"
	"strings"

	"github.com/doecerto/doecerto/internal/auth"
)

// writeAuthError writes a small JSON error body for authentication failures.
func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, `{"error":{"code":"`+code+`","message":"`+message+`"}}`)
}

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Authenticate validates the request's Bearer access token and stores
// the user ID and role in the request context. Requests without a
// token pass through unauthenticated; handlers that need an identity
// check GetUserID, and RequireAuth rejects anonymous requests up
// front.
func Authenticate(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "auth_failed", "invalid or expired token")
				return
			}
			if claims.Type != auth.TokenTypeAccess {
				writeAuthError(w, http.StatusUnauthorized, "auth_failed", "access token required")
				return
			}
			userID, err := claims.UserID()
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "auth_failed", "invalid token subject")
				return
			}

			ctx := SetUserID(r.Context(), userID)
			ctx = SetUserRole(ctx, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests that carry no authenticated user.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserID(r.Context()) == 0 {
			writeAuthError(w, http.StatusUnauthorized, "auth_failed", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects requests whose authenticated user does not hold
// one of the given roles. Anonymous requests are rejected with 401.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetUserID(r.Context()) == 0 {
				writeAuthError(w, http.StatusUnauthorized, "auth_failed", "authentication required")
				return
			}
			if !allowed[GetUserRole(r.Context())] {
				writeAuthError(w, http.StatusForbidden, "forbidden", "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
