// Package middleware provides HTTP middleware components for the API server.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// normalizePath converts paths with dynamic segments to route patterns to prevent
// cardinality explosion in metrics. This maps paths like /ongs/123 to /ongs/{id}.
func normalizePath(path string) string {
	// Exact matches for static routes (no normalization needed)
	staticRoutes := map[string]bool{
		"/":                    true,
		"/catalog":             true,
		"/categories":          true,
		"/auth/register":       true,
		"/auth/login":          true,
		"/auth/refresh":        true,
		"/ongs":                true,
		"/donations":           true,
		"/wishlist":            true,
		"/me":                  true,
		"/me/profile":          true,
		"/me/address":          true,
		"/me/bank-account":     true,
		"/me/avatar":           true,
		"/me/banner":           true,
		"/payments/onboard":    true,
		"/payments/checkout":   true,
		"/payments/status":     true,
		"/internal/stripe":     true,
		"/health":              true,
		"/ready":               true,
		"/metrics":             true,
	}

	if staticRoutes[path] {
		return path
	}

	// Pattern-based normalization for dynamic routes
	// Handle specific known patterns first for accuracy

	// /ongs/{id}/... patterns
	if strings.HasPrefix(path, "/ongs/") {
		parts := strings.Split(path, "/")
		if len(parts) >= 3 {
			// /ongs/{id}/verify, /ongs/{id}/ratings, /ongs/{id}/wishlist
			if len(parts) == 4 && (parts[3] == "verify" || parts[3] == "ratings" || parts[3] == "wishlist") {
				return "/ongs/{id}/" + parts[3]
			}
			// /ongs/{id}
			if len(parts) == 3 && parts[2] != "" {
				return "/ongs/{id}"
			}
		}
	}

	// /donations/{id}/... patterns
	if strings.HasPrefix(path, "/donations/") {
		parts := strings.Split(path, "/")
		if len(parts) >= 3 {
			// /donations/{id}/confirm, /donations/{id}/deliver, /donations/{id}/cancel
			if len(parts) == 4 && (parts[3] == "confirm" || parts[3] == "deliver" || parts[3] == "cancel") {
				return "/donations/{id}/" + parts[3]
			}
			// /donations/{id}
			if len(parts) == 3 && parts[2] != "" {
				return "/donations/{id}"
			}
		}
	}

	// /wishlist/{id}
	if strings.HasPrefix(path, "/wishlist/") {
		parts := strings.Split(path, "/")
		if len(parts) == 3 && parts[2] != "" {
			return "/wishlist/{id}"
		}
	}

	// /ratings/{id}
	if strings.HasPrefix(path, "/ratings/") {
		parts := strings.Split(path, "/")
		if len(parts) == 3 && parts[2] != "" {
			return "/ratings/{id}"
		}
	}

	// Fallback: return as-is for unknown patterns
	// This ensures we don't accidentally break metrics for new routes
	return path
}

// metricsResponseWriter wraps http.ResponseWriter to capture status code and response size.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	size        int64
	wroteHeader bool
}

// WriteHeader captures the status code before writing it.
func (mrw *metricsResponseWriter) WriteHeader(code int) {
	if mrw.wroteHeader {
		return
	}
	mrw.statusCode = code
	mrw.wroteHeader = true
	mrw.ResponseWriter.WriteHeader(code)
}

// Write captures the response size and writes the data.
func (mrw *metricsResponseWriter) Write(b []byte) (int, error) {
	n, err := mrw.ResponseWriter.Write(b)
	mrw.size += int64(n)
	return n, err
}

// newMetricsResponseWriter creates a new metricsResponseWriter with default 200 status.
func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// HTTPMetrics is a middleware that records HTTP request metrics.
// It captures duration, request/response sizes, and request counts.
// Health check endpoints (/health, /ready) are excluded from metrics to avoid cardinality issues.
func HTTPMetrics(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Exclude health check endpoints from metrics
			if r.URL.Path == "/health" || r.URL.Path == "/ready" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			// Wrap response writer to capture status and size
			mrw := newMetricsResponseWriter(w)

			// Get request size from Content-Length header
			requestSize := int64(0)
			if contentLength := r.Header.Get("Content-Length"); contentLength != "" {
				if size, err := strconv.ParseInt(contentLength, 10, 64); err == nil {
					requestSize = size
				}
			}

			// Call the next handler
			next.ServeHTTP(mrw, r)

			// Calculate duration in seconds
			duration := time.Since(start).Seconds()

			// Normalize path to prevent cardinality explosion
			normalizedPath := normalizePath(r.URL.Path)

			// Record metrics
			metrics.ObserveHTTPRequest(
				r.Method,
				normalizedPath,
				strconv.Itoa(mrw.statusCode),
				duration,
				requestSize,
				mrw.size,
			)
		})
	}
}
