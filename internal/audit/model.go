// Package audit provides audit logging functionality for tracking access to
// sensitive endpoints and operations for compliance and incident response.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Outcome values for audit log entries.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// AuditLog represents a single audit event in the system.
type AuditLog struct {
	ID         string
	UserID     int64
	EntityType string
	EntityID   string
	Action     string
	Outcome    string // "success" or "failure"
	CreatedAt  time.Time

	// Optional metadata
	RequestID string
	IPAddress string
	UserAgent string

	// Tamper detection
	PreviousHash string // SHA-256 hash of previous log entry for tamper detection
}

// LogEntry represents the input for creating an audit log entry.
type LogEntry struct {
	UserID     int64
	EntityType string
	EntityID   string
	Action     string
	Outcome    string // "success" or "failure"; empty defaults to success

	// Optional metadata
	RequestID string
	IPAddress string
	UserAgent string
}

// ComputeLogHash computes the SHA-256 hash of a log entry's content, including
// its own PreviousHash so that tampering anywhere in the chain invalidates all
// subsequent links.
func ComputeLogHash(log *AuditLog) string {
	h := sha256.New()
	h.Write([]byte(log.ID))
	h.Write([]byte(strconv.FormatInt(log.UserID, 10)))
	h.Write([]byte(log.EntityType))
	h.Write([]byte(log.EntityID))
	h.Write([]byte(log.Action))
	h.Write([]byte(log.Outcome))
	h.Write([]byte(log.CreatedAt.UTC().Format(time.RFC3339Nano)))
	h.Write([]byte(log.RequestID))
	h.Write([]byte(log.IPAddress))
	h.Write([]byte(log.UserAgent))
	h.Write([]byte(log.PreviousHash))
	return hex.EncodeToString(h.Sum(nil))
}
