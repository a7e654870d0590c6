// Package audit provides audit logging functionality for tracking access to
// sensitive endpoints and operations for compliance and incident response.
package audit

import (
	"context"
	"fmt"
	"log/slog"
)

// AnonymizationJob defines the interface for IP address anonymization jobs.
type AnonymizationJob interface {
	// Run executes the IP anonymization process for eligible audit logs.
	// Returns the number of logs anonymized and any error encountered.
	Run(ctx context.Context) (int, error)
}

// AnonymizationJobConfig configures the IP anonymization job.
type AnonymizationJobConfig struct {
	Repository Repository     // Audit log repository
	Logger     *slog.Logger   // Logger for job execution
	BatchSize  int            // Number of logs to process per batch
	DryRun     bool           // If true, only log what would be anonymized
}

// BasicAnonymizationJob implements IP anonymization for in-memory repository.
// For production use, implement a PostgresAnonymizationJob that works with the database.
type BasicAnonymizationJob struct {
	config AnonymizationJobConfig
}

// NewAnonymizationJob creates a new IP anonymization job.
func NewAnonymizationJob(config AnonymizationJobConfig) *BasicAnonymizationJob {
	// Set defaults
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &BasicAnonymizationJob{
		config: config,
	}
}

// Run executes the IP anonymization process.
// For the in-memory implementation, this is limited in functionality.
// A proper Postgres implementation would:
// 1. Query for logs older than 90 days with non-anonymized IPs
// 2. Anonymize IPs in batches
// 3. Update ip_anonymized_at timestamp
func (j *BasicAnonymizationJob) Run(ctx context.Context) (int, error) {
	j.config.Logger.Info("Starting IP anonymization job",
		"cutoff_date", IPAnonymizationCutoff(),
		"dry_run", j.config.DryRun,
	)

	// Note: In-memory repository doesn't support efficient time-based queries
	// This is a placeholder implementation
	// A real Postgres implementation would:
	// UPDATE audit_logs
	// SET ip_address = anonymize_ip(ip_address),
	//     ip_anonymized_at = NOW()
	// WHERE created_at < $1
	//   AND ip_anonymized_at IS NULL
	//   AND ip_address IS NOT NULL
	// RETURNING id;

	j.config.Logger.Warn("In-memory repository IP anonymization not fully implemented",
		"message", "Use PostgresAuditRepository for production IP anonymization",
	)

	return 0, nil
}

// AnonymizeOldIPs is a utility function to anonymize IP addresses in logs older than the cutoff.
// This is a placeholder for the in-memory repository.
// For production, use a Postgres-based implementation with proper batch processing.
func AnonymizeOldIPs(repo Repository, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	cutoff := IPAnonymizationCutoff()
	logger.Info("IP anonymization initiated",
		"cutoff_date", cutoff,
		"days_retention", 90,
	)

	// For in-memory repository, we can't efficiently query by date
	// This would need to be implemented in the Postgres repository
	logger.Warn("IP anonymization requires PostgresAuditRepository",
		"message", "In-memory repository does not support time-based queries for anonymization",
		"solution", "Implement PostgresAuditRepository with batch anonymization support",
	)

	return fmt.Errorf("IP anonymization not supported for in-memory repository")
}
