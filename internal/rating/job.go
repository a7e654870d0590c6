package rating

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// AggregateStore persists reconciled aggregates.
type AggregateStore interface {
	// SaveAggregate writes a recomputed aggregate for an ONG.
	SaveAggregate(ctx context.Context, agg Aggregate) error
}

// JobMetrics provides centralized background job metrics tracking.
// This interface allows the job to report to the centralized job
// metrics system.
type JobMetrics interface {
	IncJobsTotal(jobType, status string)
	ObserveJobDuration(jobType string, seconds float64)
	IncJobErrors(jobType, errorType string)
}

// jobType under which the reconcile job reports to centralized
// job metrics.
const reconcileJobType = "rating_reconcile"

// Default cadence for the reconcile job.
const (
	DefaultReconcileInterval = 5 * time.Minute
	DefaultReconcileTimeout  = 30 * time.Second
)

// ReconcileJobConfig configures the rating aggregate reconcile job.
type ReconcileJobConfig struct {
	// Interval is the duration between reconcile cycles.
	Interval time.Duration
	// Logger for job activity.
	Logger *slog.Logger
	// Metrics for performance tracking.
	Metrics *Metrics
	// JobMetrics for centralized background job tracking.
	JobMetrics JobMetrics
	// Timeout for each reconcile cycle.
	Timeout time.Duration
}

// DirtyTracker tracks which ONGs have rating changes pending
// aggregate reconciliation. Thread-safe via RWMutex.
type DirtyTracker struct {
	mu         sync.RWMutex
	dirtyFlags map[int64]time.Time
}

// NewDirtyTracker creates a new DirtyTracker instance.
func NewDirtyTracker() *DirtyTracker {
	return &DirtyTracker{dirtyFlags: make(map[int64]time.Time)}
}

// MarkDirty marks an ONG as needing aggregate reconciliation.
func (t *DirtyTracker) MarkDirty(ongID int64) {
	t.mu.Lock()
	t.dirtyFlags[ongID] = time.Now()
	t.mu.Unlock()
}

// ClearDirty removes the dirty flag for an ONG after reconciliation.
func (t *DirtyTracker) ClearDirty(ongID int64) {
	t.mu.Lock()
	delete(t.dirtyFlags, ongID)
	t.mu.Unlock()
}

// DirtyOngs returns the ONG IDs currently marked dirty.
func (t *DirtyTracker) DirtyOngs() []int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ongs := make([]int64, 0, len(t.dirtyFlags))
	for ongID := range t.dirtyFlags {
		ongs = append(ongs, ongID)
	}
	return ongs
}

// IsDirty checks if a specific ONG is marked as dirty.
func (t *DirtyTracker) IsDirty(ongID int64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, exists := t.dirtyFlags[ongID]
	return exists
}

// DirtyCount returns the number of ONGs marked as dirty.
func (t *DirtyTracker) DirtyCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.dirtyFlags)
}

// ReconcileJob periodically recomputes rating aggregates for dirty
// ONGs from the stored ratings, repairing any drift in the
// denormalized columns.
type ReconcileJob struct {
	config  ReconcileJobConfig
	tracker *DirtyTracker
	source  Repository
	store   AggregateStore

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewReconcileJob creates a new rating aggregate reconcile job.
func NewReconcileJob(
	config ReconcileJobConfig,
	tracker *DirtyTracker,
	source Repository,
	store AggregateStore,
) *ReconcileJob {
	if config.Interval == 0 {
		config.Interval = DefaultReconcileInterval
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultReconcileTimeout
	}

	return &ReconcileJob{
		config:  config,
		tracker: tracker,
		source:  source,
		store:   store,
	}
}

// Start begins the periodic reconciliation.
// Returns immediately; the job runs in a background goroutine.
func (j *ReconcileJob) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return nil
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})
	j.mu.Unlock()

	go j.run(ctx)
	return nil
}

// Stop signals the job to stop and waits for it to finish.
func (j *ReconcileJob) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	stopCh := j.stopCh
	doneCh := j.doneCh
	j.mu.Unlock()

	close(stopCh)
	<-doneCh

	j.mu.Lock()
	j.running = false
	j.mu.Unlock()
}

// IsRunning returns whether the job is currently running.
func (j *ReconcileJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// run is the main loop for the reconcile job.
func (j *ReconcileJob) run(ctx context.Context) {
	defer close(j.doneCh)

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.config.Logger.Info("rating reconcile job stopping due to context cancellation")
			return
		case <-j.stopCh:
			j.config.Logger.Info("rating reconcile job stopping due to stop signal")
			return
		case <-ticker.C:
			j.reconcileDirtyOngs(ctx)
		}
	}
}

// reconcileDirtyOngs recomputes and stores aggregates for all dirty ONGs.
func (j *ReconcileJob) reconcileDirtyOngs(parentCtx context.Context) {
	dirtyOngs := j.tracker.DirtyOngs()
	if len(dirtyOngs) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(parentCtx, j.config.Timeout)
	defer cancel()

	startTime := time.Now()
	ongCount := len(dirtyOngs)
	var successCount int

	j.config.Logger.Info("reconciling rating aggregates",
		"dirty_count", ongCount)

	for i, ongID := range dirtyOngs {
		select {
		case <-ctx.Done():
			j.config.Logger.Error("rating reconcile timeout exceeded",
				"processed", i,
				"total", ongCount,
				"timeout", j.config.Timeout)
			if j.config.Metrics != nil {
				j.config.Metrics.IncReconcileErrors()
			}
			duration := time.Since(startTime).Seconds()
			if j.config.Metrics != nil {
				j.config.Metrics.ObserveReconcileDuration(duration)
			}
			if j.config.JobMetrics != nil {
				j.config.JobMetrics.IncJobErrors(reconcileJobType, "timeout")
				j.config.JobMetrics.IncJobsTotal(reconcileJobType, "failure")
				j.config.JobMetrics.ObserveJobDuration(reconcileJobType, duration)
			}
			return
		default:
		}

		if err := j.reconcileOng(ctx, ongID); err != nil {
			j.config.Logger.Error("failed to reconcile rating aggregate",
				"ong_id", ongID,
				"error", err)
			if j.config.Metrics != nil {
				j.config.Metrics.IncReconcileErrors()
			}
			if j.config.JobMetrics != nil {
				j.config.JobMetrics.IncJobErrors(reconcileJobType, "reconcile_error")
			}
			continue
		}

		j.tracker.ClearDirty(ongID)
		successCount++
	}

	duration := time.Since(startTime).Seconds()
	status := "success"
	if successCount < ongCount {
		status = "failure"
	}

	if j.config.Metrics != nil {
		j.config.Metrics.IncReconcileTotal()
		j.config.Metrics.ObserveReconcileDuration(duration)
		j.config.Metrics.SetLastReconcileTimestamp(float64(time.Now().Unix()))
		j.config.Metrics.SetLastReconcileOngCount(float64(successCount))
	}
	if j.config.JobMetrics != nil {
		j.config.JobMetrics.IncJobsTotal(reconcileJobType, status)
		j.config.JobMetrics.ObserveJobDuration(reconcileJobType, duration)
	}

	j.config.Logger.Info("rating reconcile completed",
		"duration_seconds", duration,
		"ongs_processed", successCount,
		"ongs_failed", ongCount-successCount)
}

// reconcileOng recomputes and stores the aggregate for a single ONG.
func (j *ReconcileJob) reconcileOng(ctx context.Context, ongID int64) error {
	agg, err := j.source.AggregateForOng(ctx, ongID)
	if err != nil {
		return err
	}
	if err := j.store.SaveAggregate(ctx, agg); err != nil {
		return err
	}

	j.config.Logger.Debug("rating aggregate reconciled",
		"ong_id", ongID,
		"average", agg.Average,
		"count", agg.Count)
	return nil
}

// ReconcileNow immediately reconciles all dirty ONGs without waiting
// for the ticker. This is useful for testing or forcing immediate
// updates.
func (j *ReconcileJob) ReconcileNow() {
	j.reconcileDirtyOngs(context.Background())
}
