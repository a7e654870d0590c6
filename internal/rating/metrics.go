package rating

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricReconcileTotal        = "rating_reconcile_total"
	MetricReconcileErrors       = "rating_reconcile_errors_total"
	MetricReconcileDuration     = "rating_reconcile_duration_seconds"
	MetricLastReconcileUnixTime = "rating_last_reconcile_timestamp"
	MetricLastReconcileOngCount = "rating_last_reconcile_ong_count"
)

// Metrics contains Prometheus metrics for rating aggregate
// reconciliation. All operations are thread-safe.
type Metrics struct {
	reconcileTotal        prometheus.Counter
	reconcileErrors       prometheus.Counter
	reconcileDuration     prometheus.Histogram
	lastReconcileUnixTime prometheus.Gauge
	lastReconcileOngCount prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to
// register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		reconcileTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricReconcileTotal,
			Help: "Total number of rating aggregate reconciliation runs",
		}),
		reconcileErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricReconcileErrors,
			Help: "Total number of rating aggregate reconciliation errors",
		}),
		reconcileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricReconcileDuration,
			Help:    "Histogram of rating aggregate reconciliation duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
		}),
		lastReconcileUnixTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricLastReconcileUnixTime,
			Help: "Unix timestamp of the last rating aggregate reconciliation",
		}),
		lastReconcileOngCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricLastReconcileOngCount,
			Help: "Number of ONGs processed in the last rating aggregate reconciliation",
		}),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncReconcileTotal increments the reconcile total counter.
func (m *Metrics) IncReconcileTotal() {
	m.reconcileTotal.Inc()
}

// IncReconcileErrors increments the reconcile errors counter.
func (m *Metrics) IncReconcileErrors() {
	m.reconcileErrors.Inc()
}

// ObserveReconcileDuration records a reconcile duration sample.
func (m *Metrics) ObserveReconcileDuration(seconds float64) {
	m.reconcileDuration.Observe(seconds)
}

// SetLastReconcileTimestamp sets the last reconcile timestamp gauge.
func (m *Metrics) SetLastReconcileTimestamp(timestamp float64) {
	m.lastReconcileUnixTime.Set(timestamp)
}

// SetLastReconcileOngCount sets the last reconcile ONG count gauge.
func (m *Metrics) SetLastReconcileOngCount(count float64) {
	m.lastReconcileOngCount.Set(count)
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.reconcileTotal,
		m.reconcileErrors,
		m.reconcileDuration,
		m.lastReconcileUnixTime,
		m.lastReconcileOngCount,
	}
}
