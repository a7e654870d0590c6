package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricSectionDuration = "catalog_section_duration_seconds"
	MetricOverFetchTotal  = "catalog_overfetch_total"
)

// Metrics contains Prometheus metrics for catalog ranking operations.
// All operations are thread-safe.
type Metrics struct {
	sectionDuration *prometheus.HistogramVec
	overFetchTotal  *prometheus.CounterVec
}

// NewMetrics creates and returns a new Metrics instance with all
// collectors initialized. The metrics are not registered; call Register
// to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		sectionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricSectionDuration,
				Help:    "Duration of catalog section computation in seconds by section type",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0},
			},
			[]string{"section"},
		),
		overFetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricOverFetchTotal,
				Help: "Total number of over-fetched section queries caused by an active category filter",
			},
			[]string{"section"},
		),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	if err := reg.Register(m.sectionDuration); err != nil {
		return err
	}
	return reg.Register(m.overFetchTotal)
}

// ObserveSectionDuration records how long one section computation took.
func (m *Metrics) ObserveSectionDuration(section string, seconds float64) {
	m.sectionDuration.WithLabelValues(section).Observe(seconds)
}

// RecordOverFetch increments the over-fetch counter for a section.
func (m *Metrics) RecordOverFetch(section string) {
	m.overFetchTotal.WithLabelValues(section).Inc()
}
