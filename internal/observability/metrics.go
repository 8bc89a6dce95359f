package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// alert engine.
type Metrics struct {
	ReadingsCollected *prometheus.CounterVec // labels: category, source={live,synthetic}
	ReadingsDropped   *prometheus.CounterVec // labels: category, reason
	SourceFallbacks   *prometheus.CounterVec // labels: category

	Candidates        *prometheus.CounterVec // labels: hazard_type, severity
	AlertsAccepted    *prometheus.CounterVec // labels: hazard_type, severity
	AlertsSuppressed  *prometheus.CounterVec // labels: hazard_type
	CollectionErrors  *prometheus.CounterVec // labels: category
	CollectionSeconds *prometheus.HistogramVec

	EventsDelivered prometheus.Counter
	Subscriptions   prometheus.Gauge
	SchedulerTicks  *prometheus.CounterVec // labels: category, trigger={timer,manual}
	EngineRunning   prometheus.Gauge
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ReadingsCollected,
		m.ReadingsDropped,
		m.SourceFallbacks,
		m.Candidates,
		m.AlertsAccepted,
		m.AlertsSuppressed,
		m.CollectionErrors,
		m.CollectionSeconds,
		m.EventsDelivered,
		m.Subscriptions,
		m.SchedulerTicks,
		m.EngineRunning,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ReadingsCollected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_engine",
			Name:      "readings_collected_total",
			Help:      "Readings produced by source adapters, by category and live/synthetic origin.",
		}, []string{"category", "source"}),
		ReadingsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_engine",
			Name:      "readings_dropped_total",
			Help:      "Readings dropped before classification, by category and reason.",
		}, []string{"category", "reason"}),
		SourceFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_engine",
			Name:      "source_fallbacks_total",
			Help:      "Collection cycles that fell back to synthetic readings.",
		}, []string{"category"}),
		Candidates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_engine",
			Name:      "candidates_total",
			Help:      "Candidate alerts emitted by the classifier.",
		}, []string{"hazard_type", "severity"}),
		AlertsAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_engine",
			Name:      "alerts_accepted_total",
			Help:      "Candidates accepted by the deduplication gate and persisted.",
		}, []string{"hazard_type", "severity"}),
		AlertsSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_engine",
			Name:      "alerts_suppressed_total",
			Help:      "Candidates suppressed by an existing active alert.",
		}, []string{"hazard_type"}),
		CollectionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_engine",
			Name:      "collection_errors_total",
			Help:      "Collection cycles abandoned because of a surfaced error.",
		}, []string{"category"}),
		CollectionSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hazard_engine",
			Name:      "collection_duration_seconds",
			Help:      "Duration of a full collect-classify-admit cycle per category.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"category"}),
		EventsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_engine",
			Name:      "events_delivered_total",
			Help:      "Alert events delivered to subscribers.",
		}),
		Subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazard_engine",
			Name:      "subscriptions",
			Help:      "Live fan-out subscriptions.",
		}),
		SchedulerTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_engine",
			Name:      "scheduler_ticks_total",
			Help:      "Collection cycles by category and trigger path.",
		}, []string{"category", "trigger"}),
		EngineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazard_engine",
			Name:      "running",
			Help:      "1 when the scheduler is active, 0 when shut down.",
		}),
	}
}
