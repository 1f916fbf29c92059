// Package observability provides Prometheus metrics for aggregation passes.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "case_metrics"

// Skip reasons used as the reason label of RecordsSkipped.
const (
	ReasonMalformed  = "malformed"
	ReasonNoItem     = "no_item"
	ReasonNoTime     = "no_time"
	ReasonNotNumeric = "not_numeric"
)

// Metrics holds all Prometheus metrics of the aggregation pass.
// Each instance owns its registry, so several can coexist in one process.
type Metrics struct {
	Registry *prometheus.Registry

	// Ingestion metrics
	FeedsRead      prometheus.Counter
	RecordsRead    *prometheus.CounterVec
	RecordsSkipped *prometheus.CounterVec
	Observations   *prometheus.CounterVec
	TimeFallbacks  *prometheus.CounterVec

	// Store metrics
	TicksInserted  prometheus.Counter
	TicksDuplicate prometheus.Counter

	// Pass metrics
	PassRunsTotal *prometheus.CounterVec
	PassDuration  prometheus.Histogram
	SnapshotRows  prometheus.Gauge

	// Health metrics
	LastSuccessfulPass prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered on a fresh registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		FeedsRead: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "feeds_read_total",
			Help:      "Total number of feed files read",
		}),
		RecordsRead: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "records_read_total",
			Help:      "Total number of records decoded, by feed",
		}, []string{"feed"}),
		RecordsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "records_skipped_total",
			Help:      "Total number of lines, records or metric values skipped, by reason",
		}, []string{"reason"}),
		Observations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "observations_total",
			Help:      "Total number of observations extracted, by metric",
		}, []string{"metric"}),
		TimeFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "time_fallback_observations_total",
			Help:      "Total number of observations stamped with the pass start because the record had no usable timestamp, by feed",
		}, []string{"feed"}),

		TicksInserted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "ticks_inserted_total",
			Help:      "Total number of ticks inserted",
		}),
		TicksDuplicate: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "ticks_duplicate_total",
			Help:      "Total number of ticks ignored because (key, timestamp) was already stored",
		}),

		PassRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pass",
			Name:      "runs_total",
			Help:      "Total number of aggregation passes by status",
		}, []string{"status"}),
		PassDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pass",
			Name:      "duration_seconds",
			Help:      "Aggregation pass duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
		SnapshotRows: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pass",
			Name:      "snapshot_rows",
			Help:      "Number of rows in the last written snapshot",
		}),

		LastSuccessfulPass: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pass_timestamp",
			Help:      "Unix timestamp of last successful aggregation pass",
		}),
	}
}

// RecordPass records the outcome of a pass.
func (m *Metrics) RecordPass(status string, duration time.Duration) {
	m.PassRunsTotal.WithLabelValues(status).Inc()
	m.PassDuration.Observe(duration.Seconds())
}

// RecordSuccess marks a successful pass that wrote rows.
func (m *Metrics) RecordSuccess(at time.Time, rows int) {
	m.SnapshotRows.Set(float64(rows))
	m.LastSuccessfulPass.Set(float64(at.Unix()))
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// WriteTextfile writes the current metrics in the text exposition format,
// for node_exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
