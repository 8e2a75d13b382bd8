package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	upstreamCalls *prometheus.CounterVec
	gapOutcomes   *prometheus.CounterVec
	rowsMerged    *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		upstreamCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincache_upstream_calls_total",
				Help: "Upstream provider calls by outcome",
			},
			[]string{"provider", "outcome"},
		),
		gapOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincache_gap_resolutions_total",
				Help: "Gap resolutions by kind and outcome (covered or fetch)",
			},
			[]string{"kind", "outcome"},
		),
		rowsMerged: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincache_rows_merged_total",
				Help: "Rows written to the store by record kind",
			},
			[]string{"kind"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincache_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fincache_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordUpstreamCall records one provider call and its outcome.
func (r *Recorder) RecordUpstreamCall(provider, outcome string) {
	r.upstreamCalls.WithLabelValues(provider, outcome).Inc()
}

// RecordGap records a gap resolution outcome.
func (r *Recorder) RecordGap(kind, outcome string) {
	r.gapOutcomes.WithLabelValues(kind, outcome).Inc()
}

// RecordRowsMerged records rows written during a merge.
func (r *Recorder) RecordRowsMerged(kind string, n int) {
	r.rowsMerged.WithLabelValues(kind).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
