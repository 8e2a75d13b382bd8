package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	drepo "FinCache/internal/domain/repository"
)

var (
	once sync.Once

	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fincache",
			Subsystem: "provider",
			Name:      "latency_seconds",
			Help:      "Latency of upstream provider calls",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	ProviderErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fincache",
			Subsystem: "provider",
			Name:      "errors_total",
			Help:      "Upstream call errors by provider and kind",
		},
		[]string{"provider", "kind"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(ProviderLatency, ProviderErrors)
	})
}

// Observe records one upstream call: latency always, an error counter
// when err is non-nil.
func Observe(provider string, start time.Time, err error) {
	ProviderLatency.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	if err != nil {
		ProviderErrors.WithLabelValues(provider, errorKind(err)).Inc()
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, drepo.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, drepo.ErrRejected):
		return "rejected"
	case errors.Is(err, drepo.ErrNotConfigured):
		return "not_configured"
	default:
		return "upstream"
	}
}
