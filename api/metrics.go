package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records the normalized outcome of every endpoint call.
type Metrics struct {
	Responses       *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the client metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Responses: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "curator",
				Subsystem: "api",
				Name:      "responses_total",
				Help:      "Normalized API responses by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "curator",
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "API call duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (m *Metrics) observe(op Operation, outcome Outcome, elapsed time.Duration) {
	if m == nil || outcome == nil {
		return
	}
	m.Responses.WithLabelValues(string(op), outcome.Kind().String()).Inc()
	m.RequestDuration.WithLabelValues(string(op)).Observe(elapsed.Seconds())
}
