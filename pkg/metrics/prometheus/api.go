// Package prometheus provides Prometheus implementations of the interfaces in
// pkg/metrics.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/reportshare/pkg/metrics"
)

// apiMetrics is the Prometheus implementation of metrics.APIMetrics.
type apiMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewAPIMetrics creates request metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewAPIMetrics() metrics.APIMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &apiMetrics{
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "reportshare_api_requests_total",
				Help: "Total number of REST calls by method, route and outcome",
			},
			[]string{"method", "route", "outcome"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "reportshare_api_request_duration_milliseconds",
				Help: "Duration of REST calls in milliseconds",
				Buckets: []float64{
					10, 50, 100, 250, 500,
					1000,  // 1s
					5000,  // 5s
					15000, // 15s
					60000, // per-call timeout
				},
			},
			[]string{"method", "route"},
		),
	}
}

func (m *apiMetrics) ObserveRequest(method, route, outcome string, d time.Duration) {
	m.requests.WithLabelValues(method, route, outcome).Inc()
	m.duration.WithLabelValues(method, route).Observe(float64(d.Microseconds()) / 1000.0)
}
