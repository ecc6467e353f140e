package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/reportshare/pkg/metrics"
)

// busStates are the values of the state label; exactly one is 1 at a time.
var busStates = []string{"connecting", "connected", "reconnecting", "disconnected"}

// busMetrics is the Prometheus implementation of metrics.BusMetrics.
type busMetrics struct {
	state      *prometheus.GaugeVec
	reconnects prometheus.Counter
	events     *prometheus.CounterVec
	dropped    prometheus.Counter
}

// NewBusMetrics creates notification bus metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewBusMetrics() metrics.BusMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &busMetrics{
		state: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "reportshare_notify_connection_state",
				Help: "Current push connection state (1 for the active state)",
			},
			[]string{"state"},
		),
		reconnects: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "reportshare_notify_reconnects_total",
			Help: "Total number of push reconnect attempts",
		}),
		events: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "reportshare_notify_events_total",
				Help: "Total number of push events appended to the feed by type",
			},
			[]string{"event"},
		),
		dropped: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "reportshare_notify_dropped_total",
			Help: "Total number of events dropped for slow subscribers",
		}),
	}
}

func (m *busMetrics) SetState(state string) {
	for _, s := range busStates {
		v := 0.0
		if s == state {
			v = 1
		}
		m.state.WithLabelValues(s).Set(v)
	}
}

func (m *busMetrics) ObserveReconnect() {
	m.reconnects.Inc()
}

func (m *busMetrics) ObserveEvent(kind string) {
	m.events.WithLabelValues(kind).Inc()
}

func (m *busMetrics) ObserveDropped() {
	m.dropped.Inc()
}
