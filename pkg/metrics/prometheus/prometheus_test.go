package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/reportshare/pkg/metrics"
)

func enableMetrics(t *testing.T) {
	t.Helper()
	metrics.Reset()
	metrics.InitRegistry()
	t.Cleanup(metrics.Reset)
}

func TestConstructorsNilWhenDisabled(t *testing.T) {
	metrics.Reset()
	assert.Nil(t, NewAPIMetrics())
	assert.Nil(t, NewBusMetrics())
}

func TestAPIMetrics(t *testing.T) {
	enableMetrics(t)

	m := NewAPIMetrics()
	require.NotNil(t, m)
	m.ObserveRequest("GET", "/share/shared-by/:userId", "ok", 40*time.Millisecond)
	m.ObserveRequest("GET", "/share/shared-by/:userId", "ok", 60*time.Millisecond)
	m.ObserveRequest("POST", "/share/revoke", "NotFoundError", 5*time.Millisecond)

	impl := m.(*apiMetrics)
	assert.Equal(t, 2.0, testutil.ToFloat64(impl.requests.WithLabelValues("GET", "/share/shared-by/:userId", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(impl.requests.WithLabelValues("POST", "/share/revoke", "NotFoundError")))
}

func TestBusMetrics(t *testing.T) {
	enableMetrics(t)

	m := NewBusMetrics()
	require.NotNil(t, m)
	m.SetState("connecting")
	m.SetState("connected")
	m.ObserveReconnect()
	m.ObserveEvent("report-shared")
	m.ObserveEvent("report-shared")
	m.ObserveDropped()

	impl := m.(*busMetrics)
	assert.Equal(t, 1.0, testutil.ToFloat64(impl.state.WithLabelValues("connected")))
	assert.Equal(t, 0.0, testutil.ToFloat64(impl.state.WithLabelValues("connecting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(impl.reconnects))
	assert.Equal(t, 2.0, testutil.ToFloat64(impl.events.WithLabelValues("report-shared")))
	assert.Equal(t, 1.0, testutil.ToFloat64(impl.dropped))
}

func TestHandlerExposesCollectors(t *testing.T) {
	enableMetrics(t)
	NewBusMetrics().ObserveEvent("report-revoked")

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `reportshare_notify_events_total{event="report-revoked"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
