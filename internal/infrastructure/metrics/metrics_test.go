package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveBackend("GET", "/contacts", "ok", 20*time.Millisecond)
	m.ObserveBackend("GET", "/contacts", "ok", 30*time.Millisecond)
	m.ObserveBackend("GET", "/payments", "unauthorized", time.Millisecond)
	m.NotificationShown("success")
	m.StaleResult("payments")
	m.SessionEvent("expire")
	m.ObserveHTTP("GET", "/api/v1/console/tabs/:tab", 200, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.backendRequests.WithLabelValues("GET", "/contacts", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.backendRequests.WithLabelValues("GET", "/payments", "unauthorized")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.staleResults.WithLabelValues("payments")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionEvents.WithLabelValues("expire")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/v1/console/tabs/:tab", "200")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.SessionEvent("login")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `backoffice_session_events_total{event="login"} 1`)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveBackend("GET", "/x", "ok", 0)
		m.ObserveHTTP("GET", "/x", 200, 0)
		m.NotificationShown("info")
		m.StaleResult("contacts")
		m.SessionEvent("logout")
	})
	assert.Nil(t, m.Registry())

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
