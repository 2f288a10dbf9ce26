package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelayMetrics_NilIsNoop(t *testing.T) {
	var m *RelayMetrics

	assert.NotPanics(t, func() {
		m.SetSubscribers(3)
		m.Submitted()
		m.Push(PushQueued)
		m.WriteFailed()
		m.ObserveWrite(time.Millisecond)
		m.SetQueueDepth(1)
		m.Panicked()
	})
}

func TestRelayMetrics_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRelayMetrics(reg)

	m.SetSubscribers(2)
	m.Submitted()
	m.Submitted()
	m.Push(PushQueued)
	m.Push(PushQueued)
	m.Push(PushSkipped)
	m.WriteFailed()

	assert.InDelta(t, 2, testutil.ToFloat64(m.Subscribers), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.Submissions), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.Pushes.WithLabelValues(PushQueued)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Pushes.WithLabelValues(PushSkipped)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.WriteFailures), 0)
}

func TestHandler_ServesRegisteredMetrics(t *testing.T) {
	reg := NewRegistry()
	m := NewRelayMetrics(reg)
	m.Submitted()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "aiversity_relay_submissions_total 1"), body)
	assert.Contains(t, body, "go_goroutines")
}
