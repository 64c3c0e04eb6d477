package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_Singleton(t *testing.T) {
	assert.Same(t, Get(), Get())
}

func TestRecordSample(t *testing.T) {
	r := New()
	r.RecordSample("eth0", 9300, 1500000, 12)

	assert.Equal(t, 9300.0, testutil.ToFloat64(r.BacklogPackets.WithLabelValues("eth0")))
	assert.Equal(t, 1500000.0, testutil.ToFloat64(r.BacklogBytes.WithLabelValues("eth0")))
	assert.Equal(t, 12.0, testutil.ToFloat64(r.QdiscDrops.WithLabelValues("eth0")))
}

func TestSetState(t *testing.T) {
	r := New()
	all := []string{"startup", "waiting", "flapping"}

	r.SetState("eth0", "waiting", all)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.MonitorState.WithLabelValues("eth0", "waiting")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.MonitorState.WithLabelValues("eth0", "startup")))

	r.SetState("eth0", "flapping", all)
	assert.Equal(t, 0.0, testutil.ToFloat64(r.MonitorState.WithLabelValues("eth0", "waiting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.MonitorState.WithLabelValues("eth0", "flapping")))
}

func TestHandler(t *testing.T) {
	r := New()
	r.Flaps.WithLabelValues("eth0").Inc()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `qdiscwatch_flaps_total{interface="eth0"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
