package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserverHooks(t *testing.T) {
	m := New()

	m.IterationSkipped()
	m.DetectionFailed()
	m.IterationCompleted(2, 30*time.Millisecond)
	assert.Equal(t, uint64(1), m.PlasticPresent.Load())
	m.IterationCompleted(0, 10*time.Millisecond)

	assert.Equal(t, uint64(2), m.Iterations.Load())
	assert.Equal(t, uint64(1), m.Skipped.Load())
	assert.Equal(t, uint64(1), m.DetectFailures.Load())
	assert.Equal(t, uint64(2), m.KeptDetections.Load())
	assert.Equal(t, uint64(0), m.PlasticPresent.Load())
	assert.Equal(t, 1, testutil.CollectAndCount(m.detectDuration))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.RegisterGauge("seawatch_stream_subscribers", "Active verdict subscribers", func() float64 { return 3 })
	m.IterationCompleted(1, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	for _, name := range []string{
		"seawatch_iterations_total 1",
		"seawatch_plastic_present 1",
		"seawatch_stream_subscribers 3",
		"seawatch_detection_duration_seconds_count 1",
	} {
		assert.True(t, strings.Contains(text, name), "missing %q", name)
	}
}
