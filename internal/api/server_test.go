package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seawatch-worker-go/internal/config"
	"seawatch-worker-go/internal/metrics"
	"seawatch-worker-go/internal/models"
	"seawatch-worker-go/internal/services/annotation"
	"seawatch-worker-go/internal/services/state"
)

type fakeController struct {
	mu       sync.Mutex
	running  bool
	startErr error
}

func (f *fakeController) StartDetection(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	if f.running {
		return models.ErrDetectionRunning
	}
	f.running = true
	return nil
}

func (f *fakeController) StopDetection() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return models.ErrDetectionNotRunning
	}
	f.running = false
	return nil
}

func (f *fakeController) DetectionStatus() models.DetectionStatusResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := models.LoopStatusStopped
	if f.running {
		st = models.LoopStatusRunning
	}
	return models.DetectionStatusResponse{Status: st, CameraID: "plastic", Latest: models.PendingState()}
}

type fakePlant struct {
	latest *models.PlantReport
	err    error
}

func (f *fakePlant) AnalyzePlant(context.Context) (models.PlantReport, error) {
	if f.err != nil {
		return models.PlantReport{}, f.err
	}
	r := models.PlantReport{Score: 80, Status: models.HealthStatusModerate, Simulated: true}
	f.latest = &r
	return r, nil
}

func (f *fakePlant) LatestPlantReport() (models.PlantReport, bool) {
	if f.latest == nil {
		return models.PlantReport{}, false
	}
	return *f.latest, true
}

type fakeStream struct{}

func (fakeStream) StreamMJPEGHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.WriteHeader(http.StatusOK)
}

type testServer struct {
	*Server
	controller *fakeController
	holder     *state.Holder
	plant      *fakePlant
	metrics    *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		Version:     "1.2.3",
		Environment: "test",
		StationID:   "station-test",
		Port:        0,
		SwaggerHost: "localhost:0",
	}
	ts := &testServer{
		controller: &fakeController{},
		holder:     state.NewHolder(4),
		plant:      &fakePlant{},
		metrics:    metrics.New(),
	}
	ts.Server = NewServer(cfg, Dependencies{
		Detection: ts.controller,
		States:    ts.holder,
		Stream:    fakeStream{},
		Plant:     ts.plant,
		Metrics:   ts.metrics.Handler(),
	})
	return ts
}

func (ts *testServer) do(method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealthAndInfo(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[map[string]string](t, rec)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "station-test", health["station_id"])
	assert.NotContains(t, health, "nats")

	rec = ts.do(http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[map[string]any](t, rec)
	assert.Equal(t, "1.2.3", info["version"])
	assert.Contains(t, info["capabilities"], "plastic_detection")
}

type fakeConnection struct{ up bool }

func (f fakeConnection) IsConnected() bool { return f.up }

func TestHealthReportsAlertConnection(t *testing.T) {
	tests := []struct {
		name       string
		up         bool
		wantStatus string
		wantNATS   string
	}{
		{"connected", true, "healthy", "connected"},
		{"disconnected", false, "degraded", "disconnected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{StationID: "station-test", Environment: "test"}
			srv := NewServer(cfg, Dependencies{
				Detection: &fakeController{},
				States:    state.NewHolder(1),
				Stream:    fakeStream{},
				Plant:     &fakePlant{},
				Metrics:   metrics.New().Handler(),
				Messaging: fakeConnection{up: tt.up},
			})

			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			require.Equal(t, http.StatusOK, rec.Code)
			health := decode[map[string]string](t, rec)
			assert.Equal(t, tt.wantStatus, health["status"])
			assert.Equal(t, tt.wantNATS, health["nats"])
		})
	}
}

func TestDetectionControl(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/detection/stop")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodPost, "/detection/start")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[models.DetectionStatusResponse](t, rec)
	assert.Equal(t, models.LoopStatusRunning, status.Status)

	rec = ts.do(http.MethodPost, "/detection/start")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "already running")

	rec = ts.do(http.MethodGet, "/detection/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.LoopStatusRunning, decode[models.DetectionStatusResponse](t, rec).Status)

	rec = ts.do(http.MethodPost, "/detection/stop")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.LoopStatusStopped, ts.controller.DetectionStatus().Status)
}

func TestDetectionStartErrors(t *testing.T) {
	ts := newTestServer(t)

	ts.controller.startErr = &annotation.ModelLoadError{Err: errors.New("weights missing")}
	rec := ts.do(http.MethodPost, "/detection/start")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "weights missing")

	ts.controller.startErr = errors.New("failed to open camera")
	rec = ts.do(http.MethodPost, "/detection/start")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStreamRoute(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/detection/stream")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "multipart/x-mixed-replace; boundary=frame", rec.Header().Get("Content-Type"))
}

func TestPlantRoutes(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/plant/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodPost, "/plant/analyze")
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[models.PlantReport](t, rec)
	assert.Equal(t, models.HealthStatusModerate, report.Status)

	rec = ts.do(http.MethodGet, "/plant/latest")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 80, decode[models.PlantReport](t, rec).Score)

	ts.plant.err = errors.New("sensor offline")
	rec = ts.do(http.MethodPost, "/plant/analyze")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	ts := newTestServer(t)
	ts.metrics.IterationCompleted(1, time.Millisecond)

	rec := ts.do(http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "seawatch_iterations_total 1")
}

func TestMiddleware(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodOptions, "/detection/start")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = ts.do(http.MethodGet, "/health")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec = httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestDocsAndUI(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/docs/doc.json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/detection/start")

	rec = ts.do(http.MethodGet, "/ui")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/detection/ws")

	rec = ts.do(http.MethodGet, "/api/info")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "station-test", decode[map[string]any](t, rec)["station_id"])
}

func TestVerdictWebSocket(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/detection/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var st models.AnnotationState
	require.NoError(t, conn.ReadJSON(&st))
	assert.Equal(t, models.VerdictPending, st.Verdict)
	assert.Equal(t, "No detection yet.", st.Message)

	plastic := models.NewAnnotationState(nil, []models.Detection{{Class: "bottle", Score: 0.9}})
	ts.holder.Publish(plastic)

	require.NoError(t, conn.ReadJSON(&st))
	assert.True(t, st.Plastic)
	assert.Equal(t, "Plastic Detected in Frame!", st.Message)
	require.Len(t, st.Detections, 1)
	assert.Equal(t, "bottle", st.Detections[0].Class)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return ts.holder.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestShutdownRunsRegisteredHooks(t *testing.T) {
	ts := newTestServer(t)
	released := make(chan struct{})
	ts.RegisterOnShutdown(func() { close(released) })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, ts.Shutdown(ctx))

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("shutdown hook did not run")
	}
}
