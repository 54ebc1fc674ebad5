package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects annotation loop statistics on a private registry.
// It implements the loop's Observer hooks.
type Metrics struct {
	Iterations      atomic.Uint64
	Skipped         atomic.Uint64
	DetectFailures  atomic.Uint64
	KeptDetections  atomic.Uint64
	PlasticPresent  atomic.Uint64 // 0 or 1
	PlantAnalyses   atomic.Uint64
	AlertsPublished atomic.Uint64

	detectDuration prometheus.Histogram
	registry       *prometheus.Registry
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		detectDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "seawatch_detection_duration_seconds",
			Help:    "Time spent in one detection model call",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
	}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	counters := []struct {
		name, help string
		v          *atomic.Uint64
	}{
		{"seawatch_iterations_total", "Frames annotated and published", &m.Iterations},
		{"seawatch_iterations_skipped_total", "Iterations skipped because no frame was ready", &m.Skipped},
		{"seawatch_detection_failures_total", "Detection calls that failed or returned no data", &m.DetectFailures},
		{"seawatch_plastic_detections_total", "Plastic-like detections kept after filtering", &m.KeptDetections},
		{"seawatch_plant_analyses_total", "Plant health analyses run", &m.PlantAnalyses},
		{"seawatch_alerts_published_total", "Plastic alerts published to NATS", &m.AlertsPublished},
	}
	for _, c := range counters {
		v := c.v
		m.registry.MustRegister(prometheus.NewCounterFunc(
			prometheus.CounterOpts{Name: c.name, Help: c.help},
			func() float64 { return float64(v.Load()) },
		))
	}

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "seawatch_plastic_present",
			Help: "1 when the latest annotated frame contains plastic",
		},
		func() float64 { return float64(m.PlasticPresent.Load()) },
	))
	m.registry.MustRegister(m.detectDuration)
	m.registry.MustRegister(collectors.NewGoCollector())
}

// RegisterGauge exposes a value owned by another component.
func (m *Metrics) RegisterGauge(name, help string, fn func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, fn))
}

func (m *Metrics) IterationSkipped() {
	m.Skipped.Add(1)
}

func (m *Metrics) DetectionFailed() {
	m.DetectFailures.Add(1)
}

func (m *Metrics) IterationCompleted(kept int, detect time.Duration) {
	m.Iterations.Add(1)
	m.KeptDetections.Add(uint64(kept))
	if kept > 0 {
		m.PlasticPresent.Store(1)
	} else {
		m.PlasticPresent.Store(0)
	}
	m.detectDuration.Observe(detect.Seconds())
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
