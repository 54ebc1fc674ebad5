package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, 60, cfg.RefreshRate)
	assert.Equal(t, time.Duration(0), cfg.DetectTimeout)
	assert.Equal(t, ModelBackendDNN, cfg.ModelBackend)
	assert.Equal(t, CanvasBackendOpenCV, cfg.CanvasBackend)
	assert.False(t, cfg.AlertsEnabled)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("REFRESH_RATE", "30")
	t.Setenv("DETECT_TIMEOUT", "750ms")
	t.Setenv("MODEL_BACKEND", ModelBackendRemote)
	t.Setenv("MODEL_SCALE", "0.007843")
	t.Setenv("ALERTS_ENABLED", "true")
	t.Setenv("NATS_URL", "nats://broker:4222")
	t.Setenv("LABEL_FONT_PATH", "/usr/share/fonts/label.ttf")
	t.Setenv("LABEL_FONT_SIZE", "18.5")

	cfg := Load()

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 30, cfg.RefreshRate)
	assert.Equal(t, 750*time.Millisecond, cfg.DetectTimeout)
	assert.Equal(t, ModelBackendRemote, cfg.ModelBackend)
	assert.InDelta(t, 0.007843, cfg.ModelScale, 1e-9)
	assert.True(t, cfg.AlertsEnabled)
	assert.Equal(t, "nats://broker:4222", cfg.NatsURL)
	assert.Equal(t, "/usr/share/fonts/label.ttf", cfg.LabelFontPath)
	assert.InDelta(t, 18.5, cfg.LabelFontSize, 1e-9)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	t.Setenv("AUTO_START", "maybe")
	t.Setenv("ALERTS_COOLDOWN", "soon")

	cfg := Load()

	assert.Equal(t, 8000, cfg.Port)
	assert.True(t, cfg.AutoStart)
	assert.Equal(t, 10*time.Second, cfg.AlertsCooldown)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"raster canvas", func(c *Config) { c.CanvasBackend = CanvasBackendRaster }, true},
		{"unknown model backend", func(c *Config) { c.ModelBackend = "tflite" }, false},
		{"unknown canvas", func(c *Config) { c.CanvasBackend = "webgl" }, false},
		{"zero refresh rate", func(c *Config) { c.RefreshRate = 0 }, false},
		{"jpeg quality out of range", func(c *Config) { c.SnapshotJPEGQ = 101 }, false},
		{"label font without size", func(c *Config) {
			c.LabelFontPath = "label.ttf"
			c.LabelFontSize = 0
		}, false},
		{"negative detect timeout", func(c *Config) { c.DetectTimeout = -time.Second }, false},
		{"remote without url", func(c *Config) {
			c.ModelBackend = ModelBackendRemote
			c.DetectorGRPCURL = ""
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
