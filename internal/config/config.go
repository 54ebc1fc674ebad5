package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	ModelBackendDNN    = "dnn"
	ModelBackendRemote = "remote"

	CanvasBackendRaster = "raster"
	CanvasBackendOpenCV = "opencv"
)

type Config struct {
	// Application
	Version     string
	Environment string
	StationID   string
	Port        int
	LogLevel    string

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// Cameras
	// A source is a device index ("0"), a stream URL, or "file:<path>" for a still image
	PlasticCameraSource string
	PlantCameraSource   string
	CaptureWidth        int
	CaptureHeight       int
	CaptureFPS          int
	CaptureMaxErrors    int

	// Annotation loop
	RefreshRate     int           // repaint ticks per second
	DetectTimeout   time.Duration // 0 = wait for the model as long as it takes
	AutoStart       bool
	CanvasBackend   string
	SnapshotJPEGQ   int
	StreamKeepalive time.Duration
	LabelFontPath   string  // TrueType font for raster labels, empty = built-in
	LabelFontSize   float64 // points

	// Detection model
	ModelBackend     string
	ModelPath        string
	ModelConfigPath  string
	ModelLabelsPath  string
	ModelInputSize   int
	ModelScale       float64
	ModelSwapRB      bool
	ModelDNNBackend  string
	ModelDNNTarget   string
	DetectorGRPCURL  string
	DetectorTimeout  time.Duration
	DetectorGRPCPort int

	// NATS (for alerts)
	NatsURL            string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int

	// Alerting via NATS
	AlertsEnabled  bool
	AlertsSubject  string
	AlertsCooldown time.Duration

	// Plant monitoring
	PlantAnalyzeInterval time.Duration // 0 = only on request

	// Swagger Configuration
	SwaggerHost string

	// Graceful Shutdown
	ShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading .env file, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	return &Config{
		// Application
		Version:     getEnv("VERSION", "1.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),
		StationID:   getEnv("STATION_ID", "station-1"),
		Port:        getEnvInt("PORT", 8000),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Logdy
		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8080),

		// Cameras
		PlasticCameraSource: getEnv("PLASTIC_CAMERA_SOURCE", "0"),
		PlantCameraSource:   getEnv("PLANT_CAMERA_SOURCE", "0"),
		CaptureWidth:        getEnvInt("CAPTURE_WIDTH", 640),
		CaptureHeight:       getEnvInt("CAPTURE_HEIGHT", 480),
		CaptureFPS:          getEnvInt("CAPTURE_FPS", 30),
		CaptureMaxErrors:    getEnvInt("CAPTURE_MAX_ERRORS", 10),

		// Annotation loop
		RefreshRate:     getEnvInt("REFRESH_RATE", 60),
		DetectTimeout:   getEnvDuration("DETECT_TIMEOUT", 0),
		AutoStart:       getEnvBool("AUTO_START", true),
		CanvasBackend:   getEnv("CANVAS_BACKEND", CanvasBackendOpenCV),
		SnapshotJPEGQ:   getEnvInt("SNAPSHOT_JPEG_QUALITY", 85),
		StreamKeepalive: getEnvDuration("STREAM_KEEPALIVE", 2*time.Second),
		LabelFontPath:   getEnv("LABEL_FONT_PATH", ""),
		LabelFontSize:   getEnvFloat("LABEL_FONT_SIZE", 16),

		// Detection model (SSD MobileNet v2 COCO, the same family coco-ssd ships)
		ModelBackend:     getEnv("MODEL_BACKEND", ModelBackendDNN),
		ModelPath:        getEnv("MODEL_PATH", "models/frozen_inference_graph.pb"),
		ModelConfigPath:  getEnv("MODEL_CONFIG_PATH", "models/ssd_mobilenet_v2_coco.pbtxt"),
		ModelLabelsPath:  getEnv("MODEL_LABELS_PATH", "models/coco_labels.txt"),
		ModelInputSize:   getEnvInt("MODEL_INPUT_SIZE", 300),
		ModelScale:       getEnvFloat("MODEL_SCALE", 1.0),
		ModelSwapRB:      getEnvBool("MODEL_SWAP_RB", true),
		ModelDNNBackend:  getEnv("MODEL_DNN_BACKEND", "default"),
		ModelDNNTarget:   getEnv("MODEL_DNN_TARGET", "cpu"),
		DetectorGRPCURL:  getEnv("DETECTOR_GRPC_URL", "localhost:50052"),
		DetectorTimeout:  getEnvDuration("DETECTOR_TIMEOUT", 5*time.Second),
		DetectorGRPCPort: getEnvInt("DETECTOR_GRPC_PORT", 50052),

		// NATS
		NatsURL:            getNatsURL(),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited

		// Alerting via NATS
		AlertsEnabled:  getEnvBool("ALERTS_ENABLED", false),
		AlertsSubject:  getEnv("ALERTS_SUBJECT", "seawatch.alerts.plastic"),
		AlertsCooldown: getEnvDuration("ALERTS_COOLDOWN", 10*time.Second),

		// Plant monitoring
		PlantAnalyzeInterval: getEnvDuration("PLANT_ANALYZE_INTERVAL", 0),

		// Swagger Configuration
		SwaggerHost: getEnv("SWAGGER_HOST", "localhost:8000"),

		// Graceful Shutdown
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// Validate reports settings that cannot work together
func (c *Config) Validate() error {
	switch c.ModelBackend {
	case ModelBackendDNN, ModelBackendRemote:
	default:
		return fmt.Errorf("unknown MODEL_BACKEND %q (supported: %s, %s)", c.ModelBackend, ModelBackendDNN, ModelBackendRemote)
	}
	switch c.CanvasBackend {
	case CanvasBackendRaster, CanvasBackendOpenCV:
	default:
		return fmt.Errorf("unknown CANVAS_BACKEND %q (supported: %s, %s)", c.CanvasBackend, CanvasBackendRaster, CanvasBackendOpenCV)
	}
	if c.RefreshRate <= 0 {
		return fmt.Errorf("REFRESH_RATE must be positive, got %d", c.RefreshRate)
	}
	if c.SnapshotJPEGQ < 1 || c.SnapshotJPEGQ > 100 {
		return fmt.Errorf("SNAPSHOT_JPEG_QUALITY must be within 1-100, got %d", c.SnapshotJPEGQ)
	}
	if c.DetectTimeout < 0 {
		return fmt.Errorf("DETECT_TIMEOUT must not be negative")
	}
	if c.LabelFontPath != "" && c.LabelFontSize <= 0 {
		return fmt.Errorf("LABEL_FONT_SIZE must be positive, got %g", c.LabelFontSize)
	}
	if c.ModelBackend == ModelBackendRemote && c.DetectorGRPCURL == "" {
		return fmt.Errorf("DETECTOR_GRPC_URL is required for the remote model backend")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Helper functions for Docker environment detection
func isRunningInDocker() bool {
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}

	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	return false
}

// getNatsURL returns the appropriate NATS URL based on environment
func getNatsURL() string {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}

	// If running in Docker, use service name; otherwise use localhost
	if isRunningInDocker() {
		return "nats://nats:4222"
	}

	return "nats://localhost:4222"
}
