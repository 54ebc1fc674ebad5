package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"

	"seawatch-worker-go/internal/config"
	"seawatch-worker-go/internal/logging"
	"seawatch-worker-go/internal/metrics"
	"seawatch-worker-go/internal/models"
	"seawatch-worker-go/internal/services/alerts"
	"seawatch-worker-go/internal/services/annotation"
	opencvcanvas "seawatch-worker-go/internal/services/canvas/opencv"
	"seawatch-worker-go/internal/services/canvas/raster"
	"seawatch-worker-go/internal/services/detection/dnn"
	"seawatch-worker-go/internal/services/detection/remote"
	"seawatch-worker-go/internal/services/messaging"
	"seawatch-worker-go/internal/services/plant"
	"seawatch-worker-go/internal/services/publisher/mjpeg"
	"seawatch-worker-go/internal/services/state"
	"seawatch-worker-go/internal/services/video/opencv"
	"seawatch-worker-go/internal/services/video/still"
)

const (
	PlasticCameraID = "plastic"
	PlantCameraID   = "plant"

	stillSourcePrefix = "file:"
)

type closableSource interface {
	annotation.VideoSource
	Close() error
}

type closableCanvas interface {
	annotation.Canvas
	annotation.Snapshotter
	Close() error
}

type namedModel interface {
	annotation.Model
	Name() string
	Close() error
}

// ServiceContainer holds all services
type ServiceContainer struct {
	Config    *config.Config
	Holder    *state.Holder
	Metrics   *metrics.Metrics
	Stream    *mjpeg.Publisher
	Plant     *plant.Service
	Messaging *messaging.Service
	Alerts    *alerts.Sink

	plasticCam *cameraSlot
	plantCam   *cameraSlot
	canvas     closableCanvas
	model      namedModel
	logger     zerolog.Logger

	mu   sync.Mutex
	loop *annotation.Loop

	alertsCancel context.CancelFunc
	alertsDone   chan struct{}
}

// NewServiceContainer creates a new service container
func NewServiceContainer(cfg *config.Config) (*ServiceContainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sc := &ServiceContainer{
		Config:  cfg,
		Holder:  state.NewHolder(8),
		Metrics: metrics.New(),
		logger:  logging.NewServiceLogger(cfg, "detection"),
	}
	sc.Stream = mjpeg.NewPublisher(sc.Holder, PlasticCameraID, cfg.StreamKeepalive)
	sc.Metrics.RegisterGauge("seawatch_stream_subscribers", "Active verdict subscribers", func() float64 {
		return float64(sc.Holder.Subscribers())
	})

	sc.plasticCam = newCameraSlot(cfg, PlasticCameraID, cfg.PlasticCameraSource)
	if cfg.PlantCameraSource == cfg.PlasticCameraSource {
		sc.plantCam = sc.plasticCam
	} else {
		sc.plantCam = newCameraSlot(cfg, PlantCameraID, cfg.PlantCameraSource)
	}

	sc.canvas = newCanvas(cfg)
	sc.model = newModel(cfg)

	sensors := plant.NewSimulated(nil, nil)
	sc.Plant = plant.NewService(sensors, sc.plantCam, logging.NewServiceLogger(cfg, "plant"))
	if cfg.PlantAnalyzeInterval > 0 {
		if err := sc.plantCam.open(context.Background()); err != nil {
			log.Warn().Err(err).Msg("plant_camera_unavailable")
		}
		if err := sc.Plant.StartPeriodic(cfg.PlantAnalyzeInterval); err != nil {
			return nil, multierr.Append(err, sc.closeResources())
		}
	}

	if cfg.AlertsEnabled {
		if err := sc.startAlerts(); err != nil {
			return nil, multierr.Append(err, sc.closeResources())
		}
	}

	return sc, nil
}

func (sc *ServiceContainer) startAlerts() error {
	msg, err := messaging.NewService(sc.Config)
	if err != nil {
		return fmt.Errorf("failed to start alert messaging: %w", err)
	}
	sc.Messaging = msg
	sc.Alerts = alerts.NewSink(&countingPublisher{pub: msg, metrics: sc.Metrics}, alerts.Options{
		Subject:   sc.Config.AlertsSubject,
		StationID: sc.Config.StationID,
		CameraID:  PlasticCameraID,
		Cooldown:  sc.Config.AlertsCooldown,
		Logger:    logging.NewServiceLogger(sc.Config, "alerts"),
	})

	states, unsubscribe := sc.Holder.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())
	sc.alertsCancel = cancel
	sc.alertsDone = make(chan struct{})
	go func() {
		defer close(sc.alertsDone)
		defer unsubscribe()
		sc.Alerts.Run(ctx, states)
	}()
	return nil
}

// StartDetection opens the plastic camera, loads the model and starts the annotation loop.
func (sc *ServiceContainer) StartDetection(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.loop != nil && sc.loop.Running() {
		return models.ErrDetectionRunning
	}

	if err := sc.plasticCam.open(ctx); err != nil {
		return err
	}

	loop, err := annotation.Start(ctx, sc.plasticCam, sc.canvas, sc.model,
		annotation.WithRefreshRate(sc.Config.RefreshRate),
		annotation.WithDetectTimeout(sc.Config.DetectTimeout),
		annotation.WithPublisher(sc.Holder),
		annotation.WithObserver(sc.Metrics),
		annotation.WithCameraID(PlasticCameraID),
		annotation.WithLogger(sc.logger),
	)
	if err != nil {
		return err
	}
	sc.loop = loop
	return nil
}

// StopDetection stops the annotation loop and resets the verdict to pending.
func (sc *ServiceContainer) StopDetection() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.loop == nil || !sc.loop.Running() {
		return models.ErrDetectionNotRunning
	}
	sc.loop.Stop()
	sc.Holder.Reset()
	sc.Metrics.PlasticPresent.Store(0)
	return nil
}

// DetectionStatus reports the loop state and the latest verdict.
func (sc *ServiceContainer) DetectionStatus() models.DetectionStatusResponse {
	sc.mu.Lock()
	loop := sc.loop
	sc.mu.Unlock()

	resp := models.DetectionStatusResponse{
		Status:   models.LoopStatusStopped,
		CameraID: PlasticCameraID,
		Model:    sc.model.Name(),
		Canvas:   sc.Config.CanvasBackend,
		SourceOK: sc.plasticCam.Ready(),
		Frames:   sc.plasticCam.FrameCount(),
		Latest:   sc.Holder.Latest(),
	}
	if loop != nil {
		resp.RunID = loop.RunID()
		resp.Iterations = loop.Iterations()
		started := loop.StartedAt()
		resp.StartedAt = &started
		if loop.Running() {
			resp.Status = models.LoopStatusRunning
		}
	}
	return resp
}

// AnalyzePlant runs one plant analysis, opening the plant camera if needed.
func (sc *ServiceContainer) AnalyzePlant(ctx context.Context) (models.PlantReport, error) {
	if err := sc.plantCam.open(ctx); err != nil {
		log.Warn().Err(err).Msg("plant_camera_unavailable")
	}
	report, err := sc.Plant.Analyze(ctx)
	if err == nil {
		sc.Metrics.PlantAnalyses.Add(1)
	}
	return report, err
}

func (sc *ServiceContainer) LatestPlantReport() (models.PlantReport, bool) {
	return sc.Plant.Latest()
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	if sc.loop != nil {
		sc.loop.Stop()
	}
	sc.mu.Unlock()

	var err error
	if sc.alertsCancel != nil {
		sc.alertsCancel()
		select {
		case <-sc.alertsDone:
		case <-ctx.Done():
			err = multierr.Append(err, ctx.Err())
		}
	}
	if sc.Messaging != nil {
		err = multierr.Append(err, sc.Messaging.Shutdown(ctx))
	}
	sc.Stream.Shutdown()
	return multierr.Append(err, sc.closeResources())
}

func (sc *ServiceContainer) closeResources() error {
	err := sc.Plant.Stop()
	err = multierr.Append(err, sc.plasticCam.Close())
	if sc.plantCam != sc.plasticCam {
		err = multierr.Append(err, sc.plantCam.Close())
	}
	err = multierr.Append(err, sc.model.Close())
	return multierr.Append(err, sc.canvas.Close())
}

func newCanvas(cfg *config.Config) closableCanvas {
	if cfg.CanvasBackend == config.CanvasBackendRaster {
		c := raster.New(cfg.CaptureWidth, cfg.CaptureHeight, cfg.SnapshotJPEGQ)
		if cfg.LabelFontPath != "" {
			// labels fall back to the built-in face
			if err := c.LoadFontFace(cfg.LabelFontPath, cfg.LabelFontSize); err != nil {
				log.Warn().Err(err).Msg("label_font_unavailable")
			}
		}
		return c
	}
	return opencvcanvas.New(cfg.CaptureWidth, cfg.CaptureHeight, cfg.SnapshotJPEGQ)
}

func newModel(cfg *config.Config) namedModel {
	if cfg.ModelBackend == config.ModelBackendRemote {
		return remote.NewClient(cfg.DetectorGRPCURL, cfg.DetectorTimeout)
	}
	return NewDNNModel(cfg)
}

// NewDNNModel builds the local SSD model from configuration.
func NewDNNModel(cfg *config.Config) *dnn.Model {
	return dnn.New(dnn.Config{
		ModelPath:  cfg.ModelPath,
		ConfigPath: cfg.ModelConfigPath,
		LabelsPath: cfg.ModelLabelsPath,
		InputSize:  cfg.ModelInputSize,
		Scale:      cfg.ModelScale,
		SwapRB:     cfg.ModelSwapRB,
		Backend:    cfg.ModelDNNBackend,
		Target:     cfg.ModelDNNTarget,
	})
}

// cameraSlot opens its source on first use and keeps it until Close.
// Until then it reports not ready.
type cameraSlot struct {
	cfg      *config.Config
	cameraID string
	source   string

	mu  sync.Mutex
	src closableSource
}

func newCameraSlot(cfg *config.Config, cameraID, source string) *cameraSlot {
	return &cameraSlot{cfg: cfg, cameraID: cameraID, source: source}
}

func (s *cameraSlot) open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.src != nil {
		return nil
	}

	var (
		src closableSource
		err error
	)
	if path, ok := strings.CutPrefix(s.source, stillSourcePrefix); ok {
		src, err = still.Load(path, s.cameraID)
	} else {
		src, err = opencv.Open(ctx, opencv.Options{
			CameraID:  s.cameraID,
			Source:    s.source,
			Width:     s.cfg.CaptureWidth,
			Height:    s.cfg.CaptureHeight,
			FPS:       s.cfg.CaptureFPS,
			MaxErrors: s.cfg.CaptureMaxErrors,
		})
	}
	if err != nil {
		return fmt.Errorf("failed to open camera %s (%s): %w", s.cameraID, s.source, err)
	}
	s.src = src
	return nil
}

func (s *cameraSlot) current() closableSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src
}

func (s *cameraSlot) Ready() bool {
	src := s.current()
	return src != nil && src.Ready()
}

// FrameCount is the number of frames decoded by a live capture. Still images
// report zero.
func (s *cameraSlot) FrameCount() int64 {
	counter, ok := s.current().(interface{ FrameCount() int64 })
	if !ok {
		return 0
	}
	return counter.FrameCount()
}

func (s *cameraSlot) Frame() (*models.Frame, error) {
	src := s.current()
	if src == nil {
		return nil, annotation.ErrFrameNotReady
	}
	return src.Frame()
}

func (s *cameraSlot) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.src == nil {
		return nil
	}
	err := s.src.Close()
	s.src = nil
	return err
}

type countingPublisher struct {
	pub     models.MessagePublisher
	metrics *metrics.Metrics
}

func (p *countingPublisher) Publish(subject string, data interface{}) error {
	if err := p.pub.Publish(subject, data); err != nil {
		return err
	}
	p.metrics.AlertsPublished.Add(1)
	return nil
}
