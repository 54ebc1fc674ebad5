package plant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"seawatch-worker-go/internal/models"
	"seawatch-worker-go/internal/services/annotation"
)

// Service analyses plant health from sensors and the plant camera.
type Service struct {
	sensors SensorSource
	camera  annotation.VideoSource
	logger  zerolog.Logger

	mu     sync.RWMutex
	latest *models.PlantReport

	scheduler gocron.Scheduler
}

// NewService builds the service. camera may be nil, in which case reports carry no snapshot.
func NewService(sensors SensorSource, camera annotation.VideoSource, logger zerolog.Logger) *Service {
	return &Service{
		sensors: sensors,
		camera:  camera,
		logger:  logger,
	}
}

// Analyze takes a reading, scores it and snapshots the plant camera when it has a frame.
func (s *Service) Analyze(ctx context.Context) (models.PlantReport, error) {
	reading, err := s.sensors.Read(ctx)
	if err != nil {
		return models.PlantReport{}, fmt.Errorf("failed to read sensors: %w", err)
	}

	score := Score(reading)
	report := models.PlantReport{
		Reading: reading,
		Score:   score,
		Status:  Classify(score),
	}
	if _, ok := s.sensors.(*Simulated); ok {
		report.Simulated = true
	}

	if s.camera != nil && s.camera.Ready() {
		frame, err := s.camera.Frame()
		switch {
		case err == nil:
			if url, encErr := frame.PNGDataURL(); encErr == nil {
				report.Snapshot = url
			} else {
				s.logger.Warn().Err(encErr).Msg("plant_snapshot_encode_failed")
			}
		case errors.Is(err, annotation.ErrFrameNotReady):
		default:
			s.logger.Warn().Err(err).Msg("plant_snapshot_failed")
		}
	}

	s.mu.Lock()
	s.latest = &report
	s.mu.Unlock()

	s.logger.Info().
		Int("score", report.Score).
		Str("status", string(report.Status)).
		Float64("temperature", reading.Temperature).
		Float64("moisture", reading.Moisture).
		Float64("ph", reading.PH).
		Float64("sunlight", reading.Sunlight).
		Msg("plant_analyzed")
	return report, nil
}

// Latest returns the last report, if any analysis ran.
func (s *Service) Latest() (models.PlantReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return models.PlantReport{}, false
	}
	return *s.latest, true
}

// StartPeriodic runs Analyze every interval until Stop. A slow analysis
// delays the next run instead of overlapping it.
func (s *Service) StartPeriodic(interval time.Duration, opts ...gocron.SchedulerOption) error {
	if interval <= 0 {
		return fmt.Errorf("invalid analyze interval %s", interval)
	}
	sched, err := gocron.NewScheduler(opts...)
	if err != nil {
		return fmt.Errorf("failed to create plant scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			if _, err := s.Analyze(ctx); err != nil {
				s.logger.Error().Err(err).Msg("plant_periodic_analysis_failed")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("failed to schedule plant analysis: %w", err)
	}

	s.mu.Lock()
	s.scheduler = sched
	s.mu.Unlock()

	sched.Start()
	s.logger.Info().Dur("interval", interval).Msg("plant_periodic_analysis_started")
	return nil
}

func (s *Service) Stop() error {
	s.mu.Lock()
	sched := s.scheduler
	s.scheduler = nil
	s.mu.Unlock()
	if sched == nil {
		return nil
	}
	return sched.Shutdown()
}
