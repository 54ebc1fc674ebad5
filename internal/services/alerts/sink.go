package alerts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"seawatch-worker-go/internal/helpers"
	"seawatch-worker-go/internal/models"
)

type Options struct {
	Subject   string
	StationID string
	CameraID  string
	Cooldown  time.Duration
	Clock     clock.Clock
	Logger    zerolog.Logger
}

// Sink raises an alert when the plastic verdict turns positive. Alerts are
// rate limited by a cooldown measured from the last alert sent.
type Sink struct {
	pub  models.MessagePublisher
	opts Options

	mu         sync.Mutex
	runID      string
	wasPlastic bool
	lastSent   time.Time
	sent       int
}

func NewSink(pub models.MessagePublisher, opts Options) *Sink {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	return &Sink{pub: pub, opts: opts}
}

// Handle inspects one state and publishes an alert if warranted.
// It reports whether an alert was sent.
func (s *Sink) Handle(st models.AnnotationState) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// a new detection run starts from a clear edge
	if st.RunID != "" && st.RunID != s.runID {
		s.runID = st.RunID
		s.wasPlastic = false
	}

	rising := st.Plastic && !s.wasPlastic
	if st.Verdict != models.VerdictPending {
		s.wasPlastic = st.Plastic
	}
	if !rising {
		return false, nil
	}

	now := s.opts.Clock.Now()
	if s.sent > 0 && now.Sub(s.lastSent) < s.opts.Cooldown {
		s.opts.Logger.Debug().Dur("cooldown", s.opts.Cooldown).Msg("plastic_alert_suppressed")
		return false, nil
	}

	payload := s.buildPayload(st, now)
	if err := s.pub.Publish(s.opts.Subject, payload); err != nil {
		return false, fmt.Errorf("failed to publish alert: %w", err)
	}
	s.lastSent = now
	s.sent++

	s.opts.Logger.Info().
		Str("alert_id", payload.AlertID).
		Str("severity", string(payload.Severity)).
		Float64("confidence", payload.Confidence).
		Int("detections", len(st.Detections)).
		Msg("plastic_alert_published")
	return true, nil
}

// Run consumes states until ctx is done or the channel closes.
func (s *Sink) Run(ctx context.Context, states <-chan models.AnnotationState) {
	defer func() {
		if r := recover(); r != nil {
			s.opts.Logger.Error().Interface("panic", r).Msg("alert_sink_panic")
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			if _, err := s.Handle(st); err != nil {
				s.opts.Logger.Error().Err(err).Msg("plastic_alert_failed")
			}
		}
	}
}

// Sent returns the number of alerts published.
func (s *Sink) Sent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent
}

func (s *Sink) buildPayload(st models.AnnotationState, now time.Time) models.AlertPayload {
	confidence := 0.0
	for _, d := range st.Detections {
		if d.Score > confidence {
			confidence = d.Score
		}
	}
	payload := models.AlertPayload{
		AlertID:     uuid.NewString(),
		StationID:   s.opts.StationID,
		CameraID:    s.opts.CameraID,
		Title:       "Plastic detected",
		Description: fmt.Sprintf("%d plastic-like object(s) in frame %d", len(st.Detections), st.FrameID),
		Severity:    severityFor(confidence),
		Confidence:  confidence,
		Detections:  st.Detections,
		FrameID:     st.FrameID,
		Timestamp:   now,
	}
	if len(st.Snapshot) > 0 {
		img, err := helpers.JPEGThumbnailDataURL(st.Snapshot)
		if err != nil {
			s.opts.Logger.Debug().Err(err).Msg("alert_image_skipped")
		} else {
			payload.Image = img
		}
	}
	return payload
}

func severityFor(confidence float64) models.AlertSeverity {
	switch {
	case confidence >= 0.8:
		return models.AlertSeverityHigh
	case confidence >= 0.6:
		return models.AlertSeverityMedium
	default:
		return models.AlertSeverityLow
	}
}
