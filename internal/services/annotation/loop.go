package annotation

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"seawatch-worker-go/internal/models"
)

// ErrFrameNotReady is returned by a VideoSource that has no decodable frame yet.
var ErrFrameNotReady = errors.New("frame not ready")

// ModelLoadError is returned by Start when the detection model cannot be initialised.
type ModelLoadError struct {
	Err error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("failed to load detection model: %v", e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// VideoSource provides the current frame of a live feed.
type VideoSource interface {
	Ready() bool
	Frame() (*models.Frame, error)
}

// Model is a pretrained object detector.
type Model interface {
	Load(ctx context.Context) error
	Detect(ctx context.Context, frame *models.Frame) ([]models.Detection, error)
}

// Canvas is a resizable 2D drawing surface.
type Canvas interface {
	Resize(width, height int)
	Clear()
	DrawFrame(frame *models.Frame) error
	StrokeRect(r image.Rectangle, c color.RGBA, width int)
	FillText(text string, at image.Point, c color.RGBA)
}

// Snapshotter is implemented by canvases that can export their content as JPEG.
type Snapshotter interface {
	Snapshot() ([]byte, error)
}

// Publisher receives the state computed for every annotated frame.
// Publish runs while the loop holds its lock; it must not block or call Stop.
type Publisher interface {
	Publish(state models.AnnotationState)
}

// Observer is notified about iteration outcomes.
type Observer interface {
	IterationSkipped()
	DetectionFailed()
	IterationCompleted(kept int, detect time.Duration)
}

type nopPublisher struct{}

func (nopPublisher) Publish(models.AnnotationState) {}

type nopObserver struct{}

func (nopObserver) IterationSkipped()                     {}
func (nopObserver) DetectionFailed()                      {}
func (nopObserver) IterationCompleted(int, time.Duration) {}

type options struct {
	scheduler     Scheduler
	publisher     Publisher
	observer      Observer
	logger        *zerolog.Logger
	detectTimeout time.Duration
	refreshRate   int
	cameraID      string
}

// Option configures a Loop.
type Option func(*options)

// WithScheduler sets the repaint scheduler. By default the loop owns a
// RepaintScheduler and closes it on Stop.
func WithScheduler(s Scheduler) Option {
	return func(o *options) { o.scheduler = s }
}

// WithRefreshRate sets the tick rate of the scheduler the loop creates
// when none is given.
func WithRefreshRate(perSecond int) Option {
	return func(o *options) { o.refreshRate = perSecond }
}

func WithPublisher(p Publisher) Option {
	return func(o *options) { o.publisher = p }
}

func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = &l }
}

// WithDetectTimeout bounds every Detect call. Zero means no bound.
func WithDetectTimeout(d time.Duration) Option {
	return func(o *options) { o.detectTimeout = d }
}

func WithCameraID(id string) Option {
	return func(o *options) { o.cameraID = id }
}

// Loop continuously annotates frames of a video source with plastic detections.
// At most one iteration is in flight and at most one continuation is scheduled.
type Loop struct {
	source    VideoSource
	canvas    Canvas
	model     Model
	scheduler Scheduler
	ownsSched bool
	publisher Publisher
	observer  Observer
	logger    zerolog.Logger
	timeout   time.Duration

	runID     string
	cameraID  string
	startedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc

	// mu guards handle and stopped, and is held for every canvas mutation
	mu      sync.Mutex
	handle  Handle
	stopped bool

	iterations atomic.Uint64
}

// Start loads the model and schedules the first iteration. If the model
// fails to load a *ModelLoadError is returned and nothing is scheduled.
// ctx bounds model loading only; the loop runs until Stop.
func Start(ctx context.Context, source VideoSource, canvas Canvas, model Model, opts ...Option) (*Loop, error) {
	if source == nil || canvas == nil || model == nil {
		return nil, errors.New("annotation loop requires a video source, a canvas and a model")
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	l := &Loop{
		source:    source,
		canvas:    canvas,
		model:     model,
		scheduler: o.scheduler,
		publisher: o.publisher,
		observer:  o.observer,
		timeout:   o.detectTimeout,
		runID:     uuid.NewString(),
		cameraID:  o.cameraID,
	}
	if l.publisher == nil {
		l.publisher = nopPublisher{}
	}
	if l.observer == nil {
		l.observer = nopObserver{}
	}
	base := log.Logger
	if o.logger != nil {
		base = *o.logger
	}
	l.logger = base.With().Str("run_id", l.runID).Str("camera_id", l.cameraID).Logger()

	if err := model.Load(ctx); err != nil {
		l.logger.Error().Err(err).Msg("model_load_failed")
		return nil, &ModelLoadError{Err: err}
	}

	if l.scheduler == nil {
		l.scheduler = NewRepaintScheduler(nil, o.refreshRate)
		l.ownsSched = true
	}

	l.ctx, l.cancel = context.WithCancel(context.WithoutCancel(ctx))
	l.startedAt = time.Now()

	l.mu.Lock()
	l.handle = l.scheduler.ScheduleNext(l.iterate)
	l.mu.Unlock()

	l.logger.Info().Msg("annotation_loop_started")
	return l, nil
}

// Stop cancels the pending iteration. It is idempotent and safe to call
// concurrently with a running iteration. Once Stop returns the canvas is
// no longer touched and nothing else is scheduled.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	h := l.handle
	l.handle = 0
	l.mu.Unlock()

	l.cancel()
	l.scheduler.Cancel(h)
	if l.ownsSched {
		if rs, ok := l.scheduler.(*RepaintScheduler); ok {
			rs.Close()
		}
	}
	l.logger.Info().Uint64("iterations", l.iterations.Load()).Msg("annotation_loop_stopped")
}

// Running reports whether Stop has not been called yet.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.stopped
}

func (l *Loop) RunID() string        { return l.runID }
func (l *Loop) CameraID() string     { return l.cameraID }
func (l *Loop) StartedAt() time.Time { return l.startedAt }

// Iterations counts frames that were fully annotated and published.
func (l *Loop) Iterations() uint64 { return l.iterations.Load() }

func (l *Loop) iterate() {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error().Interface("panic", r).Msg("annotation_iteration_panic")
			l.scheduleNext()
		}
	}()

	if !l.Running() {
		return
	}

	if !l.source.Ready() {
		l.observer.IterationSkipped()
		l.scheduleNext()
		return
	}

	frame, err := l.source.Frame()
	if err != nil || frame == nil {
		if err != nil && !errors.Is(err, ErrFrameNotReady) {
			l.logger.Debug().Err(err).Msg("frame_read_failed")
		}
		l.observer.IterationSkipped()
		l.scheduleNext()
		return
	}

	drawn, ok := l.drawBase(frame)
	if !ok {
		return
	}
	if !drawn {
		l.observer.IterationSkipped()
		l.scheduleNext()
		return
	}

	start := time.Now()
	detections := l.detect(frame)
	elapsed := time.Since(start)

	kept := PlasticFilter(detections)
	state := models.NewAnnotationState(frame, kept)
	state.RunID = l.runID

	if !l.drawOverlay(kept, state, elapsed) {
		return
	}
	l.scheduleNext()
}

// drawBase paints the raw frame as the base layer. ok is false when the
// loop has been stopped; drawn is false when the canvas rejected the frame.
func (l *Loop) drawBase(frame *models.Frame) (drawn, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return false, false
	}

	l.canvas.Resize(frame.Width, frame.Height)
	l.canvas.Clear()
	if err := l.canvas.DrawFrame(frame); err != nil {
		l.logger.Debug().Err(err).Int64("frame_id", frame.FrameID).Msg("frame_draw_failed")
		return false, true
	}
	return true, true
}

// drawOverlay draws the kept detections and publishes the verdict. Both
// happen under the lock so a stopped loop never publishes a stale verdict.
func (l *Loop) drawOverlay(kept []models.Detection, state models.AnnotationState, elapsed time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return false
	}

	for _, d := range kept {
		l.canvas.StrokeRect(BoxRect(d.BBox), BoxColor, BoxLineWidth)
		l.canvas.FillText(FormatLabel(d), LabelPosition(d.BBox), BoxColor)
	}

	if snap, ok := l.canvas.(Snapshotter); ok {
		jpg, err := snap.Snapshot()
		if err != nil {
			l.logger.Debug().Err(err).Msg("canvas_snapshot_failed")
		} else {
			state.Snapshot = jpg
		}
	}

	l.iterations.Add(1)
	l.observer.IterationCompleted(len(kept), elapsed)
	l.publisher.Publish(state)
	return true
}

// detect runs the model once. Failures degrade to an empty result.
func (l *Loop) detect(frame *models.Frame) []models.Detection {
	ctx := l.ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	detections, err := l.model.Detect(ctx, frame)
	switch {
	case err != nil:
		if l.ctx.Err() != nil {
			// stopped while detecting
			return nil
		}
		l.observer.DetectionFailed()
		l.logger.Warn().Err(err).Int64("frame_id", frame.FrameID).Msg("detection_failed")
		return nil
	case detections == nil:
		l.observer.DetectionFailed()
		l.logger.Warn().Int64("frame_id", frame.FrameID).Msg("detection_returned_no_data")
		return nil
	}
	return detections
}

func (l *Loop) scheduleNext() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	l.handle = l.scheduler.ScheduleNext(l.iterate)
}
