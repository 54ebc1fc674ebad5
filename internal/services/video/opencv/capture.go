// Package opencv reads a live camera or network stream through gocv.
package opencv

import (
	"context"
	"fmt"
	"image"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"seawatch-worker-go/internal/models"
	"seawatch-worker-go/internal/services/annotation"
)

type Options struct {
	CameraID  string
	Source    string // device index or stream URL
	Width     int
	Height    int
	FPS       int
	MaxErrors int
}

// Capture keeps the most recent frame of a video device. A reader goroutine
// decodes frames continuously; Frame never blocks on the device.
type Capture struct {
	opts   Options
	logger zerolog.Logger

	mu     sync.RWMutex
	latest *models.Frame
	ready  atomic.Bool
	frames atomic.Int64

	cancel context.CancelFunc
	done   chan struct{}
}

// Open starts capturing. The device is opened synchronously so a missing
// camera is reported to the caller. Capturing continues until Close, even
// after ctx is done.
func Open(ctx context.Context, opts Options) (*Capture, error) {
	if opts.MaxErrors <= 0 {
		opts.MaxErrors = 10
	}
	if opts.FPS <= 0 {
		opts.FPS = 30
	}

	c := &Capture{
		opts:   opts,
		logger: log.With().Str("camera_id", opts.CameraID).Str("source", opts.Source).Logger(),
		done:   make(chan struct{}),
	}

	vc, err := c.openDevice()
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	go c.readLoop(runCtx, vc)
	return c, nil
}

func (c *Capture) Ready() bool {
	return c.ready.Load()
}

// Frame returns a copy of the latest decoded frame.
func (c *Capture) Frame() (*models.Frame, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.latest == nil {
		return nil, annotation.ErrFrameNotReady
	}
	return c.latest.Clone(), nil
}

// FrameCount is the number of frames decoded since Open.
func (c *Capture) FrameCount() int64 {
	return c.frames.Load()
}

func (c *Capture) Close() error {
	c.cancel()
	<-c.done
	c.ready.Store(false)
	return nil
}

func (c *Capture) openDevice() (*gocv.VideoCapture, error) {
	var (
		vc  *gocv.VideoCapture
		err error
	)
	if idx, convErr := strconv.Atoi(c.opts.Source); convErr == nil {
		vc, err = gocv.OpenVideoCapture(idx)
	} else {
		if strings.HasPrefix(c.opts.Source, "rtsp://") {
			configureFFmpegOptions()
		}
		vc, err = gocv.OpenVideoCaptureWithAPI(c.opts.Source, gocv.VideoCaptureFFmpeg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open video source %s: %w", c.opts.Source, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("video source %s is not opened", c.opts.Source)
	}

	if c.opts.Width > 0 && c.opts.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(c.opts.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(c.opts.Height))
	}
	vc.Set(gocv.VideoCaptureBufferSize, 1)

	c.logger.Info().
		Float64("actual_fps", vc.Get(gocv.VideoCaptureFPS)).
		Float64("actual_width", vc.Get(gocv.VideoCaptureFrameWidth)).
		Float64("actual_height", vc.Get(gocv.VideoCaptureFrameHeight)).
		Msg("video_capture_opened")
	return vc, nil
}

func (c *Capture) readLoop(ctx context.Context, vc *gocv.VideoCapture) {
	defer close(c.done)
	defer func() {
		if vc != nil {
			vc.Close()
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic", r).Msg("video_capture_panic")
		}
	}()

	img := gocv.NewMat()
	defer img.Close()

	interval := time.Second / time.Duration(c.opts.FPS)
	consecutiveErrors := 0

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("video_capture_stopped")
			return
		default:
		}

		if ok := vc.Read(&img); !ok || img.Empty() {
			consecutiveErrors++
			c.logger.Warn().Int("consecutive_errors", consecutiveErrors).Msg("video_frame_read_failed")

			if consecutiveErrors >= c.opts.MaxErrors {
				c.logger.Warn().Int("consecutive_errors", consecutiveErrors).Msg("video_capture_reset")
				vc.Close()
				vc = nil
				for vc == nil {
					fresh, err := c.openDevice()
					if err == nil {
						vc = fresh
						break
					}
					c.logger.Error().Err(err).Msg("video_capture_reset_failed")
					if !sleepCtx(ctx, 2*time.Second) {
						return
					}
				}
				consecutiveErrors = 0
				continue
			}

			delay := time.Duration(consecutiveErrors*50) * time.Millisecond
			if delay > 2*time.Second {
				delay = 2 * time.Second
			}
			if !sleepCtx(ctx, delay) {
				return
			}
			continue
		}

		consecutiveErrors = 0
		c.store(&img)

		if !sleepCtx(ctx, interval) {
			return
		}
	}
}

func (c *Capture) store(img *gocv.Mat) {
	out := img
	if c.opts.Width > 0 && c.opts.Height > 0 && (img.Cols() != c.opts.Width || img.Rows() != c.opts.Height) {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(*img, &resized, image.Pt(c.opts.Width, c.opts.Height), 0, 0, gocv.InterpolationLinear)
		out = &resized
	}

	frame := &models.Frame{
		CameraID:  c.opts.CameraID,
		Data:      out.ToBytes(),
		Timestamp: time.Now(),
		FrameID:   c.frames.Add(1),
		Width:     out.Cols(),
		Height:    out.Rows(),
	}

	c.mu.Lock()
	c.latest = frame
	c.mu.Unlock()
	c.ready.Store(true)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// configureFFmpegOptions tunes the OpenCV FFmpeg backend for low-latency RTSP
func configureFFmpegOptions() {
	ffmpegOptions := map[string]string{
		"rtsp_transport":  "tcp",
		"buffer_size":     "2097152",
		"max_delay":       "500000",
		"stimeout":        "5000000",
		"flags":           "low_delay",
		"fflags":          "nobuffer+flush_packets",
		"analyzeduration": "500000",
		"probesize":       "2000000",
		"reconnect":       "1",
	}

	keys := make([]string, 0, len(ffmpegOptions))
	for k := range ffmpegOptions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+";"+ffmpegOptions[k])
	}
	os.Setenv("OPENCV_FFMPEG_CAPTURE_OPTIONS", strings.Join(parts, "|"))
}
