package mjpeg

import (
	"bytes"
	"fmt"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"github.com/rs/zerolog/log"

	"seawatch-worker-go/internal/models"
)

const boundary = "frame"

// StateSource provides annotated frames, usually a state.Holder.
type StateSource interface {
	Latest() models.AnnotationState
	Subscribe() (<-chan models.AnnotationState, func())
}

// Publisher streams annotated frames as multipart/x-mixed-replace.
type Publisher struct {
	source    StateSource
	cameraID  string
	keepalive time.Duration

	placeholderOnce sync.Once
	placeholder     []byte

	done     chan struct{}
	doneOnce sync.Once
}

func NewPublisher(source StateSource, cameraID string, keepalive time.Duration) *Publisher {
	if keepalive <= 0 {
		keepalive = 2 * time.Second
	}
	return &Publisher{
		source:    source,
		cameraID:  cameraID,
		keepalive: keepalive,
		done:      make(chan struct{}),
	}
}

// Placeholder is the frame sent while nothing has been annotated yet.
func (p *Publisher) Placeholder() []byte {
	p.placeholderOnce.Do(func() {
		dc := gg.NewContext(640, 360)
		dc.SetColor(color.RGBA{R: 64, G: 64, B: 64, A: 255})
		dc.Clear()
		dc.SetColor(color.White)
		dc.DrawString(fmt.Sprintf("Camera: %s", p.cameraID), 20, 180)
		dc.DrawString("Initializing...", 20, 220)

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, dc.Image(), &jpeg.Options{Quality: 90}); err != nil {
			log.Error().Err(err).Msg("mjpeg_placeholder_encode_failed")
			return
		}
		p.placeholder = buf.Bytes()
	})
	return p.placeholder
}

func (p *Publisher) StreamMJPEGHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	updates, cancel := p.source.Subscribe()
	defer cancel()

	writePart := func(jpeg []byte) bool {
		if err := WritePart(w, jpeg); err != nil {
			log.Debug().Err(err).Str("camera_id", p.cameraID).Msg("mjpeg_client_gone")
			return false
		}
		flusher.Flush()
		return true
	}

	first := p.source.Latest().Snapshot
	if len(first) == 0 {
		first = p.Placeholder()
	}
	if len(first) > 0 && !writePart(first) {
		return
	}

	keepaliveTicker := time.NewTicker(p.keepalive)
	defer keepaliveTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			if len(st.Snapshot) > 0 && !writePart(st.Snapshot) {
				return
			}
		case <-keepaliveTicker.C:
			buf := p.source.Latest().Snapshot
			if len(buf) == 0 {
				buf = p.Placeholder()
			}
			if len(buf) > 0 && !writePart(buf) {
				return
			}
		}
	}
}

// WritePart writes one JPEG part of a multipart/x-mixed-replace stream.
func WritePart(w io.Writer, jpeg []byte) error {
	header := fmt.Sprintf("--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", boundary, len(jpeg))
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}

// Shutdown ends every open stream. It is safe to call more than once.
func (p *Publisher) Shutdown() {
	p.doneOnce.Do(func() {
		log.Info().Str("camera_id", p.cameraID).Msg("MJPEG Publisher shutting down")
		close(p.done)
	})
}
