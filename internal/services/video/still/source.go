// Package still serves a single decoded image as a never-ending video feed.
package still

import (
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"github.com/fogleman/gg"

	"seawatch-worker-go/internal/models"
)

type Source struct {
	frame   *models.Frame
	frameID atomic.Int64
}

// Load decodes a PNG or JPEG file.
func Load(path, cameraID string) (*Source, error) {
	img, err := gg.LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load still image %s: %w", path, err)
	}
	return FromImage(img, cameraID), nil
}

func FromImage(img image.Image, cameraID string) *Source {
	f := models.FrameFromImage(img)
	f.CameraID = cameraID
	return &Source{frame: f}
}

// Ready is always true once the image has been decoded.
func (s *Source) Ready() bool {
	return s.frame.Valid()
}

// Frame returns a fresh copy with its own frame id and timestamp.
func (s *Source) Frame() (*models.Frame, error) {
	f := s.frame.Clone()
	f.FrameID = s.frameID.Add(1)
	f.Timestamp = time.Now()
	return f, nil
}

func (s *Source) Close() error { return nil }
