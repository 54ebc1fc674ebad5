// Package opencv implements the drawing surface on a gocv Mat.
package opencv

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"

	"seawatch-worker-go/internal/models"
)

const (
	fontScale     = 0.5
	fontThickness = 1
)

type Canvas struct {
	mu      sync.Mutex
	mat     gocv.Mat
	quality int
}

func New(width, height, quality int) *Canvas {
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	if quality < 1 || quality > 100 {
		quality = 90
	}
	return &Canvas{
		mat:     gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3),
		quality: quality,
	}
}

func (c *Canvas) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mat.Empty() && c.mat.Cols() == width && c.mat.Rows() == height {
		return
	}
	c.mat.Close()
	c.mat = gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
}

func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mat.SetTo(gocv.NewScalar(0, 0, 0, 0))
}

func (c *Canvas) DrawFrame(frame *models.Frame) error {
	if !frame.Valid() {
		return fmt.Errorf("invalid frame: %dx%d with %d bytes", frame.Width, frame.Height, len(frame.Data))
	}
	src, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Data)
	if err != nil {
		return fmt.Errorf("failed to create Mat from frame data: %w", err)
	}
	defer src.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	if src.Cols() == c.mat.Cols() && src.Rows() == c.mat.Rows() {
		src.CopyTo(&c.mat)
		return nil
	}
	gocv.Resize(src, &c.mat, image.Pt(c.mat.Cols(), c.mat.Rows()), 0, 0, gocv.InterpolationLinear)
	return nil
}

func (c *Canvas) StrokeRect(r image.Rectangle, col color.RGBA, width int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	gocv.Rectangle(&c.mat, r, col, width)
}

func (c *Canvas) FillText(text string, at image.Point, col color.RGBA) {
	c.mu.Lock()
	defer c.mu.Unlock()
	gocv.PutText(&c.mat, text, at, gocv.FontHersheySimplex, fontScale, col, fontThickness)
}

func (c *Canvas) Snapshot() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, c.mat, []int{gocv.IMWriteJpegQuality, c.quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	defer buf.Close()

	b := buf.GetBytes()
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (c *Canvas) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mat.Close()
}
