// Package raster implements an in-memory drawing surface on top of gg.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	"seawatch-worker-go/internal/models"
)

type Canvas struct {
	mu      sync.Mutex
	dc      *gg.Context
	face    font.Face // nil keeps gg's built-in face
	quality int
}

// New returns a black canvas of the given size. JPEG snapshots use quality (1-100).
func New(width, height, quality int) *Canvas {
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	if quality < 1 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	c := &Canvas{dc: gg.NewContext(width, height), quality: quality}
	c.Clear()
	return c
}

// Resize reallocates the surface when the size changes. Content is discarded.
func (c *Canvas) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dc.Width() == width && c.dc.Height() == height {
		return
	}
	c.dc = gg.NewContext(width, height)
	if c.face != nil {
		c.dc.SetFontFace(c.face)
	}
}

func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dc.SetRGB(0, 0, 0)
	c.dc.Clear()
}

func (c *Canvas) DrawFrame(frame *models.Frame) error {
	img, err := frame.ToImage()
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dc.DrawImage(img, 0, 0)
	return nil
}

func (c *Canvas) StrokeRect(r image.Rectangle, col color.RGBA, width int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dc.SetColor(col)
	c.dc.SetLineWidth(float64(width))
	c.dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
	c.dc.Stroke()
}

// FillText draws text with its baseline at the given point.
func (c *Canvas) FillText(text string, at image.Point, col color.RGBA) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dc.SetColor(col)
	c.dc.DrawString(text, float64(at.X), float64(at.Y))
}

// LoadFontFace switches label rendering to a TrueType font. The face
// survives Resize.
func (c *Canvas) LoadFontFace(path string, points float64) error {
	face, err := gg.LoadFontFace(path, points)
	if err != nil {
		return fmt.Errorf("failed to load font %s: %w", path, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.face = face
	c.dc.SetFontFace(face)
	return nil
}

func (c *Canvas) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dc.Width(), c.dc.Height()
}

// Image returns a copy of the current surface.
func (c *Canvas) Image() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	src := c.dc.Image()
	dst := image.NewRGBA(src.Bounds())
	for y := src.Bounds().Min.Y; y < src.Bounds().Max.Y; y++ {
		for x := src.Bounds().Min.X; x < src.Bounds().Max.X; x++ {
			dst.Set(x, y, src.At(x, y))
		}
	}
	return dst
}

// Snapshot encodes the surface as JPEG.
func (c *Canvas) Snapshot() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, c.dc.Image(), &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// Close is a no-op; the surface is garbage collected.
func (c *Canvas) Close() error { return nil }
