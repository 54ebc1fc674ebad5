package services

import (
	"path/filepath"
	"testing"

	"github.com/fogleman/gg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seawatch-worker-go/internal/config"
	"seawatch-worker-go/internal/models"
	"seawatch-worker-go/internal/services/annotation"
	"seawatch-worker-go/internal/services/canvas/raster"
)

type countingSource struct{ frames int64 }

func (s *countingSource) Ready() bool { return true }
func (s *countingSource) Frame() (*models.Frame, error) { return nil, annotation.ErrFrameNotReady }
func (s *countingSource) Close() error { return nil }
func (s *countingSource) FrameCount() int64 { return s.frames }

func TestCameraSlotBeforeOpen(t *testing.T) {
	slot := newCameraSlot(config.Load(), PlasticCameraID, "0")

	assert.False(t, slot.Ready())
	assert.Zero(t, slot.FrameCount())
	_, err := slot.Frame()
	assert.ErrorIs(t, err, annotation.ErrFrameNotReady)
	assert.NoError(t, slot.Close())
}

func TestCameraSlotStillImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shore.png")
	dc := gg.NewContext(6, 4)
	dc.SetRGB(0, 0, 1)
	dc.Clear()
	require.NoError(t, dc.SavePNG(path))

	slot := newCameraSlot(config.Load(), PlantCameraID, stillSourcePrefix+path)
	require.NoError(t, slot.open(t.Context()))
	require.True(t, slot.Ready())

	f, err := slot.Frame()
	require.NoError(t, err)
	assert.Equal(t, 6, f.Width)
	assert.Zero(t, slot.FrameCount(), "still images do not count captured frames")

	require.NoError(t, slot.Close())
	assert.False(t, slot.Ready())
}

func TestCameraSlotFrameCount(t *testing.T) {
	slot := newCameraSlot(config.Load(), PlasticCameraID, "0")
	slot.src = &countingSource{frames: 42}

	assert.Equal(t, int64(42), slot.FrameCount())
}

func TestNewCanvasRasterKeepsWorkingWithoutFont(t *testing.T) {
	cfg := config.Load()
	cfg.CanvasBackend = config.CanvasBackendRaster
	cfg.LabelFontPath = filepath.Join(t.TempDir(), "missing.ttf")

	c := newCanvas(cfg)
	defer c.Close()

	require.IsType(t, &raster.Canvas{}, c)
	w, h := c.(*raster.Canvas).Size()
	assert.Equal(t, cfg.CaptureWidth, w)
	assert.Equal(t, cfg.CaptureHeight, h)
}
