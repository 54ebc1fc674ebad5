package helpers

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/jpeg"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 0, 200, 0, 255
	}
	return img
}

func encode(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestFitScale(t *testing.T) {
	tests := []struct {
		name      string
		w, h      int
		maxW      int
		maxH      int
		wantScale float64
	}{
		{"smaller image is not upscaled", 320, 240, 800, 600, 1.0},
		{"width bound", 1600, 600, 800, 600, 0.5},
		{"height bound", 800, 1200, 800, 600, 0.5},
		{"degenerate", 0, 10, 800, 600, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.wantScale, FitScale(tt.w, tt.h, tt.maxW, tt.maxH), 1e-9)
		})
	}
}

func TestCompressAndResizeImage(t *testing.T) {
	out, err := CompressAndResizeImage(solid(1600, 1200), 800, 600, MaxAlertImageSize)
	require.NoError(t, err)
	require.True(t, IsJPEG(out))

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Equal(t, 600, img.Bounds().Dy())

	r, g, b, _ := img.At(400, 300).RGBA()
	assert.Less(t, r>>8, uint32(40))
	assert.Greater(t, g>>8, uint32(160))
	assert.Less(t, b>>8, uint32(40))
}

func TestJPEGThumbnailDataURL(t *testing.T) {
	url, err := JPEGThumbnailDataURL(encode(t, solid(64, 48)))
	require.NoError(t, err)

	payload, ok := strings.CutPrefix(url, "data:image/jpeg;base64,")
	require.True(t, ok)
	raw, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())

	_, err = JPEGThumbnailDataURL([]byte("not an image"))
	assert.Error(t, err)
	assert.False(t, IsJPEG(nil))
	assert.True(t, IsJPEG([]byte{0xFF, 0xD8, 0x00}))
}
