package helpers

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/fogleman/gg"
	"github.com/rs/zerolog/log"
)

const (
	// Maximum image dimensions for alert thumbnails
	MaxImageWidth  = 800
	MaxImageHeight = 600

	// JPEG quality settings
	HighQuality   = 95
	MediumQuality = 75
	LowQuality    = 50

	// MaxAlertImageSize bounds the thumbnail attached to an alert
	MaxAlertImageSize = 200 * 1024
)

// IsJPEG checks the JPEG magic bytes
func IsJPEG(data []byte) bool {
	return len(data) >= 2 && data[0] == 0xFF && data[1] == 0xD8
}

// FitScale returns the factor that fits width x height into the bounds without upscaling
func FitScale(width, height, maxWidth, maxHeight int) float64 {
	if width <= 0 || height <= 0 {
		return 1.0
	}
	scale := float64(maxWidth) / float64(width)
	if s := float64(maxHeight) / float64(height); s < scale {
		scale = s
	}
	if scale > 1.0 {
		scale = 1.0
	}
	return scale
}

// CompressAndResizeImage scales img to fit the bounds and encodes it as JPEG,
// lowering the quality until the result fits targetSizeBytes. The lowest
// quality is returned even when it is still too large.
func CompressAndResizeImage(img image.Image, maxWidth, maxHeight, targetSizeBytes int) ([]byte, error) {
	bounds := img.Bounds()
	scale := FitScale(bounds.Dx(), bounds.Dy(), maxWidth, maxHeight)

	if scale < 1.0 {
		newWidth := max(1, int(float64(bounds.Dx())*scale))
		newHeight := max(1, int(float64(bounds.Dy())*scale))
		dc := gg.NewContext(newWidth, newHeight)
		dc.Scale(scale, scale)
		dc.DrawImage(img, -bounds.Min.X, -bounds.Min.Y)
		img = dc.Image()
	}

	var lastErr error
	for _, quality := range []int{HighQuality, MediumQuality, LowQuality} {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			lastErr = err
			continue
		}
		if buf.Len() <= targetSizeBytes || quality == LowQuality {
			log.Debug().
				Int("compressed_size", buf.Len()).
				Int("quality", quality).
				Int("width", img.Bounds().Dx()).
				Int("height", img.Bounds().Dy()).
				Msg("image_compressed")
			return buf.Bytes(), nil
		}
	}
	return nil, fmt.Errorf("unable to compress image: %w", lastErr)
}

// JPEGThumbnailDataURL decodes a JPEG, shrinks it for transport and returns
// it as a data:image/jpeg URL.
func JPEGThumbnailDataURL(jpg []byte) (string, error) {
	if !IsJPEG(jpg) {
		return "", fmt.Errorf("not a JPEG image")
	}
	img, err := jpeg.Decode(bytes.NewReader(jpg))
	if err != nil {
		return "", fmt.Errorf("failed to decode JPEG: %w", err)
	}
	out, err := CompressAndResizeImage(img, MaxImageWidth, MaxImageHeight, MaxAlertImageSize)
	if err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(out), nil
}
