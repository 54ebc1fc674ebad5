package detection

import (
	"math"

	"seawatch-worker-go/internal/models"
)

// ssdStride is the row width of an SSD DetectionOutput blob:
// [image_id, class_id, score, left, top, right, bottom] with normalized corners.
const ssdStride = 7

// DecodeSSD converts a flattened [1,1,N,7] SSD output into detections in pixel
// coordinates of a width x height frame. Rows scoring at or below minScore are
// dropped. Boxes are clamped to the frame.
func DecodeSSD(out []float32, labels Labels, width, height int, minScore float64) []models.Detection {
	detections := make([]models.Detection, 0)
	fw, fh := float64(width), float64(height)

	for i := 0; i+ssdStride <= len(out); i += ssdStride {
		score := float64(out[i+2])
		if score <= minScore || math.IsNaN(score) {
			continue
		}

		left := clamp(float64(out[i+3])*fw, 0, fw)
		top := clamp(float64(out[i+4])*fh, 0, fh)
		right := clamp(float64(out[i+5])*fw, 0, fw)
		bottom := clamp(float64(out[i+6])*fh, 0, fh)
		if right <= left || bottom <= top {
			continue
		}

		detections = append(detections, models.Detection{
			Class: labels.Name(int(out[i+1])),
			Score: score,
			BBox: models.BBox{
				X:      left,
				Y:      top,
				Width:  right - left,
				Height: bottom - top,
			},
		})
	}
	return detections
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
