package annotation

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"seawatch-worker-go/internal/models"
)

var (
	// BoxColor is used for both the outline and the label
	BoxColor = color.RGBA{R: 0, G: 255, B: 0, A: 255}
)

const (
	BoxLineWidth = 2

	labelLift   = 5
	labelMinTop = 10
)

// FormatLabel renders "<class> <score%>" with one decimal, e.g. "bottle 91.2%".
// Ties round up, so 0.9125 reads 91.3%.
func FormatLabel(d models.Detection) string {
	return fmt.Sprintf("%s %.1f%%", d.Class, math.Round(d.Score*1000)/10)
}

// LabelPosition places the label just above the box, or at y=10 when the box
// touches the top edge.
func LabelPosition(b models.BBox) image.Point {
	x := int(math.Round(b.X))
	if b.Y > labelMinTop {
		return image.Pt(x, int(math.Round(b.Y))-labelLift)
	}
	return image.Pt(x, labelMinTop)
}

// BoxRect converts a bbox to integer canvas coordinates.
func BoxRect(b models.BBox) image.Rectangle {
	return image.Rect(
		int(math.Round(b.X)),
		int(math.Round(b.Y)),
		int(math.Round(b.X+b.Width)),
		int(math.Round(b.Y+b.Height)),
	)
}
