package annotation

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"

	"seawatch-worker-go/internal/models"
)

func TestFormatLabel(t *testing.T) {
	assert.Equal(t, "bottle 91.2%", FormatLabel(models.Detection{Class: "bottle", Score: 0.912}))
	assert.Equal(t, "cup 50.0%", FormatLabel(models.Detection{Class: "cup", Score: 0.5}))
	assert.Equal(t, "bag 100.0%", FormatLabel(models.Detection{Class: "bag", Score: 1}))
	assert.Equal(t, "bottle 45.1%", FormatLabel(models.Detection{Class: "bottle", Score: 0.4506}))
	assert.Equal(t, "bottle 91.3%", FormatLabel(models.Detection{Class: "bottle", Score: 0.9125}))
	assert.Equal(t, "cup 46.3%", FormatLabel(models.Detection{Class: "cup", Score: 0.4625}))
}

func TestLabelPosition(t *testing.T) {
	tests := []struct {
		name string
		box  models.BBox
		want image.Point
	}{
		{"above the box", models.BBox{X: 40, Y: 100, Width: 10, Height: 10}, image.Pt(40, 95)},
		{"just below the top margin", models.BBox{X: 3, Y: 11, Width: 10, Height: 10}, image.Pt(3, 6)},
		{"at the top margin", models.BBox{X: 10, Y: 10, Width: 20, Height: 20}, image.Pt(10, 10)},
		{"touching the top edge", models.BBox{X: 7, Y: 0, Width: 5, Height: 5}, image.Pt(7, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LabelPosition(tt.box))
		})
	}
}

func TestBoxRect(t *testing.T) {
	assert.Equal(t, image.Rect(10, 10, 30, 30), BoxRect(models.BBox{X: 10, Y: 10, Width: 20, Height: 20}))
	assert.Equal(t, image.Rect(1, 2, 4, 6), BoxRect(models.BBox{X: 0.6, Y: 2.4, Width: 3.1, Height: 3.5}))
}
