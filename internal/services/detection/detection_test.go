package detection

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLabelsPlain(t *testing.T) {
	labels, err := ParseLabels(strings.NewReader("background\nperson\n\n# comment\nbicycle\n"))
	require.NoError(t, err)
	assert.Equal(t, Labels{"background", "person", "bicycle"}, labels)
}

func TestParseLabelsIndexed(t *testing.T) {
	labels, err := ParseLabels(strings.NewReader("1 person\n44 bottle\n46 wine glass\n47 cup\n"))
	require.NoError(t, err)
	assert.Equal(t, "person", labels.Name(1))
	assert.Equal(t, "bottle", labels.Name(44))
	assert.Equal(t, "wine glass", labels.Name(46))
	assert.Equal(t, "cup", labels.Name(47))
	assert.Equal(t, "class_45", labels.Name(45))
	assert.Equal(t, "class_500", labels.Name(500))
}

func TestParseLabelsEmpty(t *testing.T) {
	_, err := ParseLabels(strings.NewReader("\n# nothing\n"))
	assert.Error(t, err)
}

func TestLoadLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\n"), 0o644))

	labels, err := LoadLabels(path)
	require.NoError(t, err)
	assert.Len(t, labels, 2)

	_, err = LoadLabels(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestDecodeSSD(t *testing.T) {
	labels := Labels{"background", "person", "bottle"}
	out := []float32{
		0, 2, 0.9, 0.1, 0.2, 0.3, 0.6, // bottle
		0, 1, 0.3, 0.0, 0.0, 0.5, 0.5, // below minScore
		0, 1, 0.8, -0.1, 0.5, 1.2, 1.0, // clamped
		0, 2, 0.7, 0.5, 0.5, 0.5, 0.9, // zero width
		0, 2, 0.6, // truncated row
	}

	dets := DecodeSSD(out, labels, 200, 100, 0.3)
	require.Len(t, dets, 2)

	assert.Equal(t, "bottle", dets[0].Class)
	assert.InDelta(t, 0.9, dets[0].Score, 1e-6)
	assert.InDelta(t, 20, dets[0].BBox.X, 1e-3)
	assert.InDelta(t, 20, dets[0].BBox.Y, 1e-3)
	assert.InDelta(t, 40, dets[0].BBox.Width, 1e-3)
	assert.InDelta(t, 40, dets[0].BBox.Height, 1e-3)

	assert.Equal(t, "person", dets[1].Class)
	assert.InDelta(t, 0, dets[1].BBox.X, 1e-6)
	assert.InDelta(t, 200, dets[1].BBox.Width, 1e-6)
	assert.InDelta(t, 50, dets[1].BBox.Height, 1e-3)
}

func TestDecodeSSDEmpty(t *testing.T) {
	dets := DecodeSSD(nil, nil, 10, 10, 0)
	assert.NotNil(t, dets)
	assert.Empty(t, dets)
}
