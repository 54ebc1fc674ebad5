package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"seawatch-worker-go/internal/models"
)

func det(class string, score float64) models.Detection {
	return models.Detection{Class: class, Score: score, BBox: models.BBox{X: 1, Y: 1, Width: 2, Height: 2}}
}

func TestPlasticFilter(t *testing.T) {
	tests := []struct {
		name string
		in   []models.Detection
		want []string
	}{
		{"empty", nil, []string{}},
		{"all plastic classes above threshold", []models.Detection{det("bottle", 0.9), det("cup", 0.46), det("bag", 0.99)}, []string{"bottle", "cup", "bag"}},
		{"threshold is strict", []models.Detection{det("bottle", 0.45)}, []string{}},
		{"just above threshold", []models.Detection{det("cup", 0.4500001)}, []string{"cup"}},
		{"below threshold", []models.Detection{det("bag", 0.2)}, []string{}},
		{"other classes ignored", []models.Detection{det("person", 0.99), det("Bottle", 0.99), det("wine glass", 0.8)}, []string{}},
		{"mixed", []models.Detection{det("person", 0.9), det("bottle", 0.5), det("cup", 0.3)}, []string{"bottle"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlasticFilter(tt.in)
			assert.NotNil(t, got)
			classes := make([]string, 0, len(got))
			for _, d := range got {
				classes = append(classes, d.Class)
				assert.Greater(t, d.Score, ScoreThreshold)
			}
			assert.ElementsMatch(t, tt.want, classes)
		})
	}
}

func TestFiltersDoNotMutateInput(t *testing.T) {
	in := []models.Detection{det("person", 0.9), det("bottle", 0.5)}
	_ = PlasticFilter(in)
	assert.Equal(t, "person", in[0].Class)
	assert.Equal(t, "bottle", in[1].Class)
}

func TestChainOrder(t *testing.T) {
	in := []models.Detection{det("cup", 0.6), det("cup", 0.3), det("bowl", 0.9)}

	assert.Len(t, NewLabelFilter("cup")(in), 2)
	assert.Len(t, NewScoreFilter(0.5)(in), 2)
	assert.Len(t, Chain(NewLabelFilter("cup"), NewScoreFilter(0.5))(in), 1)
	assert.Len(t, Chain()(in), 3)
}
