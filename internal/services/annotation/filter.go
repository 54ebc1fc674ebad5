package annotation

import (
	"seawatch-worker-go/internal/models"
)

// ScoreThreshold is the confidence a detection must strictly exceed to be kept.
const ScoreThreshold = 0.45

// PlasticClasses are the detector classes treated as plastic-like objects.
var PlasticClasses = []string{"bottle", "cup", "bag"}

// Postprocessor filters or modifies a set of detections.
type Postprocessor func([]models.Detection) []models.Detection

// NewLabelFilter keeps detections whose class is one of labels.
func NewLabelFilter(labels ...string) Postprocessor {
	allowed := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		allowed[l] = struct{}{}
	}
	return func(in []models.Detection) []models.Detection {
		out := make([]models.Detection, 0, len(in))
		for _, d := range in {
			if _, ok := allowed[d.Class]; ok {
				out = append(out, d)
			}
		}
		return out
	}
}

// NewScoreFilter keeps detections scoring strictly above conf.
func NewScoreFilter(conf float64) Postprocessor {
	return func(in []models.Detection) []models.Detection {
		out := make([]models.Detection, 0, len(in))
		for _, d := range in {
			if d.Score > conf {
				out = append(out, d)
			}
		}
		return out
	}
}

// Chain applies postprocessors in order.
func Chain(pps ...Postprocessor) Postprocessor {
	return func(in []models.Detection) []models.Detection {
		out := in
		for _, pp := range pps {
			out = pp(out)
		}
		if out == nil {
			out = []models.Detection{}
		}
		return out
	}
}

// PlasticFilter returns the detections that count towards the plastic verdict.
var PlasticFilter = Chain(NewLabelFilter(PlasticClasses...), NewScoreFilter(ScoreThreshold))
