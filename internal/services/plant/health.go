package plant

import "seawatch-worker-go/internal/models"

const (
	fullScore = 100
	penalty   = 20
)

type band struct{ min, max float64 }

var (
	temperatureBand = band{22, 32}
	moistureBand    = band{40, 70}
	phBand          = band{6, 7.5}
	sunlightBand    = band{400, 1000}
)

func (b band) contains(v float64) bool {
	return v >= b.min && v <= b.max
}

// Score starts at 100 and loses 20 points per reading outside its band.
func Score(r models.SensorReading) int {
	score := fullScore
	for _, c := range []struct {
		v float64
		b band
	}{
		{r.Temperature, temperatureBand},
		{r.Moisture, moistureBand},
		{r.PH, phBand},
		{r.Sunlight, sunlightBand},
	} {
		if !c.b.contains(c.v) {
			score -= penalty
		}
	}
	return score
}

// Classify maps a score to a status: above 80 Healthy, above 50 Moderate.
func Classify(score int) models.HealthStatus {
	switch {
	case score > 80:
		return models.HealthStatusHealthy
	case score > 50:
		return models.HealthStatusModerate
	default:
		return models.HealthStatusUnhealthy
	}
}
