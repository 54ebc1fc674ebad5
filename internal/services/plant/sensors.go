package plant

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/benbjohnson/clock"

	"seawatch-worker-go/internal/models"
)

// SensorSource produces plant sensor readings. Real hardware would implement
// the same interface.
type SensorSource interface {
	Read(ctx context.Context) (models.SensorReading, error)
}

// Simulated generates uniformly random readings within plausible ranges:
// temperature 20-34 °C, moisture 30-79 %, pH 5.0-8.0, sunlight 300-1299 lux.
type Simulated struct {
	mu    sync.Mutex
	rng   *rand.Rand
	clock clock.Clock
}

// NewSimulated uses rng for values and clk for timestamps. Nil arguments
// fall back to a randomly seeded generator and wall time.
func NewSimulated(rng *rand.Rand, clk clock.Clock) *Simulated {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Simulated{rng: rng, clock: clk}
}

func (s *Simulated) Read(ctx context.Context) (models.SensorReading, error) {
	if err := ctx.Err(); err != nil {
		return models.SensorReading{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return models.SensorReading{
		Temperature: float64(20 + s.rng.IntN(15)),
		Moisture:    float64(30 + s.rng.IntN(50)),
		PH:          math.Round((5+s.rng.Float64()*3)*10) / 10,
		Sunlight:    float64(300 + s.rng.IntN(1000)),
		Timestamp:   s.clock.Now(),
	}, nil
}
