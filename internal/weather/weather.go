// Package weather provides a seeded wind model that biases fire spread.
// Wind drifts by a bounded random walk on each Advance.
package weather

import (
	"fmt"
	"math"
	"math/rand"
)

// Wind is the current air movement. Direction is the heading the wind blows
// toward, in radians (0 = +x, π/2 = +y).
type Wind struct {
	Direction float64 `json:"direction"`
	Speed     float64 `json:"speed"` // m/s
}

// StormSpeed is the speed at which wind bias saturates.
const StormSpeed = 15.0

// Factor returns the spread multiplier for fire moving by (dx, dy), in
// [0.5, 1.5]: downwind spreads faster, upwind slower. Calm air returns 1.
func (w Wind) Factor(dx, dy int) float64 {
	if (dx == 0 && dy == 0) || w.Speed <= 0 {
		return 1
	}
	strength := math.Min(w.Speed/StormSpeed, 1)
	heading := math.Atan2(float64(dy), float64(dx))
	alignment := math.Cos(heading - w.Direction)
	return 1 + 0.5*strength*alignment
}

// Describe returns a short human-readable summary.
func (w Wind) Describe() string {
	var kind string
	switch {
	case w.Speed < 1:
		return "calm air"
	case w.Speed < 5:
		kind = "light breeze"
	case w.Speed < 10:
		kind = "fresh breeze"
	case w.Speed < StormSpeed:
		kind = "strong wind"
	default:
		kind = "gale"
	}
	return fmt.Sprintf("%s toward %s", kind, compass(w.Direction))
}

func compass(rad float64) string {
	names := [8]string{"east", "north-east", "north", "north-west", "west", "south-west", "south", "south-east"}
	deg := math.Mod(rad*180/math.Pi+360, 360)
	return names[int(math.Round(deg/45))%8]
}

// Model evolves the wind over time.
type Model struct {
	rng      *rand.Rand
	wind     Wind
	maxSpeed float64
}

// NewModel creates a wind model with a random initial heading and speed.
func NewModel(seed int64, maxSpeed float64) *Model {
	rng := rand.New(rand.NewSource(seed + 200))
	return &Model{
		rng:      rng,
		maxSpeed: maxSpeed,
		wind: Wind{
			Direction: rng.Float64() * 2 * math.Pi,
			Speed:     rng.Float64() * maxSpeed,
		},
	}
}

// Current returns the wind without advancing it.
func (m *Model) Current() Wind {
	return m.wind
}

// Advance drifts heading by up to ±0.1 rad and speed by up to ±0.5 m/s.
func (m *Model) Advance() Wind {
	m.wind.Direction = math.Mod(m.wind.Direction+(m.rng.Float64()-0.5)*0.2+2*math.Pi, 2*math.Pi)
	m.wind.Speed += (m.rng.Float64() - 0.5)
	if m.wind.Speed < 0 {
		m.wind.Speed = 0
	}
	if m.wind.Speed > m.maxSpeed {
		m.wind.Speed = m.maxSpeed
	}
	return m.wind
}
