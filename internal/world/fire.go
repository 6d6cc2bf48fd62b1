package world

import (
	"math/rand"

	"github.com/talgya/firecontrol/internal/weather"
)

// SpreadConfig controls how fast fire moves through the forest.
type SpreadConfig struct {
	Base      float64 // Ignition probability for a full-fuel neighbour in calm air
	BurnTicks uint64  // Ticks a cell burns before it burns out (0 = never)
}

// DefaultSpreadConfig returns a slow spread suited to the default UAV speed.
func DefaultSpreadConfig() SpreadConfig {
	return SpreadConfig{Base: 0.15, BurnTicks: 3000}
}

// Spread advances the fire by one spread step. Burning cells may ignite their
// eight neighbours, biased by fuel and wind; cells burning longer than
// BurnTicks burn out. Returns the number of new ignitions and burn-outs.
func (g *Grid) Spread(tick uint64, cfg SpreadConfig, wind weather.Wind, rng *rand.Rand) (ignited, burnedOut int) {
	burning := make([]*Cell, 0, g.onFire)
	for i := range g.cells {
		if g.cells[i].State == CellFire {
			burning = append(burning, &g.cells[i])
		}
	}

	for _, c := range burning {
		for _, off := range neighborOffsets {
			n := g.Cell(Point{X: c.X + off.X, Y: c.Y + off.Y})
			if n == nil || n.State != CellNormal {
				continue
			}
			p := cfg.Base * n.Fuel * wind.Factor(off.X, off.Y)
			if rng.Float64() < p {
				g.Ignite(n.Point(), tick)
				ignited++
			}
		}
	}

	if cfg.BurnTicks > 0 {
		for _, c := range burning {
			if tick-c.IgnitedAt >= cfg.BurnTicks {
				g.burnOut(c)
				burnedOut++
			}
		}
	}
	return ignited, burnedOut
}
