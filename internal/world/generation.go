// Forest generation using layered simplex noise.
// Fuel density comes from the noise field; ignition seeds land on dense fuel.
package world

import (
	"math"
	"math/rand"
	"sort"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds forest generation parameters.
type GenConfig struct {
	Width     int   // Cells along x
	Height    int   // Cells along y
	Seed      int64 // Random seed (0 = random)
	Ignitions int   // Initial fire seeds
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:     100,
		Height:    100,
		Seed:      0,
		Ignitions: 3,
	}
}

// SmallTestConfig returns a tiny forest for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Width:     20,
		Height:    20,
		Seed:      42,
		Ignitions: 1,
	}
}

// Generate creates a forest with fuel densities and ignition seeds already burning.
func Generate(cfg GenConfig) *Grid {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	fuelNoise := opensimplex.NewNormalized(seed)

	g := NewGrid(cfg.Width, cfg.Height)
	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			fuel := octaveNoise(fuelNoise, float64(x), float64(y), 3, 0.07, 0.5)
			g.Cell(Point{X: x, Y: y}).Fuel = clamp01(fuel)
		}
	}

	for _, p := range placeIgnitions(g, cfg.Ignitions, seed) {
		g.Ignite(p, 0)
	}
	return g
}

// placeIgnitions picks up to n dense-fuel cells that sit apart from each other.
func placeIgnitions(g *Grid, n int, seed int64) []Point {
	if n <= 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(seed + 100))

	candidates := make([]*Cell, 0, len(g.cells))
	for i := range g.cells {
		candidates = append(candidates, &g.cells[i])
	}
	// Densest fuel first, shuffled within equal fuel for variety.
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Fuel > candidates[j].Fuel
	})

	minGap := float64(min(g.Width, g.Height)) / 5
	var seeds []Point
	for _, c := range candidates {
		if len(seeds) == n {
			break
		}
		p := c.Point()
		if farFromAll(p, seeds, minGap) {
			seeds = append(seeds, p)
		}
	}
	// Small grids may not fit n separated seeds; fill the rest greedily.
	for _, c := range candidates {
		if len(seeds) == n {
			break
		}
		if farFromAll(c.Point(), seeds, 1) {
			seeds = append(seeds, c.Point())
		}
	}
	return seeds
}

func farFromAll(p Point, others []Point, gap float64) bool {
	for _, o := range others {
		dx := float64(p.X - o.X)
		dy := float64(p.Y - o.Y)
		if math.Sqrt(dx*dx+dy*dy) < gap {
			return false
		}
	}
	return true
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
