// Fleet spawning: places UAVs around a launch point, each with its own
// random source derived from the run seed.
package agents

import (
	"math/rand"
)

// Spawner creates UAVs for the simulation.
type Spawner struct {
	rng    *rand.Rand
	nextID AgentID
}

// NewSpawner creates a UAV spawner with the given seed.
func NewSpawner(seed int64) *Spawner {
	return &Spawner{
		rng:    rand.New(rand.NewSource(seed + 300)),
		nextID: 0,
	}
}


// SpawnFleet creates count UAVs scattered uniformly within spread of base on
// x and y, all at base altitude. Positions are clamped to [0, maxX]×[0, maxY].
func (s *Spawner) SpawnFleet(count int, base Position, spread, maxX, maxY float64) []*UAV {
	fleet := make([]*UAV, 0, count)
	for i := 0; i < count; i++ {
		pos := Position{
			X: clampTo(base.X+(s.rng.Float64()*2-1)*spread, maxX),
			Y: clampTo(base.Y+(s.rng.Float64()*2-1)*spread, maxY),
			Z: base.Z,
		}
		fleet = append(fleet, s.spawnOne(pos))
	}
	return fleet
}

func (s *Spawner) spawnOne(pos Position) *UAV {
	id := s.nextID
	s.nextID++
	return NewUAV(id, pos, s.rng.Int63())
}

func clampTo(v, max float64) float64 {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
