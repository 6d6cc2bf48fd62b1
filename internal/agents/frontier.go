package agents

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/talgya/firecontrol/internal/world"
)

// ring is a square search window relative to an origin cell. A side pinned
// at zero is closed and never grows.
type ring struct {
	minI, maxI, minJ, maxJ int
	openMinI, openMaxI     bool
	openMinJ, openMaxJ     bool
}

func newRing(half int) ring {
	return ring{
		minI: -half, maxI: half, minJ: -half, maxJ: half,
		openMinI: true, openMaxI: true, openMinJ: true, openMaxJ: true,
	}
}

// bias closes the side of the ring facing back toward the centroid.
func (r *ring) bias(dx, dy int) {
	switch {
	case dx > 0 && dy < 0:
		r.minI, r.openMinI = 0, false
	case dx < 0 && dy < 0:
		r.maxJ, r.openMaxJ = 0, false
	case dx < 0 && dy > 0:
		r.maxI, r.openMaxI = 0, false
	case dx > 0 && dy > 0:
		r.minJ, r.openMinJ = 0, false
	}
}

func (r *ring) grow() {
	if r.openMinI {
		r.minI--
	}
	if r.openMaxI {
		r.maxI++
	}
	if r.openMinJ {
		r.minJ--
	}
	if r.openMaxJ {
		r.maxJ++
	}
}

// Frontier returns every unknown, in-grid cell around origin that lies within
// the task radius of its centroid, widening the ring until candidates appear
// or the ring outgrows the radius. An empty result means the region is
// exhausted for this UAV.
func (u *UAV) Frontier(task *world.Task, origin world.Point, forest Forest) []world.Point {
	limit := int(math.Ceil(task.Radius))
	centroid := orb.Point{float64(task.Centroid.X), float64(task.Centroid.Y)}

	r := newRing(1)
	if forest.State(origin) == world.CellBurned {
		r.bias(origin.X-task.Centroid.X, origin.Y-task.Centroid.Y)
	}

	for half := 1; half <= limit; half++ {
		var found []world.Point
		for i := r.minI; i <= r.maxI; i++ {
			for j := r.minJ; j <= r.maxJ; j++ {
				p := world.Point{X: origin.X + i, Y: origin.Y + j}
				if !forest.InBounds(p) || u.Knows(p) {
					continue
				}
				d := planar.Distance(orb.Point{float64(p.X), float64(p.Y)}, centroid)
				if d <= float64(limit) {
					found = append(found, p)
				}
			}
		}
		if len(found) > 0 {
			return found
		}
		r.grow()
	}
	return nil
}

// selectCell picks the next cell to visit inside the UAV's task, or abandons
// the task when nothing is left to explore.
func (u *UAV) selectCell(forest Forest) []Condition {
	candidates := u.Frontier(u.Task, u.lastKnown(), forest)
	if len(candidates) == 0 {
		u.Task = nil
		here := u.Cell()
		u.Target = &here
		return []Condition{ConditionTaskAbandoned}
	}
	next := candidates[u.rng.Intn(len(candidates))]
	u.Target = &next
	return nil
}
