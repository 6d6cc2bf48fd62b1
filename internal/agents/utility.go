package agents

import (
	"math"
	"sort"

	"github.com/talgya/firecontrol/internal/world"
)

// Utility weights. Utility is a cost: lower is better.
const (
	weightDistance = 0.7
	weightSize     = 0.2
	weightRadius   = 0.1

	importanceSize   = 0.7
	importanceRadius = 0.3
)

// Bounds are the grid dimensions that normalise utility terms.
type Bounds struct {
	Width  int
	Height int
}

func (b Bounds) maxMoves() float64  { return float64(max(b.Width, b.Height)) }
func (b Bounds) maxSize() float64   { return float64(b.Width * b.Height) }
func (b Bounds) maxRadius() float64 { return math.Hypot(float64(b.Width), float64(b.Height)) }

// Utility scores taking task t from pos, in [0, 1]: 0.7 × Chebyshev distance
// to the centroid, 0.2 × (1 − size/maxSize), 0.1 × (1 − radius/maxRadius),
// each term normalised by the grid.
func Utility(t *world.Task, pos Position, b Bounds) float64 {
	moves := math.Max(math.Abs(float64(t.Centroid.X)-pos.X), math.Abs(float64(t.Centroid.Y)-pos.Y))
	distance := ratio(moves, b.maxMoves())
	size := 1 - ratio(float64(t.Size()), b.maxSize())
	radius := 1 - ratio(t.Radius, b.maxRadius())
	return weightDistance*distance + weightSize*size + weightRadius*radius
}

// Importance ranks tasks for spare quota: bigger and wider fires first.
func Importance(t *world.Task, b Bounds) float64 {
	return importanceSize*ratio(float64(t.Size()), b.maxSize()) +
		importanceRadius*ratio(t.Radius, b.maxRadius())
}

// PriorityQuota returns how many agents each task should get from a team of
// teamSize: floor(teamSize/len(tasks)) each, with the remainder going one
// apiece to the most important tasks (ties by list order). Quotas sum to teamSize.
func PriorityQuota(tasks []*world.Task, teamSize int, b Bounds) map[world.TaskID]int {
	quotas := make(map[world.TaskID]int, len(tasks))
	if len(tasks) == 0 {
		return quotas
	}

	base := teamSize / len(tasks)
	extra := teamSize % len(tasks)
	for _, t := range tasks {
		quotas[t.ID] = base
	}

	ranked := make([]*world.Task, len(tasks))
	copy(ranked, tasks)
	sort.SliceStable(ranked, func(i, j int) bool {
		return Importance(ranked[i], b) > Importance(ranked[j], b)
	})
	for _, t := range ranked[:extra] {
		quotas[t.ID]++
	}
	return quotas
}

// ratio returns v/limit clamped to [0, 1].
func ratio(v, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	r := v / limit
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}
