package world

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// TaskID identifies a fire region across registry refreshes.
type TaskID uint64

// Task is a contiguous fire region that needs one or more UAVs.
// Tasks are immutable once built; a refresh produces new values.
type Task struct {
	ID       TaskID  `json:"id"`
	Centroid Point   `json:"centroid"`
	Radius   float64 `json:"radius"`
	Cells    []Point `json:"cells"`
}

// Size returns the number of member cells.
func (t *Task) Size() int {
	return len(t.Cells)
}

// Registry clusters burning cells into tasks and keeps task identity stable
// while a region keeps burning.
type Registry struct {
	tasks  []*Task
	owner  map[Point]TaskID
	nextID TaskID
}

// NewRegistry creates an empty task registry.
func NewRegistry() *Registry {
	return &Registry{
		owner:  make(map[Point]TaskID),
		nextID: 1,
	}
}

// Tasks returns the current tasks ordered by ID.
func (r *Registry) Tasks() []*Task {
	out := make([]*Task, len(r.tasks))
	copy(out, r.tasks)
	return out
}

// Get returns the live task with the given ID.
func (r *Registry) Get(id TaskID) (*Task, bool) {
	for _, t := range r.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// Refresh re-clusters the grid's burning cells (8-connected). A cluster that
// overlaps a previous task keeps its ID; the rest get fresh IDs.
func (r *Registry) Refresh(g *Grid) []*Task {
	clusters := clusterFires(g)

	claimed := make(map[TaskID]bool)
	owner := make(map[Point]TaskID)
	tasks := make([]*Task, 0, len(clusters))

	for _, cells := range clusters {
		id, ok := r.inherit(cells, claimed)
		if !ok {
			id = r.nextID
			r.nextID++
		}
		claimed[id] = true

		t := buildTask(id, cells)
		for _, p := range cells {
			owner[p] = id
		}
		tasks = append(tasks, t)
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	r.tasks = tasks
	r.owner = owner
	return r.Tasks()
}

// inherit picks the previous task sharing the most cells with the cluster,
// smallest ID on ties, skipping IDs already claimed this refresh.
func (r *Registry) inherit(cells []Point, claimed map[TaskID]bool) (TaskID, bool) {
	overlap := make(map[TaskID]int)
	for _, p := range cells {
		if id, ok := r.owner[p]; ok && !claimed[id] {
			overlap[id]++
		}
	}
	var best TaskID
	bestCount := 0
	for id, n := range overlap {
		if n > bestCount || (n == bestCount && id < best) {
			best, bestCount = id, n
		}
	}
	return best, bestCount > 0
}

// clusterFires flood-fills burning cells in row-major scan order.
func clusterFires(g *Grid) [][]Point {
	seen := make([]bool, len(g.cells))
	var clusters [][]Point

	for i := range g.cells {
		if seen[i] || g.cells[i].State != CellFire {
			continue
		}
		var cluster []Point
		stack := []Point{g.cells[i].Point()}
		seen[i] = true
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			cluster = append(cluster, p)

			for _, off := range neighborOffsets {
				n := Point{X: p.X + off.X, Y: p.Y + off.Y}
				if !g.InBounds(n) {
					continue
				}
				idx := n.Y*g.Width + n.X
				if seen[idx] || g.cells[idx].State != CellFire {
					continue
				}
				seen[idx] = true
				stack = append(stack, n)
			}
		}
		sort.Slice(cluster, func(a, b int) bool {
			if cluster[a].Y != cluster[b].Y {
				return cluster[a].Y < cluster[b].Y
			}
			return cluster[a].X < cluster[b].X
		})
		clusters = append(clusters, cluster)
	}
	return clusters
}

// buildTask computes centroid (rounded mean) and radius (farthest member, at least 1).
func buildTask(id TaskID, cells []Point) *Task {
	mp := make(orb.MultiPoint, len(cells))
	for i, p := range cells {
		mp[i] = orb.Point{float64(p.X), float64(p.Y)}
	}
	c, _ := planar.CentroidArea(mp)
	centroid := Point{X: int(math.Round(c.X())), Y: int(math.Round(c.Y()))}

	cp := orb.Point{float64(centroid.X), float64(centroid.Y)}
	radius := 1.0
	for _, p := range mp {
		if d := planar.Distance(cp, p); d > radius {
			radius = d
		}
	}

	return &Task{
		ID:       id,
		Centroid: centroid,
		Radius:   radius,
		Cells:    cells,
	}
}
