package agents

import (
	"github.com/talgya/firecontrol/internal/world"
)

// fakeForest is an in-memory Forest where unset cells are normal.
type fakeForest struct {
	w, h         int
	states       map[world.Point]world.CellState
	extinguished []world.Point
}

func newFakeForest(w, h int) *fakeForest {
	return &fakeForest{w: w, h: h, states: make(map[world.Point]world.CellState)}
}

func (f *fakeForest) Dims() (int, int) { return f.w, f.h }

func (f *fakeForest) InBounds(p world.Point) bool {
	return p.X >= 0 && p.X < f.w && p.Y >= 0 && p.Y < f.h
}

func (f *fakeForest) State(p world.Point) world.CellState { return f.states[p] }

func (f *fakeForest) Extinguish(p world.Point) bool {
	if f.states[p] != world.CellFire {
		return false
	}
	f.states[p] = world.CellExtinguished
	f.extinguished = append(f.extinguished, p)
	return true
}

func testTask(id world.TaskID, cx, cy int, radius float64, size int) *world.Task {
	cells := make([]world.Point, size)
	for i := range cells {
		cells[i] = world.Point{X: cx + i%3, Y: cy + i/3}
	}
	return &world.Task{ID: id, Centroid: world.Point{X: cx, Y: cy}, Radius: radius, Cells: cells}
}

// rig is a small fleet wired to a fabric with a fixed forest.
type rig struct {
	team   *Team
	fabric *Fabric
	forest *fakeForest
	params Params
	tick   uint64
}

func newRig(params Params, positions ...Position) *rig {
	r := &rig{
		fabric: NewFabric(params.CommunicationRange),
		forest: newFakeForest(50, 50),
		params: params,
	}
	var fleet []*UAV
	for i, p := range positions {
		u := NewUAV(AgentID(i), p, int64(i+1))
		r.fabric.Register(u)
		fleet = append(fleet, u)
	}
	r.team = NewTeam(fleet...)
	return r
}

func (r *rig) uav(id AgentID) *UAV {
	u, _ := r.team.Get(id)
	return u
}

func (r *rig) env(tasks []*world.Task) *Env {
	return &Env{
		Tick:   r.tick,
		Forest: r.forest,
		Tasks:  tasks,
		Hood:   r.team.Snapshot(r.params.CommunicationRange),
		Fabric: r.fabric,
		Params: r.params,
	}
}

// round advances one tick: elect if needed, then step every UAV in order.
func (r *rig) round(tasks []*world.Task) []StepResult {
	r.tick++
	env := r.env(tasks)
	if !r.team.AnyManager() {
		ElectManagers(r.team, env.Hood)
	}
	var out []StepResult
	for _, u := range r.team.Members() {
		out = append(out, u.Step(env))
	}
	return out
}

func countType(packets []DataPacket, typ PacketType) int {
	n := 0
	for _, p := range packets {
		if p.Payload.Type == typ {
			n++
		}
	}
	return n
}
