// Simulation ties the forest, the fire and the UAV fleet together and runs
// them each tick.
package engine

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/talgya/firecontrol/internal/agents"
	"github.com/talgya/firecontrol/internal/weather"
	"github.com/talgya/firecontrol/internal/world"
)

// maxRecentEvents bounds the in-memory event ring.
const maxRecentEvents = 1000

// Options configure a Simulation.
type Options struct {
	Seed         int64
	Spread       world.SpreadConfig
	SpreadEvery  uint64 // Ticks between fire spread steps (0 = fire never spreads)
	MaxWind      float64
	Params       agents.Params
	ReelectEvery uint64 // Forced re-election cadence (0 = only when no manager exists)
}

// DefaultOptions returns the classic settings.
func DefaultOptions() Options {
	return Options{
		Spread:      world.DefaultSpreadConfig(),
		SpreadEvery: 50,
		MaxWind:     weather.StormSpeed,
		Params:      agents.DefaultParams(),
	}
}

// Event is a notable occurrence during the run.
type Event struct {
	Tick        uint64 `json:"tick"`
	Description string `json:"description"`
	Category    string `json:"category"` // "election", "award", "fire", "task", "auction"
}

// SimStats tracks aggregate run statistics.
type SimStats struct {
	CellsOnFire       int    `json:"cells_on_fire"`
	CellsBurned       int    `json:"cells_burned"`
	CellsExtinguished int    `json:"cells_extinguished"`
	Tasks             int    `json:"tasks"`
	Committed         int    `json:"committed"`
	Managers          int    `json:"managers"`
	Elections         int    `json:"elections"`
	Awards            int    `json:"awards"`
	Refusals          int    `json:"refusals"`
	Stalls            int    `json:"stalls"`
	Abandoned         int    `json:"abandoned"`
	Duplicates        int    `json:"duplicates"`
	PacketsDelivered  uint64 `json:"packets_delivered"`
	PacketsDropped    uint64 `json:"packets_dropped"`
}

// Simulation holds the complete run state. The engine goroutine takes the
// write lock per tick; readers such as the API take the read lock.
type Simulation struct {
	mu sync.RWMutex

	Grid   *world.Grid
	Tasks  *world.Registry
	Team   *agents.Team
	Fabric *agents.Fabric
	Wind   *weather.Model
	Seed   int64

	Events   []Event // Recent events, oldest first
	LastTick uint64
	Stats    SimStats

	opts     Options
	rng      *rand.Rand
	dirty    bool    // Grid changed since the last registry refresh
	unsaved  []Event // Events not yet handed to the store
	lastHood *agents.Neighborhood
}

// NewSimulation creates a Simulation from a generated forest and a fleet.
// Every UAV is registered with a fresh fabric.
func NewSimulation(g *world.Grid, fleet []*agents.UAV, opts Options) *Simulation {
	fabric := agents.NewFabric(opts.Params.CommunicationRange)
	for _, u := range fleet {
		fabric.Register(u)
	}

	sim := &Simulation{
		Grid:   g,
		Tasks:  world.NewRegistry(),
		Team:   agents.NewTeam(fleet...),
		Fabric: fabric,
		Wind:   weather.NewModel(opts.Seed, opts.MaxWind),
		Seed:   opts.Seed,
		opts:   opts,
		rng:    rand.New(rand.NewSource(opts.Seed + 400)),
		dirty:  true,
	}
	sim.Tasks.Refresh(g)
	sim.dirty = false
	sim.updateStats()
	return sim
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastTick
}

// Params returns the fleet parameters.
func (s *Simulation) Params() agents.Params {
	return s.opts.Params
}

// Tick runs one simulated second: fire spread on its cadence, task refresh,
// neighbourhood snapshot, election when needed, then one step per UAV in
// roster order.
func (s *Simulation) Tick(tick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.LastTick = tick

	if s.opts.SpreadEvery > 0 && tick%s.opts.SpreadEvery == 0 {
		s.spread(tick)
	}
	if s.dirty {
		s.Tasks.Refresh(s.Grid)
		s.dirty = false
	}
	tasks := s.Tasks.Tasks()

	hood := s.Team.Snapshot(s.opts.Params.CommunicationRange)
	s.lastHood = hood

	forced := s.opts.ReelectEvery > 0 && tick%s.opts.ReelectEvery == 0
	if forced || !s.Team.AnyManager() {
		e := agents.ElectManagers(s.Team, hood)
		s.Stats.Elections++
		s.record(tick, "election", fmt.Sprintf("%d managers elected over %d UAVs", len(e.Managers), s.Team.Len()))
	}

	env := &agents.Env{
		Tick:   tick,
		Forest: s.Grid,
		Tasks:  tasks,
		Hood:   hood,
		Fabric: s.Fabric,
		Params: s.opts.Params,
	}
	for _, u := range s.Team.Members() {
		s.absorb(tick, u.Step(env))
	}

	s.updateStats()
}

// AdvanceWind drifts the wind model.
func (s *Simulation) AdvanceWind(tick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.Wind.Advance()
	slog.Debug("wind shift", "tick", tick, "wind", w.Describe())
}

func (s *Simulation) spread(tick uint64) {
	ignited, burnedOut := s.Grid.Spread(tick, s.opts.Spread, s.Wind.Current(), s.rng)
	if ignited == 0 && burnedOut == 0 {
		return
	}
	s.dirty = true
	if burnedOut > 0 {
		s.record(tick, "fire", fmt.Sprintf("%d cells burned out", burnedOut))
	}
}

// absorb folds one step result into events and stats.
func (s *Simulation) absorb(tick uint64, res agents.StepResult) {
	for _, aw := range res.Awards {
		s.Stats.Awards++
		s.record(tick, "award", fmt.Sprintf("manager %d awarded task %d to UAV %d", res.AgentID, aw.Task.ID, aw.Agent))
	}
	for _, c := range res.Conditions {
		switch c {
		case agents.ConditionTaskAbandoned:
			s.Stats.Abandoned++
			s.record(tick, "task", fmt.Sprintf("UAV %d abandoned its task", res.AgentID))
		case agents.ConditionAuctionStalled:
			s.Stats.Stalls++
			s.record(tick, "auction", fmt.Sprintf("manager %d dropped a stalled auction", res.AgentID))
		case agents.ConditionAwardRefused:
			s.Stats.Refusals++
		case agents.ConditionDuplicateIgnored:
			s.Stats.Duplicates++
		}
	}
	if res.Extinguished != nil {
		s.dirty = true
		p := *res.Extinguished
		s.record(tick, "fire", fmt.Sprintf("UAV %d extinguished cell (%d,%d)", res.AgentID, p.X, p.Y))
	}
}

func (s *Simulation) record(tick uint64, category, desc string) {
	e := Event{Tick: tick, Description: desc, Category: category}
	s.Events = append(s.Events, e)
	if len(s.Events) > maxRecentEvents {
		s.Events = s.Events[len(s.Events)-maxRecentEvents:]
	}
	s.unsaved = append(s.unsaved, e)
}

// TakeEvents returns the events recorded since the last call.
func (s *Simulation) TakeEvents() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.unsaved
	s.unsaved = nil
	return out
}

// RecentEvents returns up to n of the latest events, newest last.
func (s *Simulation) RecentEvents(n int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := 0
	if n > 0 && len(s.Events) > n {
		start = len(s.Events) - n
	}
	out := make([]Event, len(s.Events)-start)
	copy(out, s.Events[start:])
	return out
}

// Done reports whether every fire is out.
func (s *Simulation) Done() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Grid.OnFire() == 0
}

func (s *Simulation) updateStats() {
	s.Stats.CellsOnFire = s.Grid.OnFire()
	s.Stats.CellsBurned = s.Grid.BurnedCount()
	s.Stats.CellsExtinguished = s.Grid.ExtinguishedCount()

	tasks := s.Tasks.Tasks()
	s.Stats.Tasks = len(tasks)
	s.Stats.Committed = 0
	for _, n := range s.Team.RetrieveAgents(tasks) {
		s.Stats.Committed += n
	}

	s.Stats.Managers = 0
	for _, u := range s.Team.Members() {
		if u.Role.IsManager() {
			s.Stats.Managers++
		}
	}
	s.Stats.PacketsDelivered, s.Stats.PacketsDropped = s.Fabric.Stats()
}

// Snapshot returns the stats under the read lock.
func (s *Simulation) Snapshot() SimStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Stats
}

// AgentStates returns every UAV's public state in roster order.
func (s *Simulation) AgentStates() []agents.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members := s.Team.Members()
	out := make([]agents.State, len(members))
	for i, u := range members {
		out[i] = u.State()
	}
	return out
}

// AgentState returns one UAV's public state.
func (s *Simulation) AgentState(id agents.AgentID) (agents.State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.Team.Get(id)
	if !ok {
		return agents.State{}, false
	}
	return u.State(), true
}

// TaskView pairs a task with the number of UAVs committed to it.
type TaskView struct {
	ID        uint64      `json:"id"`
	Centroid  world.Point `json:"centroid"`
	Radius    float64     `json:"radius"`
	Size      int         `json:"size"`
	Committed int         `json:"committed"`
}

// TaskViews returns the active tasks with their committed agent counts.
func (s *Simulation) TaskViews() []TaskView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks := s.Tasks.Tasks()
	counts := s.Team.RetrieveAgents(tasks)
	out := make([]TaskView, len(tasks))
	for i, t := range tasks {
		out[i] = TaskView{
			ID:        uint64(t.ID),
			Centroid:  t.Centroid,
			Radius:    t.Radius,
			Size:      t.Size(),
			Committed: counts[i],
		}
	}
	return out
}

// GeoJSON exports the tasks and the fleet as one feature collection.
func (s *Simulation) GeoJSON() *geojson.FeatureCollection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fc := world.TasksGeoJSON(s.Tasks.Tasks())
	for _, u := range s.Team.Members() {
		f := geojson.NewFeature(orb.Point{u.Position.X, u.Position.Y})
		f.Properties["kind"] = "uav"
		f.Properties["agent_id"] = int(u.ID)
		f.Properties["role"] = u.Role.String()
		f.Properties["action"] = u.LastAction.String()
		if u.Task != nil {
			f.Properties["task_id"] = uint64(u.Task.ID)
		}
		fc.Append(f)
	}
	return fc
}
