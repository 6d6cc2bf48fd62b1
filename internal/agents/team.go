package agents

import (
	"github.com/talgya/firecontrol/internal/world"
)

// Team is the live fleet in stable roster order.
type Team struct {
	members []*UAV
	index   map[AgentID]*UAV
}

// NewTeam creates a team from the given UAVs, keeping their order.
func NewTeam(members ...*UAV) *Team {
	t := &Team{index: make(map[AgentID]*UAV, len(members))}
	for _, u := range members {
		t.Add(u)
	}
	return t
}

// Add appends a UAV to the roster.
func (t *Team) Add(u *UAV) {
	t.members = append(t.members, u)
	t.index[u.ID] = u
}

// Members returns the roster in order.
func (t *Team) Members() []*UAV {
	return t.members
}

// Get returns the UAV with the given ID.
func (t *Team) Get(id AgentID) (*UAV, bool) {
	u, ok := t.index[id]
	return u, ok
}

// Len returns the team size.
func (t *Team) Len() int {
	return len(t.members)
}

// AnyManager reports whether any UAV holds a manager-type role.
func (t *Team) AnyManager() bool {
	for _, u := range t.members {
		if u.Role.IsManager() {
			return true
		}
	}
	return false
}

// RetrieveAgents returns, for each task, how many UAVs are committed to it.
// Commitments to tasks no longer in the list are not counted.
func (t *Team) RetrieveAgents(tasks []*world.Task) []int {
	pos := make(map[world.TaskID]int, len(tasks))
	for i, task := range tasks {
		pos[task.ID] = i
	}
	counts := make([]int, len(tasks))
	for _, u := range t.members {
		if u.Task == nil {
			continue
		}
		if i, ok := pos[u.Task.ID]; ok {
			counts[i]++
		}
	}
	return counts
}

// Neighborhood is the proximity graph of one tick, built once and shared by
// election, broadcasts and neighbour counts.
type Neighborhood struct {
	order     []AgentID
	neighbors map[AgentID][]AgentID
}

// Snapshot builds the proximity graph for the current positions.
func (t *Team) Snapshot(commRange float64) *Neighborhood {
	n := &Neighborhood{
		order:     make([]AgentID, len(t.members)),
		neighbors: make(map[AgentID][]AgentID, len(t.members)),
	}
	for i, a := range t.members {
		n.order[i] = a.ID
		var list []AgentID
		for _, b := range t.members {
			if a != b && InRange(a.Position, b.Position, commRange) {
				list = append(list, b.ID)
			}
		}
		n.neighbors[a.ID] = list
	}
	return n
}

// Order returns the agent IDs in roster order.
func (n *Neighborhood) Order() []AgentID {
	return n.order
}

// Neighbors returns the agents in range of id, in roster order.
func (n *Neighborhood) Neighbors(id AgentID) []AgentID {
	return n.neighbors[id]
}

// Size returns the number of agents in id's neighbourhood including itself.
func (n *Neighborhood) Size(id AgentID) int {
	return len(n.neighbors[id]) + 1
}
