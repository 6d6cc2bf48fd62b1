package agents

import (
	"log/slog"
)

// Election is the outcome of one manager election.
type Election struct {
	Managers []AgentID          // In selection order
	Owner    map[AgentID]AgentID // Dominated follower → its manager
}

// ElectManagers partitions the proximity graph into disjoint stars. It
// repeatedly picks the remaining agent with the most remaining neighbours
// (first in roster order on ties), makes it a manager (or an isolated manager
// when none remain), and removes it and its neighbours from the pool.
// Every previous role is discarded.
func ElectManagers(team *Team, hood *Neighborhood) Election {
	e := Election{Owner: make(map[AgentID]AgentID)}

	remaining := make(map[AgentID]bool, team.Len())
	for _, u := range team.Members() {
		u.Role = RoleNone
		u.resetAuction()
		remaining[u.ID] = true
	}

	for len(remaining) > 0 {
		var chosen AgentID
		best := -1
		for _, id := range hood.Order() {
			if !remaining[id] {
				continue
			}
			if n := remainingCount(hood.Neighbors(id), remaining); n > best {
				chosen, best = id, n
			}
		}

		u, _ := team.Get(chosen)
		if best > 0 {
			u.Role = RoleManager
		} else {
			u.Role = RoleIsolatedManager
		}
		e.Managers = append(e.Managers, chosen)

		for _, n := range hood.Neighbors(chosen) {
			if remaining[n] {
				e.Owner[n] = chosen
				delete(remaining, n)
			}
		}
		delete(remaining, chosen)
	}

	slog.Info("managers elected", "managers", len(e.Managers), "followers", len(e.Owner))
	return e
}

func remainingCount(ids []AgentID, remaining map[AgentID]bool) int {
	n := 0
	for _, id := range ids {
		if remaining[id] {
			n++
		}
	}
	return n
}
