package agents

import (
	"math/rand"
	"testing"
)

func TestElectManagersLine(t *testing.T) {
	// A-B-C with A and C out of each other's range.
	r := newRig(DefaultParams(),
		Position{X: 0, Y: 0},
		Position{X: 50, Y: 0},
		Position{X: 100, Y: 0},
	)
	e := ElectManagers(r.team, r.team.Snapshot(60))

	if len(e.Managers) != 1 || e.Managers[0] != 1 {
		t.Fatalf("managers = %v, want [1]", e.Managers)
	}
	if r.uav(1).Role != RoleManager {
		t.Fatalf("B role = %s", r.uav(1).Role)
	}
	for _, id := range []AgentID{0, 2} {
		if r.uav(id).Role != RoleNone {
			t.Fatalf("agent %d role = %s, want none", id, r.uav(id).Role)
		}
		if e.Owner[id] != 1 {
			t.Fatalf("agent %d owned by %d, want 1", id, e.Owner[id])
		}
	}
}

func TestElectManagersIsolated(t *testing.T) {
	r := newRig(DefaultParams(), Position{X: 0, Y: 0}, Position{X: 0, Y: 500})
	e := ElectManagers(r.team, r.team.Snapshot(60))

	if len(e.Managers) != 2 {
		t.Fatalf("managers = %v, want both", e.Managers)
	}
	for _, u := range r.team.Members() {
		if u.Role != RoleIsolatedManager {
			t.Fatalf("agent %d role = %s, want isolated-manager", u.ID, u.Role)
		}
	}
}

func TestElectManagersTieGoesToRosterOrder(t *testing.T) {
	r := newRig(DefaultParams(), Position{X: 0, Y: 0}, Position{X: 10, Y: 0})
	ElectManagers(r.team, r.team.Snapshot(60))

	if r.uav(0).Role != RoleManager || r.uav(1).Role != RoleNone {
		t.Fatalf("roles = %s/%s, want manager/none", r.uav(0).Role, r.uav(1).Role)
	}
}

func TestElectManagersDiscardsPreviousRoles(t *testing.T) {
	r := newRig(DefaultParams(), Position{X: 0, Y: 0}, Position{X: 10, Y: 0})
	r.uav(1).Role = RoleManager
	r.uav(1).auction.state = AuctionCollecting

	ElectManagers(r.team, r.team.Snapshot(60))
	if r.uav(1).Role != RoleNone {
		t.Fatalf("stale manager role kept: %s", r.uav(1).Role)
	}
	if r.uav(1).AuctionState() != AuctionIdle {
		t.Fatalf("stale auction kept: %s", r.uav(1).AuctionState())
	}
}

func TestElectionRoleTotality(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(25)
		positions := make([]Position, n)
		for i := range positions {
			positions[i] = Position{X: rng.Float64() * 300, Y: rng.Float64() * 300}
		}
		r := newRig(DefaultParams(), positions...)
		hood := r.team.Snapshot(60)
		e := ElectManagers(r.team, hood)

		dominated := make(map[AgentID]int)
		for _, mgr := range e.Owner {
			dominated[mgr]++
		}

		for _, u := range r.team.Members() {
			switch u.Role {
			case RoleNone:
				mgr, ok := e.Owner[u.ID]
				if !ok {
					t.Fatalf("trial %d: follower %d has no owner", trial, u.ID)
				}
				m := r.uav(mgr)
				if !m.Role.IsManager() || !InRange(u.Position, m.Position, 60) {
					t.Fatalf("trial %d: follower %d owned by unreachable or non-manager %d", trial, u.ID, mgr)
				}
			case RoleManager:
				if dominated[u.ID] == 0 {
					t.Fatalf("trial %d: manager %d dominates nobody", trial, u.ID)
				}
			case RoleIsolatedManager:
				if _, ok := e.Owner[u.ID]; ok {
					t.Fatalf("trial %d: isolated manager %d also owned", trial, u.ID)
				}
			default:
				t.Fatalf("trial %d: agent %d has no role", trial, u.ID)
			}
		}
		if !r.team.AnyManager() {
			t.Fatalf("trial %d: no manager elected", trial)
		}
	}
}
