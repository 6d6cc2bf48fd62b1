package agents

import (
	"testing"

	"github.com/talgya/firecontrol/internal/world"
)

func TestFrontierBurnedBiasSouthEast(t *testing.T) {
	f := newFakeForest(50, 50)
	task := testTask(1, 10, 10, 6, 9)
	origin := world.Point{X: 12, Y: 12} // dx>0, dy>0
	f.states[origin] = world.CellBurned

	u := NewUAV(0, Position{X: 12, Y: 12}, 1)
	u.Remember(origin)

	got := u.Frontier(task, origin, f)
	if len(got) == 0 {
		t.Fatal("expected candidates")
	}
	for _, p := range got {
		if p.Y < origin.Y {
			t.Fatalf("candidate %v lies behind the burned cell", p)
		}
	}
}

func TestFrontierBiasTable(t *testing.T) {
	task := testTask(1, 20, 20, 8, 9)
	tests := []struct {
		name   string
		origin world.Point
		reject func(p, o world.Point) bool
	}{
		{"dx>0 dy<0", world.Point{X: 22, Y: 18}, func(p, o world.Point) bool { return p.X < o.X }},
		{"dx<0 dy<0", world.Point{X: 18, Y: 18}, func(p, o world.Point) bool { return p.Y > o.Y }},
		{"dx<0 dy>0", world.Point{X: 18, Y: 22}, func(p, o world.Point) bool { return p.X > o.X }},
		{"dx>0 dy>0", world.Point{X: 22, Y: 22}, func(p, o world.Point) bool { return p.Y < o.Y }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeForest(50, 50)
			f.states[tt.origin] = world.CellBurned
			u := NewUAV(0, Position{}, 1)
			u.Remember(tt.origin)

			got := u.Frontier(task, tt.origin, f)
			if len(got) == 0 {
				t.Fatal("expected candidates")
			}
			for _, p := range got {
				if tt.reject(p, tt.origin) {
					t.Fatalf("candidate %v on the excluded side of %v", p, tt.origin)
				}
			}
		})
	}
}

func TestFrontierNoBiasWhenNotBurned(t *testing.T) {
	f := newFakeForest(50, 50)
	task := testTask(1, 10, 10, 6, 9)
	origin := world.Point{X: 12, Y: 12}

	u := NewUAV(0, Position{}, 1)
	u.Remember(origin)
	got := u.Frontier(task, origin, f)
	if len(got) != 8 {
		t.Fatalf("candidates = %d, want the full 3x3 ring minus origin", len(got))
	}
}

func TestFrontierGrowsRing(t *testing.T) {
	f := newFakeForest(50, 50)
	task := testTask(1, 10, 10, 3, 9)
	u := NewUAV(0, Position{}, 1)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			u.Remember(world.Point{X: 10 + dx, Y: 10 + dy})
		}
	}

	got := u.Frontier(task, world.Point{X: 10, Y: 10}, f)
	if len(got) == 0 {
		t.Fatal("expected candidates on the second ring")
	}
	for _, p := range got {
		dx, dy := abs(p.X-10), abs(p.Y-10)
		if max(dx, dy) != 2 {
			t.Fatalf("candidate %v not on ring 2", p)
		}
	}
}

func TestFrontierStaysInGridAndRadius(t *testing.T) {
	f := newFakeForest(5, 5)
	task := testTask(1, 0, 0, 2, 4)
	u := NewUAV(0, Position{}, 1)
	origin := world.Point{X: 0, Y: 0}
	u.Remember(origin)

	got := u.Frontier(task, origin, f)
	if len(got) == 0 {
		t.Fatal("expected candidates")
	}
	for _, p := range got {
		if !f.InBounds(p) {
			t.Fatalf("candidate %v outside the grid", p)
		}
		if p.X*p.X+p.Y*p.Y > 4 {
			t.Fatalf("candidate %v outside the task radius", p)
		}
	}
}

func TestSelectCellExhaustionAbandonsTask(t *testing.T) {
	f := newFakeForest(20, 20)
	task := testTask(1, 5, 5, 1, 1)

	u := NewUAV(0, Position{X: 5.4, Y: 5.7, Z: 10}, 1)
	u.commit(task)
	for _, p := range []world.Point{{X: 5, Y: 5}, {X: 4, Y: 5}, {X: 6, Y: 5}, {X: 5, Y: 4}, {X: 5, Y: 6}} {
		u.Remember(p)
	}

	conds := u.selectCell(f)
	if len(conds) != 1 || conds[0] != ConditionTaskAbandoned {
		t.Fatalf("conditions = %v, want TaskAbandoned", conds)
	}
	if u.Task != nil {
		t.Fatal("task should be cleared")
	}
	if u.Target == nil || *u.Target != (world.Point{X: 5, Y: 5}) {
		t.Fatalf("target = %v, want current cell", u.Target)
	}
	if u.NextAction(f) != ActionSelectTask {
		t.Fatal("abandoned UAV should go back to SELECT_TASK")
	}
}

func TestSelectCellPicksCandidate(t *testing.T) {
	f := newFakeForest(20, 20)
	task := testTask(1, 5, 5, 3, 9)
	u := NewUAV(0, Position{X: 5, Y: 5}, 1)
	u.commit(task)
	u.Remember(world.Point{X: 5, Y: 5})

	if conds := u.selectCell(f); len(conds) != 0 {
		t.Fatalf("unexpected conditions %v", conds)
	}
	if u.Target == nil || u.Knows(*u.Target) {
		t.Fatalf("target %v should be a fresh cell", u.Target)
	}
	if abs(u.Target.X-5) > 1 || abs(u.Target.Y-5) > 1 {
		t.Fatalf("target %v outside the first ring", u.Target)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
