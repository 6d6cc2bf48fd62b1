package agents

import (
	"math"
	"testing"

	"github.com/talgya/firecontrol/internal/world"
)

func TestNextAction(t *testing.T) {
	f := newFakeForest(20, 20)
	task := testTask(1, 5, 5, 3, 9)
	fire := world.Point{X: 3, Y: 3}
	f.states[fire] = world.CellFire

	tests := []struct {
		name   string
		setup  func(u *UAV)
		want   Action
		learns *world.Point
	}{
		{"no task", func(u *UAV) {}, ActionSelectTask, nil},
		{"no target", func(u *UAV) { u.Task = task }, ActionSelectCell, nil},
		{"on fire", func(u *UAV) {
			u.Task = task
			u.Position = Position{X: 3.5, Y: 3.2}
			u.Target = &fire
		}, ActionExtinguish, &fire},
		{"on cold cell", func(u *UAV) {
			u.Task = task
			u.Position = Position{X: 7, Y: 7}
			u.Target = &world.Point{X: 7, Y: 7}
		}, ActionSelectCell, &world.Point{X: 7, Y: 7}},
		{"en route", func(u *UAV) {
			u.Task = task
			u.Position = Position{X: 0, Y: 0}
			u.Target = &world.Point{X: 7, Y: 7}
		}, ActionMove, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := NewUAV(0, Position{}, 1)
			tt.setup(u)
			if got := u.NextAction(f); got != tt.want {
				t.Fatalf("action = %s, want %s", got, tt.want)
			}
			if tt.learns != nil && !u.Knows(*tt.learns) {
				t.Fatalf("cell %v not recorded as known", *tt.learns)
			}
			if tt.learns == nil && len(u.KnownCells()) != 0 {
				t.Fatalf("unexpected known cells %v", u.KnownCells())
			}
		})
	}
}

func TestMoveStepsWithoutOvershoot(t *testing.T) {
	u := NewUAV(0, Position{X: 0, Y: 2, Z: 10}, 1)
	u.Target = &world.Point{X: 1, Y: 0}

	u.move(0.02)
	if math.Abs(u.Position.X-0.02) > 1e-12 || math.Abs(u.Position.Y-1.98) > 1e-12 {
		t.Fatalf("position = %+v after one step", u.Position)
	}
	if u.Position.Z != 10 {
		t.Fatalf("altitude changed to %v", u.Position.Z)
	}

	u.Position = Position{X: 0.99, Y: 0.005, Z: 10}
	u.move(0.02)
	if u.Position.X != 1 || u.Position.Y != 0 {
		t.Fatalf("position = %+v, want exactly on target", u.Position)
	}
}

func TestExtinguishCountdown(t *testing.T) {
	params := DefaultParams()
	params.StepToExtinguish = 3
	r := newRig(params, Position{X: 5, Y: 5, Z: 10})
	cell := world.Point{X: 5, Y: 5}
	r.forest.states[cell] = world.CellFire

	u := r.uav(0)
	u.Role = RoleIsolatedManager
	u.Task = testTask(1, 5, 5, 2, 1)
	u.Target = &cell

	var cleared uint64
	for r.tick = 10; r.tick < 20; r.tick++ {
		res := u.Step(r.env(nil))
		if res.Action != ActionExtinguish && cleared == 0 {
			t.Fatalf("tick %d: action %s before fire cleared", r.tick, res.Action)
		}
		if res.Extinguished != nil {
			if !res.Has(ConditionFireCleared) || *res.Extinguished != cell {
				t.Fatalf("tick %d: bad result %+v", r.tick, res)
			}
			cleared = r.tick
			break
		}
	}
	if cleared != 13 {
		t.Fatalf("cleared at tick %d, want 13", cleared)
	}
	if r.forest.states[cell] != world.CellExtinguished {
		t.Fatal("cell not extinguished")
	}
	if u.Target != nil {
		t.Fatal("target should be cleared")
	}
	if u.LastAction != ActionExtinguish {
		t.Fatalf("last action = %s", u.LastAction)
	}
}

func TestExtinguishResetsWhenInterrupted(t *testing.T) {
	r := newRig(DefaultParams(), Position{X: 5, Y: 5})
	cell := world.Point{X: 5, Y: 5}
	r.forest.states[cell] = world.CellFire

	u := r.uav(0)
	u.Role = RoleIsolatedManager
	u.Task = testTask(1, 5, 5, 2, 1)
	u.Target = &cell

	r.tick = 1
	u.Step(r.env(nil))
	if u.extinguishStartedAt != 1 {
		t.Fatalf("countdown start = %d, want 1", u.extinguishStartedAt)
	}

	// The fire burns out on its own: the next step re-targets.
	r.forest.states[cell] = world.CellBurned
	r.tick = 2
	if res := u.Step(r.env(nil)); res.Action != ActionSelectCell {
		t.Fatalf("action = %s, want SELECT_CELL", res.Action)
	}
	if u.extinguishStartedAt != -1 {
		t.Fatalf("countdown not reset: %d", u.extinguishStartedAt)
	}
}

func TestStepRunsOneAction(t *testing.T) {
	r := newRig(DefaultParams(), Position{X: 0, Y: 0})
	u := r.uav(0)
	u.Task = testTask(1, 10, 10, 2, 4)
	u.Target = &world.Point{X: 10, Y: 10}

	r.tick = 1
	res := u.Step(r.env(nil))
	if res.Action != ActionMove || u.LastAction != ActionMove {
		t.Fatalf("action = %s", res.Action)
	}
	if u.Position.X != 0.02 || u.Position.Y != 0.02 {
		t.Fatalf("position = %+v after one move", u.Position)
	}
}
