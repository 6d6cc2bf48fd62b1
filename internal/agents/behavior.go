package agents

import (
	"log/slog"
	"math"

	"github.com/talgya/firecontrol/internal/world"
)

// Forest is the slice of the world a UAV can observe and act on.
type Forest interface {
	Dims() (width, height int)
	InBounds(p world.Point) bool
	State(p world.Point) world.CellState
	Extinguish(p world.Point) bool
}

// Env is everything a UAV sees during one step.
type Env struct {
	Tick   uint64
	Forest Forest
	Tasks  []*world.Task
	Hood   *Neighborhood
	Fabric *Fabric
	Params Params
}

func (e *Env) bounds() Bounds {
	w, h := e.Forest.Dims()
	return Bounds{Width: w, Height: h}
}

// StepResult reports what one UAV did during a tick.
type StepResult struct {
	AgentID      AgentID
	Action       Action
	Conditions   []Condition
	Awards       []Award      // Allocation decisions, managers only
	Extinguished *world.Point // Cell put out this step, if any
}

// Has reports whether the step raised the given condition.
func (r StepResult) Has(c Condition) bool {
	for _, got := range r.Conditions {
		if got == c {
			return true
		}
	}
	return false
}

// NextAction derives the control-loop action from local state. Arriving on
// the target records the cell as known.
func (u *UAV) NextAction(forest Forest) Action {
	switch {
	case u.Task == nil:
		return ActionSelectTask
	case u.Target == nil:
		return ActionSelectCell
	case *u.Target == u.Cell():
		here := u.Cell()
		u.Remember(here)
		if forest.State(here) == world.CellFire {
			return ActionExtinguish
		}
		return ActionSelectCell
	default:
		return ActionMove
	}
}

// Step runs one tick for the UAV: protocol traffic first, then exactly one
// control-loop action.
func (u *UAV) Step(env *Env) StepResult {
	res := StepResult{AgentID: u.ID}
	res.Conditions = append(res.Conditions, u.communicate(env)...)

	action := u.NextAction(env.Forest)
	if action != ActionExtinguish {
		u.extinguishStartedAt = -1
	}

	switch action {
	case ActionSelectTask:
		if u.Role.IsManager() {
			awards, conds := u.runAuction(env)
			res.Awards = awards
			res.Conditions = append(res.Conditions, conds...)
		}
	case ActionSelectCell:
		task := u.Task
		conds := u.selectCell(env.Forest)
		if len(conds) > 0 {
			slog.Info("task abandoned", "agent", u.ID, "task", task.ID, "known", len(u.known))
		}
		res.Conditions = append(res.Conditions, conds...)
	case ActionMove:
		u.move(env.Params.LinearVelocity)
	case ActionExtinguish:
		if cell, ok := u.extinguish(env); ok {
			res.Extinguished = &cell
			res.Conditions = append(res.Conditions, ConditionFireCleared)
		}
	}

	u.LastAction = action
	res.Action = action
	return res
}

// move steps toward the target by at most velocity along each of x and y,
// landing exactly on it when within one step. Altitude is unchanged.
func (u *UAV) move(velocity float64) {
	u.Position.X = stepToward(u.Position.X, float64(u.Target.X), velocity)
	u.Position.Y = stepToward(u.Position.Y, float64(u.Target.Y), velocity)
}

func stepToward(from, to, step float64) float64 {
	if math.Abs(to-from) <= step {
		return to
	}
	if to > from {
		return from + step
	}
	return from - step
}

// extinguish advances the countdown over the current cell. It reports the
// cell once the fire is out.
func (u *UAV) extinguish(env *Env) (world.Point, bool) {
	if u.extinguishStartedAt < 0 {
		u.extinguishStartedAt = int64(env.Tick)
	}
	if env.Tick-uint64(u.extinguishStartedAt) < env.Params.StepToExtinguish {
		return world.Point{}, false
	}

	cell := u.Cell()
	env.Forest.Extinguish(cell)
	u.Target = nil
	u.extinguishStartedAt = -1
	slog.Debug("fire cleared", "agent", u.ID, "x", cell.X, "y", cell.Y)
	return cell, true
}
