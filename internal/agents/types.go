// Package agents provides the UAV model and the decentralized task
// allocation protocol: manager election, the bid/propose/award auction,
// utility and quota functions, and frontier exploration of an owned task.
package agents

import (
	"math"
	"math/rand"

	"github.com/google/uuid"

	"github.com/talgya/firecontrol/internal/world"
)

// AgentID is a unique, stable identifier for a UAV.
type AgentID int

// Role is the coordination role assigned by manager election.
type Role uint8

const (
	RoleNone            Role = iota // Follower: answers bids and awards
	RoleManager                     // Auctions tasks to its neighbours
	RoleIsolatedManager             // No neighbours: allocates to itself
)

// String returns a lowercase name for the role.
func (r Role) String() string {
	switch r {
	case RoleManager:
		return "manager"
	case RoleIsolatedManager:
		return "isolated-manager"
	default:
		return "none"
	}
}

// IsManager reports whether the role is either manager variant.
func (r Role) IsManager() bool {
	return r == RoleManager || r == RoleIsolatedManager
}

// Action is the control-loop state selected for one tick.
type Action uint8

const (
	ActionNone Action = iota
	ActionSelectTask
	ActionSelectCell
	ActionMove
	ActionExtinguish
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionSelectTask:
		return "SELECT_TASK"
	case ActionSelectCell:
		return "SELECT_CELL"
	case ActionMove:
		return "MOVE"
	case ActionExtinguish:
		return "EXTINGUISH"
	default:
		return "NONE"
	}
}

// Condition is a named protocol outcome reported by a step.
type Condition uint8

const (
	ConditionTaskAbandoned    Condition = iota + 1 // Frontier exhausted, task dropped
	ConditionAuctionStalled                        // Outstanding bids timed out
	ConditionAwardRefused                          // A follower declined an award
	ConditionFireCleared                           // Extinguish countdown completed
	ConditionDuplicateIgnored                      // Already-processed packet seen again
)

// String returns the condition name.
func (c Condition) String() string {
	switch c {
	case ConditionTaskAbandoned:
		return "TaskAbandoned"
	case ConditionAuctionStalled:
		return "AuctionStalled"
	case ConditionAwardRefused:
		return "AwardRefused"
	case ConditionFireCleared:
		return "FireCleared"
	case ConditionDuplicateIgnored:
		return "DuplicateIgnored"
	default:
		return "Unknown"
	}
}

// Position is a continuous location in the air above the grid.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Distance returns the euclidean distance between two positions.
func (p Position) Distance(o Position) float64 {
	dx, dy, dz := p.X-o.X, p.Y-o.Y, p.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Cell returns the grid cell below the position.
func (p Position) Cell() world.Point {
	return world.Discretize(p.X, p.Y)
}

// InRange reports whether two positions can talk to each other.
func InRange(a, b Position, commRange float64) bool {
	return a.Distance(b) <= commRange
}

// Params are the fleet-wide settings every UAV shares.
type Params struct {
	CommunicationRange float64 // Max distance for packet delivery
	LinearVelocity     float64 // Max movement per tick along each of x and y
	StepToExtinguish   uint64  // Ticks spent over a fire before it is out
	AuctionTimeout     uint64  // Ticks a manager waits for proposals (0 = forever)
}

// DefaultParams returns the classic firecontrol settings.
func DefaultParams() Params {
	return Params{
		CommunicationRange: 60,
		LinearVelocity:     0.02,
		StepToExtinguish:   10,
		AuctionTimeout:     0,
	}
}

// UAV is a single autonomous firefighting drone.
// All fields are owned by the UAV's own step; other agents reach it only
// through its inbox.
type UAV struct {
	ID         AgentID
	Position   Position
	Target     *world.Point // Discrete cell to reach; altitude is unchanged
	Role       Role
	Task       *world.Task
	LastAction Action

	// Known cells, insertion-ordered, never forgotten.
	known    []world.Point
	knownSet map[world.Point]struct{}

	sent         []DataPacket
	received     []DataPacket
	processed    []DataPacket
	processedSet map[uuid.UUID]struct{}
	pending      []DataPacket // received, not yet processed

	inbox *Inbox
	rng   *rand.Rand

	auction auctionRound

	// Transient per-round allocation state.
	alloc  map[world.TaskID]int
	quotas map[world.TaskID]int

	extinguishStartedAt int64
}

// NewUAV creates a UAV at the given position with its own random source.
func NewUAV(id AgentID, pos Position, seed int64) *UAV {
	return &UAV{
		ID:                  id,
		Position:            pos,
		knownSet:            make(map[world.Point]struct{}),
		processedSet:        make(map[uuid.UUID]struct{}),
		inbox:               &Inbox{},
		rng:                 rand.New(rand.NewSource(seed)),
		extinguishStartedAt: -1,
	}
}

// Cell returns the grid cell the UAV is over.
func (u *UAV) Cell() world.Point {
	return u.Position.Cell()
}

// Remember adds a cell to the known set. Returns false if already known.
func (u *UAV) Remember(p world.Point) bool {
	if _, ok := u.knownSet[p]; ok {
		return false
	}
	u.knownSet[p] = struct{}{}
	u.known = append(u.known, p)
	return true
}

// Knows reports whether the UAV has visited p.
func (u *UAV) Knows(p world.Point) bool {
	_, ok := u.knownSet[p]
	return ok
}

// KnownCells returns the known cells in insertion order.
func (u *UAV) KnownCells() []world.Point {
	out := make([]world.Point, len(u.known))
	copy(out, u.known)
	return out
}

// lastKnown returns the most recently known cell, or the current cell.
func (u *UAV) lastKnown() world.Point {
	if len(u.known) == 0 {
		return u.Cell()
	}
	return u.known[len(u.known)-1]
}

// Sent returns a copy of the packets this UAV delivered.
func (u *UAV) Sent() []DataPacket {
	return append([]DataPacket(nil), u.sent...)
}

// Received returns a copy of every packet drained from the inbox.
func (u *UAV) Received() []DataPacket {
	return append([]DataPacket(nil), u.received...)
}

// Processed returns a copy of the packets the UAV has acted on.
func (u *UAV) Processed() []DataPacket {
	return append([]DataPacket(nil), u.processed...)
}

// commit takes a task and heads for its centroid.
func (u *UAV) commit(t *world.Task) {
	u.Task = t
	target := t.Centroid
	u.Target = &target
}

// State is a read-only view of a UAV for the API and the run store.
type State struct {
	ID         AgentID      `json:"id" cbor:"1,keyasint"`
	Position   Position     `json:"position" cbor:"2,keyasint"`
	Role       string       `json:"role" cbor:"3,keyasint"`
	TaskID     *uint64      `json:"task_id,omitempty" cbor:"4,keyasint,omitempty"`
	Target     *world.Point `json:"target,omitempty" cbor:"5,keyasint,omitempty"`
	LastAction string       `json:"last_action" cbor:"6,keyasint"`
	KnownCells int          `json:"known_cells" cbor:"7,keyasint"`
	Sent       int          `json:"sent" cbor:"8,keyasint"`
	Received   int          `json:"received" cbor:"9,keyasint"`
	Processed  int          `json:"processed" cbor:"10,keyasint"`
	Auction    string       `json:"auction" cbor:"11,keyasint"`
}

// State returns a snapshot of the UAV.
func (u *UAV) State() State {
	s := State{
		ID:         u.ID,
		Position:   u.Position,
		Role:       u.Role.String(),
		LastAction: u.LastAction.String(),
		KnownCells: len(u.known),
		Sent:       len(u.sent),
		Received:   len(u.received),
		Processed:  len(u.processed),
		Auction:    u.auction.state.String(),
	}
	if u.Task != nil {
		id := uint64(u.Task.ID)
		s.TaskID = &id
	}
	if u.Target != nil {
		t := *u.Target
		s.Target = &t
	}
	return s
}
