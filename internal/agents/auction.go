package agents

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/talgya/firecontrol/internal/world"
)

// AuctionState is a manager's position in its auction round.
type AuctionState uint8

const (
	AuctionIdle       AuctionState = iota // No round outstanding
	AuctionCollecting                     // Bids sent, waiting for proposals
	AuctionAllocating                     // Running greedy allocation rounds
)

// String returns the state name.
func (s AuctionState) String() string {
	switch s {
	case AuctionCollecting:
		return "COLLECTING"
	case AuctionAllocating:
		return "ALLOCATING"
	default:
		return "IDLE"
	}
}

type outstandingBid struct {
	packet DataPacket
	to     AgentID
}

type auctionRound struct {
	state     AuctionState
	bids      []outstandingBid
	startedAt uint64
}

// awaits reports whether id is one of the round's outstanding bids.
func (r *auctionRound) awaits(id uuid.UUID) bool {
	for _, b := range r.bids {
		if b.packet.ID() == id {
			return true
		}
	}
	return false
}

func (u *UAV) resetAuction() {
	u.auction = auctionRound{}
}

// AuctionState returns the UAV's current auction state.
func (u *UAV) AuctionState() AuctionState {
	return u.auction.state
}

// PendingBids returns how many outstanding bids still lack a proposal.
func (u *UAV) PendingBids() int {
	n := 0
	for _, b := range u.auction.bids {
		if _, ok := u.findProposal(b.packet.ID()); !ok {
			n++
		}
	}
	return n
}

// Allocation returns the per-task allocation counts and quotas of the last
// allocation pass. Both are nil before the first pass.
func (u *UAV) Allocation() (alloc, quotas map[world.TaskID]int) {
	return u.alloc, u.quotas
}

// Proposal is one agent's utility for one task.
type Proposal struct {
	Task    *world.Task
	Agent   AgentID
	Utility float64
}

// Award assigns a task to an agent.
type Award struct {
	Task  *world.Task
	Agent AgentID
}

// Allocator runs greedy allocation rounds over a fixed set of proposals.
// Each round awards the globally cheapest proposal whose task is still below
// quota, then withdraws every other proposal from the winner.
type Allocator struct {
	quotas  map[world.TaskID]int
	counts  map[world.TaskID]int
	pending []Proposal
}

// NewAllocator creates an allocator. Proposal order breaks utility ties.
func NewAllocator(proposals []Proposal, quotas map[world.TaskID]int) *Allocator {
	pending := make([]Proposal, len(proposals))
	copy(pending, proposals)
	return &Allocator{
		quotas:  quotas,
		counts:  make(map[world.TaskID]int),
		pending: pending,
	}
}

// Round runs one allocation round. It returns false when no eligible
// proposal remains.
func (a *Allocator) Round() (Award, bool) {
	best := -1
	for i, p := range a.pending {
		if a.counts[p.Task.ID] >= a.quotas[p.Task.ID] {
			continue
		}
		if best < 0 || p.Utility < a.pending[best].Utility {
			best = i
		}
	}
	if best < 0 {
		return Award{}, false
	}

	win := a.pending[best]
	kept := a.pending[:0]
	for _, p := range a.pending {
		if p.Agent != win.Agent {
			kept = append(kept, p)
		}
	}
	a.pending = kept
	a.counts[win.Task.ID]++

	return Award{Task: win.Task, Agent: win.Agent}, true
}

// Count returns how many agents the task has been allocated so far.
func (a *Allocator) Count(id world.TaskID) int {
	return a.counts[id]
}

// Counts returns a copy of the allocation vector.
func (a *Allocator) Counts() map[world.TaskID]int {
	out := make(map[world.TaskID]int, len(a.counts))
	for k, v := range a.counts {
		out[k] = v
	}
	return out
}

// Allocate runs up to rounds allocation rounds and returns the awards in order.
func Allocate(proposals []Proposal, quotas map[world.TaskID]int, rounds int) []Award {
	a := NewAllocator(proposals, quotas)
	var awards []Award
	for i := 0; i < rounds; i++ {
		aw, ok := a.Round()
		if !ok {
			break
		}
		awards = append(awards, aw)
	}
	return awards
}

// communicate drains the inbox and answers protocol traffic. Proposals for
// the current round stay pending until allocation.
func (u *UAV) communicate(env *Env) []Condition {
	var conds []Condition

	for _, p := range u.inbox.drain() {
		u.received = append(u.received, p)
		u.pending = append(u.pending, p)
	}

	kept := u.pending[:0]
	for _, p := range u.pending {
		if u.isProcessed(p) {
			conds = append(conds, ConditionDuplicateIgnored)
			continue
		}

		switch p.Payload.Type {
		case PacketBid:
			if u.Role == RoleNone {
				u.answerBid(env, p)
			}
		case PacketAward:
			u.answerAward(env, p)
		case PacketRefuse:
			conds = append(conds, ConditionAwardRefused)
			slog.Info("award refused", "manager", u.ID, "follower", p.Header.SenderID, "task", p.Payload.Task.ID)
		case PacketPropose:
			if u.auction.state == AuctionCollecting && u.auction.awaits(p.Payload.ReplyTo) {
				kept = append(kept, p)
				continue
			}
		}
		u.markProcessed(p)
	}
	u.pending = kept
	return conds
}

func (u *UAV) answerBid(env *Env, bid DataPacket) {
	util := Utility(bid.Payload.Task, u.Position, env.bounds())
	reply := NewPropose(u.ID, env.Tick, bid, util)
	if err := env.Fabric.Send(u, bid.Header.SenderID, reply); err != nil {
		slog.Debug("propose not delivered", "agent", u.ID, "error", err)
	}
}

func (u *UAV) answerAward(env *Env, award DataPacket) {
	accept := u.Task == nil
	if accept {
		u.commit(award.Payload.Task)
		slog.Info("award accepted", "agent", u.ID, "manager", award.Header.SenderID, "task", award.Payload.Task.ID)
	}
	reply := NewAwardReply(u.ID, env.Tick, award, accept)
	if err := env.Fabric.Send(u, award.Header.SenderID, reply); err != nil {
		slog.Debug("award reply not delivered", "agent", u.ID, "error", err)
	}
}

func (u *UAV) isProcessed(p DataPacket) bool {
	_, ok := u.processedSet[p.ID()]
	return ok
}

func (u *UAV) markProcessed(p DataPacket) {
	if u.isProcessed(p) {
		return
	}
	u.processedSet[p.ID()] = struct{}{}
	u.processed = append(u.processed, p)
}

// findProposal returns the pending PROPOSE answering the given bid.
func (u *UAV) findProposal(bidID uuid.UUID) (DataPacket, bool) {
	for _, p := range u.pending {
		if p.Payload.Type == PacketPropose && p.Payload.ReplyTo == bidID {
			return p, true
		}
	}
	return DataPacket{}, false
}

// runAuction advances the manager side of the auction by one tick.
func (u *UAV) runAuction(env *Env) ([]Award, []Condition) {
	switch u.auction.state {
	case AuctionCollecting:
		if u.PendingBids() == 0 {
			return u.allocate(env), nil
		}
		timeout := env.Params.AuctionTimeout
		if timeout > 0 && env.Tick-u.auction.startedAt >= timeout {
			slog.Info("auction stalled",
				"manager", u.ID,
				"pending", u.PendingBids(),
				"waited", env.Tick-u.auction.startedAt,
			)
			u.dropRound()
			return nil, []Condition{ConditionAuctionStalled}
		}
		return nil, nil

	default:
		if len(env.Tasks) == 0 {
			return nil, nil
		}
		if u.Role == RoleIsolatedManager {
			return u.allocate(env), nil
		}
		u.broadcastBids(env)
		if len(u.auction.bids) == 0 {
			return u.allocate(env), nil
		}
		return nil, nil
	}
}

// broadcastBids sends one BID per task to every neighbour in range.
func (u *UAV) broadcastBids(env *Env) {
	var bids []outstandingBid
	for _, t := range env.Tasks {
		for _, n := range env.Hood.Neighbors(u.ID) {
			bid := NewBid(u.ID, env.Tick, t)
			if err := env.Fabric.Send(u, n, bid); err != nil {
				slog.Debug("bid not delivered", "manager", u.ID, "to", n, "error", err)
				continue
			}
			bids = append(bids, outstandingBid{packet: bid, to: n})
		}
	}
	if len(bids) == 0 {
		return
	}
	u.auction = auctionRound{
		state:     AuctionCollecting,
		bids:      bids,
		startedAt: env.Tick,
	}
	slog.Debug("auction opened", "manager", u.ID, "bids", len(bids), "tasks", len(env.Tasks))
}

// allocate turns matched proposals plus the manager's own utilities into
// awards over the current task list.
func (u *UAV) allocate(env *Env) []Award {
	u.auction.state = AuctionAllocating
	b := env.bounds()

	var proposals []Proposal
	for _, t := range env.Tasks {
		for _, bid := range u.auction.bids {
			if bid.packet.Payload.Task.ID != t.ID {
				continue
			}
			if p, ok := u.findProposal(bid.packet.ID()); ok {
				proposals = append(proposals, Proposal{Task: t, Agent: bid.to, Utility: p.Payload.Utility})
			}
		}
		proposals = append(proposals, Proposal{Task: t, Agent: u.ID, Utility: Utility(t, u.Position, b)})
	}

	size := env.Hood.Size(u.ID)
	u.quotas = PriorityQuota(env.Tasks, size, b)
	alloc := NewAllocator(proposals, u.quotas)

	var awards []Award
	for i := 0; i < size; i++ {
		aw, ok := alloc.Round()
		if !ok {
			break
		}
		awards = append(awards, aw)

		if aw.Agent == u.ID {
			u.commit(aw.Task)
			slog.Info("manager took task", "manager", u.ID, "task", aw.Task.ID)
			continue
		}
		if err := env.Fabric.Send(u, aw.Agent, NewAward(u.ID, env.Tick, aw.Task)); err != nil {
			slog.Debug("award not delivered", "manager", u.ID, "to", aw.Agent, "error", err)
		}
	}
	u.alloc = alloc.Counts()

	u.dropRound()
	return awards
}

// dropRound consumes the round's proposals and returns to idle.
func (u *UAV) dropRound() {
	for _, b := range u.auction.bids {
		if p, ok := u.findProposal(b.packet.ID()); ok {
			u.markProcessed(p)
		}
	}
	kept := u.pending[:0]
	for _, p := range u.pending {
		if !u.isProcessed(p) {
			kept = append(kept, p)
		}
	}
	u.pending = kept
	u.resetAuction()
}
