package agents

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	// ErrUnknownAgent is returned when the receiver is not registered.
	ErrUnknownAgent = errors.New("unknown agent")
	// ErrOutOfRange is returned when the receiver is beyond communication range.
	ErrOutOfRange = errors.New("receiver out of communication range")
)

// Inbox is a single receiver's queue. Any sender may append; only the owner
// drains it.
type Inbox struct {
	mu    sync.Mutex
	queue []DataPacket
}

func (in *Inbox) push(p DataPacket) {
	in.mu.Lock()
	in.queue = append(in.queue, p)
	in.mu.Unlock()
}

func (in *Inbox) drain() []DataPacket {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := in.queue
	in.queue = nil
	return out
}

// Len returns the number of undrained packets.
func (in *Inbox) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.queue)
}

// Fabric delivers packets between UAVs with zero latency. Delivery is gated
// only by a range check at send time.
type Fabric struct {
	mu        sync.RWMutex
	agents    map[AgentID]*UAV
	commRange float64

	statsMu   sync.Mutex
	delivered uint64
	dropped   uint64
}

// NewFabric creates a fabric with the given communication range.
func NewFabric(commRange float64) *Fabric {
	return &Fabric{
		agents:    make(map[AgentID]*UAV),
		commRange: commRange,
	}
}

// Register makes a UAV addressable.
func (f *Fabric) Register(u *UAV) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.agents[u.ID] = u
}

// Unregister removes a UAV; packets to it will fail.
func (f *Fabric) Unregister(id AgentID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.agents, id)
}

// Send delivers p from sender to the receiver's inbox and records it in the
// sender's sent queue.
func (f *Fabric) Send(from *UAV, to AgentID, p DataPacket) error {
	f.mu.RLock()
	recv, ok := f.agents[to]
	f.mu.RUnlock()

	if !ok {
		f.countDrop()
		return fmt.Errorf("send %s to %d: %w", p.Payload.Type, to, ErrUnknownAgent)
	}
	if recv != from && !InRange(from.Position, recv.Position, f.commRange) {
		f.countDrop()
		return fmt.Errorf("send %s to %d: %w", p.Payload.Type, to, ErrOutOfRange)
	}

	recv.inbox.push(p)
	from.sent = append(from.sent, p)

	f.statsMu.Lock()
	f.delivered++
	f.statsMu.Unlock()

	slog.Debug("packet delivered",
		"type", p.Payload.Type.String(),
		"from", from.ID,
		"to", to,
		"packet", p.ID(),
	)
	return nil
}

func (f *Fabric) countDrop() {
	f.statsMu.Lock()
	f.dropped++
	f.statsMu.Unlock()
}

// Stats returns delivered and dropped packet counts.
func (f *Fabric) Stats() (delivered, dropped uint64) {
	f.statsMu.Lock()
	defer f.statsMu.Unlock()
	return f.delivered, f.dropped
}
