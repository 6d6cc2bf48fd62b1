package agents

import (
	"github.com/google/uuid"

	"github.com/talgya/firecontrol/internal/world"
)

// PacketType tags the auction message kind.
type PacketType uint8

const (
	PacketBid     PacketType = iota // Manager → neighbour: price this task
	PacketPropose                   // Neighbour → manager: my utility for it
	PacketAward                     // Manager → winner: the task is yours
	PacketAccept                    // Winner → manager: committed
	PacketRefuse                    // Winner → manager: already busy
)

// String returns the packet type name.
func (t PacketType) String() string {
	switch t {
	case PacketBid:
		return "BID"
	case PacketPropose:
		return "PROPOSE"
	case PacketAward:
		return "AWARD"
	case PacketAccept:
		return "ACCEPT"
	case PacketRefuse:
		return "REFUSE"
	default:
		return "UNKNOWN"
	}
}

// Header identifies a packet. PacketID is globally unique and is the only
// identity a packet has; replies are matched to requests by its value.
type Header struct {
	PacketID  uuid.UUID
	SenderID  AgentID
	Timestamp uint64 // Tick the packet was created
}

// Payload carries the message body. ReplyTo is uuid.Nil for requests.
// Task is set for BID, AWARD, ACCEPT and REFUSE; Utility for PROPOSE.
type Payload struct {
	Type    PacketType
	ReplyTo uuid.UUID
	Task    *world.Task
	Utility float64
}

// DataPacket is an immutable protocol message. It is passed by value.
type DataPacket struct {
	Header  Header
	Payload Payload
}

// ID returns the packet identifier.
func (p DataPacket) ID() uuid.UUID {
	return p.Header.PacketID
}

func newPacket(sender AgentID, tick uint64, typ PacketType, replyTo uuid.UUID) DataPacket {
	return DataPacket{
		Header: Header{
			PacketID:  uuid.New(),
			SenderID:  sender,
			Timestamp: tick,
		},
		Payload: Payload{Type: typ, ReplyTo: replyTo},
	}
}

// NewBid creates a BID for a task.
func NewBid(sender AgentID, tick uint64, t *world.Task) DataPacket {
	p := newPacket(sender, tick, PacketBid, uuid.Nil)
	p.Payload.Task = t
	return p
}

// NewPropose answers a BID with the sender's utility.
func NewPropose(sender AgentID, tick uint64, bid DataPacket, utility float64) DataPacket {
	p := newPacket(sender, tick, PacketPropose, bid.ID())
	p.Payload.Task = bid.Payload.Task
	p.Payload.Utility = utility
	return p
}

// NewAward offers a task to an auction winner.
func NewAward(sender AgentID, tick uint64, t *world.Task) DataPacket {
	p := newPacket(sender, tick, PacketAward, uuid.Nil)
	p.Payload.Task = t
	return p
}

// NewAwardReply answers an AWARD with ACCEPT or REFUSE.
func NewAwardReply(sender AgentID, tick uint64, award DataPacket, accept bool) DataPacket {
	typ := PacketRefuse
	if accept {
		typ = PacketAccept
	}
	p := newPacket(sender, tick, typ, award.ID())
	p.Payload.Task = award.Payload.Task
	return p
}
