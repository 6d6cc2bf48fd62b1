package agents

import (
	"errors"
	"sync"
	"testing"

	"github.com/talgya/firecontrol/internal/world"
)

func TestFabricSend(t *testing.T) {
	r := newRig(DefaultParams(), Position{X: 0, Y: 0}, Position{X: 60, Y: 0}, Position{X: 61, Y: 0})
	a := r.uav(0)
	task := testTask(1, 5, 5, 1, 1)

	if err := r.fabric.Send(a, 1, NewBid(a.ID, 0, task)); err != nil {
		t.Fatalf("send at exactly range: %v", err)
	}
	if err := r.fabric.Send(a, 2, NewBid(a.ID, 0, task)); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("err = %v, want ErrOutOfRange", err)
	}
	if err := r.fabric.Send(a, 99, NewBid(a.ID, 0, task)); !errors.Is(err, ErrUnknownAgent) {
		t.Fatalf("err = %v, want ErrUnknownAgent", err)
	}

	if len(a.Sent()) != 1 {
		t.Fatalf("sent = %d, want only the delivered packet", len(a.Sent()))
	}
	if r.uav(1).inbox.Len() != 1 || r.uav(2).inbox.Len() != 0 {
		t.Fatal("inbox contents wrong")
	}
	if d, x := r.fabric.Stats(); d != 1 || x != 2 {
		t.Fatalf("stats = %d/%d, want 1/2", d, x)
	}
}

func TestFabricUsesLivePositions(t *testing.T) {
	r := newRig(DefaultParams(), Position{X: 0, Y: 0}, Position{X: 10, Y: 0})
	a, b := r.uav(0), r.uav(1)
	b.Position.X = 200

	if err := r.fabric.Send(a, b.ID, NewBid(a.ID, 0, testTask(1, 0, 0, 1, 1))); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("err = %v, want ErrOutOfRange", err)
	}
	r.fabric.Unregister(b.ID)
	if err := r.fabric.Send(a, b.ID, NewBid(a.ID, 0, testTask(1, 0, 0, 1, 1))); !errors.Is(err, ErrUnknownAgent) {
		t.Fatalf("err = %v, want ErrUnknownAgent", err)
	}
}

func TestInboxConcurrentAppend(t *testing.T) {
	in := &Inbox{}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(sender AgentID) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				in.push(NewBid(sender, uint64(j), nil))
			}
		}(AgentID(i))
	}
	wg.Wait()

	got := in.drain()
	if len(got) != 800 {
		t.Fatalf("drained %d, want 800", len(got))
	}
	// Per-sender order is preserved.
	last := make(map[AgentID]uint64)
	seen := make(map[AgentID]bool)
	for _, p := range got {
		s := p.Header.SenderID
		if seen[s] && p.Header.Timestamp <= last[s] {
			t.Fatalf("sender %d out of order", s)
		}
		seen[s], last[s] = true, p.Header.Timestamp
	}
	if in.Len() != 0 {
		t.Fatal("inbox not empty after drain")
	}
}

func TestPacketReplies(t *testing.T) {
	task := testTask(3, 1, 1, 1, 1)
	bid := NewBid(1, 5, task)
	prop := NewPropose(2, 6, bid, 0.4)
	if prop.Payload.ReplyTo != bid.ID() || prop.Payload.Utility != 0.4 || prop.Payload.Task != task {
		t.Fatalf("propose = %+v", prop.Payload)
	}
	if prop.ID() == bid.ID() {
		t.Fatal("packet IDs must be unique")
	}

	award := NewAward(1, 7, task)
	if r := NewAwardReply(2, 8, award, true); r.Payload.Type != PacketAccept || r.Payload.ReplyTo != award.ID() {
		t.Fatalf("accept = %+v", r.Payload)
	}
	if r := NewAwardReply(2, 8, award, false); r.Payload.Type != PacketRefuse {
		t.Fatalf("refuse = %+v", r.Payload)
	}
}

func TestTeamSnapshotAndRetrieveAgents(t *testing.T) {
	r := newRig(DefaultParams(),
		Position{X: 0, Y: 0},
		Position{X: 30, Y: 0},
		Position{X: 300, Y: 0},
	)
	hood := r.team.Snapshot(60)
	if got := hood.Neighbors(0); len(got) != 1 || got[0] != 1 {
		t.Fatalf("neighbors(0) = %v", got)
	}
	if hood.Size(2) != 1 || hood.Size(1) != 2 {
		t.Fatalf("sizes = %d/%d", hood.Size(2), hood.Size(1))
	}

	t1 := testTask(1, 0, 0, 1, 1)
	t2 := testTask(2, 9, 9, 1, 1)
	gone := testTask(3, 4, 4, 1, 1)
	r.uav(0).commit(t1)
	r.uav(1).commit(t1)
	r.uav(2).commit(gone)

	counts := r.team.RetrieveAgents([]*world.Task{t1, t2})
	if counts[0] != 2 || counts[1] != 0 {
		t.Fatalf("counts = %v, want [2 0]", counts)
	}
}

func TestSpawnFleet(t *testing.T) {
	base := Position{X: 50, Y: 50, Z: 10}
	a := NewSpawner(9).SpawnFleet(6, base, 5, 99, 99)
	b := NewSpawner(9).SpawnFleet(6, base, 5, 99, 99)

	ids := make(map[AgentID]bool)
	for i, u := range a {
		if ids[u.ID] {
			t.Fatalf("duplicate id %d", u.ID)
		}
		ids[u.ID] = true
		if u.Position.Z != 10 || u.Position.X < 45 || u.Position.X > 55 || u.Position.Y < 45 || u.Position.Y > 55 {
			t.Fatalf("uav %d at %+v outside the launch area", u.ID, u.Position)
		}
		if u.Position != b[i].Position {
			t.Fatal("spawning is not deterministic for a seed")
		}
	}
}
