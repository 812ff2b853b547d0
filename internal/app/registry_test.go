package app

import (
	"sync"
	"testing"

	"github.com/avoronin/Huddle/internal/core"
	"github.com/avoronin/Huddle/internal/domain"
)

type fakeConn struct {
	frames  []core.Frame
	failing bool
	closed  bool
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	if f.failing {
		return ErrFakeSend
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() { f.closed = true }

var ErrFakeSend = errTest("send failed")

type errTest string

func (e errTest) Error() string { return string(e) }

func bind(t *testing.T, reg *Registry, id core.ConnID, ident *domain.Identity) *fakeConn {
	t.Helper()
	conn := &fakeConn{}
	reg.BindSession(id, core.NewSession(ident, conn), nil)
	return conn
}

func TestJoinReturnsOnlyOthers(t *testing.T) {
	reg := NewRegistry(NewMemPresence())
	bind(t, reg, "a", nil)
	bind(t, reg, "b", nil)

	if got := reg.Join("a", "r1"); len(got) != 0 {
		t.Fatalf("first join: want no existing members, got %v", got)
	}
	got := reg.Join("b", "r1")
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("second join: want [a], got %v", got)
	}
	for _, id := range got {
		if id == "b" {
			t.Fatal("join result must never include the caller")
		}
	}
}

// Two connections joining the same room at the same moment must not both
// see it empty: offers are only initiated from the join result, so if
// neither side sees the other, the peers never connect.
func TestConcurrentJoinersCannotBothSeeEmptyRoom(t *testing.T) {
	for i := 0; i < 500; i++ {
		reg := NewRegistry(NewMemPresence())
		bind(t, reg, "a", nil)
		bind(t, reg, "b", nil)

		start := make(chan struct{})
		results := make([][]core.ConnID, 2)
		var wg sync.WaitGroup
		for idx, id := range []core.ConnID{"a", "b"} {
			wg.Add(1)
			go func(idx int, id core.ConnID) {
				defer wg.Done()
				<-start
				results[idx] = reg.Join(id, "r1")
			}(idx, id)
		}
		close(start)
		wg.Wait()

		if len(results[0]) == 0 && len(results[1]) == 0 {
			t.Fatalf("iteration %d: both joiners saw an empty room", i)
		}
	}
}

func TestCancelClosesTransport(t *testing.T) {
	reg := NewRegistry(NewMemPresence())
	conn := bind(t, reg, "a", nil)

	if !reg.Cancel("a") {
		t.Fatal("cancel must report the live session")
	}
	if !conn.closed {
		t.Fatal("cancel must close the transport so the read loop unwinds into the leave path")
	}
	if reg.Cancel("ghost") {
		t.Fatal("cancel of an unknown connection must report false")
	}
}

func TestJoinLeaveRoundTrip(t *testing.T) {
	presence := NewMemPresence()
	reg := NewRegistry(presence)
	bind(t, reg, "a", nil)
	bind(t, reg, "b", nil)
	reg.Join("a", "r1")

	before := len(reg.MembersOf("r1"))

	reg.Join("b", "r1")
	room, ok := reg.Leave("b")
	if !ok || room != "r1" {
		t.Fatalf("leave: want (r1, true), got (%s, %v)", room, ok)
	}

	if got := len(reg.MembersOf("r1")); got != before {
		t.Fatalf("round trip: want %d members, got %d", before, got)
	}
	if _, ok := reg.RoomOf("b"); ok {
		t.Fatal("round trip: back-reference for b must be gone")
	}
}

func TestLastLeaveDeletesRoom(t *testing.T) {
	presence := NewMemPresence()
	reg := NewRegistry(presence)
	bind(t, reg, "a", nil)
	reg.Join("a", "r1")

	if presence.RoomCount() != 1 {
		t.Fatalf("want 1 room, got %d", presence.RoomCount())
	}
	reg.Leave("a")
	if presence.RoomCount() != 0 {
		t.Fatalf("empty room must be deleted, got %d rooms", presence.RoomCount())
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	reg := NewRegistry(NewMemPresence())
	bind(t, reg, "a", nil)

	if _, ok := reg.Leave("a"); ok {
		t.Fatal("leave without join must report no room")
	}
	reg.Join("a", "r1")
	if _, ok := reg.Leave("a"); !ok {
		t.Fatal("first leave must succeed")
	}
	if _, ok := reg.Leave("a"); ok {
		t.Fatal("second leave must be a no-op")
	}
}

func TestJoinMovesConnectionBetweenRooms(t *testing.T) {
	presence := NewMemPresence()
	reg := NewRegistry(presence)
	bind(t, reg, "a", nil)

	reg.Join("a", "r1")
	reg.Join("a", "r2")

	if len(reg.MembersOf("r1")) != 0 {
		t.Fatal("connection must be in at most one room")
	}
	if room, _ := reg.RoomOf("a"); room != "r2" {
		t.Fatalf("want back-reference r2, got %s", room)
	}
	if presence.RoomCount() != 1 {
		t.Fatalf("r1 emptied by the move must be deleted, got %d rooms", presence.RoomCount())
	}
}

func TestUserPresentInRoom(t *testing.T) {
	reg := NewRegistry(NewMemPresence())
	ident := &domain.Identity{UserID: "u1", DisplayName: "Ann"}
	bind(t, reg, "a", ident)
	bind(t, reg, "b", nil)
	reg.Join("a", "r1")
	reg.Join("b", "r1")

	if !reg.UserPresentInRoom("r1", "u1") {
		t.Fatal("u1 has a live connection in r1")
	}
	if reg.UserPresentInRoom("r1", "u2") {
		t.Fatal("u2 has no connection in r1")
	}
	reg.Leave("a")
	if reg.UserPresentInRoom("r1", "u1") {
		t.Fatal("u1 left, must not be reported present")
	}
}

func TestMembersSnapshotCarriesIdentity(t *testing.T) {
	reg := NewRegistry(NewMemPresence())
	bind(t, reg, "a", &domain.Identity{UserID: "u1", DisplayName: "Ann"})
	bind(t, reg, "b", nil)
	reg.Join("a", "r1")
	reg.Join("b", "r1")

	snap := reg.MembersSnapshot("r1")
	if len(snap) != 2 {
		t.Fatalf("want 2 members, got %d", len(snap))
	}
	byConn := make(map[core.ConnID]core.MemberDTO)
	for _, dto := range snap {
		byConn[dto.ConnID] = dto
	}
	if byConn["a"].DisplayName != "Ann" || byConn["a"].UserID != "u1" {
		t.Fatalf("identified member lost its identity: %+v", byConn["a"])
	}
	if byConn["b"].UserID != "" {
		t.Fatalf("anonymous member must have empty user id: %+v", byConn["b"])
	}
}
