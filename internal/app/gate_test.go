package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/avoronin/Huddle/internal/core"
	"github.com/avoronin/Huddle/internal/domain"
	"github.com/avoronin/Huddle/internal/persistence"
	"github.com/avoronin/Huddle/internal/persistence/mocks"
)

// memStore is a minimal in-memory MeetingStore for gate behavior tests.
type memStore struct {
	mu       sync.Mutex
	meetings map[string]*domain.Meeting
}

func newMemStore(ms ...*domain.Meeting) *memStore {
	s := &memStore{meetings: make(map[string]*domain.Meeting)}
	for _, m := range ms {
		s.meetings[m.ID] = m
	}
	return s
}

func (s *memStore) Create(_ context.Context, m *domain.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meetings[m.ID] = m
	return nil
}

func (s *memStore) Get(_ context.Context, id string) (*domain.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	return s.copyLocked(m), nil
}

func (s *memStore) GetByRoomCode(_ context.Context, code domain.RoomID) (*domain.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.meetings {
		if m.RoomCode == code {
			return s.copyLocked(m), nil
		}
	}
	return nil, persistence.ErrNotFound
}

func (s *memStore) copyLocked(m *domain.Meeting) *domain.Meeting {
	cp := *m
	cp.CoHosts = make(map[domain.UserID]bool, len(m.CoHosts))
	for uid := range m.CoHosts {
		cp.CoHosts[uid] = true
	}
	return &cp
}

func (s *memStore) SetLocked(_ context.Context, id string, locked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return persistence.ErrNotFound
	}
	m.Locked = locked
	return nil
}

func (s *memStore) AddCoHost(_ context.Context, id string, uid domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return persistence.ErrNotFound
	}
	m.CoHosts[uid] = true
	s.refreshRoleCacheLocked(m)
	return nil
}

func (s *memStore) RemoveCoHost(_ context.Context, id string, uid domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return persistence.ErrNotFound
	}
	delete(m.CoHosts, uid)
	s.refreshRoleCacheLocked(m)
	return nil
}

func (s *memStore) refreshRoleCacheLocked(m *domain.Meeting) {
	for i := range m.Participants {
		m.Participants[i].Role = m.RoleOf(m.Participants[i].UserID)
	}
}

func (s *memStore) RecordJoin(_ context.Context, id string, uid domain.UserID, role domain.Role, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return persistence.ErrNotFound
	}
	for i := range m.Participants {
		if m.Participants[i].UserID == uid {
			m.Participants[i].Role = role
			m.Participants[i].LastJoinedAt = at
			return nil
		}
	}
	m.Participants = append(m.Participants, domain.Participant{
		UserID: uid, Role: role, JoinedAt: at, LastJoinedAt: at,
	})
	return nil
}

func (s *memStore) RecordLeave(_ context.Context, id string, uid domain.UserID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return persistence.ErrNotFound
	}
	for i := range m.Participants {
		if m.Participants[i].UserID == uid {
			m.Participants[i].LastLeftAt = at
		}
	}
	return nil
}

// recorder captures Notifier calls for assertions.
type recorder struct {
	broadcasts []struct {
		Room    domain.RoomID
		Type    core.EventType
		Exclude core.ConnID
	}
	sends []struct {
		Conn core.ConnID
		Type core.EventType
	}
	disconnected []core.ConnID
}

func (r *recorder) Broadcast(room domain.RoomID, t core.EventType, _ any, exclude core.ConnID) {
	r.broadcasts = append(r.broadcasts, struct {
		Room    domain.RoomID
		Type    core.EventType
		Exclude core.ConnID
	}{room, t, exclude})
}

func (r *recorder) Send(conn core.ConnID, t core.EventType, _ any) {
	r.sends = append(r.sends, struct {
		Conn core.ConnID
		Type core.EventType
	}{conn, t})
}

func (r *recorder) Disconnect(conn core.ConnID) {
	r.disconnected = append(r.disconnected, conn)
}

func testMeeting() *domain.Meeting {
	return &domain.Meeting{
		ID:       "m1",
		RoomCode: "r1",
		HostID:   "host",
		CoHosts:  map[domain.UserID]bool{"carol": true},
	}
}

func TestRoleResolutionIsPure(t *testing.T) {
	m := testMeeting()

	if got := m.RoleOf("host"); got != domain.RoleHost {
		t.Fatalf("host id must resolve to host, got %s", got)
	}
	if got := m.RoleOf("carol"); got != domain.RoleCoHost {
		t.Fatalf("cohost member must resolve to cohost, got %s", got)
	}
	if got := m.RoleOf("nobody"); got != domain.RoleParticipant {
		t.Fatalf("unknown user must default to participant, got %s", got)
	}

	hosts := 0
	for _, uid := range []domain.UserID{"host", "carol", "nobody"} {
		if m.RoleOf(uid) == domain.RoleHost {
			hosts++
		}
	}
	if hosts != 1 {
		t.Fatalf("exactly one user may resolve to host, got %d", hosts)
	}
}

func TestLockPersistsBeforeBroadcastAndIsIdempotent(t *testing.T) {
	store := newMemStore(testMeeting())
	rec := &recorder{}
	gate := NewGate(store, rec)
	ctx := context.Background()

	if err := gate.Lock(ctx, "m1", "host"); err != nil {
		t.Fatalf("lock: %v", err)
	}
	m, _ := store.Get(ctx, "m1")
	if !m.Locked {
		t.Fatal("lock must persist")
	}
	if len(rec.broadcasts) != 1 || rec.broadcasts[0].Type != core.EventLocked {
		t.Fatalf("want one meeting-locked broadcast, got %+v", rec.broadcasts)
	}

	// Locking again changes nothing but still re-broadcasts.
	if err := gate.Lock(ctx, "m1", "host"); err != nil {
		t.Fatalf("second lock: %v", err)
	}
	if len(rec.broadcasts) != 2 {
		t.Fatalf("idempotent lock must still broadcast, got %d broadcasts", len(rec.broadcasts))
	}
}

func TestLockRequiresHost(t *testing.T) {
	store := newMemStore(testMeeting())
	rec := &recorder{}
	gate := NewGate(store, rec)

	err := gate.Lock(context.Background(), "m1", "carol")
	if !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("cohost lock: want ErrNotAllowed, got %v", err)
	}
	m, _ := store.Get(context.Background(), "m1")
	if m.Locked {
		t.Fatal("rejected action must not mutate state")
	}
	if len(rec.broadcasts) != 0 {
		t.Fatal("rejected action must not broadcast")
	}
}

func TestAssignCoHostSelfTargetRejected(t *testing.T) {
	store := newMemStore(testMeeting())
	rec := &recorder{}
	gate := NewGate(store, rec)

	err := gate.AssignCoHost(context.Background(), "m1", "host", "host")
	if !errors.Is(err, ErrSelfTarget) {
		t.Fatalf("want ErrSelfTarget, got %v", err)
	}
	m, _ := store.Get(context.Background(), "m1")
	if m.CoHosts["host"] {
		t.Fatal("self-target must not mutate the cohost set")
	}
	if len(rec.broadcasts) != 0 {
		t.Fatal("rejected action must not broadcast")
	}
}

func TestAssignCoHostByNonHostRejectedWithoutBroadcast(t *testing.T) {
	store := newMemStore(testMeeting())
	rec := &recorder{}
	gate := NewGate(store, rec)

	err := gate.AssignCoHost(context.Background(), "m1", "carol", "dave")
	if !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("want ErrNotAllowed, got %v", err)
	}
	if len(rec.broadcasts) != 0 {
		t.Fatal("meeting-roles-updated must never be broadcast on rejection")
	}
}

func TestAssignCoHostRefreshesRoleCache(t *testing.T) {
	m := testMeeting()
	m.Participants = []domain.Participant{
		{UserID: "dave", Role: domain.RoleParticipant},
	}
	store := newMemStore(m)
	rec := &recorder{}
	gate := NewGate(store, rec)
	ctx := context.Background()

	if err := gate.AssignCoHost(ctx, "m1", "host", "dave"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	got, _ := store.Get(ctx, "m1")
	if !got.CoHosts["dave"] {
		t.Fatal("dave must be a cohost")
	}
	if got.Participants[0].Role != domain.RoleCoHost {
		t.Fatalf("cached role must match authoritative sets, got %s", got.Participants[0].Role)
	}
	if len(rec.broadcasts) != 1 || rec.broadcasts[0].Type != core.EventRolesUpdated {
		t.Fatalf("want one roles-updated broadcast, got %+v", rec.broadcasts)
	}

	if err := gate.RemoveCoHost(ctx, "m1", "host", "dave"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	got, _ = store.Get(ctx, "m1")
	if got.Participants[0].Role != domain.RoleParticipant {
		t.Fatalf("cache must follow removal, got %s", got.Participants[0].Role)
	}
}

func TestMuteAllAllowsCoHost(t *testing.T) {
	store := newMemStore(testMeeting())
	rec := &recorder{}
	gate := NewGate(store, rec)

	if err := gate.MuteAll(context.Background(), "m1", "carol", "conn-c"); err != nil {
		t.Fatalf("cohost mute-all: %v", err)
	}
	if len(rec.broadcasts) != 1 || rec.broadcasts[0].Type != core.EventMuteAll {
		t.Fatalf("want mute-all broadcast, got %+v", rec.broadcasts)
	}
	if rec.broadcasts[0].Exclude != "conn-c" {
		t.Fatal("initiator must be excluded from mute-all fanout")
	}

	err := gate.MuteAll(context.Background(), "m1", "dave", "conn-d")
	if !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("participant mute-all: want ErrNotAllowed, got %v", err)
	}
}

func TestKickNotifiesTargetThenDisconnects(t *testing.T) {
	store := newMemStore(testMeeting())
	rec := &recorder{}
	gate := NewGate(store, rec)

	if err := gate.Kick(context.Background(), "m1", "host", "conn-x"); err != nil {
		t.Fatalf("kick: %v", err)
	}
	if len(rec.sends) != 1 || rec.sends[0].Type != core.EventKicked || rec.sends[0].Conn != "conn-x" {
		t.Fatalf("want one targeted kicked notice, got %+v", rec.sends)
	}
	if len(rec.disconnected) != 1 || rec.disconnected[0] != "conn-x" {
		t.Fatalf("target must be disconnected, got %v", rec.disconnected)
	}
}

func TestGatedActionFailsClosedOnStoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockMeetingStore(ctrl)
	rec := &recorder{}
	gate := NewGate(store, rec)
	boom := errors.New("disk full")

	store.EXPECT().Get(gomock.Any(), "m1").Return(testMeeting(), nil)
	store.EXPECT().SetLocked(gomock.Any(), "m1", true).Return(boom)

	err := gate.Lock(context.Background(), "m1", "host")
	if !errors.Is(err, boom) {
		t.Fatalf("want wrapped store error, got %v", err)
	}
	if len(rec.broadcasts) != 0 {
		t.Fatal("persistence failure must not broadcast")
	}
}

func TestCoHostMutationFailsClosedOnStoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockMeetingStore(ctrl)
	rec := &recorder{}
	gate := NewGate(store, rec)
	boom := errors.New("write conflict")

	store.EXPECT().Get(gomock.Any(), "m1").Return(testMeeting(), nil)
	store.EXPECT().AddCoHost(gomock.Any(), "m1", domain.UserID("dave")).Return(boom)

	err := gate.AssignCoHost(context.Background(), "m1", "host", "dave")
	if !errors.Is(err, boom) {
		t.Fatalf("want wrapped store error, got %v", err)
	}
	if len(rec.broadcasts) != 0 {
		t.Fatal("persistence failure must not broadcast")
	}
}

// Scenario: host locks while cohost carol is connected; both receive the
// event through the real relay.
func TestLockBroadcastReachesHostAndCoHost(t *testing.T) {
	reg := NewRegistry(NewMemPresence())
	hostConn := bind(t, reg, "conn-h", &domain.Identity{UserID: "host", DisplayName: "Host"})
	carolConn := bind(t, reg, "conn-c", &domain.Identity{UserID: "carol", DisplayName: "Carol"})
	reg.Join("conn-h", "r1")
	reg.Join("conn-c", "r1")

	store := newMemStore(testMeeting())
	gate := NewGate(store, NewRelay(reg))

	if err := gate.Lock(context.Background(), "m1", "host"); err != nil {
		t.Fatalf("lock: %v", err)
	}

	for name, conn := range map[string]*fakeConn{"host": hostConn, "carol": carolConn} {
		frames := decodeFrames(t, conn)
		if len(frames) != 1 || frames[0].Type != core.EventLocked {
			t.Fatalf("%s: want one meeting-locked frame, got %+v", name, frames)
		}
	}
}
