package app

import (
	"sync"

	"github.com/avoronin/Huddle/internal/core"
	"github.com/avoronin/Huddle/internal/domain"
)

// PresenceStore is the storage behind the room registry. It is an interface
// so the in-process map can later be swapped for a shared store without
// touching registry call sites.
type PresenceStore interface {
	// Add places conn in room, moving it out of any previous room first, and
	// returns the members that were present before the insertion. Snapshot
	// and insert are one atomic operation: two connections joining the same
	// room concurrently must not both observe it empty, or neither side
	// would ever initiate an offer.
	Add(conn core.ConnID, room domain.RoomID) []core.ConnID
	// Remove drops conn from whatever room it is in. Idempotent.
	Remove(conn core.ConnID) (domain.RoomID, bool)
	// Members lists every connection currently in room.
	Members(room domain.RoomID) []core.ConnID
	// RoomOf returns the room conn currently belongs to.
	RoomOf(conn core.ConnID) (domain.RoomID, bool)
	// RoomCount reports how many non-empty rooms exist.
	RoomCount() int
}

// memPresence keeps the forward room set and the back-reference in lockstep:
// a connection is in at most one room, and an emptied room is deleted.
type memPresence struct {
	mu     sync.RWMutex
	byRoom map[domain.RoomID]map[core.ConnID]bool
	byConn map[core.ConnID]domain.RoomID
}

func NewMemPresence() PresenceStore {
	return &memPresence{
		byRoom: make(map[domain.RoomID]map[core.ConnID]bool),
		byConn: make(map[core.ConnID]domain.RoomID),
	}
}

func (p *memPresence) Add(conn core.ConnID, room domain.RoomID) []core.ConnID {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(conn)
	set, ok := p.byRoom[room]
	if !ok {
		set = make(map[core.ConnID]bool)
		p.byRoom[room] = set
	}
	existing := make([]core.ConnID, 0, len(set))
	for c := range set {
		existing = append(existing, c)
	}
	set[conn] = true
	p.byConn[conn] = room
	return existing
}

func (p *memPresence) Remove(conn core.ConnID) (domain.RoomID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.removeLocked(conn)
}

func (p *memPresence) removeLocked(conn core.ConnID) (domain.RoomID, bool) {
	room, ok := p.byConn[conn]
	if !ok {
		return "", false
	}
	delete(p.byConn, conn)
	if set, ok := p.byRoom[room]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(p.byRoom, room)
		}
	}
	return room, true
}

func (p *memPresence) Members(room domain.RoomID) []core.ConnID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	set := p.byRoom[room]
	out := make([]core.ConnID, 0, len(set))
	for conn := range set {
		out = append(out, conn)
	}
	return out
}

func (p *memPresence) RoomOf(conn core.ConnID) (domain.RoomID, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	room, ok := p.byConn[conn]
	return room, ok
}

func (p *memPresence) RoomCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byRoom)
}
