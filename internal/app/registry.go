package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/avoronin/Huddle/internal/core"
	"github.com/avoronin/Huddle/internal/domain"
	"github.com/avoronin/Huddle/internal/metrics"
)

type sessionEntry struct {
	Session core.Session
	Cancel  context.CancelFunc
}

// Registry is the in-memory room/presence bookkeeping: which connections are
// alive, which room each one is in, and the session bound to each. Presence
// storage is injected so a shared store can replace the in-process map.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.ConnID]*sessionEntry
	presence PresenceStore
}

func NewRegistry(presence PresenceStore) *Registry {
	if presence == nil {
		presence = NewMemPresence()
	}
	return &Registry{
		sessions: make(map[core.ConnID]*sessionEntry),
		presence: presence,
	}
}

func (r *Registry) BindSession(conn core.ConnID, sess core.Session, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[conn] = &sessionEntry{Session: sess, Cancel: cancel}
	metrics.ConnectionsActive.Inc()
	log.Info().Str("module", "app.registry").Str("conn", string(conn)).Msg("bound session")
}

func (r *Registry) Unbind(conn core.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[conn]; ok {
		delete(r.sessions, conn)
		metrics.ConnectionsActive.Dec()
	}
	log.Info().Str("module", "app.registry").Str("conn", string(conn)).Msg("unbind session")
}

// UpdateIdentity swaps the identity bound to conn, keeping its transport.
// Used when a join carries display metadata for an anonymous connection.
func (r *Registry) UpdateIdentity(conn core.ConnID, ident *domain.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[conn]; ok {
		e.Session = core.NewSession(ident, e.Session.Signal())
	}
}

func (r *Registry) Session(conn core.ConnID) (core.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[conn]; ok {
		return e.Session, true
	}
	return nil, false
}

// Cancel tears down the connection: its context is canceled and its
// transport closed. The close is what unblocks the connection's read loop,
// which then runs the ordinary leave path; cancellation alone would leave a
// reader blocked on a healthy socket forever.
func (r *Registry) Cancel(conn core.ConnID) bool {
	r.mu.RLock()
	e, ok := r.sessions[conn]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	e.Session.Signal().Close()
	log.Info().Str("module", "app.registry").Str("conn", string(conn)).Msg("canceled session")
	return true
}

// Join registers conn under room and returns the other members already
// present, never including conn itself. The caller uses the result to
// initiate one offer per existing member. The snapshot comes from the
// same atomic operation as the insertion, so of any two racing joiners
// at least one sees the other.
func (r *Registry) Join(conn core.ConnID, room domain.RoomID) []core.ConnID {
	existing := r.presence.Add(conn, room)

	others := make([]core.ConnID, 0, len(existing))
	for _, id := range existing {
		if id != conn {
			others = append(others, id)
		}
	}
	metrics.RoomsActive.Set(float64(r.presence.RoomCount()))
	log.Info().Str("module", "app.registry").Str("conn", string(conn)).
		Str("room", string(room)).Int("others", len(others)).Msg("joined room")
	return others
}

// Leave removes conn from whatever room it was in and reports that room so
// the caller can broadcast the departure. Idempotent: a connection that is
// in no room is a no-op.
func (r *Registry) Leave(conn core.ConnID) (domain.RoomID, bool) {
	room, ok := r.presence.Remove(conn)
	if !ok {
		return "", false
	}
	metrics.RoomsActive.Set(float64(r.presence.RoomCount()))
	log.Info().Str("module", "app.registry").Str("conn", string(conn)).
		Str("room", string(room)).Msg("left room")
	return room, true
}

func (r *Registry) RoomOf(conn core.ConnID) (domain.RoomID, bool) {
	return r.presence.RoomOf(conn)
}

func (r *Registry) MembersOf(room domain.RoomID) []core.ConnID {
	return r.presence.Members(room)
}

// MembersSnapshot is the read-only membership view handed to clients.
func (r *Registry) MembersSnapshot(room domain.RoomID) []core.MemberDTO {
	members := r.presence.Members(room)
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.MemberDTO, 0, len(members))
	for _, conn := range members {
		dto := core.MemberDTO{ConnID: conn}
		if e, ok := r.sessions[conn]; ok {
			if ident := e.Session.Identity(); ident != nil {
				dto.UserID = ident.UserID
				dto.DisplayName = ident.DisplayName
			}
		}
		out = append(out, dto)
	}
	return out
}

// UserPresentInRoom reports whether any live connection in room belongs to
// uid. Used for the lock gate: an already-connected participant may rejoin
// a locked meeting from another tab.
func (r *Registry) UserPresentInRoom(room domain.RoomID, uid domain.UserID) bool {
	members := r.presence.Members(room)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, conn := range members {
		if e, ok := r.sessions[conn]; ok {
			if ident := e.Session.Identity(); ident != nil && ident.UserID == uid {
				return true
			}
		}
	}
	return false
}

// ConnsOfUser lists live connections in room owned by uid (kick by user id).
func (r *Registry) ConnsOfUser(room domain.RoomID, uid domain.UserID) []core.ConnID {
	members := r.presence.Members(room)
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.ConnID, 0, 1)
	for _, conn := range members {
		if e, ok := r.sessions[conn]; ok {
			if ident := e.Session.Identity(); ident != nil && ident.UserID == uid {
				out = append(out, conn)
			}
		}
	}
	return out
}
