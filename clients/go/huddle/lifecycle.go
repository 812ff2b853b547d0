package huddle

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// State is the connection lifecycle phase surfaced to the UI and used to
// gate orchestrator actions.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Lifecycle tracks socket transitions plus the two readiness facts that gate
// a join: socket connected and local media settled. The join callback fires
// exactly once per session no matter which fact lands last.
type Lifecycle struct {
	mu    sync.Mutex
	state State

	socketUp  bool
	mediaUp   bool
	joinFired bool

	onState func(State)
	onJoin  func()
}

func NewLifecycle(onState func(State), onJoin func()) *Lifecycle {
	return &Lifecycle{state: StateIdle, onState: onState, onJoin: onJoin}
}

func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Lifecycle) Connecting() {
	l.transition(StateIdle, StateConnecting)
}

// SocketConnected covers both the first connect and a successful reconnect.
func (l *Lifecycle) SocketConnected() {
	l.mu.Lock()
	prev := l.state
	if prev != StateConnecting && prev != StateReconnecting {
		l.mu.Unlock()
		return
	}
	l.state = StateConnected
	l.socketUp = true
	fire := l.maybeJoinLocked()
	cb := l.onState
	l.mu.Unlock()

	if cb != nil {
		cb(StateConnected)
	}
	if fire != nil {
		fire()
	}
}

// SocketLost marks a transient drop; the session stays alive for a retry.
func (l *Lifecycle) SocketLost() {
	l.mu.Lock()
	if l.state != StateConnected {
		l.mu.Unlock()
		return
	}
	l.state = StateReconnecting
	l.socketUp = false
	cb := l.onState
	l.mu.Unlock()
	if cb != nil {
		cb(StateReconnecting)
	}
}

// Fail marks an unrecoverable failure (e.g. handshake rejected).
func (l *Lifecycle) Fail() {
	l.mu.Lock()
	if l.state != StateConnecting && l.state != StateConnected && l.state != StateReconnecting {
		l.mu.Unlock()
		return
	}
	l.state = StateError
	cb := l.onState
	l.mu.Unlock()
	if cb != nil {
		cb(StateError)
	}
}

// MediaSettled records that local media acquisition finished, successfully
// or not. A denied camera still unblocks the join; the session just has no
// outgoing media.
func (l *Lifecycle) MediaSettled() {
	l.mu.Lock()
	l.mediaUp = true
	fire := l.maybeJoinLocked()
	l.mu.Unlock()
	if fire != nil {
		fire()
	}
}

func (l *Lifecycle) maybeJoinLocked() func() {
	if !l.socketUp || !l.mediaUp || l.joinFired {
		return nil
	}
	l.joinFired = true
	log.Debug().Str("module", "client.lifecycle").Msg("join gate open")
	return l.onJoin
}

func (l *Lifecycle) transition(from, to State) {
	l.mu.Lock()
	if l.state != from {
		l.mu.Unlock()
		return
	}
	l.state = to
	cb := l.onState
	l.mu.Unlock()
	if cb != nil {
		cb(to)
	}
}
