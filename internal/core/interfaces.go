package core

import "github.com/avoronin/Huddle/internal/domain"

// Frame is a raw serialized payload delivered over the signaling transport.
type Frame []byte

// ConnID identifies one live client connection to the signaling channel.
type ConnID string

// SignalConnection abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Session binds a connection's resolved identity and its transport endpoint.
// This is what the registry stores and the relay fans out to.
type Session interface {
	// Identity is nil for anonymous connections.
	Identity() *domain.Identity
	Signal() SignalConnection
}

type session struct {
	ident *domain.Identity
	conn  SignalConnection
}

func NewSession(ident *domain.Identity, conn SignalConnection) Session {
	return &session{ident: ident, conn: conn}
}

func (s *session) Identity() *domain.Identity { return s.ident }
func (s *session) Signal() SignalConnection   { return s.conn }

// MemberDTO is a read-only view for wire snapshots (no transport fields).
type MemberDTO struct {
	ConnID      ConnID        `json:"connId"`
	UserID      domain.UserID `json:"userId,omitempty"`
	DisplayName string        `json:"displayName,omitempty"`
}
