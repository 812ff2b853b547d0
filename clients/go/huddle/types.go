package huddle

import (
	"github.com/avoronin/Huddle/internal/core"
	"github.com/avoronin/Huddle/internal/domain"
)

// Aliases for the wire types an embedder needs to name in its own code;
// the canonical definitions live in the server's shared packages.
type (
	ConnID    = core.ConnID
	MemberDTO = core.MemberDTO
	RoomID    = domain.RoomID
	UserID    = domain.UserID
)
