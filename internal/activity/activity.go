// Package activity records join/leave history. It is a fire-and-forget
// collaborator of the signaling path: callers never block on it and its
// failures must not affect room state.
package activity

import (
	"context"

	"github.com/avoronin/Huddle/internal/domain"
)

// Log is the narrow interface the signaling path depends on.
type Log interface {
	// RecordJoin opens a history row and returns its session id so the
	// matching leave can close it.
	RecordJoin(ctx context.Context, user domain.UserID, room domain.RoomID) (string, error)
	// RecordLeave closes the history row opened by RecordJoin.
	RecordLeave(ctx context.Context, sessionID string) error
}

// Nop discards all history. Used when no store is configured and in tests.
type Nop struct{}

func (Nop) RecordJoin(context.Context, domain.UserID, domain.RoomID) (string, error) {
	return "", nil
}

func (Nop) RecordLeave(context.Context, string) error { return nil }
