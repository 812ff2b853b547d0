// Package persistence defines the storage contracts for persisted meeting
// state. Implementations live in subpackages.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/avoronin/Huddle/internal/domain"
)

var ErrNotFound = errors.New("persistence: not found")

//go:generate mockgen -source=repositories.go -destination=mocks/meeting_store.go -package=mocks

// MeetingStore is the backing store for meeting records. Mutations on one
// meeting are serialized by the store (transactional updates); the signaling
// layer treats each document as a single linearizable resource.
type MeetingStore interface {
	Create(ctx context.Context, m *domain.Meeting) error
	Get(ctx context.Context, id string) (*domain.Meeting, error)
	GetByRoomCode(ctx context.Context, code domain.RoomID) (*domain.Meeting, error)

	// SetLocked persists the lock flag. Setting the current value is a no-op
	// that still succeeds.
	SetLocked(ctx context.Context, id string, locked bool) error

	// AddCoHost and RemoveCoHost mutate the co-host set and recompute the
	// cached participant role in the same update.
	AddCoHost(ctx context.Context, id string, uid domain.UserID) error
	RemoveCoHost(ctx context.Context, id string, uid domain.UserID) error

	// RecordJoin upserts the participant row for a (re)join at the given time.
	RecordJoin(ctx context.Context, id string, uid domain.UserID, role domain.Role, at time.Time) error
	// RecordLeave stamps lastLeftAt on the participant row.
	RecordLeave(ctx context.Context, id string, uid domain.UserID, at time.Time) error
}
