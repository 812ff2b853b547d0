package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/avoronin/Huddle/internal/core"
	"github.com/avoronin/Huddle/internal/domain"
	"github.com/avoronin/Huddle/internal/metrics"
	"github.com/avoronin/Huddle/internal/persistence"
)

var (
	ErrNotAllowed = errors.New("caller lacks the required role")
	ErrSelfTarget = errors.New("host cannot target itself")
)

// Notifier is the gate's outbound side. The relay satisfies it; tests plug
// in a recorder.
type Notifier interface {
	Broadcast(room domain.RoomID, t core.EventType, payload any, exclude core.ConnID)
	Send(conn core.ConnID, t core.EventType, payload any)
	Disconnect(conn core.ConnID)
}

// Gate enforces role-gated meeting actions. Every action persists its effect
// before broadcasting, so a client re-fetching the meeting after the event
// observes the new state. Store failures fail closed: no broadcast, no
// partial state.
type Gate struct {
	store    persistence.MeetingStore
	notifier Notifier
}

func NewGate(store persistence.MeetingStore, notifier Notifier) *Gate {
	return &Gate{store: store, notifier: notifier}
}

type lockEvent struct {
	RoomID domain.RoomID `json:"roomId"`
	Locked bool          `json:"locked"`
}

type rolesEvent struct {
	HostID       domain.UserID        `json:"hostId"`
	CoHosts      []domain.UserID      `json:"coHosts"`
	Participants []domain.Participant `json:"participants"`
}

type kickedEvent struct {
	Reason string `json:"reason"`
}

// Lock locks the meeting. Host only. Locking an already-locked meeting is a
// no-op on the record but still re-broadcasts, so clients that missed the
// first event converge.
func (g *Gate) Lock(ctx context.Context, meetingID string, caller domain.UserID) error {
	return g.setLocked(ctx, meetingID, caller, true)
}

// Unlock unlocks the meeting. Host only, idempotent like Lock.
func (g *Gate) Unlock(ctx context.Context, meetingID string, caller domain.UserID) error {
	return g.setLocked(ctx, meetingID, caller, false)
}

func (g *Gate) setLocked(ctx context.Context, meetingID string, caller domain.UserID, locked bool) error {
	m, err := g.store.Get(ctx, meetingID)
	if err != nil {
		return fmt.Errorf("gate: load meeting: %w", err)
	}
	if m.RoleOf(caller) != domain.RoleHost {
		return g.reject("lock", caller)
	}
	if err := g.store.SetLocked(ctx, meetingID, locked); err != nil {
		return fmt.Errorf("gate: persist lock: %w", err)
	}

	event := core.EventLocked
	if !locked {
		event = core.EventUnlocked
	}
	g.notifier.Broadcast(m.RoomCode, event, lockEvent{RoomID: m.RoomCode, Locked: locked}, "")
	log.Info().Str("module", "app.gate").Str("meeting", meetingID).
		Bool("locked", locked).Msg("lock state persisted and broadcast")
	return nil
}

// AssignCoHost grants co-host rights. Host only; the host itself is never a
// valid target. The participant row's cached role is refreshed by the store
// in the same update.
func (g *Gate) AssignCoHost(ctx context.Context, meetingID string, caller, target domain.UserID) error {
	return g.mutateCoHost(ctx, meetingID, caller, target, true)
}

// RemoveCoHost revokes co-host rights. Same gating as AssignCoHost.
func (g *Gate) RemoveCoHost(ctx context.Context, meetingID string, caller, target domain.UserID) error {
	return g.mutateCoHost(ctx, meetingID, caller, target, false)
}

func (g *Gate) mutateCoHost(ctx context.Context, meetingID string, caller, target domain.UserID, grant bool) error {
	m, err := g.store.Get(ctx, meetingID)
	if err != nil {
		return fmt.Errorf("gate: load meeting: %w", err)
	}
	if m.RoleOf(caller) != domain.RoleHost {
		return g.reject("cohost", caller)
	}
	if target == m.HostID {
		metrics.ActionsRejected.WithLabelValues("cohost").Inc()
		return ErrSelfTarget
	}

	if grant {
		err = g.store.AddCoHost(ctx, meetingID, target)
	} else {
		err = g.store.RemoveCoHost(ctx, meetingID, target)
	}
	if err != nil {
		return fmt.Errorf("gate: persist cohost change: %w", err)
	}

	// Re-read so the broadcast snapshot matches what was persisted.
	m, err = g.store.Get(ctx, meetingID)
	if err != nil {
		return fmt.Errorf("gate: reload meeting: %w", err)
	}
	g.notifier.Broadcast(m.RoomCode, core.EventRolesUpdated, rolesEvent{
		HostID:       m.HostID,
		CoHosts:      m.CoHostIDs(),
		Participants: m.Participants,
	}, "")
	log.Info().Str("module", "app.gate").Str("meeting", meetingID).
		Str("target", string(target)).Bool("grant", grant).Msg("cohost change broadcast")
	return nil
}

// MuteAll asks every other member to mute. Host or co-host. Nothing is
// persisted; mute is a client-side media toggle.
func (g *Gate) MuteAll(ctx context.Context, meetingID string, caller domain.UserID, callerConn core.ConnID) error {
	m, err := g.store.Get(ctx, meetingID)
	if err != nil {
		return fmt.Errorf("gate: load meeting: %w", err)
	}
	if role := m.RoleOf(caller); role != domain.RoleHost && role != domain.RoleCoHost {
		return g.reject("mute-all", caller)
	}
	g.notifier.Broadcast(m.RoomCode, core.EventMuteAll, nil, callerConn)
	return nil
}

// Kick removes a connection from the meeting. Host or co-host. The target
// gets a targeted notice and is then disconnected; the resulting socket
// close produces the member-left broadcast.
func (g *Gate) Kick(ctx context.Context, meetingID string, caller domain.UserID, target core.ConnID) error {
	m, err := g.store.Get(ctx, meetingID)
	if err != nil {
		return fmt.Errorf("gate: load meeting: %w", err)
	}
	if role := m.RoleOf(caller); role != domain.RoleHost && role != domain.RoleCoHost {
		return g.reject("kick", caller)
	}
	g.notifier.Send(target, core.EventKicked, kickedEvent{Reason: "removed by moderator"})
	g.notifier.Disconnect(target)
	log.Info().Str("module", "app.gate").Str("meeting", meetingID).
		Str("target", string(target)).Msg("kicked")
	return nil
}

func (g *Gate) reject(action string, caller domain.UserID) error {
	metrics.ActionsRejected.WithLabelValues(action).Inc()
	log.Warn().Str("module", "app.gate").Str("action", action).
		Str("caller", string(caller)).Msg("action rejected")
	return ErrNotAllowed
}
