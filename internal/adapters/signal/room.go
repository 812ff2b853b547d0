package signal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avoronin/Huddle/internal/core"
	"github.com/avoronin/Huddle/internal/domain"
	"github.com/avoronin/Huddle/internal/metrics"
	"github.com/avoronin/Huddle/internal/persistence"
)

type joinPayload struct {
	RoomID      domain.RoomID `json:"roomId"`
	DisplayMeta *struct {
		DisplayName string `json:"displayName"`
	} `json:"displayMeta,omitempty"`
}

type existingMembersPayload struct {
	RoomID  domain.RoomID    `json:"roomId"`
	Members []core.MemberDTO `json:"members"`
}

type memberPayload struct {
	ConnID      core.ConnID   `json:"connId"`
	UserID      domain.UserID `json:"userId,omitempty"`
	DisplayName string        `json:"displayName,omitempty"`
}

func (ctl *Controller) handleJoin(cl *client, data json.RawMessage) {
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(cl.conn, "bad_payload")
		return
	}

	ctx := context.Background()
	meeting, err := ctl.Meetings.GetByRoomCode(ctx, p.RoomID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			ctl.sendError(cl.conn, "meeting not found")
			return
		}
		log.Error().Err(err).Str("module", "signal").Str("room", string(p.RoomID)).Msg("load meeting")
		ctl.sendError(cl.conn, "internal error")
		return
	}

	// Display metadata from the join may name an otherwise anonymous caller.
	if p.DisplayMeta != nil && p.DisplayMeta.DisplayName != "" {
		if cl.ident == nil {
			cl.ident = &domain.Identity{DisplayName: p.DisplayMeta.DisplayName}
		} else {
			cl.ident = &domain.Identity{UserID: cl.ident.UserID, DisplayName: p.DisplayMeta.DisplayName}
		}
		ctl.Reg.UpdateIdentity(cl.id, cl.ident)
	}

	if meeting.Locked && !ctl.mayJoinLocked(meeting, cl) {
		log.Info().Str("module", "signal").Str("conn", string(cl.id)).
			Str("room", string(p.RoomID)).Msg("join rejected, meeting locked")
		ctl.sendError(cl.conn, "meeting is locked")
		return
	}

	others := ctl.Reg.Join(cl.id, p.RoomID)
	cl.meetingID = meeting.ID
	metrics.JoinsTotal.Inc()
	log.Info().Str("module", "signal").Str("conn", string(cl.id)).
		Str("room", string(p.RoomID)).Msg("join")

	// The caller gets the member list so it can initiate one offer each;
	// the room learns about the caller separately.
	members := make([]core.MemberDTO, 0, len(others))
	snapshot := ctl.Reg.MembersSnapshot(p.RoomID)
	for _, dto := range snapshot {
		if dto.ConnID != cl.id {
			members = append(members, dto)
		}
	}
	ctl.sendEvent(cl.conn, core.EventExistingMembers, existingMembersPayload{
		RoomID:  p.RoomID,
		Members: members,
	})

	joined := memberPayload{ConnID: cl.id}
	if cl.ident != nil {
		joined.UserID = cl.ident.UserID
		joined.DisplayName = cl.ident.DisplayName
	}
	ctl.Relay.Broadcast(p.RoomID, core.EventMemberJoined, joined, cl.id)

	ctl.recordJoin(meeting, cl)
}

// mayJoinLocked implements the lock gate: host and co-hosts always pass, and
// a user with another live connection in the room may rejoin.
func (ctl *Controller) mayJoinLocked(meeting *domain.Meeting, cl *client) bool {
	if cl.ident == nil || cl.ident.UserID == "" {
		return false
	}
	if role := meeting.RoleOf(cl.ident.UserID); role == domain.RoleHost || role == domain.RoleCoHost {
		return true
	}
	return ctl.Reg.UserPresentInRoom(meeting.RoomCode, cl.ident.UserID)
}

// recordJoin updates the persisted participant row and the activity history.
// Both are best-effort side effects: they run off the signaling path and
// their failure never unwinds room state.
func (ctl *Controller) recordJoin(meeting *domain.Meeting, cl *client) {
	if cl.ident == nil || cl.ident.UserID == "" {
		return
	}
	uid := cl.ident.UserID
	role := meeting.RoleOf(uid)
	meetingID := meeting.ID
	room := meeting.RoomCode
	connID := cl.id

	cl.mu.Lock()
	cl.departed = false
	cl.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ctl.Meetings.RecordJoin(ctx, meetingID, uid, role, time.Now().UTC()); err != nil {
			log.Warn().Err(err).Str("module", "signal").Str("conn", string(connID)).Msg("record join")
		}
		sessionID, err := ctl.Activity.RecordJoin(ctx, uid, room)
		if err != nil {
			log.Warn().Err(err).Str("module", "signal").Str("conn", string(connID)).Msg("activity join")
			return
		}

		cl.mu.Lock()
		if cl.departed {
			// The connection already left; close the history row right here
			// instead of parking a session id nobody will ever read.
			cl.mu.Unlock()
			if err := ctl.Activity.RecordLeave(ctx, sessionID); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("conn", string(connID)).Msg("activity late close")
			}
			return
		}
		cl.activity = sessionID
		cl.mu.Unlock()
	}()
}

func (ctl *Controller) handleLeave(cl *client) {
	log.Info().Str("module", "signal").Str("conn", string(cl.id)).Msg("leave")
	ctl.leaveRoom(cl)
}

// onDisconnect runs when the socket drops for any reason. Leaving is
// idempotent, so an explicit leave followed by the close is harmless.
func (ctl *Controller) onDisconnect(cl *client) {
	ctl.leaveRoom(cl)
	ctl.Reg.Unbind(cl.id)
}

func (ctl *Controller) leaveRoom(cl *client) {
	room, ok := ctl.Reg.Leave(cl.id)
	if !ok {
		return
	}
	ctl.Relay.Broadcast(room, core.EventMemberLeft, memberPayload{ConnID: cl.id}, cl.id)
	ctl.recordLeave(cl)
	cl.meetingID = ""
}

func (ctl *Controller) recordLeave(cl *client) {
	if cl.ident == nil || cl.ident.UserID == "" {
		return
	}
	uid := cl.ident.UserID
	meetingID := cl.meetingID

	cl.mu.Lock()
	sessionID := cl.activity
	cl.activity = ""
	cl.departed = true
	cl.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if meetingID != "" {
			if err := ctl.Meetings.RecordLeave(ctx, meetingID, uid, time.Now().UTC()); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("record leave")
			}
		}
		if err := ctl.Activity.RecordLeave(ctx, sessionID); err != nil {
			log.Warn().Err(err).Str("module", "signal").Msg("activity leave")
		}
	}()
}
