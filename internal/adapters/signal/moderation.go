package signal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avoronin/Huddle/internal/app"
	"github.com/avoronin/Huddle/internal/core"
	"github.com/avoronin/Huddle/internal/domain"
)

type cohostPayload struct {
	Target domain.UserID `json:"target"`
}

type kickPayload struct {
	Target core.ConnID `json:"target"`
}

// moderationContext resolves the caller's user id and current meeting for a
// gated action arriving over the socket. Anonymous callers are rejected
// outright; they can never hold a role.
func (ctl *Controller) moderationContext(cl *client) (domain.UserID, string, bool) {
	if cl.ident == nil || cl.ident.UserID == "" {
		ctl.sendError(cl.conn, "not allowed")
		return "", "", false
	}
	if cl.meetingID == "" {
		ctl.sendError(cl.conn, "not in a meeting")
		return "", "", false
	}
	return cl.ident.UserID, cl.meetingID, true
}

func (ctl *Controller) handleSetLocked(cl *client, locked bool) {
	caller, meetingID, ok := ctl.moderationContext(cl)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	if locked {
		err = ctl.Gate.Lock(ctx, meetingID, caller)
	} else {
		err = ctl.Gate.Unlock(ctx, meetingID, caller)
	}
	ctl.replyGateResult(cl, "lock", err)
}

func (ctl *Controller) handleCoHost(cl *client, data json.RawMessage, grant bool) {
	caller, meetingID, ok := ctl.moderationContext(cl)
	if !ok {
		return
	}
	var p cohostPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Target == "" {
		ctl.sendError(cl.conn, "bad_payload")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	if grant {
		err = ctl.Gate.AssignCoHost(ctx, meetingID, caller, p.Target)
	} else {
		err = ctl.Gate.RemoveCoHost(ctx, meetingID, caller, p.Target)
	}
	ctl.replyGateResult(cl, "cohost", err)
}

func (ctl *Controller) handleMuteAll(cl *client) {
	caller, meetingID, ok := ctl.moderationContext(cl)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ctl.replyGateResult(cl, "mute-all", ctl.Gate.MuteAll(ctx, meetingID, caller, cl.id))
}

func (ctl *Controller) handleKick(cl *client, data json.RawMessage) {
	caller, meetingID, ok := ctl.moderationContext(cl)
	if !ok {
		return
	}
	var p kickPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Target == "" {
		ctl.sendError(cl.conn, "bad_payload")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ctl.replyGateResult(cl, "kick", ctl.Gate.Kick(ctx, meetingID, caller, p.Target))
}

func (ctl *Controller) replyGateResult(cl *client, action string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, app.ErrNotAllowed):
		ctl.sendError(cl.conn, "not allowed")
	case errors.Is(err, app.ErrSelfTarget):
		ctl.sendError(cl.conn, "host cannot target itself")
	default:
		log.Error().Err(err).Str("module", "signal").Str("action", action).Msg("gated action failed")
		ctl.sendError(cl.conn, "internal error")
	}
}
