package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/avoronin/Huddle/internal/core"
)

type chatPayload struct {
	Text        string `json:"text"`
	DisplayName string `json:"displayName"`
}

type videoStatePayload struct {
	ConnID       core.ConnID `json:"connId,omitempty"`
	VideoEnabled bool        `json:"videoEnabled"`
}

// handleChat fans a chat line out to the room, excluding the sender so it
// never sees a duplicate of its own message.
func (ctl *Controller) handleChat(cl *client, data json.RawMessage) {
	room, ok := ctl.Reg.RoomOf(cl.id)
	if !ok {
		return
	}
	var p chatPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Text == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad chat payload")
		return
	}
	if p.DisplayName == "" && cl.ident != nil {
		p.DisplayName = cl.ident.DisplayName
	}
	ctl.Relay.Broadcast(room, core.EventChatMessage, p, cl.id)
}

// handleVideoState announces a camera on/off toggle with the sender's
// connection id attached.
func (ctl *Controller) handleVideoState(cl *client, data json.RawMessage) {
	room, ok := ctl.Reg.RoomOf(cl.id)
	if !ok {
		return
	}
	var p videoStatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad video-state payload")
		return
	}
	p.ConnID = cl.id
	ctl.Relay.Broadcast(room, core.EventVideoState, p, cl.id)
}
