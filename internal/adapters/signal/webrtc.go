package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/avoronin/Huddle/internal/core"
)

type targetedPayload struct {
	Target core.ConnID `json:"target"`
}

// handleForward relays offer/answer/ice-candidate frames to exactly the
// named target connection, with the sender's id attached. The payload itself
// is passed through verbatim; the server never inspects SDP or candidates.
func (ctl *Controller) handleForward(cl *client, t core.EventType, data json.RawMessage) {
	var p targetedPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Target == "" {
		log.Error().Err(err).Str("module", "signal").Str("type", string(t)).Msg("bad forward payload")
		return
	}
	if p.Target == cl.id {
		log.Warn().Str("module", "signal").Str("conn", string(cl.id)).Msg("self-forward dropped")
		return
	}
	ctl.Relay.Forward(cl.id, p.Target, t, data)
}
