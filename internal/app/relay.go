package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/avoronin/Huddle/internal/core"
	"github.com/avoronin/Huddle/internal/domain"
	"github.com/avoronin/Huddle/internal/metrics"
)

// Relay routes signaling frames between connections. It holds no state of its
// own; membership lookups go through the registry. Delivery is best-effort:
// a vanished target or a backpressured send is dropped, never surfaced to the
// sender, since WebRTC negotiation tolerates loss under churn.
type Relay struct {
	reg *Registry
}

func NewRelay(reg *Registry) *Relay {
	return &Relay{reg: reg}
}

// Forward delivers payload to exactly target, tagged with the sender's
// connection id. No-op if target is not currently connected.
func (r *Relay) Forward(sender, target core.ConnID, t core.EventType, payload json.RawMessage) {
	sess, ok := r.reg.Session(target)
	if !ok {
		log.Debug().Str("module", "app.relay").Str("type", string(t)).
			Str("target", string(target)).Msg("forward to unknown target dropped")
		return
	}
	frame, err := json.Marshal(core.Envelope{Type: t, Sender: sender, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("forward marshal")
		return
	}
	if err := sess.Signal().TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("target", string(target)).Msg("forward dropped")
		return
	}
	metrics.SignalsRelayed.WithLabelValues(string(t)).Inc()
}

// Broadcast delivers payload to every connection in room except exclude.
// Pass an empty exclude to reach the whole room.
func (r *Relay) Broadcast(room domain.RoomID, t core.EventType, payload any, exclude core.ConnID) {
	frame, err := core.EncodeEvent(t, "", payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("broadcast marshal")
		return
	}
	sent := 0
	for _, conn := range r.reg.MembersOf(room) {
		if conn == exclude {
			continue
		}
		sess, ok := r.reg.Session(conn)
		if !ok {
			continue
		}
		if err := sess.Signal().TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "app.relay").Str("conn", string(conn)).Msg("broadcast dropped")
			continue
		}
		sent++
	}
	metrics.SignalsRelayed.WithLabelValues(string(t)).Add(float64(sent))
	log.Debug().Str("module", "app.relay").Str("type", string(t)).
		Str("room", string(room)).Int("sent_to", sent).Msg("broadcast")
}

// Send delivers a server-originated event to one connection.
func (r *Relay) Send(conn core.ConnID, t core.EventType, payload any) {
	sess, ok := r.reg.Session(conn)
	if !ok {
		return
	}
	frame, err := core.EncodeEvent(t, "", payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("send marshal")
		return
	}
	if err := sess.Signal().TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("conn", string(conn)).Msg("send dropped")
	}
}

// Disconnect tears down a connection after a targeted notice (kick).
func (r *Relay) Disconnect(conn core.ConnID) {
	r.reg.Cancel(conn)
}
