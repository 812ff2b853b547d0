package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/avoronin/Huddle/internal/core"
)

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.pingPeriod())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			// Close the socket so the read side unblocks and runs the
			// disconnect path.
			c.Close()
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump keepalive")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) pingPeriod() time.Duration {
	if ctl.PingPeriod > 0 {
		return ctl.PingPeriod
	}
	return 54 * time.Second
}

func (ctl *Controller) readPump(ctx context.Context, cl *client, ws *wsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(cl.id)).Msg("readPump closing")
		ctl.onDisconnect(cl)
		ws.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("conn", string(cl.id)).Msg("readPump ctx done")
			return
		default:
			_, data, err := ws.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("conn", string(cl.id)).Msg("readPump read error")
				return
			}
			ctl.dispatch(cl, data)
		}
	}
}

// dispatch routes one inbound frame. A panic while handling one connection's
// message must never take down the process; recover and keep reading.
func (ctl *Controller) dispatch(cl *client, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("module", "signal").
				Str("conn", string(cl.id)).Msg("recovered in dispatch")
		}
	}()

	var env core.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch env.Type {
	case core.EventJoin:
		ctl.handleJoin(cl, env.Payload)
	case core.EventLeave:
		ctl.handleLeave(cl)
	case core.EventOffer, core.EventAnswer, core.EventICECandidate:
		ctl.handleForward(cl, env.Type, env.Payload)
	case core.EventChatMessage:
		ctl.handleChat(cl, env.Payload)
	case core.EventVideoState:
		ctl.handleVideoState(cl, env.Payload)
	case core.EventLock:
		ctl.handleSetLocked(cl, true)
	case core.EventUnlock:
		ctl.handleSetLocked(cl, false)
	case core.EventAssignCoHost:
		ctl.handleCoHost(cl, env.Payload, true)
	case core.EventRemoveCoHost:
		ctl.handleCoHost(cl, env.Payload, false)
	case core.EventMuteAll:
		ctl.handleMuteAll(cl)
	case core.EventKick:
		ctl.handleKick(cl, env.Payload)
	case core.EventPing:
		ctl.handlePing(cl)
	default:
		log.Warn().Str("module", "signal").Str("type", string(env.Type)).Msg("unknown signal")
	}
}

func (ctl *Controller) sendEvent(c core.SignalConnection, t core.EventType, payload any) {
	frame, err := core.EncodeEvent(t, "", payload)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendEvent marshal")
		return
	}
	_ = c.TrySend(frame)
}

func (ctl *Controller) sendError(c core.SignalConnection, msg string) {
	ctl.sendEvent(c, core.EventError, map[string]string{"error": msg})
}
