// Package huddle is the Go-side meeting client: it dials the signaling
// channel, runs the connection lifecycle and drives the peer orchestrator.
package huddle

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/avoronin/Huddle/internal/core"
	"github.com/avoronin/Huddle/internal/domain"
)

// Events are the client's inbound callbacks. All fields are optional.
type Events struct {
	OnState       func(State)
	OnChat        func(sender core.ConnID, text, displayName string)
	OnLocked      func(locked bool)
	OnRolesUpdate func(hostID domain.UserID, coHosts []domain.UserID)
	OnKicked      func(reason string)
	OnMuteAll     func()
	OnMemberJoin  func(conn core.ConnID, displayName string)
	OnMemberLeft  func(conn core.ConnID)
	OnWarning     func(remote core.ConnID)
	OnMediaError  func(err error)
}

// Client is one meeting session: a signaling socket plus the peer mesh.
type Client struct {
	url    string
	token  string
	roomID domain.RoomID
	name   string

	media  MediaSource
	events Events

	lifecycle *Lifecycle
	orch      *PeerOrchestrator

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	audioTrack webrtc.TrackLocal
	videoTrack webrtc.TrackLocal
}

// New builds a client. newLink decides how peer links are created (pion in
// production, fakes in tests); it receives the local tracks once acquired.
func New(url, token string, roomID domain.RoomID, name string, media MediaSource, newLink LinkFactory, events Events) *Client {
	c := &Client{
		url:    url,
		token:  token,
		roomID: roomID,
		name:   name,
		media:  media,
		events: events,
	}
	c.lifecycle = NewLifecycle(events.OnState, c.emitJoin)
	c.orch = NewPeerOrchestrator(c, newLink, events.OnWarning)
	return c
}

// Orchestrator exposes the peer mesh, mainly so the embedder can wire
// screen-share toggles.
func (c *Client) Orchestrator() *PeerOrchestrator { return c.orch }

// Run connects, acquires media and processes events until ctx is canceled
// or the socket closes for good.
func (c *Client) Run(ctx context.Context) error {
	c.lifecycle.Connecting()

	dialURL := c.url
	if c.token != "" {
		dialURL += "?token=" + c.token
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, dialURL, nil)
	if err != nil {
		c.lifecycle.Fail()
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.lifecycle.SocketConnected()

	// Media acquisition runs concurrently with signaling; the lifecycle
	// gate holds the join until both are done. A denied device still
	// settles media so the session proceeds without it.
	go func() {
		audio, video, err := c.media.Acquire(ctx)
		if err != nil {
			log.Warn().Err(err).Str("module", "client").Msg("media acquisition failed, continuing without media")
			if c.events.OnMediaError != nil {
				c.events.OnMediaError(err)
			}
		} else {
			c.mu.Lock()
			c.audioTrack, c.videoTrack = audio, video
			c.mu.Unlock()
		}
		c.lifecycle.MediaSettled()
		c.orch.MediaReady()
	}()

	return c.readLoop(ctx, conn)
}

// emitJoin fires exactly once per session, when both socket and media are
// ready.
func (c *Client) emitJoin() {
	payload := map[string]any{"roomId": c.roomID}
	if c.name != "" {
		payload["displayMeta"] = map[string]string{"displayName": c.name}
	}
	c.sendEvent(core.EventJoin, payload)
}

// LocalTracks returns the acquired local tracks for link construction.
func (c *Client) LocalTracks() (audio, video webrtc.TrackLocal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.audioTrack, c.videoTrack
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	defer c.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if closed {
				return nil
			}
			c.lifecycle.SocketLost()
			return err
		}
		c.handleFrame(data)
	}
}

func (c *Client) handleFrame(data []byte) {
	var env core.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "client").Msg("bad frame")
		return
	}

	switch env.Type {
	case core.EventExistingMembers:
		var p struct {
			Members []core.MemberDTO `json:"members"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		c.orch.HandleExistingMembers(p.Members)
	case core.EventMemberJoined:
		var p struct {
			ConnID      core.ConnID `json:"connId"`
			DisplayName string      `json:"displayName"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		if c.events.OnMemberJoin != nil {
			c.events.OnMemberJoin(p.ConnID, p.DisplayName)
		}
	case core.EventMemberLeft:
		var p struct {
			ConnID core.ConnID `json:"connId"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		c.orch.HandleMemberLeft(p.ConnID)
		if c.events.OnMemberLeft != nil {
			c.events.OnMemberLeft(p.ConnID)
		}
	case core.EventOffer:
		var p struct {
			SDP string `json:"sdp"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		c.orch.HandleOffer(env.Sender, p.SDP)
	case core.EventAnswer:
		var p struct {
			SDP string `json:"sdp"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		c.orch.HandleAnswer(env.Sender, p.SDP)
	case core.EventICECandidate:
		var p struct {
			Candidate webrtc.ICECandidateInit `json:"candidate"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		c.orch.HandleCandidate(env.Sender, p.Candidate)
	case core.EventVideoState:
		var p struct {
			ConnID       core.ConnID `json:"connId"`
			VideoEnabled bool        `json:"videoEnabled"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		c.orch.HandleVideoState(p.ConnID, p.VideoEnabled)
	case core.EventChatMessage:
		var p struct {
			Text        string `json:"text"`
			DisplayName string `json:"displayName"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		if c.events.OnChat != nil {
			c.events.OnChat(env.Sender, p.Text, p.DisplayName)
		}
	case core.EventLocked, core.EventUnlocked:
		var p struct {
			Locked bool `json:"locked"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		if c.events.OnLocked != nil {
			c.events.OnLocked(p.Locked)
		}
	case core.EventRolesUpdated:
		var p struct {
			HostID  domain.UserID   `json:"hostId"`
			CoHosts []domain.UserID `json:"coHosts"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		if c.events.OnRolesUpdate != nil {
			c.events.OnRolesUpdate(p.HostID, p.CoHosts)
		}
	case core.EventMuteAll:
		if c.events.OnMuteAll != nil {
			c.events.OnMuteAll()
		}
	case core.EventKicked:
		var p struct {
			Reason string `json:"reason"`
		}
		_ = json.Unmarshal(env.Payload, &p)
		if c.events.OnKicked != nil {
			c.events.OnKicked(p.Reason)
		}
		// Kicked receivers must stop media and disconnect.
		c.Close()
	case core.EventPong, core.EventError:
		// Errors are logged; there is no retry protocol at this layer.
		if env.Type == core.EventError {
			log.Warn().Str("module", "client").RawJSON("payload", env.Payload).Msg("server error event")
		}
	default:
		log.Warn().Str("module", "client").Str("type", string(env.Type)).Msg("unknown event")
	}
}

// SendOffer implements Signaler.
func (c *Client) SendOffer(target core.ConnID, sdp string) error {
	return c.sendEvent(core.EventOffer, map[string]any{"target": target, "sdp": sdp})
}

// SendAnswer implements Signaler.
func (c *Client) SendAnswer(target core.ConnID, sdp string) error {
	return c.sendEvent(core.EventAnswer, map[string]any{"target": target, "sdp": sdp})
}

// SendCandidate implements Signaler.
func (c *Client) SendCandidate(target core.ConnID, cand webrtc.ICECandidateInit) error {
	return c.sendEvent(core.EventICECandidate, map[string]any{"target": target, "candidate": cand})
}

// SendChat broadcasts a chat line to the room.
func (c *Client) SendChat(text string) error {
	return c.sendEvent(core.EventChatMessage, map[string]string{"text": text, "displayName": c.name})
}

// SendVideoState announces a camera toggle.
func (c *Client) SendVideoState(enabled bool) error {
	return c.sendEvent(core.EventVideoState, map[string]bool{"videoEnabled": enabled})
}

// Moderation sends. The server enforces the role; these just emit.

func (c *Client) Lock() error   { return c.sendEvent(core.EventLock, nil) }
func (c *Client) Unlock() error { return c.sendEvent(core.EventUnlock, nil) }

func (c *Client) AssignCoHost(target domain.UserID) error {
	return c.sendEvent(core.EventAssignCoHost, map[string]any{"target": target})
}

func (c *Client) RemoveCoHost(target domain.UserID) error {
	return c.sendEvent(core.EventRemoveCoHost, map[string]any{"target": target})
}

func (c *Client) MuteAll() error { return c.sendEvent(core.EventMuteAll, nil) }

func (c *Client) Kick(target core.ConnID) error {
	return c.sendEvent(core.EventKick, map[string]any{"target": target})
}

// Leave exits the room without dropping the socket.
func (c *Client) Leave() error { return c.sendEvent(core.EventLeave, nil) }

func (c *Client) sendEvent(t core.EventType, payload any) error {
	frame, err := core.EncodeEvent(t, "", payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.closed {
		return websocket.ErrCloseSent
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

// Close stops local media and tears down every peer link before closing the
// signaling socket, so no hardware or connection outlives the session.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	c.media.StopAll()
	c.orch.Close()
	if conn != nil {
		_ = conn.Close()
	}
	log.Info().Str("module", "client").Msg("session closed")
}
