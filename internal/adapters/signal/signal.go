package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/avoronin/Huddle/internal/activity"
	"github.com/avoronin/Huddle/internal/app"
	"github.com/avoronin/Huddle/internal/core"
	"github.com/avoronin/Huddle/internal/domain"
	"github.com/avoronin/Huddle/internal/identity"
	"github.com/avoronin/Huddle/internal/persistence"
)

var ErrBackpressure = errors.New("backpressure")

// Controller owns the signaling WebSocket endpoint: it upgrades connections,
// binds them into the registry and dispatches inbound events.
type Controller struct {
	Reg      *app.Registry
	Relay    *app.Relay
	Gate     *app.Gate
	Meetings persistence.MeetingStore
	Ident    *identity.Resolver
	Activity activity.Log

	ReadLimit  int64
	PingPeriod time.Duration
}

type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// client is the per-connection state threaded through the handlers. The
// send side is the SignalConnection interface so scenario tests can observe
// outbound frames without a real socket. The activity fields are shared
// between the pump goroutine and the fire-and-forget history writer, so
// they sit behind their own mutex.
type client struct {
	id        core.ConnID
	conn      core.SignalConnection
	ident     *domain.Identity
	meetingID string

	mu       sync.Mutex
	activity string
	departed bool
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and runs the connection's pumps. The
// handshake token (query param "token") resolves the caller identity;
// anonymous connections are allowed.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	connID := core.ConnID(c.GetString("client_token"))
	log.Info().Str("module", "signal").Str("conn", string(connID)).Msg("new WS connection")

	ident, err := ctl.Ident.Resolve(c.Query("token"))
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(connID)).Msg("handshake token rejected")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}
	cl := &client{id: connID, conn: conn, ident: ident}

	sess := core.NewSession(ident, conn)
	ctx, cancel := context.WithCancel(ctx)
	ctl.Reg.BindSession(connID, sess, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cl, conn)
}
