package signal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/voxhall/voxhall/internal/app"
	"github.com/voxhall/voxhall/internal/core"
	"github.com/voxhall/voxhall/internal/domain"
	"github.com/voxhall/voxhall/internal/identity"
	"github.com/voxhall/voxhall/internal/protocol"
)

var ErrBackpressure = errors.New("backpressure")

type SignalWSController struct {
	Orch       *app.Orchestrator
	Identity   identity.Provider
	Limiter    *JoinRateLimiter
	ReadLimit  int64
	PingPeriod time.Duration
}

func NewSignalWSController(orch *app.Orchestrator, provider identity.Provider, limiter *JoinRateLimiter, readLimit int64, pingPeriod time.Duration) *SignalWSController {
	if pingPeriod <= 0 {
		pingPeriod = 54 * time.Second
	}
	return &SignalWSController{
		Orch:       orch,
		Identity:   provider,
		Limiter:    limiter,
		ReadLimit:  readLimit,
		PingPeriod: pingPeriod,
	}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
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

// Close stops accepting frames and closes the send channel. The socket
// itself is closed by writePump after it drains the queued frames, so a
// terminal event enqueued just before Close still reaches the client.
func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the connection, resolves the presenting identity
// and runs the session pumps until the transport drops.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}
	pongWait := ctl.PingPeriod + 10*time.Second
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	who, err := ctl.resolveIdentity(ctx, c)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("identity rejected")
		// Pumps are not running yet, write the rejection directly.
		b, _ := json.Marshal(protocol.NewError("unauthorized"))
		_ = ws.WriteMessage(websocket.TextMessage, b)
		_ = ws.Close()
		return
	}

	cid := domain.ConnectionID(uuid.NewString())
	sess := app.NewSession(cid, who, conn, ctl.Orch)
	log.Info().Str("module", "signal").Str("conn", string(cid)).
		Str("identity", string(who.ID)).Msg("new WS connection")

	connCtx, cancel := context.WithCancel(ctx)
	go ctl.writePump(connCtx, conn)
	go func() {
		ctl.readPump(connCtx, sess, conn)
		cancel()
		sess.Disconnect(context.Background())
	}()
}

// resolveIdentity exchanges the client token for an authenticated identity,
// or mints an anonymous one when no token is presented.
func (ctl *SignalWSController) resolveIdentity(ctx context.Context, c *gin.Context) (domain.UserIdentity, error) {
	token := c.Query("token")
	if token == "" {
		return domain.NewAnonymousIdentity(), nil
	}
	return ctl.Identity.Resolve(ctx, token)
}
