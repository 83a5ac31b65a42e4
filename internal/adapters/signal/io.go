package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/voxhall/voxhall/internal/app"
	"github.com/voxhall/voxhall/internal/protocol"
)

// writePump owns every write on the socket, including the keepalive pings,
// and is the only place the socket is closed. When the send channel closes
// it first drains the queued frames, so terminal events beat the close.
func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.pingPeriod())
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				log.Info().Err(err).Str("module", "signal").Msg("writePump ping failed")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Info().Str("module", "signal").Msg("writePump drained, closing socket")
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

func (ctl *SignalWSController) pingPeriod() time.Duration {
	if ctl.PingPeriod > 0 {
		return ctl.PingPeriod
	}
	return 54 * time.Second
}

func (ctl *SignalWSController) readPump(ctx context.Context, sess *app.Session, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(sess.ConnectionID())).Msg("readPump closing")
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").
					Str("conn", string(sess.ConnectionID())).Msg("readPump read error")
				return
			}
			ctl.dispatch(ctx, sess, c, data)
		}
	}
}

func (ctl *SignalWSController) dispatch(ctx context.Context, sess *app.Session, c *WsSignalConn, data []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch env.Type {
	case protocol.EventJoinRoom:
		ctl.handleJoin(ctx, sess, c, data)
	case protocol.EventLeaveRoom:
		ctl.handleLeave(ctx, sess, c, data)
	case protocol.EventSendMessage:
		ctl.handleMessage(sess, data)
	case protocol.EventOffer, protocol.EventAnswer, protocol.EventICECandidate:
		ctl.handleSignalRelay(env.Type, sess, data)
	case protocol.EventMuteUser, protocol.EventUnmuteUser:
		ctl.handleMute(env.Type, sess, c, data)
	case protocol.EventKickUser:
		ctl.handleKick(sess, c, data)
	case protocol.EventHostLeave:
		ctl.handleHostLeave(ctx, sess, c, data)
	case protocol.EventPing:
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", string(env.Type)).Msg("unknown signal")
	}
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
