package signal

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/voxhall/voxhall/internal/app"
	"github.com/voxhall/voxhall/internal/domain"
	"github.com/voxhall/voxhall/internal/protocol"
)

func (ctl *SignalWSController) handleJoin(ctx context.Context, sess *app.Session, conn *WsSignalConn, data []byte) {
	var p protocol.JoinRoom
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendJSON(conn, protocol.NewError("bad_payload"))
		return
	}
	if p.RoomID == "" {
		ctl.sendJSON(conn, protocol.NewError("missing room id"))
		return
	}
	if ctl.Limiter != nil && !ctl.Limiter.Allow(sess.Identity().ID) {
		ctl.sendJSON(conn, protocol.NewError("rate_limited"))
		return
	}

	err := sess.Join(ctx, p.RoomID, p.DisplayName, p.AvatarRef)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrBanned):
		// A banned identity gets the same terminal signal as a kick.
		ctl.sendJSON(conn, protocol.Terminal{Type: protocol.EventKicked})
		return
	case errors.Is(err, domain.ErrRoomClosed):
		ctl.sendJSON(conn, protocol.Terminal{Type: protocol.EventRoomClosed})
		return
	case errors.Is(err, domain.ErrNotFound):
		ctl.sendJSON(conn, protocol.NewError("room does not exist"))
		return
	default:
		log.Error().Err(err).Str("module", "signal").Msg("join failed")
		ctl.sendJSON(conn, protocol.NewError("failed to join room"))
		return
	}

	log.Info().Str("module", "signal").Str("conn", string(sess.ConnectionID())).
		Str("room", string(p.RoomID)).Msg("join")
}

// handleLeave exits the current room; the connection stays up. A leave
// naming a room this connection is no longer in is stale and dropped.
func (ctl *SignalWSController) handleLeave(ctx context.Context, sess *app.Session, conn *WsSignalConn, data []byte) {
	var p protocol.LeaveRoom
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad leave payload")
		return
	}
	if p.RoomID != "" && p.RoomID != sess.RoomID() {
		return
	}
	log.Info().Str("module", "signal").Str("conn", string(sess.ConnectionID())).Msg("leave")
	sess.Leave(ctx)
	ctl.sendJSON(conn, protocol.Terminal{Type: protocol.EventLeft})
}
