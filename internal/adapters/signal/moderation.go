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

func (ctl *SignalWSController) handleMute(kind protocol.EventType, sess *app.Session, conn *WsSignalConn, data []byte) {
	var p protocol.Moderate
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad moderate payload")
		return
	}
	roomID := sess.RoomID()
	if roomID == "" {
		ctl.sendJSON(conn, protocol.NewError("not in a room"))
		return
	}

	var err error
	if kind == protocol.EventMuteUser {
		err = ctl.Orch.Moderation.Mute(roomID, sess.Identity().ID, p.TargetID)
	} else {
		err = ctl.Orch.Moderation.Unmute(roomID, sess.Identity().ID, p.TargetID)
	}
	ctl.reportModerationError(conn, err)
}

func (ctl *SignalWSController) handleKick(sess *app.Session, conn *WsSignalConn, data []byte) {
	var p protocol.Moderate
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad kick payload")
		return
	}
	roomID := sess.RoomID()
	if roomID == "" {
		ctl.sendJSON(conn, protocol.NewError("not in a room"))
		return
	}
	err := ctl.Orch.Moderation.Kick(roomID, sess.Identity().ID, p.TargetID)
	ctl.reportModerationError(conn, err)
}

func (ctl *SignalWSController) handleHostLeave(ctx context.Context, sess *app.Session, conn *WsSignalConn, data []byte) {
	var p protocol.HostLeave
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad host-leave payload")
		return
	}
	roomID := p.RoomID
	if roomID == "" {
		roomID = sess.RoomID()
	}
	if roomID == "" {
		ctl.sendJSON(conn, protocol.NewError("not in a room"))
		return
	}
	ctl.reportModerationError(conn, sess.HostLeave(ctx, roomID))
}

func (ctl *SignalWSController) reportModerationError(conn *WsSignalConn, err error) {
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrUnauthorized):
		ctl.sendJSON(conn, protocol.NewError("unauthorized"))
	case errors.Is(err, domain.ErrNotFound):
		ctl.sendJSON(conn, protocol.NewError("room does not exist"))
	default:
		log.Error().Err(err).Str("module", "signal").Msg("moderation failed")
		ctl.sendJSON(conn, protocol.NewError("moderation failed"))
	}
}
