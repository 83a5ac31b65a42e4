package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/voxhall/voxhall/internal/app"
	"github.com/voxhall/voxhall/internal/protocol"
)

func (ctl *SignalWSController) handleMessage(sess *app.Session, data []byte) {
	var p protocol.SendMessage
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad message payload")
		return
	}
	roomID := sess.RoomID()
	if roomID == "" {
		return
	}
	m, ok := ctl.Orch.Registry.MemberOf(roomID, sess.ConnectionID())
	if !ok {
		return
	}
	ctl.Orch.Relay.Chat(roomID, m.Participant, p.Message)
}
