package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/voxhall/voxhall/internal/app"
	"github.com/voxhall/voxhall/internal/protocol"
)

// handleSignalRelay forwards offer/answer/ice-candidate to the target
// connection. The payload is an opaque blob; nothing here reads it.
func (ctl *SignalWSController) handleSignalRelay(kind protocol.EventType, sess *app.Session, data []byte) {
	var p protocol.Signal
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("kind", string(kind)).Msg("bad signal payload")
		return
	}
	if p.TargetID == "" {
		return
	}
	ctl.Orch.Relay.Forward(kind, sess.ConnectionID(), p.TargetID, p.Payload)
}
