// Package app wires the room components: presence, relay, moderation and
// lifecycle all read and write the core registry; the orchestrator is the
// bundle handed to transport adapters.
package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/voxhall/voxhall/internal/core"
	"github.com/voxhall/voxhall/internal/domain"
)

type Orchestrator struct {
	Registry   *core.Registry
	Presence   *PresenceBroadcaster
	Relay      *SignalingRelay
	Moderation *ModerationController
	Lifecycle  *RoomLifecycleManager
}

// sendJSON marshals and pushes best-effort. A full send buffer or a closed
// connection drops the frame; time-sensitive events are never retried.
func sendJSON(conn core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app").Msg("sendJSON marshal")
		return
	}
	if err := conn.TrySend(core.Frame(b)); err != nil {
		log.Debug().Err(err).Str("module", "app").Msg("sendJSON dropped")
	}
}

func (o *Orchestrator) broadcastRoom(roomID domain.RoomID, v any) {
	for _, m := range o.Registry.Members(roomID) {
		sendJSON(m.Conn, v)
	}
}

func (o *Orchestrator) broadcastExcept(roomID domain.RoomID, exclude domain.ConnectionID, v any) {
	for _, m := range o.Registry.Members(roomID) {
		if m.Participant.ConnectionID == exclude {
			continue
		}
		sendJSON(m.Conn, v)
	}
}
