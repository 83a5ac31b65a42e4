package app

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/voxhall/voxhall/internal/core"
	"github.com/voxhall/voxhall/internal/domain"
	"github.com/voxhall/voxhall/internal/protocol"
)

// SignalingRelay forwards negotiation payloads and chat without touching
// shared state. Payloads are opaque: the server validates nothing about
// WebRTC semantics and never retries a delivery; a lost offer or candidate
// is superseded by renegotiation on the client side.
type SignalingRelay struct {
	reg *core.Registry
	now func() time.Time
}

func NewSignalingRelay(reg *core.Registry) *SignalingRelay {
	return &SignalingRelay{reg: reg, now: time.Now}
}

// Forward delivers a directed signal (offer, answer, ice-candidate) to the
// target connection if it is currently known, and silently drops otherwise.
// No room-mate validation: a pure directed forward, at most once.
func (r *SignalingRelay) Forward(kind protocol.EventType, from domain.ConnectionID, target domain.ConnectionID, payload json.RawMessage) {
	m, _, ok := r.reg.ConnOf(target)
	if !ok {
		log.Debug().Str("module", "app.relay").Str("kind", string(kind)).
			Str("target", string(target)).Msg("target gone, signal dropped")
		return
	}
	sendJSON(m.Conn, protocol.SignalForward{
		Type:    kind,
		UserID:  from,
		Payload: payload,
	})
}

// Chat broadcasts a message to the sender's room-mates, stamped with the
// server-side receive time.
func (r *SignalingRelay) Chat(roomID domain.RoomID, sender domain.Participant, text string) {
	msg := protocol.ReceiveMessage{
		Type:         protocol.EventReceiveMessage,
		UserID:       sender.ConnectionID,
		Message:      text,
		Timestamp:    r.now().UnixMilli(),
		SenderName:   sender.DisplayName,
		SenderAvatar: sender.AvatarRef,
	}
	for _, m := range r.reg.Members(roomID) {
		if m.Participant.ConnectionID == sender.ConnectionID {
			continue
		}
		sendJSON(m.Conn, msg)
	}
}
