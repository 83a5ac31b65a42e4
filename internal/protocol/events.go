// Package protocol defines the wire-level event surface of the signaling
// channel: one JSON envelope per frame, discriminated by "type".
package protocol

import (
	"encoding/json"

	"github.com/voxhall/voxhall/internal/domain"
)

type EventType string

// Client -> server commands.
const (
	EventJoinRoom     EventType = "join-room"
	EventLeaveRoom    EventType = "leave-room"
	EventSendMessage  EventType = "send-message"
	EventOffer        EventType = "offer"
	EventAnswer       EventType = "answer"
	EventICECandidate EventType = "ice-candidate"
	EventMuteUser     EventType = "mute-user"
	EventUnmuteUser   EventType = "unmute-user"
	EventKickUser     EventType = "kick-user"
	EventHostLeave    EventType = "host-leave"
	EventPing         EventType = "ping"
)

// Server -> client events.
const (
	EventParticipantsUpdate EventType = "participants-update"
	EventUserJoined         EventType = "user-joined"
	EventUserLeft           EventType = "user-left"
	EventUserKicked         EventType = "user-kicked"
	EventUserMuted          EventType = "user-muted"
	EventUserUnmuted        EventType = "user-unmuted"
	EventReceiveMessage     EventType = "receive-message"
	EventKicked             EventType = "kicked"
	EventRoomClosed         EventType = "room-closed"
	EventLeft               EventType = "left"
	EventPong               EventType = "pong"
	EventError              EventType = "error"
)

// Envelope is the minimal view used for dispatch.
type Envelope struct {
	Type EventType `json:"type"`
}

type JoinRoom struct {
	Type        EventType     `json:"type"`
	RoomID      domain.RoomID `json:"roomId"`
	DisplayName string        `json:"fullName,omitempty"`
	AvatarRef   string        `json:"profilePic,omitempty"`
}

type LeaveRoom struct {
	Type   EventType     `json:"type"`
	RoomID domain.RoomID `json:"roomId"`
}

// SendMessage is a targetless room broadcast; the server stamps the
// receive time before fan-out.
type SendMessage struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
}

// Signal carries a directed negotiation payload. The server never
// interprets Payload; it is an opaque blob forwarded as-is.
type Signal struct {
	Type     EventType           `json:"type"`
	TargetID domain.ConnectionID `json:"targetId,omitempty"`
	Payload  json.RawMessage     `json:"payload"`
}

// SignalForward is the relayed form delivered to the target, with the
// sender's connection id substituted for the target.
type SignalForward struct {
	Type    EventType           `json:"type"`
	UserID  domain.ConnectionID `json:"userId"`
	Payload json.RawMessage     `json:"payload"`
}

// Moderate targets one connection in the caller's room.
type Moderate struct {
	Type     EventType           `json:"type"`
	TargetID domain.ConnectionID `json:"targetId"`
}

type HostLeave struct {
	Type   EventType     `json:"type"`
	RoomID domain.RoomID `json:"roomId"`
}

// ParticipantsUpdate is the presence snapshot pushed after every
// membership change and on the periodic healing tick.
type ParticipantsUpdate struct {
	Type         EventType            `json:"type"`
	Count        int                  `json:"count"`
	Participants []domain.Participant `json:"participants"`
}

type UserEvent struct {
	Type        EventType           `json:"type"`
	UserID      domain.ConnectionID `json:"id"`
	DisplayName string              `json:"fullName,omitempty"`
	AvatarRef   string              `json:"profilePic,omitempty"`
}

// ModerationNotice is the room-wide echo of a mute/unmute action.
type ModerationNotice struct {
	Type   EventType           `json:"type"`
	UserID domain.ConnectionID `json:"userId"`
	Forced bool                `json:"forced"`
}

type ReceiveMessage struct {
	Type         EventType           `json:"type"`
	UserID       domain.ConnectionID `json:"userId"`
	Message      string              `json:"message"`
	Timestamp    int64               `json:"timestamp"`
	SenderName   string              `json:"senderName"`
	SenderAvatar string              `json:"profilePic,omitempty"`
}

// Terminal notifications carry a human-readable reason.
type Terminal struct {
	Type   EventType `json:"type"`
	Reason string    `json:"reason,omitempty"`
}

type ErrorEvent struct {
	Type  EventType `json:"type"`
	Error string    `json:"error"`
}

func NewError(msg string) ErrorEvent {
	return ErrorEvent{Type: EventError, Error: msg}
}
