package app

import (
	"github.com/rs/zerolog/log"

	"github.com/voxhall/voxhall/internal/core"
	"github.com/voxhall/voxhall/internal/domain"
	"github.com/voxhall/voxhall/internal/protocol"
)

// ModerationController enforces host-only mute/unmute/kick. Mute state is
// not tracked server-side: mute is a signal the target's client enforces.
type ModerationController struct {
	reg       *core.Registry
	presence  *PresenceBroadcaster
	lifecycle *RoomLifecycleManager
}

func NewModerationController(reg *core.Registry, presence *PresenceBroadcaster, lifecycle *RoomLifecycleManager) *ModerationController {
	return &ModerationController{reg: reg, presence: presence, lifecycle: lifecycle}
}

// authorize rejects callers other than the room's host. A non-host request
// is an explicit denial, never a silent drop.
func (c *ModerationController) authorize(roomID domain.RoomID, caller domain.IdentityID) error {
	room, ok := c.lifecycle.Room(roomID)
	if !ok {
		return domain.ErrNotFound
	}
	if room.HostIdentityID != caller {
		return domain.ErrUnauthorized
	}
	return nil
}

// Mute relays a mute signal to the target and announces it room-wide.
func (c *ModerationController) Mute(roomID domain.RoomID, caller domain.IdentityID, target domain.ConnectionID) error {
	return c.relayModeration(roomID, caller, target, protocol.EventMuteUser, protocol.EventUserMuted)
}

func (c *ModerationController) Unmute(roomID domain.RoomID, caller domain.IdentityID, target domain.ConnectionID) error {
	return c.relayModeration(roomID, caller, target, protocol.EventUnmuteUser, protocol.EventUserUnmuted)
}

func (c *ModerationController) relayModeration(roomID domain.RoomID, caller domain.IdentityID, target domain.ConnectionID, direct, notice protocol.EventType) error {
	if err := c.authorize(roomID, caller); err != nil {
		return err
	}
	m, ok := c.reg.MemberOf(roomID, target)
	if !ok {
		// Target raced out of the room; nothing to signal.
		return nil
	}
	sendJSON(m.Conn, protocol.Moderate{Type: direct, TargetID: target})
	ann := protocol.ModerationNotice{Type: notice, UserID: target, Forced: true}
	for _, member := range c.reg.Members(roomID) {
		sendJSON(member.Conn, ann)
	}
	return nil
}

// Kick removes the target from the room and bans its identity for the
// room's lifetime. Removal and ban insertion are atomic with respect to
// concurrent joins of the same identity. Kicking an absent target is a
// no-op for an authorized caller.
func (c *ModerationController) Kick(roomID domain.RoomID, caller domain.IdentityID, target domain.ConnectionID) error {
	if err := c.authorize(roomID, caller); err != nil {
		return err
	}
	m, ok := c.reg.RemoveAndBan(roomID, target)
	if !ok {
		return nil
	}
	sendJSON(m.Conn, protocol.Terminal{Type: protocol.EventKicked})
	log.Info().Str("module", "app.moderation").Str("room", string(roomID)).
		Str("conn", string(target)).Msg("kicked")

	gone := protocol.UserEvent{
		Type:        protocol.EventUserKicked,
		UserID:      m.Participant.ConnectionID,
		DisplayName: m.Participant.DisplayName,
		AvatarRef:   m.Participant.AvatarRef,
	}
	for _, member := range c.reg.Members(roomID) {
		sendJSON(member.Conn, gone)
	}
	c.presence.Broadcast(roomID)
	return nil
}
