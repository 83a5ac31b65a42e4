package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxhall/voxhall/internal/core"
	"github.com/voxhall/voxhall/internal/domain"
	"github.com/voxhall/voxhall/internal/protocol"
)

func TestModerationRequiresHost(t *testing.T) {
	f := newFixture(t)
	room := f.createRoom(t, "lounge", identityOf("host", "Host"))
	f.joinDirect(t, room.ID, "c1", "host", "Host")
	f.joinDirect(t, room.ID, "c2", "u2", "Bob")

	err := f.moderation.Kick(room.ID, "u2", "c1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, 2, f.reg.MemberCount(room.ID))

	assert.ErrorIs(t, f.moderation.Mute(room.ID, "u2", "c1"), domain.ErrUnauthorized)
	assert.ErrorIs(t, f.moderation.Unmute(room.ID, "u2", "c1"), domain.ErrUnauthorized)
}

func TestModerationUnknownRoom(t *testing.T) {
	f := newFixture(t)
	err := f.moderation.Kick("ghost-room", "host", "c1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMuteRelaysToTargetAndNotifiesRoom(t *testing.T) {
	f := newFixture(t)
	room := f.createRoom(t, "lounge", identityOf("host", "Host"))
	hostConn := f.joinDirect(t, room.ID, "c1", "host", "Host")
	target := f.joinDirect(t, room.ID, "c2", "u2", "Bob")

	require.NoError(t, f.moderation.Mute(room.ID, "host", "c2"))

	var direct protocol.Moderate
	require.True(t, target.lastOfType(protocol.EventMuteUser, &direct))
	assert.Equal(t, domain.ConnectionID("c2"), direct.TargetID)

	var notice protocol.ModerationNotice
	require.True(t, hostConn.lastOfType(protocol.EventUserMuted, &notice))
	assert.Equal(t, domain.ConnectionID("c2"), notice.UserID)
	assert.True(t, notice.Forced)

	// No server-side mute state: membership is untouched.
	assert.Equal(t, 2, f.reg.MemberCount(room.ID))

	require.NoError(t, f.moderation.Unmute(room.ID, "host", "c2"))
	require.True(t, target.lastOfType(protocol.EventUnmuteUser, &direct))
}

func TestMuteAbsentTargetIsNoop(t *testing.T) {
	f := newFixture(t)
	room := f.createRoom(t, "lounge", identityOf("host", "Host"))
	f.joinDirect(t, room.ID, "c1", "host", "Host")
	require.NoError(t, f.moderation.Mute(room.ID, "host", "gone"))
}

func TestKickRemovesBansAndBroadcasts(t *testing.T) {
	f := newFixture(t)
	room := f.createRoom(t, "lounge", identityOf("host", "Host"))
	hostConn := f.joinDirect(t, room.ID, "c1", "host", "Host")
	target := f.joinDirect(t, room.ID, "c2", "u2", "Bob")

	require.NoError(t, f.moderation.Kick(room.ID, "host", "c2"))

	assert.Equal(t, 1, target.countOfType(protocol.EventKicked))
	assert.True(t, f.reg.IsBanned(room.ID, "u2"))
	assert.Equal(t, 1, f.reg.MemberCount(room.ID))

	var gone protocol.UserEvent
	require.True(t, hostConn.lastOfType(protocol.EventUserKicked, &gone))
	assert.Equal(t, domain.ConnectionID("c2"), gone.UserID)

	var upd protocol.ParticipantsUpdate
	require.True(t, hostConn.lastOfType(protocol.EventParticipantsUpdate, &upd))
	assert.Equal(t, 1, upd.Count)

	// The banned identity cannot return on a new connection.
	err := f.reg.Join(room.ID, core.Member{
		Participant: domain.Participant{
			ConnectionID: "c3",
			IdentityID:   "u2",
			DisplayName:  "Bob",
		},
		Conn: &fakeConn{},
	})
	assert.ErrorIs(t, err, domain.ErrBanned)
}

func TestKickAbsentTargetNoopForHost(t *testing.T) {
	f := newFixture(t)
	room := f.createRoom(t, "lounge", identityOf("host", "Host"))
	f.joinDirect(t, room.ID, "c1", "host", "Host")
	require.NoError(t, f.moderation.Kick(room.ID, "host", "gone"))
	assert.False(t, f.reg.IsBanned(room.ID, "gone"))
}
