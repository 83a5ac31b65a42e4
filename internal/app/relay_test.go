package app

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxhall/voxhall/internal/domain"
	"github.com/voxhall/voxhall/internal/protocol"
)

func TestForwardDirected(t *testing.T) {
	f := newFixture(t)
	a := f.joinDirect(t, "r1", "ca", "u1", "Alice")
	b := f.joinDirect(t, "r1", "cb", "u2", "Bob")

	payload := json.RawMessage(`{"sdp":"v=0 fake offer"}`)
	f.relay.Forward(protocol.EventOffer, "ca", "cb", payload)

	var fwd protocol.SignalForward
	require.True(t, b.lastOfType(protocol.EventOffer, &fwd))
	assert.Equal(t, domain.ConnectionID("ca"), fwd.UserID)
	assert.JSONEq(t, string(payload), string(fwd.Payload))
	assert.Zero(t, a.countOfType(protocol.EventOffer))
}

func TestForwardAbsentTargetSilentlyDropped(t *testing.T) {
	f := newFixture(t)
	f.joinDirect(t, "r1", "ca", "u1", "Alice")
	// No error surfaces, nothing panics, nothing is queued anywhere.
	f.relay.Forward(protocol.EventICECandidate, "ca", "ghost", json.RawMessage(`{}`))
}

func TestForwardOrderPreservedPerPair(t *testing.T) {
	f := newFixture(t)
	f.joinDirect(t, "r1", "ca", "u1", "Alice")
	b := f.joinDirect(t, "r1", "cb", "u2", "Bob")

	for i := 0; i < 5; i++ {
		payload := json.RawMessage(fmt.Sprintf(`{"candidate":"cand-%d"}`, i))
		f.relay.Forward(protocol.EventICECandidate, "ca", "cb", payload)
	}

	got := framesOfType[protocol.SignalForward](b, protocol.EventICECandidate)
	require.Len(t, got, 5)
	for i, fwd := range got {
		assert.JSONEq(t, fmt.Sprintf(`{"candidate":"cand-%d"}`, i), string(fwd.Payload))
	}
}

func TestForwardDoesNotValidateRoomMates(t *testing.T) {
	f := newFixture(t)
	f.joinDirect(t, "r1", "ca", "u1", "Alice")
	b := f.joinDirect(t, "r2", "cb", "u2", "Bob")

	// Pure directed forward: cross-room targets are still delivered.
	f.relay.Forward(protocol.EventAnswer, "ca", "cb", json.RawMessage(`{"sdp":"x"}`))
	assert.Equal(t, 1, b.countOfType(protocol.EventAnswer))
}

func TestChatBroadcastsExceptSenderWithTimestamp(t *testing.T) {
	f := newFixture(t)
	a := f.joinDirect(t, "r1", "ca", "u1", "Alice")
	b := f.joinDirect(t, "r1", "cb", "u2", "Bob")
	c := f.joinDirect(t, "r1", "cc", "u3", "Carol")

	sender := domain.Participant{
		ConnectionID: "ca",
		IdentityID:   "u1",
		DisplayName:  "Alice",
	}
	f.relay.Chat("r1", sender, "hello room")

	for _, conn := range []*fakeConn{b, c} {
		var msg protocol.ReceiveMessage
		require.True(t, conn.lastOfType(protocol.EventReceiveMessage, &msg))
		assert.Equal(t, "hello room", msg.Message)
		assert.Equal(t, "Alice", msg.SenderName)
		assert.Equal(t, domain.ConnectionID("ca"), msg.UserID)
		assert.NotZero(t, msg.Timestamp)
	}
	assert.Zero(t, a.countOfType(protocol.EventReceiveMessage))
}
