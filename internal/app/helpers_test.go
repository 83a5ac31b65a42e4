package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/voxhall/voxhall/internal/core"
	"github.com/voxhall/voxhall/internal/domain"
	"github.com/voxhall/voxhall/internal/protocol"
	"github.com/voxhall/voxhall/internal/store"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("connection closed")
	}
	cp := make(core.Frame, len(f))
	copy(cp, f)
	c.frames = append(c.frames, cp)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

func (c *fakeConn) countOfType(et protocol.EventType) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, f := range c.frames {
		var env protocol.Envelope
		if json.Unmarshal(f, &env) == nil && env.Type == et {
			n++
		}
	}
	return n
}

// lastOfType decodes the most recent frame of the given type into out.
func (c *fakeConn) lastOfType(et protocol.EventType, out any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.frames) - 1; i >= 0; i-- {
		var env protocol.Envelope
		if json.Unmarshal(c.frames[i], &env) == nil && env.Type == et {
			return json.Unmarshal(c.frames[i], out) == nil
		}
	}
	return false
}

// framesOfType decodes every frame of the given type, oldest first.
func framesOfType[T any](c *fakeConn, et protocol.EventType) []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []T
	for _, f := range c.frames {
		var env protocol.Envelope
		if json.Unmarshal(f, &env) != nil || env.Type != et {
			continue
		}
		var v T
		if json.Unmarshal(f, &v) == nil {
			out = append(out, v)
		}
	}
	return out
}

type fixture struct {
	reg        *core.Registry
	presence   *PresenceBroadcaster
	relay      *SignalingRelay
	lifecycle  *RoomLifecycleManager
	moderation *ModerationController
	orch       *Orchestrator
	store      *store.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := core.NewRegistry()
	presence := NewPresenceBroadcaster(reg, 25*time.Millisecond)
	st := store.NewMemoryStore(10 * time.Millisecond)
	lifecycle := NewRoomLifecycleManager(st, reg, presence, time.Hour)
	f := &fixture{
		reg:        reg,
		presence:   presence,
		relay:      NewSignalingRelay(reg),
		lifecycle:  lifecycle,
		moderation: NewModerationController(reg, presence, lifecycle),
		store:      st,
	}
	f.orch = &Orchestrator{
		Registry:   reg,
		Presence:   presence,
		Relay:      f.relay,
		Moderation: f.moderation,
		Lifecycle:  lifecycle,
	}
	t.Cleanup(presence.Shutdown)
	return f
}

func identityOf(id, name string) domain.UserIdentity {
	return domain.UserIdentity{ID: domain.IdentityID(id), DisplayName: name}
}

func (f *fixture) createRoom(t *testing.T, name string, host domain.UserIdentity) *domain.Room {
	t.Helper()
	room, err := f.lifecycle.Create(context.Background(), CreateRoomSpec{
		Name: domain.RoomName(name),
		Host: host,
	})
	require.NoError(t, err)
	return room
}

func (f *fixture) newSession(cid string, who domain.UserIdentity) (*Session, *fakeConn) {
	conn := &fakeConn{}
	return NewSession(domain.ConnectionID(cid), who, conn, f.orch), conn
}

func (f *fixture) joinDirect(t *testing.T, roomID domain.RoomID, cid, identity, name string) *fakeConn {
	t.Helper()
	conn := &fakeConn{}
	f.reg.Activate(roomID)
	err := f.reg.Join(roomID, core.Member{
		Participant: domain.Participant{
			ConnectionID: domain.ConnectionID(cid),
			IdentityID:   domain.IdentityID(identity),
			DisplayName:  name,
		},
		Conn: conn,
	})
	require.NoError(t, err)
	return conn
}
