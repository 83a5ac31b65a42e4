package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/voxhall/voxhall/internal/core"
	"github.com/voxhall/voxhall/internal/domain"
	"github.com/voxhall/voxhall/internal/protocol"
)

type sessionState int

const (
	stateUnjoined sessionState = iota
	stateJoined
	stateDone
)

// Session binds one transport connection to one authenticated identity and
// at most one room at a time. It is the only component that moves a
// connection between rooms; everything else addresses connections through
// the registry.
type Session struct {
	cid      domain.ConnectionID
	identity domain.UserIdentity
	conn     core.SignalConnection
	orch     *Orchestrator

	mu     sync.Mutex
	state  sessionState
	roomID domain.RoomID
}

func NewSession(cid domain.ConnectionID, identity domain.UserIdentity, conn core.SignalConnection, orch *Orchestrator) *Session {
	return &Session{
		cid:      cid,
		identity: identity,
		conn:     conn,
		orch:     orch,
	}
}

func (s *Session) ConnectionID() domain.ConnectionID { return s.cid }
func (s *Session) Identity() domain.UserIdentity     { return s.identity }

// RoomID reports the current membership, empty when unjoined.
func (s *Session) RoomID() domain.RoomID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

// Join registers this connection in a room. A join while already joined to
// a different room performs an implicit leave of the old room first.
// Display overrides apply only to anonymous identities; an authenticated
// identity presents its own display data.
func (s *Session) Join(ctx context.Context, roomID domain.RoomID, displayName, avatarRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateDone {
		return domain.ErrNotFound
	}
	if s.state == stateJoined && s.roomID != roomID {
		s.leaveLocked(ctx)
	}

	if _, ok := s.orch.Lifecycle.Room(roomID); !ok {
		return domain.ErrNotFound
	}

	p := domain.NewParticipant(s.cid, s.identity)
	if p.IsAnonymous && displayName != "" {
		// Display overrides never change who the server thinks this is.
		p.DisplayName = displayName
		p.AvatarRef = avatarRef
	}

	if err := s.orch.Registry.Join(roomID, core.Member{Participant: p, Conn: s.conn}); err != nil {
		return err
	}
	s.state = stateJoined
	s.roomID = roomID

	s.orch.Presence.Broadcast(roomID)
	s.orch.broadcastExcept(roomID, s.cid, protocol.UserEvent{
		Type:        protocol.EventUserJoined,
		UserID:      p.ConnectionID,
		DisplayName: p.DisplayName,
		AvatarRef:   p.AvatarRef,
	})
	log.Info().Str("module", "app.session").Str("conn", string(s.cid)).
		Str("room", string(roomID)).Msg("session joined room")
	return nil
}

// Leave exits the current room without dropping the connection.
func (s *Session) Leave(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateJoined {
		return
	}
	s.leaveLocked(ctx)
}

// Disconnect is the transport-detected terminal path. It may race an
// explicit leave or a kick; the registry treats the duplicate removal as a
// no-op and the session converges to a correct room state regardless.
func (s *Session) Disconnect(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateJoined {
		s.leaveLocked(ctx)
	}
	s.state = stateDone
}

// HostLeave is the explicit teardown command. Only the room's host may
// issue it; the lifecycle manager owns the rest.
func (s *Session) HostLeave(ctx context.Context, roomID domain.RoomID) error {
	if err := s.orch.Lifecycle.HostLeave(ctx, roomID, s.identity.ID); err != nil {
		return err
	}
	s.mu.Lock()
	if s.roomID == roomID {
		s.state = stateUnjoined
		s.roomID = ""
	}
	s.mu.Unlock()
	return nil
}

// leaveLocked departs the current room. If this identity hosts the room the
// whole room is torn down instead of a simple leave. Caller holds s.mu.
func (s *Session) leaveLocked(ctx context.Context) {
	roomID := s.roomID
	s.state = stateUnjoined
	s.roomID = ""

	if room, ok := s.orch.Lifecycle.Room(roomID); ok && room.HostIdentityID == s.identity.ID {
		if err := s.orch.Lifecycle.Close(ctx, roomID, ReasonHostLeft); err != nil {
			log.Debug().Err(err).Str("module", "app.session").Str("room", string(roomID)).
				Msg("host departure raced teardown")
		}
		return
	}

	p, ok := s.orch.Registry.Leave(roomID, s.cid)
	if !ok {
		// Already removed by a kick or teardown.
		return
	}
	s.orch.broadcastRoom(roomID, protocol.UserEvent{
		Type:        protocol.EventUserLeft,
		UserID:      p.ConnectionID,
		DisplayName: p.DisplayName,
		AvatarRef:   p.AvatarRef,
	})
	s.orch.Presence.Broadcast(roomID)
}
