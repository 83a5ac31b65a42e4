package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/voxhall/voxhall/internal/domain"
)

// roomState is the membership record of one live room. Every mutation of
// one room goes through its own mutex, so a join racing a kick of the same
// connection is serialized; distinct rooms never contend.
type roomState struct {
	mu      sync.Mutex
	byConn  map[domain.ConnectionID]Member
	order   []domain.ConnectionID // join order, for snapshots
	bans    *BanList
	closing bool
}

// Registry holds per-room participant sets plus a global connection index.
// It owns no transport resources; adapters close connections.
//
// Lock order: a room's mutex may be held while taking the registry mutex,
// never the other way around.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*roomState
	homes map[domain.ConnectionID]domain.RoomID
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[domain.RoomID]*roomState),
		homes: make(map[domain.ConnectionID]domain.RoomID),
	}
}

func (r *Registry) state(roomID domain.RoomID) (*roomState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.rooms[roomID]
	return st, ok
}

// Activate creates empty membership state for a room. Only the lifecycle
// manager activates rooms; Join never creates state on its own, so a join
// racing a completed teardown cannot resurrect the room id. Idempotent.
func (r *Registry) Activate(roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[roomID]; !ok {
		r.rooms[roomID] = &roomState{
			byConn: make(map[domain.ConnectionID]Member),
			bans:   NewBanList(),
		}
	}
}

func (r *Registry) setHome(cid domain.ConnectionID, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.homes[cid] = roomID
}

func (r *Registry) clearHome(cid domain.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.homes, cid)
}

// Join registers a participant. A prior entry under the same connection id
// is replaced in place, keeping its position in join order. Rejects joins
// into rooms that were never activated or are already forgotten, joins into
// closing rooms, and joins by banned identities.
func (r *Registry) Join(roomID domain.RoomID, m Member) error {
	cid := m.Participant.ConnectionID
	st, ok := r.state(roomID)
	if !ok {
		return domain.ErrNotFound
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closing {
		return domain.ErrRoomClosed
	}
	if st.bans.IsBanned(m.Participant.IdentityID) {
		return domain.ErrBanned
	}
	if _, replaced := st.byConn[cid]; !replaced {
		st.order = append(st.order, cid)
	}
	st.byConn[cid] = m
	r.setHome(cid, roomID)
	log.Info().Str("module", "core.registry").Str("room", string(roomID)).
		Str("conn", string(cid)).Str("identity", string(m.Participant.IdentityID)).
		Msg("participant joined")
	return nil
}

// Leave removes a connection from a room. Unknown (room, connection) pairs
// are a no-op: disconnects race explicit leaves by design.
func (r *Registry) Leave(roomID domain.RoomID, cid domain.ConnectionID) (domain.Participant, bool) {
	st, ok := r.state(roomID)
	if !ok {
		return domain.Participant{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	m, ok := st.byConn[cid]
	if !ok {
		return domain.Participant{}, false
	}
	delete(st.byConn, cid)
	st.dropOrder(cid)
	r.clearHome(cid)
	log.Info().Str("module", "core.registry").Str("room", string(roomID)).
		Str("conn", string(cid)).Msg("participant left")
	return m.Participant, true
}

// RemoveAndBan is the kick primitive: removal from membership and insertion
// of the identity into the ban set happen under one critical section, so a
// concurrent rejoin of the same identity cannot interleave.
func (r *Registry) RemoveAndBan(roomID domain.RoomID, cid domain.ConnectionID) (Member, bool) {
	st, ok := r.state(roomID)
	if !ok {
		return Member{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	m, ok := st.byConn[cid]
	if !ok {
		return Member{}, false
	}
	delete(st.byConn, cid)
	st.dropOrder(cid)
	st.bans.Ban(m.Participant.IdentityID)
	r.clearHome(cid)
	log.Info().Str("module", "core.registry").Str("room", string(roomID)).
		Str("conn", string(cid)).Str("identity", string(m.Participant.IdentityID)).
		Msg("participant kicked and banned")
	return m, true
}

func (r *Registry) IsBanned(roomID domain.RoomID, id domain.IdentityID) bool {
	st, ok := r.state(roomID)
	if !ok {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.bans.IsBanned(id)
}

// Participants returns the room's members ordered by join time.
func (r *Registry) Participants(roomID domain.RoomID) []domain.Participant {
	st, ok := r.state(roomID)
	if !ok {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]domain.Participant, 0, len(st.byConn))
	for _, cid := range st.order {
		if m, ok := st.byConn[cid]; ok {
			out = append(out, m.Participant)
		}
	}
	return out
}

// Members returns membership snapshots in join order, for fan-out.
func (r *Registry) Members(roomID domain.RoomID) []Member {
	st, ok := r.state(roomID)
	if !ok {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]Member, 0, len(st.byConn))
	for _, cid := range st.order {
		if m, ok := st.byConn[cid]; ok {
			out = append(out, m)
		}
	}
	return out
}

func (r *Registry) MemberCount(roomID domain.RoomID) int {
	st, ok := r.state(roomID)
	if !ok {
		return 0
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.byConn)
}

func (r *Registry) RoomExists(roomID domain.RoomID) bool {
	_, ok := r.state(roomID)
	return ok
}

// MemberOf looks up one member of a room.
func (r *Registry) MemberOf(roomID domain.RoomID, cid domain.ConnectionID) (Member, bool) {
	st, ok := r.state(roomID)
	if !ok {
		return Member{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	m, ok := st.byConn[cid]
	return m, ok
}

// ConnOf resolves a connection id anywhere in the registry. Used by the
// directed relay, which addresses targets without naming a room.
func (r *Registry) ConnOf(cid domain.ConnectionID) (Member, domain.RoomID, bool) {
	r.mu.RLock()
	roomID, ok := r.homes[cid]
	r.mu.RUnlock()
	if !ok {
		return Member{}, "", false
	}
	m, ok := r.MemberOf(roomID, cid)
	return m, roomID, ok
}

// RoomOf reports which room a connection currently occupies, upholding the
// at-most-one-room invariant for sessions.
func (r *Registry) RoomOf(cid domain.ConnectionID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roomID, ok := r.homes[cid]
	return roomID, ok
}

// BeginClose flips the room to closing, refusing further joins, and drains
// its membership. Idempotent: a second call finds nothing to drain.
func (r *Registry) BeginClose(roomID domain.RoomID) []Member {
	st, ok := r.state(roomID)
	if !ok {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.closing = true
	out := make([]Member, 0, len(st.byConn))
	for _, cid := range st.order {
		if m, ok := st.byConn[cid]; ok {
			out = append(out, m)
		}
		r.clearHome(cid)
	}
	st.byConn = make(map[domain.ConnectionID]Member)
	st.order = nil
	log.Info().Str("module", "core.registry").Str("room", string(roomID)).
		Int("drained", len(out)).Msg("room closing")
	return out
}

// Forget drops the room id entirely; lookups afterwards report "does not
// exist". Call only after BeginClose and member disconnection.
func (r *Registry) Forget(roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, roomID)
	log.Info().Str("module", "core.registry").Str("room", string(roomID)).Msg("room forgotten")
}

// dropOrder removes cid from the join-order slice. Caller holds st.mu.
func (st *roomState) dropOrder(cid domain.ConnectionID) {
	for i, c := range st.order {
		if c == cid {
			st.order = append(st.order[:i], st.order[i+1:]...)
			return
		}
	}
}
