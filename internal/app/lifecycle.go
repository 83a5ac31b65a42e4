package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/voxhall/voxhall/internal/core"
	"github.com/voxhall/voxhall/internal/domain"
	"github.com/voxhall/voxhall/internal/protocol"
	"github.com/voxhall/voxhall/internal/store"
)

const (
	ReasonHostLeft = "Host has left the room"
	ReasonExpired  = "Room expired"
	ReasonDeleted  = "Room deleted"
)

// RoomLifecycleManager owns room creation and teardown. Per room the state
// machine is Active -> Closing -> Closed: removal from the live map stops
// host-side operations, the registry close stops joins, then members are
// notified and disconnected, then the room id is forgotten.
type RoomLifecycleManager struct {
	store    store.RoomStore
	reg      *core.Registry
	presence *PresenceBroadcaster
	ttl      time.Duration

	mu    sync.RWMutex
	rooms map[domain.RoomID]*domain.Room
}

func NewRoomLifecycleManager(st store.RoomStore, reg *core.Registry, presence *PresenceBroadcaster, ttl time.Duration) *RoomLifecycleManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RoomLifecycleManager{
		store:    st,
		reg:      reg,
		presence: presence,
		ttl:      ttl,
		rooms:    make(map[domain.RoomID]*domain.Room),
	}
}

// CreateRoomSpec is the host's room request.
type CreateRoomSpec struct {
	Name      domain.RoomName
	Host      domain.UserIdentity
	RoomType  string
	Thumbnail string
	Theme     string
}

// Create writes the durable record and activates the room.
func (m *RoomLifecycleManager) Create(ctx context.Context, spec CreateRoomSpec) (*domain.Room, error) {
	now := time.Now()
	room := &domain.Room{
		ID:             domain.RoomID(uuid.NewString()),
		Name:           spec.Name,
		HostIdentityID: spec.Host.ID,
		RoomType:       spec.RoomType,
		Thumbnail:      spec.Thumbnail,
		Theme:          spec.Theme,
		CreatedAt:      now,
		ExpiresAt:      now.Add(m.ttl),
	}
	rec := store.RoomRecord{
		ID:             room.ID,
		Name:           room.Name,
		HostIdentityID: room.HostIdentityID,
		RoomType:       room.RoomType,
		Thumbnail:      room.Thumbnail,
		Theme:          room.Theme,
		CreatedAt:      room.CreatedAt,
		ExpiresAt:      room.ExpiresAt,
	}
	if err := m.store.Create(ctx, rec); err != nil {
		return nil, err
	}
	// Activate registry state before the room becomes visible, so a join
	// observing the lifecycle entry always finds the membership map.
	m.reg.Activate(room.ID)
	m.mu.Lock()
	m.rooms[room.ID] = room
	m.mu.Unlock()
	log.Info().Str("module", "app.lifecycle").Str("room", string(room.ID)).
		Str("host", string(room.HostIdentityID)).Time("expires", room.ExpiresAt).
		Msg("room created")
	return room, nil
}

// Room returns the live room metadata, if the room is Active.
func (m *RoomLifecycleManager) Room(roomID domain.RoomID) (*domain.Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[roomID]
	return room, ok
}

// HostLeave tears the room down on behalf of its host. Unknown rooms are an
// error to this explicit host-targeted call; the teardown itself is
// idempotent, a second invocation finds nothing and has no side effects.
func (m *RoomLifecycleManager) HostLeave(ctx context.Context, roomID domain.RoomID, caller domain.IdentityID) error {
	m.mu.RLock()
	room, ok := m.rooms[roomID]
	m.mu.RUnlock()
	if !ok {
		return domain.ErrNotFound
	}
	if room.HostIdentityID != caller {
		return domain.ErrUnauthorized
	}
	return m.Close(ctx, roomID, ReasonHostLeft)
}

// HandleExpiry is the store's TTL side channel. Expiry of an unknown room
// is benign.
func (m *RoomLifecycleManager) HandleExpiry(roomID domain.RoomID) {
	if err := m.Close(context.Background(), roomID, ReasonExpired); err != nil {
		log.Debug().Err(err).Str("module", "app.lifecycle").Str("room", string(roomID)).
			Msg("expiry for inactive room")
	}
}

// Close runs the Closing phase: stop joins, delete the durable record,
// notify members, release every transport connection, forget the room.
// A failed store delete is logged and does not block in-memory teardown;
// the in-memory close is the authoritative exclusion signal and the store
// reconciles via TTL.
func (m *RoomLifecycleManager) Close(ctx context.Context, roomID domain.RoomID, reason string) error {
	m.mu.Lock()
	_, ok := m.rooms[roomID]
	if !ok {
		m.mu.Unlock()
		return domain.ErrNotFound
	}
	delete(m.rooms, roomID)
	m.mu.Unlock()

	members := m.reg.BeginClose(roomID)
	m.presence.Stop(roomID)

	if err := m.store.Delete(ctx, roomID); err != nil {
		log.Warn().Err(err).Str("module", "app.lifecycle").Str("room", string(roomID)).
			Msg("store delete failed, proceeding with in-memory teardown")
	}

	closed := protocol.Terminal{Type: protocol.EventRoomClosed, Reason: reason}
	for _, member := range members {
		sendJSON(member.Conn, closed)
		member.Conn.Close()
	}
	m.reg.Forget(roomID)

	log.Info().Str("module", "app.lifecycle").Str("room", string(roomID)).
		Int("members", len(members)).Str("reason", reason).Msg("room closed")
	return nil
}

// List pairs durable records with live member counts.
type RoomListing struct {
	store.RoomRecord
	UserCount int `json:"userCount"`
}

func (m *RoomLifecycleManager) List(ctx context.Context) ([]RoomListing, error) {
	recs, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RoomListing, 0, len(recs))
	for _, rec := range recs {
		out = append(out, RoomListing{
			RoomRecord: rec,
			UserCount:  m.reg.MemberCount(rec.ID),
		})
	}
	return out, nil
}

// Restore re-activates rooms found in the store at startup, so a restart
// does not orphan durable records until their TTL.
func (m *RoomLifecycleManager) Restore(ctx context.Context) error {
	recs, err := m.store.List(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range recs {
		m.reg.Activate(rec.ID)
		m.rooms[rec.ID] = &domain.Room{
			ID:             rec.ID,
			Name:           rec.Name,
			HostIdentityID: rec.HostIdentityID,
			RoomType:       rec.RoomType,
			Thumbnail:      rec.Thumbnail,
			Theme:          rec.Theme,
			CreatedAt:      rec.CreatedAt,
			ExpiresAt:      rec.ExpiresAt,
		}
	}
	log.Info().Str("module", "app.lifecycle").Int("rooms", len(recs)).Msg("rooms restored from store")
	return nil
}
