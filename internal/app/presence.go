package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/voxhall/voxhall/internal/core"
	"github.com/voxhall/voxhall/internal/domain"
	"github.com/voxhall/voxhall/internal/protocol"
)

// PresenceBroadcaster pushes participant snapshots to a room's members:
// synchronously after every membership change, and on a periodic tick while
// the room is non-empty to heal any update lost in transit. Each ticker is
// tied 1:1 to its room's lifetime; an empty or closed room has no ticker.
type PresenceBroadcaster struct {
	reg      *core.Registry
	interval time.Duration

	mu      sync.Mutex
	cancels map[domain.RoomID]context.CancelFunc
}

func NewPresenceBroadcaster(reg *core.Registry, interval time.Duration) *PresenceBroadcaster {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &PresenceBroadcaster{
		reg:      reg,
		interval: interval,
		cancels:  make(map[domain.RoomID]context.CancelFunc),
	}
}

// Snapshot returns the room's participant list ordered by join time.
func (b *PresenceBroadcaster) Snapshot(roomID domain.RoomID) protocol.ParticipantsUpdate {
	parts := b.reg.Participants(roomID)
	if parts == nil {
		parts = []domain.Participant{}
	}
	return protocol.ParticipantsUpdate{
		Type:         protocol.EventParticipantsUpdate,
		Count:        len(parts),
		Participants: parts,
	}
}

// Broadcast pushes the current snapshot to every member and adjusts the
// periodic ticker to the room's occupancy.
func (b *PresenceBroadcaster) Broadcast(roomID domain.RoomID) {
	count := b.publish(roomID)
	if count > 0 {
		b.ensureTicker(roomID)
	} else {
		b.Stop(roomID)
	}
}

func (b *PresenceBroadcaster) publish(roomID domain.RoomID) int {
	snap := b.Snapshot(roomID)
	for _, m := range b.reg.Members(roomID) {
		sendJSON(m.Conn, snap)
	}
	return snap.Count
}

func (b *PresenceBroadcaster) ensureTicker(roomID domain.RoomID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.cancels[roomID]; ok {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.cancels[roomID] = cancel
	go b.run(ctx, roomID)
	log.Debug().Str("module", "app.presence").Str("room", string(roomID)).Msg("presence ticker started")
}

func (b *PresenceBroadcaster) run(ctx context.Context, roomID domain.RoomID) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !b.reg.RoomExists(roomID) || b.publish(roomID) == 0 {
				b.Stop(roomID)
				return
			}
		}
	}
}

// Stop cancels the room's ticker, if any. Called when the room empties and
// during teardown; the ticker never fires into a closing room.
func (b *PresenceBroadcaster) Stop(roomID domain.RoomID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cancel, ok := b.cancels[roomID]; ok {
		cancel()
		delete(b.cancels, roomID)
		log.Debug().Str("module", "app.presence").Str("room", string(roomID)).Msg("presence ticker stopped")
	}
}

// Shutdown cancels every ticker. Process exit path.
func (b *PresenceBroadcaster) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for roomID, cancel := range b.cancels {
		cancel()
		delete(b.cancels, roomID)
	}
}
