package store

import (
	"context"
	"sync"
	"time"

	"github.com/voxhall/voxhall/internal/domain"
)

// MemoryStore keeps room records in process memory. Used in tests and in
// store-less single-node runs.
type MemoryStore struct {
	mu       sync.Mutex
	rooms    map[domain.RoomID]RoomRecord
	onExpire ExpiryFunc
	poll     time.Duration
}

func NewMemoryStore(poll time.Duration) *MemoryStore {
	if poll <= 0 {
		poll = time.Second
	}
	return &MemoryStore{
		rooms: make(map[domain.RoomID]RoomRecord),
		poll:  poll,
	}
}

func (s *MemoryStore) Create(_ context.Context, rec RoomRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[rec.ID] = rec
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id domain.RoomID) (RoomRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.rooms[id]
	if !ok {
		return RoomRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) List(_ context.Context) ([]RoomRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RoomRecord, 0, len(s.rooms))
	for _, rec := range s.rooms {
		out = append(out, rec)
	}
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id domain.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, id)
	return nil
}

func (s *MemoryStore) OnExpire(fn ExpiryFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExpire = fn
}

func (s *MemoryStore) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.poll)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.sweep(now)
			}
		}
	}()
}

func (s *MemoryStore) sweep(now time.Time) {
	s.mu.Lock()
	var expired []domain.RoomID
	for id, rec := range s.rooms {
		if !rec.ExpiresAt.IsZero() && rec.ExpiresAt.Before(now) {
			expired = append(expired, id)
			delete(s.rooms, id)
		}
	}
	fn := s.onExpire
	s.mu.Unlock()

	if fn == nil {
		return
	}
	for _, id := range expired {
		fn(id)
	}
}
