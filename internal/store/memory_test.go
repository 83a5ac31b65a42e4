package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxhall/voxhall/internal/domain"
)

func record(id string, ttl time.Duration) RoomRecord {
	now := time.Now()
	return RoomRecord{
		ID:             domain.RoomID(id),
		Name:           "lounge",
		HostIdentityID: "host",
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}
}

func TestMemoryStoreCRUD(t *testing.T) {
	s := NewMemoryStore(time.Second)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, record("r1", time.Hour)))
	rec, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomName("lounge"), rec.Name)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.Delete(ctx, "r1"))
	_, err = s.Get(ctx, "r1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting twice is fine.
	require.NoError(t, s.Delete(ctx, "r1"))
}

func TestMemoryStoreExpiryCallback(t *testing.T) {
	s := NewMemoryStore(10 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var mu sync.Mutex
	expired := make(map[domain.RoomID]int)
	s.OnExpire(func(id domain.RoomID) {
		mu.Lock()
		expired[id]++
		mu.Unlock()
	})
	s.Start(ctx)

	require.NoError(t, s.Create(ctx, record("short", 30*time.Millisecond)))
	require.NoError(t, s.Create(ctx, record("long", time.Hour)))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return expired["short"] == 1
	}, time.Second, 10*time.Millisecond)

	_, err := s.Get(ctx, "short")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Get(ctx, "long")
	assert.NoError(t, err)

	mu.Lock()
	assert.Zero(t, expired["long"])
	mu.Unlock()
}
