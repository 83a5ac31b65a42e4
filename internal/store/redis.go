package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/voxhall/voxhall/internal/domain"
)

const (
	roomKeyPrefix = "room:"
	roomIndexKey  = "rooms:index"
)

// RedisStore keeps room records as JSON values with a native TTL, plus a
// ZSET index scored by expiry time. Redis drops the value itself when the
// TTL elapses; the janitor watches the index to fire the expiry callback,
// since key eviction alone gives the application no signal.
type RedisStore struct {
	client   *redis.Client
	poll     time.Duration
	onExpire ExpiryFunc
}

func NewRedisStore(client *redis.Client, poll time.Duration) *RedisStore {
	if poll <= 0 {
		poll = 5 * time.Second
	}
	return &RedisStore{client: client, poll: poll}
}

func roomKey(id domain.RoomID) string { return roomKeyPrefix + string(id) }

func (s *RedisStore) Create(ctx context.Context, rec RoomRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal room record: %w", err)
	}
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("room %s already expired", rec.ID)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, roomKey(rec.ID), b, ttl)
	pipe.ZAdd(ctx, roomIndexKey, redis.Z{
		Score:  float64(rec.ExpiresAt.Unix()),
		Member: string(rec.ID),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store room %s: %w", rec.ID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id domain.RoomID) (RoomRecord, error) {
	b, err := s.client.Get(ctx, roomKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return RoomRecord{}, domain.ErrNotFound
	}
	if err != nil {
		return RoomRecord{}, fmt.Errorf("get room %s: %w", id, err)
	}
	var rec RoomRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return RoomRecord{}, fmt.Errorf("decode room %s: %w", id, err)
	}
	return rec, nil
}

func (s *RedisStore) List(ctx context.Context) ([]RoomRecord, error) {
	ids, err := s.client.ZRange(ctx, roomIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	out := make([]RoomRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Get(ctx, domain.RoomID(id))
		if errors.Is(err, domain.ErrNotFound) {
			// Value evicted by TTL ahead of the janitor; skip.
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, id domain.RoomID) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, roomKey(id))
	pipe.ZRem(ctx, roomIndexKey, string(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete room %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) OnExpire(fn ExpiryFunc) {
	s.onExpire = fn
}

func (s *RedisStore) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.poll)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.sweep(ctx, now)
			}
		}
	}()
}

func (s *RedisStore) sweep(ctx context.Context, now time.Time) {
	max := fmt.Sprintf("%d", now.Unix())
	ids, err := s.client.ZRangeByScore(ctx, roomIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: max,
	}).Result()
	if err != nil {
		log.Warn().Err(err).Str("module", "store.redis").Msg("expiry sweep failed")
		return
	}
	for _, id := range ids {
		if err := s.client.ZRem(ctx, roomIndexKey, id).Err(); err != nil {
			log.Warn().Err(err).Str("module", "store.redis").Str("room", id).Msg("index trim failed")
			continue
		}
		log.Info().Str("module", "store.redis").Str("room", id).Msg("room record expired")
		if s.onExpire != nil {
			s.onExpire(domain.RoomID(id))
		}
	}
}
