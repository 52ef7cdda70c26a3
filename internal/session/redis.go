package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kzxian1201/medical-tourism-planning-system/config"
	"github.com/kzxian1201/medical-tourism-planning-system/models"
)

// RedisStore persists sessions in Redis with a sliding TTL. Per-session
// serialization is in-process: the service runs as a single instance,
// so a keyed mutex is enough to order requests for one session id.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	locks  *keyedMutex
}

func NewRedisStore(cfg config.RedisConfig, ttl time.Duration) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Host + ":" + cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: rdb, ttl: ttl, locks: newKeyedMutex()}
}

func key(id string) string { return fmt.Sprintf("session:%s", id) }

func (s *RedisStore) Ensure(ctx context.Context, id string) (Record, bool, error) {
	if id != "" {
		rec, err := s.Get(ctx, id)
		if err == nil {
			_ = s.client.Expire(ctx, key(id), s.ttl).Err()
			return rec, false, nil
		}
		if err != ErrNotFound {
			return Record{}, false, err
		}
	} else {
		id = uuid.NewString()
	}

	now := time.Now()
	rec := Record{
		ID:        id,
		State:     models.NewSessionState(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Save(ctx, rec); err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Record, error) {
	val, err := s.client.Get(ctx, key(id)).Result()
	if err == redis.Nil {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("redis get: %w", err)
	}
	var rec Record
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return Record{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return rec, nil
}

func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	rec.UpdatedAt = time.Now()
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", rec.ID, err)
	}
	if err := s.client.Set(ctx, key(rec.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) WithLock(ctx context.Context, id string, fn func(ctx context.Context) error) error {
	return s.locks.withLock(id, func() error { return fn(ctx) })
}
