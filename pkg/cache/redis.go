package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL keeps a snapshot around long enough to compare a few runs.
const DefaultTTL = 10 * time.Minute

// RedisStore 以 JSON 形式把快照写入 redis, key 为 pool:<address>:snapshot
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore parses a redis:// URL. A zero ttl means DefaultTTL.
func NewRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: redis.NewClient(opts), ttl: ttl}, nil
}

func (s *RedisStore) key(pool string) string {
	return fmt.Sprintf("pool:%s:snapshot", pool)
}

func (s *RedisStore) Put(ctx context.Context, snap PoolSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", snap.Pool, err)
	}
	if err := s.client.Set(ctx, s.key(snap.Pool), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("store snapshot %s: %w", snap.Pool, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, pool string) (PoolSnapshot, error) {
	payload, err := s.client.Get(ctx, s.key(pool)).Bytes()
	if errors.Is(err, redis.Nil) {
		return PoolSnapshot{}, fmt.Errorf("%w: %s", ErrNotFound, pool)
	}
	if err != nil {
		return PoolSnapshot{}, fmt.Errorf("load snapshot %s: %w", pool, err)
	}
	var snap PoolSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return PoolSnapshot{}, fmt.Errorf("decode snapshot %s: %w", pool, err)
	}
	return snap, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
