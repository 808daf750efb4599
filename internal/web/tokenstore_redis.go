package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "rashdrive:visitor:"

// redisClient is the subset of *redis.Client used by RedisStore.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps visitor tokens in Redis so they survive restarts and are
// shared between replicas.
type RedisStore struct {
	client redisClient
}

// NewRedisStore connects to addr.
func NewRedisStore(addr string) *RedisStore {
	return &RedisStore{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	c, ok := s.client.(*redis.Client)
	if !ok {
		return nil
	}
	return c.Ping(ctx).Err()
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	if c, ok := s.client.(*redis.Client); ok {
		return c.Close()
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (Tokens, bool, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Tokens{}, false, nil
	}
	if err != nil {
		return Tokens{}, false, fmt.Errorf("redis get: %w", err)
	}

	var t Tokens
	if err := json.Unmarshal(raw, &t); err != nil {
		return Tokens{}, false, fmt.Errorf("decode tokens: %w", err)
	}
	return t, true, nil
}

func (s *RedisStore) Save(ctx context.Context, id string, t Tokens, ttl time.Duration) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisKeyPrefix+id, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
