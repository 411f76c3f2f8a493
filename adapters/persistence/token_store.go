package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTokenStore keeps the bearer token of one console browser session.
// The key expires with the session cookie.
type RedisTokenStore struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

func NewRedisTokenStore(rdb *redis.Client, sessionID string, ttl time.Duration) *RedisTokenStore {
	return &RedisTokenStore{rdb: rdb, key: "console:session:" + sessionID + ":token", ttl: ttl}
}

func (s *RedisTokenStore) Load(ctx context.Context) (string, error) {
	tok, err := s.rdb.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return tok, err
}

func (s *RedisTokenStore) Save(ctx context.Context, token string) error {
	return s.rdb.Set(ctx, s.key, token, s.ttl).Err()
}

func (s *RedisTokenStore) Clear(ctx context.Context) error {
	return s.rdb.Del(ctx, s.key).Err()
}
