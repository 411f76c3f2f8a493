package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

const viewKeyPrefix = "site:view:"

// RedisViewCache stores rendered public views as JSON under site:view:<key>.
// It is shared by every server instance and by the invalidation worker.
type RedisViewCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisViewCache(rdb *redis.Client, ttl time.Duration) *RedisViewCache {
	return &RedisViewCache{rdb: rdb, ttl: ttl}
}

func (c *RedisViewCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.rdb.Get(ctx, viewKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		// A value written by an older build; treat it as a miss.
		return false, nil
	}
	return true, nil
}

func (c *RedisViewCache) Set(ctx context.Context, key string, val any) error {
	data, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, viewKeyPrefix+key, data, c.ttl).Err()
}

// DeletePrefix removes every view whose key starts with prefix.
func (c *RedisViewCache) DeletePrefix(ctx context.Context, prefix string) error {
	iter := c.rdb.Scan(ctx, 0, viewKeyPrefix+prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// MemoryViewCache is the in-process cache in front of Redis. Its TTL is kept
// short because invalidations from other processes never reach it.
type MemoryViewCache struct {
	c *cache.Cache
}

func NewMemoryViewCache(ttl time.Duration) *MemoryViewCache {
	return &MemoryViewCache{c: cache.New(ttl, 2*ttl)}
}

func (m *MemoryViewCache) Get(_ context.Context, key string, dst any) (bool, error) {
	raw, found := m.c.Get(key)
	if !found {
		return false, nil
	}
	data, ok := raw.([]byte)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, nil
	}
	return true, nil
}

func (m *MemoryViewCache) Set(_ context.Context, key string, val any) error {
	data, err := json.Marshal(val)
	if err != nil {
		return err
	}
	m.c.Set(key, data, cache.DefaultExpiration)
	return nil
}

func (m *MemoryViewCache) DeletePrefix(_ context.Context, prefix string) error {
	for key := range m.c.Items() {
		if strings.HasPrefix(key, prefix) {
			m.c.Delete(key)
		}
	}
	return nil
}

type viewCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, val any) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// LayeredViewCache reads the memory layer first and falls back to Redis.
// Redis errors degrade to a miss so the site keeps serving from the API.
type LayeredViewCache struct {
	memory viewCache
	shared viewCache
}

func NewLayeredViewCache(memory *MemoryViewCache, shared *RedisViewCache) *LayeredViewCache {
	l := &LayeredViewCache{memory: memory}
	if shared != nil {
		l.shared = shared
	}
	return l
}

func (l *LayeredViewCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if ok, _ := l.memory.Get(ctx, key, dst); ok {
		return true, nil
	}
	if l.shared == nil {
		return false, nil
	}
	ok, err := l.shared.Get(ctx, key, dst)
	if err != nil || !ok {
		return false, err
	}
	_ = l.memory.Set(ctx, key, dst)
	return true, nil
}

func (l *LayeredViewCache) Set(ctx context.Context, key string, val any) error {
	_ = l.memory.Set(ctx, key, val)
	if l.shared == nil {
		return nil
	}
	return l.shared.Set(ctx, key, val)
}

func (l *LayeredViewCache) DeletePrefix(ctx context.Context, prefix string) error {
	_ = l.memory.DeletePrefix(ctx, prefix)
	if l.shared == nil {
		return nil
	}
	return l.shared.DeletePrefix(ctx, prefix)
}
