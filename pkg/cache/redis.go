package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	backendRedis = "redis"

	// DefaultRedisPrefix namespaces all keys written by RedisStorage.
	DefaultRedisPrefix = "offline"
)

// RedisStorage keeps generations in Redis.
//
// Layout:
//
//	{prefix}:caches        sorted set of generation names, scored by creation time
//	{prefix}:cache:{name}  hash of cache key -> JSON encoded Entry
type RedisStorage struct {
	redis  *redis.Client
	prefix string
}

// NewRedisStorage creates a RedisStorage with DefaultRedisPrefix.
func NewRedisStorage(redisClient *redis.Client) *RedisStorage {
	return NewRedisStorageWithPrefix(redisClient, DefaultRedisPrefix)
}

// NewRedisStorageWithPrefix creates a RedisStorage whose keys start with prefix.
func NewRedisStorageWithPrefix(redisClient *redis.Client, prefix string) *RedisStorage {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStorage{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *RedisStorage) indexKey() string {
	return s.prefix + ":caches"
}

func (s *RedisStorage) generationKey(name string) string {
	return s.prefix + ":cache:" + name
}

// Open implements Storage.
func (s *RedisStorage) Open(ctx context.Context, name string) (Cache, error) {
	if name == "" {
		return nil, fmt.Errorf("cache name cannot be empty")
	}

	member := redis.Z{Score: float64(time.Now().UnixMicro()), Member: name}
	if err := s.redis.ZAddNX(ctx, s.indexKey(), member).Err(); err != nil {
		CacheErrors.WithLabelValues(backendRedis, "open").Inc()
		return nil, fmt.Errorf("redis zadd: %w", err)
	}

	return &redisCache{storage: s, name: name}, nil
}

// Keys implements Storage.
func (s *RedisStorage) Keys(ctx context.Context) ([]string, error) {
	names, err := s.redis.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		CacheErrors.WithLabelValues(backendRedis, "keys").Inc()
		return nil, fmt.Errorf("redis zrange: %w", err)
	}
	return names, nil
}

// Delete implements Storage.
func (s *RedisStorage) Delete(ctx context.Context, name string) (bool, error) {
	var removed *redis.IntCmd
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.generationKey(name))
		removed = pipe.ZRem(ctx, s.indexKey(), name)
		return nil
	})
	if err != nil {
		CacheErrors.WithLabelValues(backendRedis, "delete").Inc()
		return false, fmt.Errorf("redis delete generation %s: %w", name, err)
	}
	return removed.Val() > 0, nil
}

// Match implements Storage.
func (s *RedisStorage) Match(ctx context.Context, key Key) (*Entry, error) {
	names, err := s.Keys(ctx)
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		entry, err := s.get(ctx, name, key)
		if errors.Is(err, ErrCacheMiss) {
			continue
		}
		if err != nil {
			return nil, err
		}
		CacheHits.WithLabelValues(backendRedis).Inc()
		return entry, nil
	}

	CacheMisses.WithLabelValues(backendRedis).Inc()
	return nil, ErrCacheMiss
}

func (s *RedisStorage) get(ctx context.Context, name string, key Key) (*Entry, error) {
	data, err := s.redis.HGet(ctx, s.generationKey(name), key.String()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues(backendRedis, "match").Inc()
		return nil, fmt.Errorf("redis hget: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues(backendRedis, "match").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return &entry, nil
}

type redisCache struct {
	storage *RedisStorage
	name    string
}

func (c *redisCache) Name() string {
	return c.name
}

func (c *redisCache) Match(ctx context.Context, key Key) (*Entry, error) {
	entry, err := c.storage.get(ctx, c.name, key)
	switch {
	case errors.Is(err, ErrCacheMiss):
		CacheMisses.WithLabelValues(backendRedis).Inc()
	case err == nil:
		CacheHits.WithLabelValues(backendRedis).Inc()
	}
	return entry, err
}

func (c *redisCache) Put(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}
	return c.PutAll(ctx, map[Key]*Entry{key: entry})
}

func (c *redisCache) PutAll(ctx context.Context, entries map[Key]*Entry) error {
	if len(entries) == 0 {
		return nil
	}

	fields := make(map[string]interface{}, len(entries))
	for key, entry := range entries {
		if entry == nil {
			return fmt.Errorf("cache entry for %s cannot be nil", key)
		}
		data, err := json.Marshal(entry)
		if err != nil {
			CacheErrors.WithLabelValues(backendRedis, "put").Inc()
			return fmt.Errorf("marshal cache entry: %w", err)
		}
		fields[key.String()] = data
	}

	// A single HSET is atomic.
	if err := c.storage.redis.HSet(ctx, c.storage.generationKey(c.name), fields).Err(); err != nil {
		CacheErrors.WithLabelValues(backendRedis, "put").Inc()
		return fmt.Errorf("redis hset: %w", err)
	}

	CacheWrites.WithLabelValues(backendRedis).Add(float64(len(entries)))
	return nil
}

func (c *redisCache) Keys(ctx context.Context) ([]Key, error) {
	fields, err := c.storage.redis.HKeys(ctx, c.storage.generationKey(c.name)).Result()
	if err != nil {
		CacheErrors.WithLabelValues(backendRedis, "keys").Inc()
		return nil, fmt.Errorf("redis hkeys: %w", err)
	}

	keys := make([]Key, len(fields))
	for i, f := range fields {
		keys[i] = Key(f)
	}
	return keys, nil
}
