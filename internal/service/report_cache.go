package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by ReportCache.Get for absent or expired keys.
var ErrCacheMiss = errors.New("report cache miss")

// ReportCache stores rendered reports until the next payment or project change.
type ReportCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Invalidate drops every cached report.
	Invalidate(ctx context.Context) error
}

const reportVersionKey = "paytrack:reports:version"

// RedisReportCache namespaces report keys under a version counter;
// Invalidate bumps the counter so older entries are never read again and
// expire through their TTL.
type RedisReportCache struct {
	rdb *redis.Client
}

func NewRedisReportCache(rdb *redis.Client) *RedisReportCache {
	return &RedisReportCache{rdb: rdb}
}

func (c *RedisReportCache) key(ctx context.Context, name string) (string, error) {
	version, err := c.rdb.Get(ctx, reportVersionKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return fmt.Sprintf("paytrack:reports:%d:%s", version, name), nil
}

func (c *RedisReportCache) Get(ctx context.Context, name string) ([]byte, error) {
	key, err := c.key(ctx, name)
	if err != nil {
		return nil, err
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return data, err
}

func (c *RedisReportCache) Set(ctx context.Context, name string, value []byte, ttl time.Duration) error {
	key, err := c.key(ctx, name)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *RedisReportCache) Invalidate(ctx context.Context) error {
	return c.rdb.Incr(ctx, reportVersionKey).Err()
}

// MemoryReportCache is a process-local ReportCache.
type MemoryReportCache struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

func NewMemoryReportCache() *MemoryReportCache {
	return &MemoryReportCache{now: time.Now, entries: make(map[string]memoryEntry)}
}

func (c *MemoryReportCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || (!e.expires.IsZero() && !c.now().Before(e.expires)) {
		return nil, ErrCacheMiss
	}
	return e.value, nil
}

func (c *MemoryReportCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.entries[key] = e
	return nil
}

func (c *MemoryReportCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	return nil
}
