package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/eden-hr/casetracker/internal/record/domain"
)

// Cache holds autocomplete results. Entries are keyed by a per-kind generation;
// bumping the generation makes every older entry of that kind unreachable.
type Cache interface {
	Generation(ctx context.Context, kind domain.Kind) (int64, error)
	Bump(ctx context.Context, kind domain.Kind) error
	Get(ctx context.Context, key string) ([]domain.Suggestion, bool, error)
	Set(ctx context.Context, key string, results []domain.Suggestion) error
}

// cacheKey builds lookup:{gen}:{kind}:{limit}:{q}.
func cacheKey(gen int64, kind domain.Kind, limit int, q string) string {
	return fmt.Sprintf("lookup:%d:%s:%d:%s", gen, kind, limit, strings.ToLower(q))
}

// RedisCache keeps results in Redis with a TTL.
type RedisCache struct {
	rdb *goredis.Client
	ttl time.Duration
}

// NewRedisCache connects to Redis and checks the connection.
func NewRedisCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisCache{rdb: rdb, ttl: ttl}, nil
}

func generationKey(kind domain.Kind) string {
	return "lookup:gen:" + string(kind)
}

func (c *RedisCache) Generation(ctx context.Context, kind domain.Kind) (int64, error) {
	gen, err := c.rdb.Get(ctx, generationKey(kind)).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisCache) Bump(ctx context.Context, kind domain.Kind) error {
	return c.rdb.Incr(ctx, generationKey(kind)).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]domain.Suggestion, bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var results []domain.Suggestion
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, false, fmt.Errorf("corrupt cache entry %s: %w", key, err)
	}
	return results, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, results []domain.Suggestion) error {
	raw, err := json.Marshal(results)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, c.ttl).Err()
}

// Health pings Redis.
func (c *RedisCache) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

// MemoryCache is an in-process Cache with the same TTL semantics.
type MemoryCache struct {
	mu          sync.Mutex
	ttl         time.Duration
	now         func() time.Time
	generations map[domain.Kind]int64
	entries     map[string]memoryEntry
}

type memoryEntry struct {
	results []domain.Suggestion
	expires time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:         ttl,
		now:         time.Now,
		generations: make(map[domain.Kind]int64),
		entries:     make(map[string]memoryEntry),
	}
}

func (c *MemoryCache) Generation(_ context.Context, kind domain.Kind) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[kind], nil
}

// Bump also drops the kind's entries; Redis leaves them to expire.
func (c *MemoryCache) Bump(_ context.Context, kind domain.Kind) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[kind]++
	prefix := fmt.Sprintf(":%s:", kind)
	for key := range c.entries {
		if strings.Contains(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]domain.Suggestion, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if c.now().After(e.expires) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return append([]domain.Suggestion(nil), e.results...), true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, results []domain.Suggestion) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{
		results: append([]domain.Suggestion(nil), results...),
		expires: c.now().Add(c.ttl),
	}
	return nil
}
