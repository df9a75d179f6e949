// Package reportcache keeps fetched wallet reports warm so repeated lookups
// of the same address do not re-run the upstream Dune query. Redis backs the
// cache when configured; otherwise an in-process map with the same TTL
// semantics takes over.
package reportcache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/seamom/ogdrop/internal/infrastructure/dune"
)

const keyPrefix = "ogdrop:report:"

// DefaultTTL bounds how stale a cached wallet report may get.
const DefaultTTL = 15 * time.Minute

// Options configures the cache backend.
type Options struct {
	Addr string
	DB   int
	TLS  bool
	TTL  time.Duration
}

// Stats counts cache traffic since startup.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Stores int64 `json:"stores"`
	Local  bool  `json:"local"`
}

type memoryEntry struct {
	report    *dune.WalletReport
	expiresAt time.Time
}

// Cache is a TTL cache for wallet reports. Lookups never fail: a backend
// error degrades to a miss so the dashboard falls through to a fresh fetch.
type Cache struct {
	client *redis.Client
	ttl    time.Duration

	mu     sync.Mutex
	local  map[string]memoryEntry
	hits   int64
	misses int64
	stores int64
}

// New connects to Redis and verifies the connection before returning.
func New(opts Options) (*Cache, error) {
	options := &redis.Options{
		Addr:               opts.Addr,
		DB:                 opts.DB,
		PoolSize:           10,
		DialTimeout:        5 * time.Second,
		ReadTimeout:        3 * time.Second,
		WriteTimeout:       3 * time.Second,
		PoolTimeout:        4 * time.Second,
		IdleTimeout:        5 * time.Minute,
		IdleCheckFrequency: time.Minute,
	}
	if opts.TLS {
		options.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &Cache{client: client, ttl: normalizeTTL(opts.TTL)}, nil
}

// NewMemory builds an in-process cache with the same TTL semantics.
func NewMemory(ttl time.Duration) *Cache {
	return &Cache{
		ttl:   normalizeTTL(ttl),
		local: make(map[string]memoryEntry),
	}
}

// Open returns a Redis-backed cache when an address is configured and
// reachable, and falls back to the in-process cache otherwise.
func Open(opts Options) *Cache {
	if opts.Addr == "" {
		log.Info().Msg("Report cache running in-process (no Redis configured)")
		return NewMemory(opts.TTL)
	}
	cache, err := New(opts)
	if err != nil {
		log.Warn().Err(err).Str("addr", opts.Addr).
			Msg("Redis unavailable, report cache running in-process")
		return NewMemory(opts.TTL)
	}
	log.Info().Str("addr", opts.Addr).Dur("ttl", cache.ttl).
		Msg("Report cache connected to Redis")
	return cache
}

func normalizeTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}

// Key maps a wallet address to its cache key. Addresses are case-insensitive
// on chain, so the key is always lowercased.
func Key(address string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(address))
}

// Get returns the cached report for an address, if a fresh one exists.
func (c *Cache) Get(ctx context.Context, address string) (*dune.WalletReport, bool) {
	key := Key(address)

	if c.client == nil {
		return c.getLocal(key)
	}

	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("key", key).Msg("Report cache read failed")
		}
		c.count(&c.misses)
		return nil, false
	}

	var report dune.WalletReport
	if err := json.Unmarshal([]byte(val), &report); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Report cache entry corrupt")
		c.count(&c.misses)
		return nil, false
	}

	c.count(&c.hits)
	return &report, true
}

// Put stores a report under its wallet's key for the cache TTL. Backend
// write failures are logged and dropped.
func (c *Cache) Put(ctx context.Context, address string, report *dune.WalletReport) {
	if report == nil {
		return
	}
	key := Key(address)

	if c.client == nil {
		c.putLocal(key, report)
		return
	}

	data, err := json.Marshal(report)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Report cache encode failed")
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Report cache write failed")
		return
	}
	c.count(&c.stores)
}

// Invalidate drops the cached report for an address.
func (c *Cache) Invalidate(ctx context.Context, address string) {
	key := Key(address)

	if c.client == nil {
		c.mu.Lock()
		delete(c.local, key)
		c.mu.Unlock()
		return
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Report cache invalidate failed")
	}
}

func (c *Cache) getLocal(key string) (*dune.WalletReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.local[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.local, key)
		c.misses++
		return nil, false
	}
	c.hits++
	return entry.report, true
}

func (c *Cache) putLocal(key string, report *dune.WalletReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.local[key] = memoryEntry{report: report, expiresAt: time.Now().Add(c.ttl)}
	c.stores++
}

func (c *Cache) count(counter *int64) {
	c.mu.Lock()
	*counter++
	c.mu.Unlock()
}

// Stats reports traffic counters since startup.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:   c.hits,
		Misses: c.misses,
		Stores: c.stores,
		Local:  c.client == nil,
	}
}

// Close releases the Redis connection when one is held.
func (c *Cache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
