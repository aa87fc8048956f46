package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ardiansr/mediqueue/internal/domain"
)

type entry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryCache is an in-process domain.ReceiptCache for single-instance
// deployments and tests. Expired entries are dropped lazily on read.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

var _ domain.ReceiptCache = (*MemoryCache)(nil)

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// NewMemoryCacheWithClock creates a cache with an injected clock for tests.
func NewMemoryCacheWithClock(now func() time.Time) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]entry),
		now:     now,
	}
}

// Get returns the cached payload for a user, or (nil, nil) on miss.
func (c *MemoryCache) Get(_ context.Context, userID string) ([]byte, error) {
	c.mu.RLock()
	e, ok := c.entries[userID]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, userID)
		c.mu.Unlock()
		return nil, nil
	}

	out := make([]byte, len(e.payload))
	copy(out, e.payload)
	return out, nil
}

// Put stores the payload for a user with the given TTL. A non-positive TTL
// stores the entry without expiry.
func (c *MemoryCache) Put(_ context.Context, userID string, payload []byte, ttl time.Duration) error {
	stored := make([]byte, len(payload))
	copy(stored, payload)

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[userID] = entry{payload: stored, expiresAt: expiresAt}
	c.mu.Unlock()
	return nil
}

// Invalidate drops the cached payload for a user.
func (c *MemoryCache) Invalidate(_ context.Context, userID string) error {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
	return nil
}

// Len reports the number of live entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// NoopCache is a domain.ReceiptCache that never stores anything. It pins
// down that the read path stays correct when every lookup misses.
type NoopCache struct{}

var _ domain.ReceiptCache = (*NoopCache)(nil)

// NewNoopCache creates a cache that always misses.
func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

func (*NoopCache) Get(context.Context, string) ([]byte, error) { return nil, nil }

func (*NoopCache) Put(context.Context, string, []byte, time.Duration) error { return nil }

func (*NoopCache) Invalidate(context.Context, string) error { return nil }
