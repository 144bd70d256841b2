package lookup

import (
	"context"
	"sync"
	"time"

	"github.com/linnemanlabs/sift/internal/triage"
)

// Cache stores resolved registry records. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, registrationID string) (*triage.Company, bool, error)
	Set(ctx context.Context, registrationID string, company *triage.Company, ttl time.Duration) error
}

// Cached is a read-through decorator over a Lookup: a cache hit never
// reaches the remote registry, and cache failures degrade to the remote
// path instead of failing the resolution.
type Cached struct {
	inner triage.Lookup
	cache Cache
	ttl   time.Duration
}

// NewCached wraps inner with the given cache.
func NewCached(inner triage.Lookup, cache Cache, ttl time.Duration) *Cached {
	return &Cached{inner: inner, cache: cache, ttl: ttl}
}

// Resolve implements triage.Lookup.
func (c *Cached) Resolve(ctx context.Context, registrationID string) (*triage.Company, error) {
	if company, ok, err := c.cache.Get(ctx, registrationID); err == nil && ok {
		return company, nil
	}

	company, err := c.inner.Resolve(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	_ = c.cache.Set(ctx, registrationID, company, c.ttl)
	return company, nil
}

// MemoryCache is an in-process TTL cache. Suitable for dev/testing and
// single-instance deployments.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	company   triage.Company
	expiresAt time.Time
}

// NewMemoryCache initializes an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns a copy of the cached record, if present and not expired.
func (m *MemoryCache) Get(_ context.Context, registrationID string) (*triage.Company, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[registrationID]
	m.mu.RUnlock()
	if !ok || m.now().After(e.expiresAt) {
		return nil, false, nil
	}
	cp := e.company
	return &cp, true, nil
}

// Set stores a copy of the record under the registration id.
func (m *MemoryCache) Set(_ context.Context, registrationID string, company *triage.Company, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[registrationID] = memoryEntry{
		company:   *company,
		expiresAt: m.now().Add(ttl),
	}
	return nil
}
