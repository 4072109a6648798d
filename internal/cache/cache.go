// Package cache implements the layered result cache used by the hybrid
// query planner. A fast in-process tier (ristretto) sits in front of a
// shared tier (Mongo in production, in-memory in tests); reads check local
// first and promote shared hits, writes populate both tiers.
package cache

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/gobwas/glob"

	"github.com/contribscout/server/internal/models"
)

const (
	localNumCounters = 1e6
	localMaxCost     = 1e7 // ~10MB of fused candidate lists
	localBufferItems = 64
)

// ResultCache is the planner-facing contract. Injected, never a hidden
// singleton, so tests can substitute a double and assert on invalidations.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]models.FusedCandidate, bool)
	Set(ctx context.Context, key string, val []models.FusedCandidate, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

// Layered is the two-tier ResultCache implementation.
type Layered struct {
	local  *ristretto.Cache
	shared Store
	ttlCap time.Duration // Ceiling applied to local-tier TTLs

	// mu serializes invalidation against reads so a Get during Invalidate
	// never observes a value already removed from one tier only.
	mu sync.RWMutex

	// Ristretto cannot enumerate its keys, so keys tracks local-tier
	// membership for pattern invalidation. keysMu guards the map itself;
	// concurrent readers of the cache still mutate it on promotion.
	keysMu sync.Mutex
	keys   map[string]struct{}
}

// NewLayered builds a Layered cache over the given shared tier.
// ttlCap bounds how long the in-process tier may hold an entry.
func NewLayered(shared Store, ttlCap time.Duration) (*Layered, error) {
	local, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: localNumCounters,
		MaxCost:     localMaxCost,
		BufferItems: localBufferItems,
	})
	if err != nil {
		return nil, fmt.Errorf("init local cache tier: %w", err)
	}
	return &Layered{
		local:  local,
		shared: shared,
		ttlCap: ttlCap,
		keys:   make(map[string]struct{}),
	}, nil
}

// Get returns the cached candidate list for key, checking the local tier
// first. A shared-tier hit is promoted into the local tier with a capped
// TTL. Shared-tier errors degrade to a miss.
func (c *Layered) Get(ctx context.Context, key string) ([]models.FusedCandidate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if v, found := c.local.Get(key); found {
		if candidates, ok := v.([]models.FusedCandidate); ok {
			return cloneCandidates(candidates), true
		}
	}

	candidates, found, err := c.shared.Get(ctx, key)
	if err != nil {
		log.Printf("cache: shared tier get failed for %s: %v", key, err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	c.storeLocal(key, candidates, c.ttlCap)
	return cloneCandidates(candidates), true
}

// cloneCandidates copies the cached slice so callers can rescore or reorder
// their result without corrupting the stored entry.
func cloneCandidates(in []models.FusedCandidate) []models.FusedCandidate {
	out := make([]models.FusedCandidate, len(in))
	copy(out, in)
	return out
}

// Set writes the candidate list to both tiers. The shared tier keeps the
// caller's TTL; the local tier caps it at the configured ceiling.
func (c *Layered) Set(ctx context.Context, key string, val []models.FusedCandidate, ttl time.Duration) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	localTTL := ttl
	if localTTL > c.ttlCap {
		localTTL = c.ttlCap
	}
	c.storeLocal(key, val, localTTL)

	if err := c.shared.Set(ctx, key, val, ttl); err != nil {
		return fmt.Errorf("cache: shared tier set: %w", err)
	}
	return nil
}

// Invalidate removes every key matching the glob pattern from both tiers.
// It holds the write lock for the duration, so concurrent Gets see either
// the state before or after the whole invalidation, never in between.
func (c *Layered) Invalidate(ctx context.Context, pattern string) error {
	g, err := glob.Compile(pattern)
	if err != nil {
		return fmt.Errorf("cache: bad invalidation pattern %q: %w", pattern, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.keysMu.Lock()
	for key := range c.keys {
		if g.Match(key) {
			c.local.Del(key)
			delete(c.keys, key)
		}
	}
	c.keysMu.Unlock()

	if err := c.shared.DeletePattern(ctx, pattern); err != nil {
		return fmt.Errorf("cache: shared tier invalidate: %w", err)
	}
	return nil
}

// storeLocal writes to ristretto and waits for the buffered write to land,
// so a Set followed by a Get on the same key is a hit. Callers must hold
// at least the read lock.
func (c *Layered) storeLocal(key string, val []models.FusedCandidate, ttl time.Duration) {
	cost := int64(1 + len(val)*64)
	if c.local.SetWithTTL(key, val, cost, ttl) {
		c.local.Wait()
	}
	c.keysMu.Lock()
	c.keys[key] = struct{}{}
	c.keysMu.Unlock()
}
