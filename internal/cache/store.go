package cache

import (
	"context"
	"time"

	"github.com/gobwas/glob"
	gocache "github.com/patrickmn/go-cache"

	"github.com/contribscout/server/internal/models"
)

// Store is the shared cache tier. The Mongo implementation backs multi-node
// deployments; MemoryStore serves single-node runs and tests.
type Store interface {
	Get(ctx context.Context, key string) ([]models.FusedCandidate, bool, error)
	Set(ctx context.Context, key string, val []models.FusedCandidate, ttl time.Duration) error
	DeletePattern(ctx context.Context, pattern string) error
}

// MemoryStore is an in-process Store backed by go-cache.
type MemoryStore struct {
	c *gocache.Cache
}

// NewMemoryStore returns a MemoryStore that expires entries lazily and
// sweeps every minute.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: gocache.New(gocache.NoExpiration, time.Minute)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]models.FusedCandidate, bool, error) {
	v, found := m.c.Get(key)
	if !found {
		return nil, false, nil
	}
	candidates, ok := v.([]models.FusedCandidate)
	if !ok {
		return nil, false, nil
	}
	return cloneCandidates(candidates), true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, val []models.FusedCandidate, ttl time.Duration) error {
	m.c.Set(key, val, ttl)
	return nil
}

func (m *MemoryStore) DeletePattern(_ context.Context, pattern string) error {
	g, err := glob.Compile(pattern)
	if err != nil {
		return err
	}
	for key := range m.c.Items() {
		if g.Match(key) {
			m.c.Delete(key)
		}
	}
	return nil
}
