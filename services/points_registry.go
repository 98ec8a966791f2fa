package services

import (
	"sync"
	"time"

	"poiAPI/internal/backend"
)

// PointsRegistry keeps one PointsCache per caller principal.
type PointsRegistry struct {
	newFetcher func(identity *backend.Identity) PointsFetcher
	cfg        PointsCacheConfig

	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	cache *PointsCache
	token string
}

func NewPointsRegistry(newFetcher func(identity *backend.Identity) PointsFetcher, cfg PointsCacheConfig) *PointsRegistry {
	return &PointsRegistry{
		newFetcher: newFetcher,
		cfg:        cfg.withDefaults(),
		entries:    make(map[string]*registryEntry),
	}
}

// For returns the caller's cache, creating it on first use. When the caller
// presents a new credential the cache keeps its snapshot and fetches with the
// new one from then on.
func (r *PointsRegistry) For(identity *backend.Identity) *PointsCache {
	principal := identity.PrincipalOrAnonymous()
	token := ""
	if identity != nil {
		token = identity.Token
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[principal]; ok {
		if e.token != token {
			e.cache.rebind(r.newFetcher(identity))
			e.token = token
		}
		return e.cache
	}

	cache := NewPointsCache(r.newFetcher(identity), r.cfg)
	r.entries[principal] = &registryEntry{cache: cache, token: token}
	r.cfg.Metrics.PointsCachesLive.Set(float64(len(r.entries)))
	return cache
}

// Lookup returns the caller's cache without creating one.
func (r *PointsRegistry) Lookup(principal string) (*PointsCache, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[principal]
	if !ok {
		return nil, false
	}
	return e.cache, true
}

// Forget drops the caller's cache, as on logout.
func (r *PointsRegistry) Forget(principal string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, principal)
	r.cfg.Metrics.PointsCachesLive.Set(float64(len(r.entries)))
}

// Sweep drops caches not read for longer than idle and returns how many it removed.
// Caches with a fetch in flight are kept.
func (r *PointsRegistry) Sweep(idle time.Duration) int {
	cutoff := r.cfg.Now().Add(-idle)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for principal, e := range r.entries {
		if e.cache.IsRefreshing() {
			continue
		}
		if e.cache.idleSince().Before(cutoff) {
			delete(r.entries, principal)
			removed++
		}
	}
	r.cfg.Metrics.PointsCachesLive.Set(float64(len(r.entries)))
	return removed
}

func (r *PointsRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
