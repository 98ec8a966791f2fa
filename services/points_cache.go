package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"poiAPI/internal/logger"
	"poiAPI/internal/metrics"
	"poiAPI/internal/types/points"
)

const (
	// PointsStaleAfter is how long a fetched snapshot is served without refetching.
	PointsStaleAfter    = 5 * time.Minute
	defaultFetchTimeout = 10 * time.Second
)

type PointsFetcher interface {
	GetUserPoints(ctx context.Context) (points.Snapshot, error)
}

type PointsCacheConfig struct {
	StaleAfter   time.Duration
	FetchTimeout time.Duration
	Now          func() time.Time
	Logger       *logger.Logger
	Metrics      *metrics.Metrics
}

func (c PointsCacheConfig) withDefaults() PointsCacheConfig {
	if c.StaleAfter <= 0 {
		c.StaleAfter = PointsStaleAfter
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = defaultFetchTimeout
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = logger.Discard()
	}
	if c.Metrics == nil {
		c.Metrics = metrics.Nop()
	}
	return c
}

// PointsCache holds one caller's point totals. Reads within StaleAfter of the
// last successful fetch are served from memory; concurrent refreshes share a
// single remote fetch. GetPoints never fails: on fetch errors it serves the
// previous snapshot, or the zero snapshot when there is none.
type PointsCache struct {
	cfg   PointsCacheConfig
	group singleflight.Group

	mu          sync.RWMutex
	fetcher     PointsFetcher
	snapshot    points.Snapshot
	hasSnapshot bool
	lastUpdate  time.Time
	invalidated bool
	// generation counts Invalidate calls; a fetch only clears invalidated
	// when no Invalidate happened while it was in flight.
	generation uint64

	refreshing atomic.Bool
	lastAccess atomic.Int64
}

func NewPointsCache(fetcher PointsFetcher, cfg PointsCacheConfig) *PointsCache {
	c := &PointsCache{
		cfg:     cfg.withDefaults(),
		fetcher: fetcher,
	}
	c.lastAccess.Store(c.cfg.Now().UnixNano())
	return c
}

// GetPoints returns the cached snapshot when it is fresh and forceRefresh is
// false; otherwise it fetches. If ctx ends while waiting on the fetch, the
// current fallback value is returned and the fetch carries on for other waiters.
func (c *PointsCache) GetPoints(ctx context.Context, forceRefresh bool) points.Snapshot {
	now := c.cfg.Now()
	c.lastAccess.Store(now.UnixNano())

	if !forceRefresh {
		if snap, ok := c.fresh(now); ok {
			c.cfg.Metrics.PointsCache.WithLabelValues(metrics.OutcomeHit).Inc()
			return snap
		}
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("points", func() (any, error) {
		return c.refresh(fetchCtx), nil
	})

	select {
	case res := <-ch:
		return res.Val.(points.Snapshot)
	case <-ctx.Done():
		return c.fallback()
	}
}

func (c *PointsCache) fresh(now time.Time) (points.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.hasSnapshot || c.invalidated || c.isStale(now) {
		return points.Snapshot{}, false
	}
	return c.snapshot, true
}

func (c *PointsCache) isStale(now time.Time) bool {
	return now.Sub(c.lastUpdate) > c.cfg.StaleAfter
}

func (c *PointsCache) refresh(ctx context.Context) points.Snapshot {
	c.refreshing.Store(true)
	defer c.refreshing.Store(false)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	defer cancel()

	c.mu.RLock()
	fetcher := c.fetcher
	gen := c.generation
	c.mu.RUnlock()

	snap, err := fetcher.GetUserPoints(ctx)
	if err != nil {
		logger.FromContext(ctx, c.cfg.Logger).WithError(err).Error("Failed to load user points")
		if held, ok := c.Points(); ok {
			c.cfg.Metrics.PointsCache.WithLabelValues(metrics.OutcomeFallback).Inc()
			return held
		}
		c.cfg.Metrics.PointsCache.WithLabelValues(metrics.OutcomeZero).Inc()
		return points.Zero()
	}

	c.mu.Lock()
	c.snapshot = snap
	c.hasSnapshot = true
	c.lastUpdate = c.cfg.Now()
	if c.generation == gen {
		c.invalidated = false
	}
	c.mu.Unlock()

	c.cfg.Metrics.PointsCache.WithLabelValues(metrics.OutcomeRefresh).Inc()
	return snap
}

// fallback is the held snapshot, or the zero snapshot when none was ever fetched.
func (c *PointsCache) fallback() points.Snapshot {
	if snap, ok := c.Points(); ok {
		return snap
	}
	return points.Zero()
}

// Points returns the held snapshot without fetching.
func (c *PointsCache) Points() (points.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot, c.hasSnapshot
}

// LastUpdate is the time of the last successful fetch; zero before the first.
func (c *PointsCache) LastUpdate() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdate
}

func (c *PointsCache) IsRefreshing() bool {
	return c.refreshing.Load()
}

// ShouldRefresh reports whether the next non-forced read would fetch.
func (c *PointsCache) ShouldRefresh() bool {
	_, ok := c.fresh(c.cfg.Now())
	return !ok
}

// Invalidate makes the next read fetch, keeping the held snapshot as fallback.
func (c *PointsCache) Invalidate() {
	c.mu.Lock()
	c.invalidated = true
	c.generation++
	c.mu.Unlock()
}

func (c *PointsCache) rebind(fetcher PointsFetcher) {
	c.mu.Lock()
	c.fetcher = fetcher
	c.mu.Unlock()
}

func (c *PointsCache) idleSince() time.Time {
	return time.Unix(0, c.lastAccess.Load())
}
