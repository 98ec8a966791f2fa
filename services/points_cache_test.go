package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poiAPI/internal/types/points"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fetchResult struct {
	snap points.Snapshot
	err  error
}

// scriptedFetcher returns results in order and repeats the last one.
type scriptedFetcher struct {
	mu      sync.Mutex
	results []fetchResult
	calls   atomic.Int32

	started chan struct{}
	release chan struct{}
}

func (f *scriptedFetcher) GetUserPoints(ctx context.Context) (points.Snapshot, error) {
	n := int(f.calls.Add(1))
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	idx := n - 1
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	r := f.results[idx]
	return r.snap, r.err
}

func snapshot(c, f uint64) points.Snapshot {
	return points.Snapshot{ChallengePoints: c, FollowerPoints: f, TotalPoints: c + f}
}

var errBackendDown = errors.New("backend down")

func newTestCache(f PointsFetcher, clock *fakeClock) *PointsCache {
	return NewPointsCache(f, PointsCacheConfig{Now: clock.Now})
}

func TestGetPoints_CachedWithinStaleWindow(t *testing.T) {
	clock := newFakeClock()
	f := &scriptedFetcher{results: []fetchResult{{snap: snapshot(5, 10)}}}
	cache := newTestCache(f, clock)

	first := cache.GetPoints(context.Background(), false)
	clock.Advance(4 * time.Minute)
	second := cache.GetPoints(context.Background(), false)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestGetPoints_ForceRefreshAlwaysFetches(t *testing.T) {
	clock := newFakeClock()
	f := &scriptedFetcher{results: []fetchResult{{snap: snapshot(1, 1)}, {snap: snapshot(2, 2)}}}
	cache := newTestCache(f, clock)

	cache.GetPoints(context.Background(), false)
	got := cache.GetPoints(context.Background(), true)

	assert.Equal(t, snapshot(2, 2), got)
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestGetPoints_FailureServesPreviousSnapshot(t *testing.T) {
	clock := newFakeClock()
	f := &scriptedFetcher{results: []fetchResult{{snap: snapshot(3, 4)}, {err: errBackendDown}}}
	cache := newTestCache(f, clock)

	cache.GetPoints(context.Background(), false)
	got := cache.GetPoints(context.Background(), true)

	assert.Equal(t, snapshot(3, 4), got)
}

func TestGetPoints_FirstFailureReturnsZeroAndLeavesCacheUnset(t *testing.T) {
	clock := newFakeClock()
	f := &scriptedFetcher{results: []fetchResult{{err: errBackendDown}, {snap: snapshot(7, 8)}}}
	cache := newTestCache(f, clock)

	got := cache.GetPoints(context.Background(), false)
	assert.Equal(t, points.Snapshot{}, got)

	_, held := cache.Points()
	assert.False(t, held)
	assert.True(t, cache.LastUpdate().IsZero())
	assert.True(t, cache.ShouldRefresh())

	got = cache.GetPoints(context.Background(), false)
	assert.Equal(t, snapshot(7, 8), got)
	held2, ok := cache.Points()
	require.True(t, ok)
	assert.Equal(t, snapshot(7, 8), held2)
	assert.Equal(t, clock.Now(), cache.LastUpdate())
}

func TestGetPoints_SuccessResetsStalenessClock(t *testing.T) {
	clock := newFakeClock()
	f := &scriptedFetcher{results: []fetchResult{{snap: snapshot(1, 0)}, {snap: snapshot(2, 0)}}}
	cache := newTestCache(f, clock)

	cache.GetPoints(context.Background(), false)
	clock.Advance(10 * time.Minute)
	cache.GetPoints(context.Background(), true)
	got := cache.GetPoints(context.Background(), false)

	assert.Equal(t, snapshot(2, 0), got)
	assert.Equal(t, int32(2), f.calls.Load())
	assert.False(t, cache.ShouldRefresh())
}

func TestGetPoints_RefetchesAfterSixMinutes(t *testing.T) {
	clock := newFakeClock()
	f := &scriptedFetcher{results: []fetchResult{{snap: snapshot(5, 10)}, {snap: snapshot(6, 10)}}}
	cache := newTestCache(f, clock)

	got := cache.GetPoints(context.Background(), false)
	assert.Equal(t, points.Snapshot{ChallengePoints: 5, FollowerPoints: 10, TotalPoints: 15}, got)

	clock.Advance(6 * time.Minute)
	assert.True(t, cache.ShouldRefresh())

	got = cache.GetPoints(context.Background(), false)
	assert.Equal(t, snapshot(6, 10), got)
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestGetPoints_ExactlyStaleAfterIsStillFresh(t *testing.T) {
	clock := newFakeClock()
	f := &scriptedFetcher{results: []fetchResult{{snap: snapshot(1, 1)}}}
	cache := newTestCache(f, clock)

	cache.GetPoints(context.Background(), false)
	clock.Advance(PointsStaleAfter)
	cache.GetPoints(context.Background(), false)

	assert.Equal(t, int32(1), f.calls.Load())
}

func TestGetPoints_ConcurrentForcedCallsShareOneFetch(t *testing.T) {
	clock := newFakeClock()
	f := &scriptedFetcher{
		results: []fetchResult{{snap: snapshot(9, 9)}},
		started: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
	cache := newTestCache(f, clock)

	const callers = 8
	results := make([]points.Snapshot, callers)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = cache.GetPoints(context.Background(), true)
	}()
	<-f.started
	assert.True(t, cache.IsRefreshing())

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = cache.GetPoints(context.Background(), true)
		}(i)
	}
	// let the followers join the in-flight fetch
	time.Sleep(50 * time.Millisecond)
	close(f.release)
	wg.Wait()

	assert.Equal(t, int32(1), f.calls.Load())
	for _, r := range results {
		assert.Equal(t, snapshot(9, 9), r)
	}
	assert.False(t, cache.IsRefreshing())
}

func TestGetPoints_CancelledCallerGetsFallback(t *testing.T) {
	clock := newFakeClock()
	f := &scriptedFetcher{
		results: []fetchResult{{snap: snapshot(4, 4)}},
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	cache := newTestCache(f, clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan points.Snapshot)
	go func() { done <- cache.GetPoints(ctx, false) }()

	<-f.started
	cancel()
	assert.Equal(t, points.Zero(), <-done)

	close(f.release)
	require.Eventually(t, func() bool {
		_, ok := cache.Points()
		return ok
	}, time.Second, 5*time.Millisecond)

	held, _ := cache.Points()
	assert.Equal(t, snapshot(4, 4), held)
}

func TestInvalidate_ForcesNextReadAndKeepsFallback(t *testing.T) {
	clock := newFakeClock()
	f := &scriptedFetcher{results: []fetchResult{{snap: snapshot(2, 3)}, {err: errBackendDown}, {snap: snapshot(12, 3)}}}
	cache := newTestCache(f, clock)

	cache.GetPoints(context.Background(), false)
	cache.Invalidate()
	assert.True(t, cache.ShouldRefresh())

	got := cache.GetPoints(context.Background(), false)
	assert.Equal(t, snapshot(2, 3), got)
	assert.Equal(t, int32(2), f.calls.Load())

	got = cache.GetPoints(context.Background(), false)
	assert.Equal(t, snapshot(12, 3), got)
	assert.False(t, cache.ShouldRefresh())
}

func TestInvalidate_DuringFetchIsNotLost(t *testing.T) {
	clock := newFakeClock()
	f := &scriptedFetcher{
		results: []fetchResult{{snap: snapshot(1, 1)}, {snap: snapshot(1, 1)}, {snap: snapshot(9, 1)}},
		started: make(chan struct{}, 4),
		release: make(chan struct{}, 4),
	}
	cache := newTestCache(f, clock)

	f.release <- struct{}{}
	cache.GetPoints(context.Background(), false)
	<-f.started

	done := make(chan points.Snapshot)
	go func() { done <- cache.GetPoints(context.Background(), true) }()
	<-f.started

	// verification lands while the forced fetch still carries the old totals
	cache.Invalidate()
	f.release <- struct{}{}
	assert.Equal(t, snapshot(1, 1), <-done)

	assert.True(t, cache.ShouldRefresh())
	f.release <- struct{}{}
	got := cache.GetPoints(context.Background(), false)
	<-f.started

	assert.Equal(t, snapshot(9, 1), got)
	assert.Equal(t, int32(3), f.calls.Load())
	assert.False(t, cache.ShouldRefresh())
}
