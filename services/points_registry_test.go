package services

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poiAPI/internal/backend"
	"poiAPI/internal/metrics"
	"poiAPI/internal/types/points"
)

type tokenFetcher struct {
	token string
	seen  *[]string
}

func (f tokenFetcher) GetUserPoints(context.Context) (points.Snapshot, error) {
	*f.seen = append(*f.seen, f.token)
	return snapshot(1, 1), nil
}

func TestPointsRegistry_OneCachePerPrincipal(t *testing.T) {
	clock := newFakeClock()
	m := metrics.Nop()
	var seen []string
	reg := NewPointsRegistry(func(id *backend.Identity) PointsFetcher {
		return tokenFetcher{token: id.Token, seen: &seen}
	}, PointsCacheConfig{Now: clock.Now, Metrics: m})

	a1 := reg.For(&backend.Identity{Principal: "a", Token: "t1"})
	a2 := reg.For(&backend.Identity{Principal: "a", Token: "t1"})
	b := reg.For(&backend.Identity{Principal: "b", Token: "t2"})

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, float64(2), testutil.ToFloat64(m.PointsCachesLive))

	got, ok := reg.Lookup("a")
	require.True(t, ok)
	assert.Same(t, a1, got)

	_, ok = reg.Lookup("nobody")
	assert.False(t, ok)
}

func TestPointsRegistry_NewTokenRebindsFetcher(t *testing.T) {
	clock := newFakeClock()
	var seen []string
	reg := NewPointsRegistry(func(id *backend.Identity) PointsFetcher {
		return tokenFetcher{token: id.Token, seen: &seen}
	}, PointsCacheConfig{Now: clock.Now})

	reg.For(&backend.Identity{Principal: "a", Token: "old"}).GetPoints(context.Background(), true)
	cache := reg.For(&backend.Identity{Principal: "a", Token: "new"})
	cache.GetPoints(context.Background(), true)

	assert.Equal(t, []string{"old", "new"}, seen)
}

func TestPointsRegistry_NilIdentityIsAnonymous(t *testing.T) {
	var seen []string
	reg := NewPointsRegistry(func(id *backend.Identity) PointsFetcher {
		return tokenFetcher{seen: &seen}
	}, PointsCacheConfig{})

	reg.For(nil)
	_, ok := reg.Lookup(backend.AnonymousPrincipal)
	assert.True(t, ok)
}

func TestPointsRegistry_ForgetAndSweep(t *testing.T) {
	clock := newFakeClock()
	var seen []string
	reg := NewPointsRegistry(func(id *backend.Identity) PointsFetcher {
		return tokenFetcher{token: id.Token, seen: &seen}
	}, PointsCacheConfig{Now: clock.Now})

	reg.For(&backend.Identity{Principal: "a"})
	reg.For(&backend.Identity{Principal: "b"})
	reg.For(&backend.Identity{Principal: "c"})

	reg.Forget("c")
	assert.Equal(t, 2, reg.Len())

	clock.Advance(20 * time.Minute)
	reg.For(&backend.Identity{Principal: "b"}).GetPoints(context.Background(), false)
	clock.Advance(15 * time.Minute)

	removed := reg.Sweep(30 * time.Minute)
	assert.Equal(t, 1, removed)

	_, ok := reg.Lookup("a")
	assert.False(t, ok)
	_, ok = reg.Lookup("b")
	assert.True(t, ok)
}
