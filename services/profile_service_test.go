package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poiAPI/internal/backend"
	"poiAPI/internal/types/user"
)

func TestProfileService_CachesPerPrincipalAndOrigin(t *testing.T) {
	username := "alice_gh"
	b := newFakeBackend().on("getUser", func(_ *backend.Identity, args []any) (any, error) {
		a := args[0].(getUserArgs)
		return user.Profile{ID: a.Principal, Origin: a.Origin, Provider: user.ProviderGithub, Username: &username}, nil
	})
	clients := NewClients(b, testCanister, "user-data", nil)
	svc := NewProfileService(clients.ProfileFetcher)
	ctx := context.Background()

	p, err := svc.Profile(ctx, alice(), "https://poi.example", false)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "alice-principal", p.ID)
	assert.Equal(t, "alice_gh", *p.Username)

	_, err = svc.Profile(ctx, alice(), "https://poi.example", false)
	require.NoError(t, err)
	assert.Equal(t, 1, b.callCount("getUser"))

	_, err = svc.Profile(ctx, alice(), "https://poi.example", true)
	require.NoError(t, err)
	assert.Equal(t, 2, b.callCount("getUser"))

	p, err = svc.Profile(ctx, alice(), "http://localhost:5173", false)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5173", p.Origin)
	assert.Equal(t, 3, b.callCount("getUser"))

	svc.Forget("alice-principal")
	_, err = svc.Profile(ctx, alice(), "http://localhost:5173", false)
	require.NoError(t, err)
	assert.Equal(t, 4, b.callCount("getUser"))
}

func TestProfileService_ErrorsAreNotCached(t *testing.T) {
	b := newFakeBackend().fails("getUser", errors.New("canister trapped"))
	clients := NewClients(b, testCanister, "user-data", nil)
	svc := NewProfileService(clients.ProfileFetcher)

	_, err := svc.Profile(context.Background(), alice(), "o", false)
	require.Error(t, err)
	_, err = svc.Profile(context.Background(), alice(), "o", false)
	require.Error(t, err)
	assert.Equal(t, 2, b.callCount("getUser"))
}

func TestProfileService_AbsentProfile(t *testing.T) {
	b := newFakeBackend().on("getUser", func(*backend.Identity, []any) (any, error) { return nil, nil })
	svc := NewProfileService(NewClients(b, testCanister, "user-data", nil).ProfileFetcher)

	p, err := svc.Profile(context.Background(), alice(), "o", false)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestClients_Configured(t *testing.T) {
	assert.True(t, NewClients(newFakeBackend(), testCanister, "user-data", nil).Configured())
	assert.False(t, NewClients(newFakeBackend(), "", "user-data", nil).Configured())
	assert.False(t, NewClients(nil, testCanister, "user-data", nil).Configured())
}

func TestProfileService_SweepDropsIdleProfiles(t *testing.T) {
	clock := newFakeClock()
	b := newFakeBackend().returns("getUser", user.Profile{ID: "x", Provider: user.ProviderTwitter})
	svc := NewProfileService(NewClients(b, testCanister, "user-data", nil).ProfileFetcher)
	svc.now = clock.Now
	ctx := context.Background()
	bob := &backend.Identity{Principal: "bob-principal", Token: "bob-token"}

	_, err := svc.Profile(ctx, alice(), "https://poi.example", false)
	require.NoError(t, err)
	_, err = svc.Profile(ctx, bob, "https://poi.example", false)
	require.NoError(t, err)
	require.Equal(t, 2, svc.Len())

	clock.Advance(20 * time.Minute)
	_, err = svc.Profile(ctx, bob, "https://poi.example", false)
	require.NoError(t, err)
	assert.Equal(t, 2, b.callCount("getUser"))

	clock.Advance(15 * time.Minute)
	assert.Equal(t, 1, svc.Sweep(30*time.Minute))
	assert.Equal(t, 1, svc.Len())

	_, err = svc.Profile(ctx, bob, "https://poi.example", false)
	require.NoError(t, err)
	assert.Equal(t, 2, b.callCount("getUser"))

	_, err = svc.Profile(ctx, alice(), "https://poi.example", false)
	require.NoError(t, err)
	assert.Equal(t, 3, b.callCount("getUser"))
}
