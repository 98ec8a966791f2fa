package services

import (
	"context"
	"sync"
	"time"

	"poiAPI/internal/backend"
	"poiAPI/internal/types/user"
)

type ProfileFetcher interface {
	GetUser(ctx context.Context, principal, origin string) (*user.Profile, error)
}

type cachedProfile struct {
	origin     string
	profile    *user.Profile
	lastAccess time.Time
}

// ProfileService keeps each caller's profile after the first successful fetch.
type ProfileService struct {
	newFetcher func(identity *backend.Identity) ProfileFetcher
	now        func() time.Time

	mu       sync.Mutex
	profiles map[string]*cachedProfile
}

func NewProfileService(newFetcher func(identity *backend.Identity) ProfileFetcher) *ProfileService {
	return &ProfileService{
		newFetcher: newFetcher,
		now:        time.Now,
		profiles:   make(map[string]*cachedProfile),
	}
}

// Profile returns the cached profile for the caller and origin unless refresh
// is set. A nil profile with nil error means the user data canister has none.
func (s *ProfileService) Profile(ctx context.Context, identity *backend.Identity, origin string, refresh bool) (*user.Profile, error) {
	principal := identity.PrincipalOrAnonymous()

	if !refresh {
		s.mu.Lock()
		cached, ok := s.profiles[principal]
		if ok && cached.origin == origin {
			cached.lastAccess = s.now()
			profile := cached.profile
			s.mu.Unlock()
			return profile, nil
		}
		s.mu.Unlock()
	}

	profile, err := s.newFetcher(identity).GetUser(ctx, principal, origin)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.profiles[principal] = &cachedProfile{origin: origin, profile: profile, lastAccess: s.now()}
	s.mu.Unlock()
	return profile, nil
}

func (s *ProfileService) Forget(principal string) {
	s.mu.Lock()
	delete(s.profiles, principal)
	s.mu.Unlock()
}

// Sweep drops profiles not read for longer than idle and returns how many it removed.
func (s *ProfileService) Sweep(idle time.Duration) int {
	cutoff := s.now().Add(-idle)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for principal, cached := range s.profiles {
		if cached.lastAccess.Before(cutoff) {
			delete(s.profiles, principal)
			removed++
		}
	}
	return removed
}

func (s *ProfileService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.profiles)
}
