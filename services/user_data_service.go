package services

import (
	"context"
	"fmt"
	"sync"

	"poiAPI/internal/backend"
	"poiAPI/internal/types/user"
)

// UserDataService reads identity-provider profiles from the user data canister.
type UserDataService struct {
	factory    backend.ActorFactory
	canisterID string
	identity   *backend.Identity

	mu    sync.Mutex
	actor backend.Caller
}

func NewUserDataService(factory backend.ActorFactory, canisterID string, identity *backend.Identity) *UserDataService {
	return &UserDataService{
		factory:    factory,
		canisterID: canisterID,
		identity:   identity,
	}
}

func (s *UserDataService) getActor() (backend.Caller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.actor == nil {
		if s.factory == nil {
			return nil, backend.ErrNotConfigured
		}
		actor, err := s.factory.CreateActor(s.canisterID, s.identity)
		if err != nil {
			return nil, err
		}
		s.actor = actor
	}
	return s.actor, nil
}

type getUserArgs struct {
	Principal string `json:"principal"`
	Origin    string `json:"origin"`
}

// GetUser returns nil without error when no profile is stored for principal at origin.
func (s *UserDataService) GetUser(ctx context.Context, principal, origin string) (*user.Profile, error) {
	actor, err := s.getActor()
	if err != nil {
		return nil, err
	}

	var result *user.Profile
	if err := actor.Call(ctx, "getUser", &result, getUserArgs{Principal: principal, Origin: origin}); err != nil {
		return nil, fmt.Errorf("failed to fetch user data: %w", err)
	}
	return result, nil
}
