package services

import (
	"poiAPI/internal/backend"
	"poiAPI/internal/logger"
)

// Clients builds per-caller service wrappers over a shared agent.
type Clients struct {
	factory            backend.ActorFactory
	poiCanisterID      string
	userDataCanisterID string
	log                *logger.Logger
}

func NewClients(factory backend.ActorFactory, poiCanisterID, userDataCanisterID string, log *logger.Logger) *Clients {
	if log == nil {
		log = logger.Discard()
	}
	return &Clients{
		factory:            factory,
		poiCanisterID:      poiCanisterID,
		userDataCanisterID: userDataCanisterID,
		log:                log,
	}
}

// Challenges returns a poi backend client acting as identity (anonymous when nil).
func (c *Clients) Challenges(identity *backend.Identity) *ChallengeService {
	return NewChallengeService(c.factory, c.poiCanisterID, identity, c.log)
}

func (c *Clients) UserData(identity *backend.Identity) *UserDataService {
	return NewUserDataService(c.factory, c.userDataCanisterID, identity)
}

func (c *Clients) PointsFetcher(identity *backend.Identity) PointsFetcher {
	return c.Challenges(identity)
}

func (c *Clients) ProfileFetcher(identity *backend.Identity) ProfileFetcher {
	return c.UserData(identity)
}

// Configured reports whether a remote call could be attempted at all.
func (c *Clients) Configured() bool {
	if c.factory == nil {
		return false
	}
	_, err := c.factory.CreateActor(c.poiCanisterID, nil)
	return err == nil
}
