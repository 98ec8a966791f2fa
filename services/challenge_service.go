package services

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"poiAPI/internal/backend"
	"poiAPI/internal/logger"
	"poiAPI/internal/types/admin"
	"poiAPI/internal/types/challenge"
	"poiAPI/internal/types/leaderboard"
	"poiAPI/internal/types/points"
)

const statusFetchConcurrency = 4

// ChallengeService wraps the poi backend canister. Every method returns the
// remote error unchanged in kind; callers decide whether to fall back.
type ChallengeService struct {
	factory    backend.ActorFactory
	canisterID string
	identity   *backend.Identity
	log        *logger.Logger

	mu    sync.Mutex
	actor backend.Caller
}

func NewChallengeService(factory backend.ActorFactory, canisterID string, identity *backend.Identity, log *logger.Logger) *ChallengeService {
	if log == nil {
		log = logger.Discard()
	}
	return &ChallengeService{
		factory:    factory,
		canisterID: canisterID,
		identity:   identity,
		log:        log,
	}
}

func (s *ChallengeService) getActor() (backend.Caller, error) {
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

func (s *ChallengeService) call(ctx context.Context, method string, out any, args ...any) error {
	actor, err := s.getActor()
	if err != nil {
		return err
	}
	return actor.Call(ctx, method, out, args...)
}

func (s *ChallengeService) GetChallenges(ctx context.Context) ([]challenge.Challenge, error) {
	var result []challenge.Challenge
	if err := s.call(ctx, "getChallenges", &result); err != nil {
		return nil, fmt.Errorf("failed to fetch challenges: %w", err)
	}
	if result == nil {
		result = []challenge.Challenge{}
	}
	return result, nil
}

// GetChallenge returns nil without error when the challenge does not exist.
func (s *ChallengeService) GetChallenge(ctx context.Context, id uint64) (*challenge.Challenge, error) {
	var result *challenge.Challenge
	if err := s.call(ctx, "getChallenge", &result, id); err != nil {
		return nil, fmt.Errorf("failed to fetch challenge %d: %w", id, err)
	}
	return result, nil
}

func (s *ChallengeService) CreateChallenge(ctx context.Context, description string, challengeType challenge.ChallengeType, pts uint64, markdownMessage string) (uint64, error) {
	var id uint64
	if err := s.call(ctx, "createChallenge", &id, description, challengeType, pts, markdownMessage); err != nil {
		return 0, fmt.Errorf("failed to create challenge: %w", err)
	}
	return id, nil
}

func (s *ChallengeService) UpdateChallenge(ctx context.Context, id uint64, description string, challengeType challenge.ChallengeType, pts uint64, markdownMessage string) (bool, error) {
	var ok bool
	if err := s.call(ctx, "updateChallenge", &ok, id, description, challengeType, pts, markdownMessage); err != nil {
		return false, fmt.Errorf("failed to update challenge %d: %w", id, err)
	}
	return ok, nil
}

func (s *ChallengeService) DeleteChallenge(ctx context.Context, id uint64) (bool, error) {
	var ok bool
	if err := s.call(ctx, "deleteChallenge", &ok, id); err != nil {
		return false, fmt.Errorf("failed to delete challenge %d: %w", id, err)
	}
	return ok, nil
}

func (s *ChallengeService) EnableChallenge(ctx context.Context, id uint64) (bool, error) {
	var ok bool
	if err := s.call(ctx, "enableChallenge", &ok, id); err != nil {
		return false, fmt.Errorf("failed to enable challenge %d: %w", id, err)
	}
	return ok, nil
}

func (s *ChallengeService) DisableChallenge(ctx context.Context, id uint64) (bool, error) {
	var ok bool
	if err := s.call(ctx, "disableChallenge", &ok, id); err != nil {
		return false, fmt.Errorf("failed to disable challenge %d: %w", id, err)
	}
	return ok, nil
}

// VerifyChallenge returns the backend's verdict. A rejected verification is a
// result with Error set; only transport failures return an error.
func (s *ChallengeService) VerifyChallenge(ctx context.Context, id uint64) (challenge.VerifyResult, error) {
	var result challenge.VerifyResult
	if err := s.call(ctx, "verifyChallenge", &result, id); err != nil {
		return challenge.VerifyResult{}, fmt.Errorf("failed to verify challenge %d: %w", id, err)
	}
	result.RateLimited = challenge.IsRateLimitError(result.Error)
	return result, nil
}

// GetChallengeStatus returns nil when the caller never attempted the challenge.
func (s *ChallengeService) GetChallengeStatus(ctx context.Context, id uint64) (*challenge.Status, error) {
	var result *challenge.Status
	if err := s.call(ctx, "getChallengeStatus", &result, id); err != nil {
		return nil, fmt.Errorf("failed to get status of challenge %d: %w", id, err)
	}
	return result, nil
}

// GetChallengeStatuses fetches statuses concurrently. A failure for one
// challenge is logged and that challenge is left out of the map.
func (s *ChallengeService) GetChallengeStatuses(ctx context.Context, challenges []challenge.Challenge) (map[uint64]*challenge.Status, error) {
	statuses := make(map[uint64]*challenge.Status, len(challenges))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(statusFetchConcurrency)
	for _, c := range challenges {
		id := c.ID
		g.Go(func() error {
			status, err := s.GetChallengeStatus(gctx, id)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.log.WithPrincipal(s.identity.PrincipalOrAnonymous()).
					WithError(err).WithField("challenge_id", id).
					Warn("Failed to load challenge status")
				return nil
			}
			if status != nil {
				mu.Lock()
				statuses[id] = status
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return statuses, nil
}

func (s *ChallengeService) GetUserPoints(ctx context.Context) (points.Snapshot, error) {
	var result points.Snapshot
	if err := s.call(ctx, "getUserPoints", &result); err != nil {
		return points.Snapshot{}, fmt.Errorf("failed to get user points: %w", err)
	}
	return result, nil
}

func (s *ChallengeService) GetLeaderboard(ctx context.Context) ([]*leaderboard.Entry, error) {
	var result []*leaderboard.Entry
	if err := s.call(ctx, "getLeaderboard", &result); err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	return result, nil
}

// RefreshLeaderboard asks the backend to recompute follower points from the
// external social graph before returning the leaderboard.
func (s *ChallengeService) RefreshLeaderboard(ctx context.Context) ([]*leaderboard.Entry, error) {
	var result []*leaderboard.Entry
	if err := s.call(ctx, "refreshLeaderboard", &result); err != nil {
		return nil, fmt.Errorf("failed to refresh leaderboard: %w", err)
	}
	return result, nil
}

// GetAdmin returns nil when no admin has been claimed.
func (s *ChallengeService) GetAdmin(ctx context.Context) (*string, error) {
	var result *string
	if err := s.call(ctx, "getAdmin", &result); err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	return result, nil
}

func (s *ChallengeService) SetAdmin(ctx context.Context) error {
	if err := s.call(ctx, "setAdmin", nil); err != nil {
		return fmt.Errorf("failed to set admin: %w", err)
	}
	return nil
}

func (s *ChallengeService) IsApifyBearerTokenSet(ctx context.Context) (bool, error) {
	var ok bool
	if err := s.call(ctx, "isApifyBearerTokenSet", &ok); err != nil {
		return false, fmt.Errorf("failed to check Apify bearer token status: %w", err)
	}
	return ok, nil
}

func (s *ChallengeService) GetApifyBearerTokenMasked(ctx context.Context) (*string, error) {
	var masked *string
	if err := s.call(ctx, "getApifyBearerTokenMasked", &masked); err != nil {
		return nil, fmt.Errorf("failed to get masked Apify bearer token: %w", err)
	}
	return masked, nil
}

func (s *ChallengeService) SetApifyBearerToken(ctx context.Context, token string) error {
	if err := s.call(ctx, "setApifyBearerToken", nil, token); err != nil {
		return fmt.Errorf("failed to set Apify bearer token: %w", err)
	}
	return nil
}

func (s *ChallengeService) SetApifyCookies(ctx context.Context, cookies string) error {
	if err := s.call(ctx, "setApifyCookies", nil, cookies); err != nil {
		return fmt.Errorf("failed to set Apify cookies: %w", err)
	}
	return nil
}

func (s *ChallengeService) GetSystemData(ctx context.Context) (*admin.SystemData, error) {
	var result admin.SystemData
	if err := s.call(ctx, "getSystemData", &result); err != nil {
		return nil, fmt.Errorf("failed to get system data: %w", err)
	}
	return &result, nil
}

func (s *ChallengeService) RecalculateAllUserPoints(ctx context.Context) (*admin.RecalculationResult, error) {
	var result admin.RecalculationResult
	if err := s.call(ctx, "recalculateAllUserPoints", &result); err != nil {
		return nil, fmt.Errorf("failed to recalculate user points: %w", err)
	}
	return &result, nil
}

func (s *ChallengeService) DeleteUser(ctx context.Context, principal string) (*admin.DeleteUserResult, error) {
	var result admin.DeleteUserResult
	if err := s.call(ctx, "deleteUser", &result, principal); err != nil {
		return nil, fmt.Errorf("failed to delete user %s: %w", principal, err)
	}
	return &result, nil
}
