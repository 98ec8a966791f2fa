package admin

import (
	"encoding/json"
	"errors"

	"poiAPI/internal/types/challenge"
	"poiAPI/internal/types/user"
)

// CompletedChallenge.Status is nil when the backend sends null or a status
// variant this gateway does not know.
type CompletedChallenge struct {
	ChallengeID uint64            `json:"challengeId"`
	Status      *challenge.Status `json:"status"`
	Points      uint64            `json:"points"`
}

func (c *CompletedChallenge) UnmarshalJSON(data []byte) error {
	var raw struct {
		ChallengeID uint64          `json:"challengeId"`
		Status      json.RawMessage `json:"status"`
		Points      uint64          `json:"points"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*c = CompletedChallenge{ChallengeID: raw.ChallengeID, Points: raw.Points}
	if len(raw.Status) == 0 || string(raw.Status) == "null" {
		return nil
	}

	var status challenge.Status
	if err := json.Unmarshal(raw.Status, &status); err != nil {
		if errors.Is(err, challenge.ErrUnknownStatus) {
			return nil
		}
		return err
	}
	c.Status = &status
	return nil
}

type SystemUser struct {
	Principal           string               `json:"principal"`
	Username            *string              `json:"username"`
	Name                *string              `json:"name"`
	Provider            user.Provider        `json:"provider"`
	FollowersCount      *uint64              `json:"followersCount"`
	CacheValid          bool                 `json:"cacheValid"`
	ChallengePoints     uint64               `json:"challengePoints"`
	FollowerPoints      uint64               `json:"followerPoints"`
	TotalPoints         uint64               `json:"totalPoints"`
	CompletedChallenges []CompletedChallenge `json:"completedChallenges"`
}

type SystemData struct {
	Challenges []challenge.Challenge `json:"challenges"`
	Users      []SystemUser          `json:"users"`
}

type RecalculationResult struct {
	UsersProcessed     uint64 `json:"usersProcessed"`
	TotalPointsUpdated uint64 `json:"totalPointsUpdated"`
}

type DeleteUserResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type TokenStatus struct {
	Set    bool    `json:"set"`
	Masked *string `json:"masked"`
}

type AdminStatus struct {
	Admin   *string `json:"admin"`
	IsAdmin bool    `json:"isAdmin"`
}

type SetApifyRequest struct {
	BearerToken string `json:"bearerToken" validate:"required"`
	Cookies     string `json:"cookies" validate:"required"`
}
