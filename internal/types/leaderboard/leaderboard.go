package leaderboard

import "time"

type Entry struct {
	Principal       string  `json:"principal"`
	Username        *string `json:"username"`
	Name            *string `json:"name"`
	AvatarURL       *string `json:"avatarUrl"`
	ChallengePoints uint64  `json:"challengePoints"`
	FollowerPoints  uint64  `json:"followerPoints"`
	TotalPoints     uint64  `json:"totalPoints"`
}

type Source string

const (
	SourceBackend Source = "backend"
	SourceStore   Source = "store"
	SourceEmpty   Source = "empty"
)

type Leaderboard struct {
	Entries      []*Entry   `json:"entries"`
	UserPosition *Entry     `json:"user_position"`
	UserRank     *int       `json:"user_rank"`
	TotalUsers   int        `json:"total_users"`
	FetchedAt    *time.Time `json:"fetched_at"`
	Stale        bool       `json:"stale"`
	Source       Source     `json:"source"`
}

// Rank returns the 1-based position of principal in entries, or 0 when absent.
func Rank(entries []*Entry, principal string) int {
	if principal == "" {
		return 0
	}
	for i, e := range entries {
		if e.Principal == principal {
			return i + 1
		}
	}
	return 0
}
