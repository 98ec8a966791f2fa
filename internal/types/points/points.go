package points

// Snapshot is the caller's point totals as computed by the backend.
type Snapshot struct {
	ChallengePoints uint64 `json:"challengePoints"`
	FollowerPoints  uint64 `json:"followerPoints"`
	TotalPoints     uint64 `json:"totalPoints"`
}

// Zero is returned when no snapshot was ever obtained.
func Zero() Snapshot {
	return Snapshot{}
}

type Response struct {
	Points       Snapshot `json:"points"`
	LastUpdate   *int64   `json:"last_update"`
	Stale        bool     `json:"stale"`
	IsRefreshing bool     `json:"is_refreshing"`
}
