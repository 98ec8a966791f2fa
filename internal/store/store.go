package store

import (
	"context"
	"errors"
	"time"

	"poiAPI/internal/types/leaderboard"
)

var ErrNoSnapshot = errors.New("no leaderboard snapshot stored")

// Snapshot is the last leaderboard fetched from the backend.
type Snapshot struct {
	Entries   []*leaderboard.Entry `json:"entries"`
	FetchedAt time.Time            `json:"fetched_at"`
}

// LeaderboardStore keeps the last known leaderboard so it can be served while
// the backend is unreachable.
type LeaderboardStore interface {
	SaveLeaderboard(ctx context.Context, snap Snapshot) error
	// LatestLeaderboard returns ErrNoSnapshot when nothing was saved yet.
	LatestLeaderboard(ctx context.Context) (*Snapshot, error)
	Ping(ctx context.Context) error
	Close()
}
