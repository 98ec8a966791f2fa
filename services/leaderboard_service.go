package services

import (
	"context"
	"errors"
	"time"

	"poiAPI/internal/logger"
	"poiAPI/internal/metrics"
	"poiAPI/internal/store"
	"poiAPI/internal/types/leaderboard"
)

// storeReadTimeout bounds the fallback read, which runs even when the request
// deadline has already passed.
const storeReadTimeout = 3 * time.Second

type LeaderboardSource interface {
	GetLeaderboard(ctx context.Context) ([]*leaderboard.Entry, error)
	RefreshLeaderboard(ctx context.Context) ([]*leaderboard.Entry, error)
}

type LeaderboardConfig struct {
	// RefreshExternal makes every load ask the backend to recompute follower
	// points first, falling back to the cached leaderboard on failure.
	RefreshExternal bool
	Now             func() time.Time
	Logger          *logger.Logger
	Metrics         *metrics.Metrics
}

type LeaderboardService struct {
	source LeaderboardSource
	store  store.LeaderboardStore
	cfg    LeaderboardConfig
}

func NewLeaderboardService(source LeaderboardSource, st store.LeaderboardStore, cfg LeaderboardConfig) *LeaderboardService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Nop()
	}
	if st == nil {
		st = store.NewMemoryStore()
	}
	return &LeaderboardService{source: source, store: st, cfg: cfg}
}

// GetLeaderboard never fails. When the backend is unreachable it serves the
// last stored leaderboard marked stale, or an empty one.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, principal string) *leaderboard.Leaderboard {
	log := logger.FromContext(ctx, s.cfg.Logger)

	entries, err := s.fetch(ctx)
	if err == nil {
		fetchedAt := s.cfg.Now()
		if serr := s.store.SaveLeaderboard(ctx, store.Snapshot{Entries: entries, FetchedAt: fetchedAt}); serr != nil {
			log.WithError(serr).Warn("Failed to store leaderboard snapshot")
		}
		return s.build(entries, principal, fetchedAt, false, leaderboard.SourceBackend)
	}

	log.WithError(err).Error("Failed to load leaderboard")

	readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeReadTimeout)
	defer cancel()

	snap, serr := s.store.LatestLeaderboard(readCtx)
	if serr == nil {
		return s.build(snap.Entries, principal, snap.FetchedAt, true, leaderboard.SourceStore)
	}
	if !errors.Is(serr, store.ErrNoSnapshot) {
		log.WithError(serr).Warn("Failed to read leaderboard snapshot")
	}
	return s.build(nil, principal, time.Time{}, true, leaderboard.SourceEmpty)
}

func (s *LeaderboardService) fetch(ctx context.Context) ([]*leaderboard.Entry, error) {
	if s.cfg.RefreshExternal {
		entries, err := s.source.RefreshLeaderboard(ctx)
		if err == nil {
			return entries, nil
		}
		logger.FromContext(ctx, s.cfg.Logger).WithError(err).
			Warn("External leaderboard refresh failed, using cached leaderboard")
	}
	return s.source.GetLeaderboard(ctx)
}

func (s *LeaderboardService) build(entries []*leaderboard.Entry, principal string, fetchedAt time.Time, stale bool, source leaderboard.Source) *leaderboard.Leaderboard {
	s.cfg.Metrics.LeaderboardSource.WithLabelValues(string(source)).Inc()

	if entries == nil {
		entries = []*leaderboard.Entry{}
	}
	board := &leaderboard.Leaderboard{
		Entries:    entries,
		TotalUsers: len(entries),
		Stale:      stale,
		Source:     source,
	}
	if !fetchedAt.IsZero() {
		board.FetchedAt = &fetchedAt
	}
	if rank := leaderboard.Rank(entries, principal); rank > 0 {
		board.UserRank = &rank
		board.UserPosition = entries[rank-1]
	}
	return board
}
