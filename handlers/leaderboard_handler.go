package handlers

import (
	"context"
	"net/http"
	"time"

	"poiAPI/middleware"
	"poiAPI/services"
)

type LeaderboardHandler struct {
	leaderboardService *services.LeaderboardService
}

func NewLeaderboardHandler(leaderboardService *services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: leaderboardService}
}

// GetLeaderboard is public; an authenticated caller also gets their rank.
func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	principal := ""
	if identity, ok := middleware.GetIdentity(ctx); ok {
		principal = identity.Principal
	}

	respondWithJSON(w, http.StatusOK, h.leaderboardService.GetLeaderboard(ctx, principal))
}
