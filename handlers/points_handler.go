package handlers

import (
	"net/http"

	"poiAPI/internal/types/points"
	"poiAPI/middleware"
	"poiAPI/services"
	"poiAPI/utils"
)

type PointsHandler struct {
	registry *services.PointsRegistry
}

func NewPointsHandler(registry *services.PointsRegistry) *PointsHandler {
	return &PointsHandler{registry: registry}
}

// GetPoints serves the caller's points from cache; ?refresh=true forces a fetch.
// It always answers 200: backend failures degrade to the last known or zero points.
func (h *PointsHandler) GetPoints(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	cache := h.registry.For(identity)
	snap := cache.GetPoints(r.Context(), utils.ParseBool(r.URL.Query().Get("refresh")))

	resp := points.Response{
		Points:       snap,
		Stale:        cache.ShouldRefresh(),
		IsRefreshing: cache.IsRefreshing(),
	}
	if last := cache.LastUpdate(); !last.IsZero() {
		ms := last.UnixMilli()
		resp.LastUpdate = &ms
	}

	respondWithJSON(w, http.StatusOK, resp)
}
