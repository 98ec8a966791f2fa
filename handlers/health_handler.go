package handlers

import (
	"context"
	"net/http"
	"time"

	"poiAPI/internal/store"
	"poiAPI/services"
)

type HealthHandler struct {
	store   store.LeaderboardStore
	clients *services.Clients
}

func NewHealthHandler(st store.LeaderboardStore, clients *services.Clients) *HealthHandler {
	return &HealthHandler{store: st, clients: clients}
}

type healthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Checks  map[string]string `json:"checks"`
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "healthy", Service: "poi-api", Checks: map[string]string{}}
	code := http.StatusOK

	if err := h.store.Ping(ctx); err != nil {
		resp.Checks["store"] = "error: " + err.Error()
		resp.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	} else {
		resp.Checks["store"] = "ok"
	}

	if h.clients.Configured() {
		resp.Checks["backend"] = "configured"
	} else {
		resp.Checks["backend"] = "not configured"
		resp.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	respondWithJSON(w, code, resp)
}
