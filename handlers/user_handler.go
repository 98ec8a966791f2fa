package handlers

import (
	"context"
	"net/http"
	"time"

	"poiAPI/internal/logger"
	"poiAPI/internal/types/user"
	"poiAPI/middleware"
	"poiAPI/services"
	"poiAPI/utils"
)

type UserHandler struct {
	profiles *services.ProfileService
	registry *services.PointsRegistry
	log      *logger.Logger
}

func NewUserHandler(profiles *services.ProfileService, registry *services.PointsRegistry, log *logger.Logger) *UserHandler {
	return &UserHandler{profiles: profiles, registry: registry, log: log}
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	origin := utils.RequestOrigin(r)
	profile, err := h.profiles.Profile(ctx, identity, origin, utils.ParseBool(r.URL.Query().Get("refresh")))
	if err != nil {
		respondWithBackendError(w, r, h.log, err, "Failed to fetch user data")
		return
	}

	respondWithJSON(w, http.StatusOK, user.ProfileResponse{
		Principal: identity.Principal,
		Profile:   profile,
	})
}

// Logout drops everything the gateway holds for the caller.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	h.profiles.Forget(identity.Principal)
	h.registry.Forget(identity.Principal)
	w.WriteHeader(http.StatusNoContent)
}
