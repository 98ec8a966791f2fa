package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"poiAPI/internal/backend"
	"poiAPI/internal/logger"
	"poiAPI/internal/types/admin"
	"poiAPI/middleware"
	"poiAPI/services"
)

// AdminHandler relays admin operations. Authorization is enforced by the
// backend, which compares the caller with the claimed admin principal.
type AdminHandler struct {
	clients *services.Clients
	log     *logger.Logger
}

func NewAdminHandler(clients *services.Clients, log *logger.Logger) *AdminHandler {
	return &AdminHandler{clients: clients, log: log}
}

func (h *AdminHandler) service(w http.ResponseWriter, r *http.Request) (*backend.Identity, *services.ChallengeService, bool) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return nil, nil, false
	}
	return identity, h.clients.Challenges(identity), true
}

func (h *AdminHandler) GetAdmin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	identity, svc, ok := h.service(w, r)
	if !ok {
		return
	}

	status, err := adminStatus(ctx, svc, identity)
	if err != nil {
		respondWithBackendError(w, r, h.log, err, "Failed to load admin status")
		return
	}
	respondWithJSON(w, http.StatusOK, status)
}

// ClaimAdmin makes the caller the admin. The backend allows this only once.
func (h *AdminHandler) ClaimAdmin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	identity, svc, ok := h.service(w, r)
	if !ok {
		return
	}

	if err := svc.SetAdmin(ctx); err != nil {
		respondWithBackendError(w, r, h.log, err, "Failed to set admin. You might not be authorized or admin is already set")
		return
	}

	status, err := adminStatus(ctx, svc, identity)
	if err != nil {
		respondWithBackendError(w, r, h.log, err, "Failed to load admin status")
		return
	}
	respondWithJSON(w, http.StatusOK, status)
}

func adminStatus(ctx context.Context, svc *services.ChallengeService, identity *backend.Identity) (*admin.AdminStatus, error) {
	current, err := svc.GetAdmin(ctx)
	if err != nil {
		return nil, err
	}
	return &admin.AdminStatus{
		Admin:   current,
		IsAdmin: current != nil && *current == identity.Principal,
	}, nil
}

func (h *AdminHandler) GetApifyStatus(w http.ResponseWriter, r *http.Request) {
	_, svc, ok := h.service(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var status admin.TokenStatus
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		set, err := svc.IsApifyBearerTokenSet(gctx)
		status.Set = set
		return err
	})
	g.Go(func() error {
		masked, err := svc.GetApifyBearerTokenMasked(gctx)
		status.Masked = masked
		return err
	})
	if err := g.Wait(); err != nil {
		respondWithBackendError(w, r, h.log, err, "Failed to load token status")
		return
	}
	respondWithJSON(w, http.StatusOK, status)
}

// SetApify stores the Apify bearer token and cookies together.
func (h *AdminHandler) SetApify(w http.ResponseWriter, r *http.Request) {
	_, svc, ok := h.service(w, r)
	if !ok {
		return
	}

	var req admin.SetApifyRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.SetApifyBearerToken(gctx, strings.TrimSpace(req.BearerToken)) })
	g.Go(func() error { return svc.SetApifyCookies(gctx, strings.TrimSpace(req.Cookies)) })
	if err := g.Wait(); err != nil {
		respondWithBackendError(w, r, h.log, err, "Failed to set token and cookies")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) GetSystemData(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	_, svc, ok := h.service(w, r)
	if !ok {
		return
	}

	data, err := svc.GetSystemData(ctx)
	if err != nil {
		respondWithBackendError(w, r, h.log, err, "Failed to load system data")
		return
	}
	respondWithJSON(w, http.StatusOK, data)
}

func (h *AdminHandler) RecalculatePoints(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	_, svc, ok := h.service(w, r)
	if !ok {
		return
	}

	result, err := svc.RecalculateAllUserPoints(ctx)
	if err != nil {
		respondWithBackendError(w, r, h.log, err, "Failed to recalculate points")
		return
	}
	logger.FromContext(ctx, h.log).
		WithField("users_processed", result.UsersProcessed).
		WithField("total_points_updated", result.TotalPointsUpdated).
		Info("Recalculated user points")
	respondWithJSON(w, http.StatusOK, result)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	_, svc, ok := h.service(w, r)
	if !ok {
		return
	}

	principal := strings.TrimSpace(mux.Vars(r)["principal"])
	if principal == "" {
		respondWithError(w, http.StatusBadRequest, "Please enter a user principal")
		return
	}

	result, err := svc.DeleteUser(ctx, principal)
	if err != nil {
		respondWithBackendError(w, r, h.log, err, "Failed to delete user")
		return
	}
	code := http.StatusOK
	if !result.Success {
		code = http.StatusConflict
	}
	respondWithJSON(w, code, result)
}
