package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"poiAPI/internal/backend"
	"poiAPI/internal/logger"
	"poiAPI/internal/types/challenge"
	"poiAPI/middleware"
	"poiAPI/services"
	"poiAPI/utils"
)

type ChallengeHandler struct {
	clients  *services.Clients
	registry *services.PointsRegistry
	log      *logger.Logger
}

func NewChallengeHandler(clients *services.Clients, registry *services.PointsRegistry, log *logger.Logger) *ChallengeHandler {
	return &ChallengeHandler{clients: clients, registry: registry, log: log}
}

type verifyResponse struct {
	challenge.VerifyResult
	Status *challenge.Status `json:"status"`
}

// caller resolves the identity and the {id} path parameter when the route has one.
func (h *ChallengeHandler) caller(w http.ResponseWriter, r *http.Request, withID bool) (*backend.Identity, uint64, bool) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return nil, 0, false
	}
	if !withID {
		return identity, 0, true
	}
	id, err := utils.ParseID(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return nil, 0, false
	}
	return identity, id, true
}

func (h *ChallengeHandler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	identity, _, ok := h.caller(w, r, false)
	if !ok {
		return
	}
	svc := h.clients.Challenges(identity)

	list, err := svc.GetChallenges(ctx)
	if err != nil {
		respondWithBackendError(w, r, h.log, err, "Failed to load challenges")
		return
	}

	statuses, err := svc.GetChallengeStatuses(ctx, list)
	if err != nil {
		logger.FromContext(ctx, h.log).WithError(err).Warn("Failed to load challenge statuses")
		statuses = nil
	}

	result := make([]challenge.WithStatus, 0, len(list))
	for _, c := range list {
		result = append(result, challenge.WithStatus{Challenge: c, Status: statuses[c.ID]})
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (h *ChallengeHandler) GetChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	identity, id, ok := h.caller(w, r, true)
	if !ok {
		return
	}

	c, err := h.clients.Challenges(identity).GetChallenge(ctx, id)
	if err != nil {
		respondWithBackendError(w, r, h.log, err, "Failed to load challenge")
		return
	}
	if c == nil {
		respondWithError(w, http.StatusNotFound, "Challenge not found")
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *ChallengeHandler) GetChallengeStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	identity, id, ok := h.caller(w, r, true)
	if !ok {
		return
	}

	status, err := h.clients.Challenges(identity).GetChallengeStatus(ctx, id)
	if err != nil {
		respondWithBackendError(w, r, h.log, err, "Failed to load challenge status")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]*challenge.Status{"status": status})
}

// VerifyChallenge asks the backend to check the follow. A rejected
// verification is still a 200 carrying the error message; the caller's points
// cache is invalidated when the verification succeeds.
func (h *ChallengeHandler) VerifyChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	identity, id, ok := h.caller(w, r, true)
	if !ok {
		return
	}
	svc := h.clients.Challenges(identity)

	result, err := svc.VerifyChallenge(ctx, id)
	if err != nil {
		respondWithBackendError(w, r, h.log, err, "Verification failed. Please try again.")
		return
	}

	log := logger.FromContext(ctx, h.log).WithFields(logrus.Fields{
		"challenge_id": id,
		"success":      result.Success,
		"rate_limited": result.RateLimited,
	})
	log.Info("Challenge verification finished")

	if result.Success {
		h.registry.For(identity).Invalidate()
	}

	resp := verifyResponse{VerifyResult: result}
	if status, err := svc.GetChallengeStatus(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to refresh challenge status after verification")
	} else {
		resp.Status = status
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *ChallengeHandler) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	identity, _, ok := h.caller(w, r, false)
	if !ok {
		return
	}

	var req challenge.UpsertChallengeRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Normalize()

	id, err := h.clients.Challenges(identity).CreateChallenge(ctx,
		req.Description, challenge.Follows(req.UserToFollow), req.Points, req.MarkdownMessage)
	if err != nil {
		respondWithBackendError(w, r, h.log, err, "Failed to create challenge")
		return
	}
	respondWithJSON(w, http.StatusCreated, challenge.CreateResponse{ID: id})
}

func (h *ChallengeHandler) UpdateChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	identity, id, ok := h.caller(w, r, true)
	if !ok {
		return
	}

	var req challenge.UpsertChallengeRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Normalize()

	updated, err := h.clients.Challenges(identity).UpdateChallenge(ctx, id,
		req.Description, challenge.Follows(req.UserToFollow), req.Points, req.MarkdownMessage)
	if err != nil {
		respondWithBackendError(w, r, h.log, err, "Failed to update challenge")
		return
	}
	if !updated {
		respondWithError(w, http.StatusNotFound, "Challenge not found or not updated")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (h *ChallengeHandler) DeleteChallenge(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "deleted", (*services.ChallengeService).DeleteChallenge)
}

func (h *ChallengeHandler) EnableChallenge(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "enabled", (*services.ChallengeService).EnableChallenge)
}

func (h *ChallengeHandler) DisableChallenge(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "disabled", (*services.ChallengeService).DisableChallenge)
}

// toggle runs a boolean mutation against one challenge. Mutations are never retried.
func (h *ChallengeHandler) toggle(w http.ResponseWriter, r *http.Request, verb string,
	op func(*services.ChallengeService, context.Context, uint64) (bool, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	identity, id, ok := h.caller(w, r, true)
	if !ok {
		return
	}

	done, err := op(h.clients.Challenges(identity), ctx, id)
	if err != nil {
		respondWithBackendError(w, r, h.log, err, "Failed to update challenge")
		return
	}
	if !done {
		respondWithError(w, http.StatusNotFound, "Challenge not found or not "+verb)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{verb: true})
}
