package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"poiAPI/internal/backend"
	"poiAPI/internal/logger"
)

var validate = validator.New()

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithBackendError maps a remote-call failure to a status code and logs it.
func respondWithBackendError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error, message string) {
	logger.FromContext(r.Context(), log).WithError(err).Error(message)

	switch {
	case errors.Is(err, backend.ErrNotConfigured):
		respondWithError(w, http.StatusInternalServerError, "Backend canister not available")
	case errors.Is(err, backend.ErrUnauthenticated):
		respondWithError(w, http.StatusForbidden, message+": not authorized")
	case errors.Is(err, context.DeadlineExceeded):
		respondWithError(w, http.StatusGatewayTimeout, message+": backend timed out")
	default:
		respondWithError(w, http.StatusBadGateway, message)
	}
}

// decodeAndValidate reads a JSON body into v and runs its validate tags.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("Invalid request body")
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
			}
			return errors.New("Invalid fields: " + strings.Join(fields, ", "))
		}
		return err
	}
	return nil
}
