package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rpggio/splitlab/internal/domain/experiment"
	"github.com/rpggio/splitlab/internal/domain/participant"
)

const maxBodyBytes = 1 << 20

// ErrorBody is the JSON error payload.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errBadRequest marks malformed request bodies.
var errBadRequest = errors.New("bad request")

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorBody{Code: code, Message: message})
}

// statusFor maps domain errors to an HTTP status and error code. ok is
// false for unexpected errors, whose message must not leak.
func statusFor(err error) (status int, code string, ok bool) {
	var verr *experiment.ValidationError
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "BAD_REQUEST", true
	case errors.As(err, &verr):
		return http.StatusBadRequest, "INVALID_DEFINITION", true
	case errors.Is(err, participant.ErrMissingIdentity):
		return http.StatusBadRequest, "MISSING_IDENTITY", true
	case errors.Is(err, participant.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_INPUT", true
	case errors.Is(err, participant.ErrExperimentMismatch):
		return http.StatusBadRequest, "EXPERIMENT_MISMATCH", true
	case errors.Is(err, experiment.ErrExperimentNotFound), errors.Is(err, participant.ErrExperimentNotFound):
		return http.StatusNotFound, "EXPERIMENT_NOT_FOUND", true
	case errors.Is(err, participant.ErrParticipantNotFound):
		return http.StatusNotFound, "PARTICIPANT_NOT_FOUND", true
	case errors.Is(err, experiment.ErrInvalidTransition):
		return http.StatusConflict, "INVALID_TRANSITION", true
	default:
		return http.StatusInternalServerError, "INTERNAL", false
	}
}
