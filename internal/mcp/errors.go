package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/splitlab/internal/domain/experiment"
	"github.com/rpggio/splitlab/internal/domain/participant"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.RecoveryHint != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var verr *experiment.ValidationError
	switch {
	case errors.As(err, &verr):
		return &APIError{Code: "INVALID_DEFINITION", Message: verr.Error(), RecoveryHint: "Fix " + verr.Field + " and retry"}
	case errors.Is(err, experiment.ErrExperimentNotFound), errors.Is(err, participant.ErrExperimentNotFound):
		return &APIError{Code: "EXPERIMENT_NOT_FOUND", Message: "experiment not found", RecoveryHint: "Call list_experiments for valid ids"}
	case errors.Is(err, experiment.ErrInvalidTransition):
		return &APIError{Code: "INVALID_TRANSITION", Message: err.Error(), RecoveryHint: "Check valid transitions"}
	case errors.Is(err, participant.ErrMissingIdentity):
		return &APIError{Code: "MISSING_IDENTITY", Message: err.Error(), RecoveryHint: "Pass user_id, customer_id or session_id"}
	case errors.Is(err, participant.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	case errors.Is(err, participant.ErrParticipantNotFound):
		return &APIError{Code: "PARTICIPANT_NOT_FOUND", Message: "participant not found", RecoveryHint: "Use the id returned by assign_participant"}
	case errors.Is(err, participant.ErrExperimentMismatch):
		return &APIError{Code: "EXPERIMENT_MISMATCH", Message: err.Error()}
	default:
		return nil
	}
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
