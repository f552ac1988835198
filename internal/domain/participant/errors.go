package participant

import "errors"

var (
	// ErrMissingIdentity indicates none of user, customer or session id was given.
	ErrMissingIdentity = errors.New("at least one participant identifier must be provided")
	// ErrInvalidInput indicates other malformed assignment or conversion input.
	ErrInvalidInput = errors.New("invalid participant input")
	// ErrParticipantNotFound indicates no assignment with the given id exists.
	ErrParticipantNotFound = errors.New("participant not found")
	// ErrExperimentNotFound indicates the assignment references an unknown experiment.
	ErrExperimentNotFound = errors.New("experiment not found")
	// ErrExperimentMismatch indicates the participant belongs to another experiment.
	ErrExperimentMismatch = errors.New("participant does not belong to the specified experiment")
)
