package mcp

import (
	"context"

	"github.com/rpggio/splitlab/internal/domain/activity"
	"github.com/rpggio/splitlab/internal/domain/experiment"
	"github.com/rpggio/splitlab/internal/domain/participant"
)

// Handler implements the experiment tools on top of the domain services.
type Handler struct {
	services Services
}

// NewHandler creates a new MCP handler.
func NewHandler(services Services) *Handler {
	return &Handler{services: services}
}

func (h *Handler) CreateExperiment(ctx context.Context, tenantID string, p CreateExperimentParams) (*experiment.Experiment, error) {
	req, err := p.toRequest()
	if err != nil {
		return nil, err
	}
	exp, err := h.services.Experiments.Create(ctx, tenantID, req)
	return exp, mapError(err)
}

func (h *Handler) ListExperiments(ctx context.Context, tenantID string) (ListExperimentsResponse, error) {
	list, err := h.services.Experiments.List(ctx, tenantID)
	if err != nil {
		return ListExperimentsResponse{}, mapError(err)
	}
	return ListExperimentsResponse{Experiments: list}, nil
}

func (h *Handler) GetExperiment(ctx context.Context, tenantID string, p GetExperimentParams) (*experiment.Detail, error) {
	detail, err := h.services.Experiments.GetDetail(ctx, tenantID, p.ID)
	return detail, mapError(err)
}

// AssignParticipant scopes the assignment to the caller's tenant before upserting.
func (h *Handler) AssignParticipant(ctx context.Context, tenantID string, p AssignParticipantParams) (*participant.Assignment, error) {
	if _, err := h.services.Experiments.Get(ctx, tenantID, p.ExperimentID); err != nil {
		return nil, mapError(err)
	}
	req, err := p.toRequest()
	if err != nil {
		return nil, err
	}
	rec, err := h.services.Assignments.Assign(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}
	return rec, nil
}

func (h *Handler) RecordConversion(ctx context.Context, tenantID string, p RecordConversionParams) (*participant.Assignment, error) {
	if _, err := h.services.Experiments.Get(ctx, tenantID, p.ExperimentID); err != nil {
		return nil, mapError(err)
	}
	req, err := p.toRequest()
	if err != nil {
		return nil, err
	}
	rec, err := h.services.Conversions.Record(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}
	return rec, nil
}

func (h *Handler) UpdateExperimentStatus(ctx context.Context, tenantID string, p UpdateExperimentStatusParams) (*experiment.Experiment, error) {
	exp, err := h.services.Experiments.UpdateStatus(ctx, tenantID, p.ID, experiment.Status(p.Status))
	return exp, mapError(err)
}

func (h *Handler) GetExperimentActivity(ctx context.Context, tenantID string, p GetExperimentActivityParams) (ActivityResponse, error) {
	if _, err := h.services.Experiments.Get(ctx, tenantID, p.ID); err != nil {
		return ActivityResponse{}, mapError(err)
	}
	opts := activity.ListActivityOptions{
		ExperimentID: p.ID,
		Limit:        p.Limit,
		Offset:       p.Offset,
	}
	if p.Type != "" {
		typ := activity.ActivityType(p.Type)
		opts.ActivityType = &typ
	}
	entries, err := h.services.Activity.GetRecentActivity(ctx, tenantID, opts)
	if err != nil {
		return ActivityResponse{}, mapError(err)
	}
	return ActivityResponse{Entries: entries}, nil
}
