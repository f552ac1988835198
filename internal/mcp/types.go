package mcp

import (
	"time"

	"github.com/rpggio/splitlab/internal/domain/activity"
	"github.com/rpggio/splitlab/internal/domain/experiment"
	"github.com/rpggio/splitlab/internal/domain/participant"
)

type VariantParams struct {
	Key         string         `json:"key" jsonschema:"stable variant key"`
	Name        string         `json:"name" jsonschema:"variant name; assignments reference this"`
	Allocation  float64        `json:"allocation" jsonschema:"traffic share in (0, 1]"`
	Description string         `json:"description,omitempty"`
	IsControl   bool           `json:"is_control,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type SuccessMetricParams struct {
	Name   string   `json:"name"`
	Goal   string   `json:"goal,omitempty" jsonschema:"increase (default) or decrease"`
	Target *float64 `json:"target,omitempty"`
	Weight float64  `json:"weight,omitempty" jsonschema:"defaults to 1.0"`
}

type CreateExperimentParams struct {
	Name              string                `json:"name"`
	Description       string                `json:"description,omitempty"`
	Hypothesis        string                `json:"hypothesis,omitempty"`
	Variants          []VariantParams       `json:"variants" jsonschema:"at least two variants; allocations must sum to 1.0"`
	SuccessMetrics    []SuccessMetricParams `json:"success_metrics" jsonschema:"at least one success metric"`
	TrafficAllocation map[string]float64    `json:"traffic_allocation,omitempty" jsonschema:"derived from variants when omitted"`
	Status            string                `json:"status,omitempty" jsonschema:"initial status, defaults to draft"`
	StartDate         string                `json:"start_date,omitempty" jsonschema:"RFC 3339 timestamp"`
	EndDate           string                `json:"end_date,omitempty" jsonschema:"RFC 3339 timestamp"`
	CreatedBy         string                `json:"created_by"`
}

type ListExperimentsParams struct{}

type GetExperimentParams struct {
	ID string `json:"id"`
}

type AssignParticipantParams struct {
	ExperimentID string `json:"experiment_id"`
	VariantName  string `json:"variant_name"`
	UserID       string `json:"user_id,omitempty"`
	CustomerID   string `json:"customer_id,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
	AssignedAt   string `json:"assigned_at,omitempty" jsonschema:"RFC 3339 timestamp, defaults to now"`
}

type RecordConversionParams struct {
	ExperimentID    string   `json:"experiment_id"`
	ParticipantID   string   `json:"participant_id"`
	ConvertedAt     string   `json:"converted_at,omitempty" jsonschema:"RFC 3339 timestamp, defaults to now"`
	ConversionValue *float64 `json:"conversion_value,omitempty"`
}

type UpdateExperimentStatusParams struct {
	ID     string `json:"id"`
	Status string `json:"status" jsonschema:"draft, running, paused, completed or archived"`
}

type GetExperimentActivityParams struct {
	ID     string `json:"id"`
	Type   string `json:"type,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

type ListExperimentsResponse struct {
	Experiments []experiment.Summary `json:"experiments"`
}

type ActivityResponse struct {
	Entries []activity.ActivityEntry `json:"entries"`
}

func (p CreateExperimentParams) toRequest() (experiment.CreateRequest, error) {
	start, err := parseOptionalTime("start_date", p.StartDate)
	if err != nil {
		return experiment.CreateRequest{}, err
	}
	end, err := parseOptionalTime("end_date", p.EndDate)
	if err != nil {
		return experiment.CreateRequest{}, err
	}

	variants := make([]experiment.Variant, 0, len(p.Variants))
	for _, v := range p.Variants {
		variants = append(variants, experiment.Variant{
			Key:         v.Key,
			Name:        v.Name,
			Allocation:  v.Allocation,
			Description: v.Description,
			IsControl:   v.IsControl,
			Metadata:    v.Metadata,
		})
	}
	metrics := make([]experiment.SuccessMetric, 0, len(p.SuccessMetrics))
	for _, m := range p.SuccessMetrics {
		metrics = append(metrics, experiment.SuccessMetric{
			Name:   m.Name,
			Goal:   experiment.Goal(m.Goal),
			Target: m.Target,
			Weight: m.Weight,
		})
	}

	return experiment.CreateRequest{
		Name:              p.Name,
		Description:       p.Description,
		Hypothesis:        p.Hypothesis,
		Variants:          variants,
		SuccessMetrics:    metrics,
		TrafficAllocation: p.TrafficAllocation,
		Status:            experiment.Status(p.Status),
		StartDate:         start,
		EndDate:           end,
		CreatedBy:         p.CreatedBy,
	}, nil
}

func (p AssignParticipantParams) toRequest() (participant.AssignRequest, error) {
	at, err := parseOptionalTime("assigned_at", p.AssignedAt)
	if err != nil {
		return participant.AssignRequest{}, err
	}
	req := participant.AssignRequest{
		ExperimentID: p.ExperimentID,
		VariantName:  p.VariantName,
		Identity: participant.Identity{
			UserID:     p.UserID,
			CustomerID: p.CustomerID,
			SessionID:  p.SessionID,
		},
	}
	if at != nil {
		req.AssignedAt = *at
	}
	return req, nil
}

func (p RecordConversionParams) toRequest() (participant.ConversionRequest, error) {
	at, err := parseOptionalTime("converted_at", p.ConvertedAt)
	if err != nil {
		return participant.ConversionRequest{}, err
	}
	return participant.ConversionRequest{
		ParticipantID:   p.ParticipantID,
		ExperimentID:    p.ExperimentID,
		ConvertedAt:     at,
		ConversionValue: p.ConversionValue,
	}, nil
}

func parseOptionalTime(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, &APIError{Code: "INVALID_INPUT", Message: field + " must be an RFC 3339 timestamp"}
	}
	return &t, nil
}
