package experiment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/splitlab/internal/domain/activity"
	"github.com/rpggio/splitlab/internal/domain/stats"
	"github.com/rpggio/splitlab/internal/repository"
)

// Service is the experiment registry: it validates and persists definitions
// and serves summaries and detail views with computed statistics.
type Service struct {
	experiments  Repository
	participants ParticipantRepository
	activities   ActivityRepository
	metrics      Metrics
	logger       *slog.Logger
	now          func() time.Time
}

// NewService creates a new experiment service. activities and metrics may be nil.
func NewService(
	experiments Repository,
	participants ParticipantRepository,
	activities ActivityRepository,
	metrics Metrics,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		experiments:  experiments,
		participants: participants,
		activities:   activities,
		metrics:      metrics,
		logger:       logger,
		now:          time.Now,
	}
}

// CreateRequest describes an experiment definition.
type CreateRequest struct {
	Name              string
	Description       string
	Hypothesis        string
	Variants          []Variant
	SuccessMetrics    []SuccessMetric
	TrafficAllocation map[string]float64
	Status            Status
	StartDate         *time.Time
	EndDate           *time.Time
	CreatedBy         string
}

// Create validates and persists a new experiment.
func (s *Service) Create(ctx context.Context, tenantID string, req CreateRequest) (*Experiment, error) {
	if tenantID == "" {
		return nil, invalid("tenant_id", "tenant_id is required")
	}
	if err := ValidateCreateInput(req); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = StatusDraft
	}

	now := s.now().UTC()
	exp := &Experiment{
		ID:                uuid.NewString(),
		TenantID:          tenantID,
		Name:              req.Name,
		Description:       req.Description,
		Hypothesis:        req.Hypothesis,
		Variants:          normalizeVariants(req.Variants),
		SuccessMetrics:    normalizeMetrics(req.SuccessMetrics),
		TrafficAllocation: req.TrafficAllocation,
		Status:            status,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		CreatedBy:         req.CreatedBy,
		CreatedAt:         now,
		UpdatedAt:         now,
		Results:           CachedResults{},
	}
	if len(exp.TrafficAllocation) == 0 {
		exp.TrafficAllocation = DeriveAllocation(exp.Variants)
	}

	if err := s.experiments.Create(ctx, tenantID, exp); err != nil {
		return nil, fmt.Errorf("creating experiment: %w", err)
	}

	s.logger.Info("experiments.created", "experiment_id", exp.ID, "tenant_id", tenantID)
	if s.metrics != nil {
		s.metrics.ExperimentCreated(ctx, tenantID)
	}
	s.logActivity(ctx, tenantID, exp.ID, activity.TypeExperimentCreated, fmt.Sprintf("created experiment %s", exp.Name))

	return exp, nil
}

// Get returns an experiment definition without statistics.
func (s *Service) Get(ctx context.Context, tenantID, id string) (*Experiment, error) {
	exp, err := s.experiments.Get(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExperimentNotFound
		}
		return nil, fmt.Errorf("getting experiment: %w", err)
	}
	return exp, nil
}

// List returns experiment summaries, newest first.
func (s *Service) List(ctx context.Context, tenantID string) ([]Summary, error) {
	summaries, err := s.experiments.List(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing experiments: %w", err)
	}
	if summaries == nil {
		summaries = []Summary{}
	}
	return summaries, nil
}

// GetDetail loads an experiment and computes its variant statistics.
func (s *Service) GetDetail(ctx context.Context, tenantID, id string) (*Detail, error) {
	exp, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	results, err := s.evaluate(ctx, exp)
	if err != nil {
		return nil, err
	}

	return &Detail{Experiment: exp, Results: results}, nil
}

// UpdateStatus moves an experiment along its lifecycle. Completing an
// experiment caches the suggested winner in the results blob.
func (s *Service) UpdateStatus(ctx context.Context, tenantID, id string, to Status) (*Experiment, error) {
	exp, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(exp.Status, to); err != nil {
		return nil, fmt.Errorf("%w: %s -> %s", err, exp.Status, to)
	}

	now := s.now().UTC()
	change := StatusChange{From: exp.Status, To: to, UpdatedAt: now}
	if to == StatusCompleted {
		results, err := s.evaluate(ctx, exp)
		if err != nil {
			return nil, err
		}
		cached := CachedResults{
			"baseline_variant": results.BaselineVariant,
			"computed_at":      now.Format(time.RFC3339),
		}
		if results.SuggestedWinner != nil {
			cached["winner"] = *results.SuggestedWinner
		}
		if results.OverallConfidence != nil {
			cached["overall_confidence"] = *results.OverallConfidence
		}
		change.Results = cached
	}

	if err := s.experiments.UpdateStatus(ctx, tenantID, id, change); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrExperimentNotFound
		case errors.Is(err, repository.ErrConflict):
			return nil, fmt.Errorf("%w: status changed from %s while updating", ErrInvalidTransition, exp.Status)
		}
		return nil, fmt.Errorf("updating experiment status: %w", err)
	}
	if change.Results != nil {
		exp.Results = change.Results
	}

	s.logger.Info("experiments.status_changed", "experiment_id", id, "tenant_id", tenantID, "from", exp.Status, "to", to)
	s.logActivity(ctx, tenantID, id, activity.TypeStatusChanged, fmt.Sprintf("status %s -> %s", exp.Status, to))

	exp.Status = to
	exp.UpdatedAt = now
	return exp, nil
}

func (s *Service) evaluate(ctx context.Context, exp *Experiment) (stats.Results, error) {
	counts, err := s.participants.Aggregates(ctx, exp.ID)
	if err != nil {
		return stats.Results{}, fmt.Errorf("aggregating participants: %w", err)
	}
	return stats.Evaluate(exp.VariantNames(), counts), nil
}

func (s *Service) logActivity(ctx context.Context, tenantID, experimentID string, typ activity.ActivityType, summary string) {
	if s.activities == nil {
		return
	}
	err := s.activities.Log(ctx, tenantID, &activity.ActivityEntry{
		ExperimentID: experimentID,
		ActivityType: typ,
		Summary:      summary,
	})
	if err != nil {
		s.logger.Warn("experiments.activity_log_failed", "experiment_id", experimentID, "error", err)
	}
}

// DeriveAllocation builds the name→allocation map from variants.
func DeriveAllocation(variants []Variant) map[string]float64 {
	allocation := make(map[string]float64, len(variants))
	for _, v := range variants {
		allocation[v.Name] = math.Round(v.Allocation*10000) / 10000
	}
	return allocation
}

func normalizeVariants(in []Variant) []Variant {
	out := make([]Variant, len(in))
	for i, v := range in {
		if v.Metadata == nil {
			v.Metadata = map[string]any{}
		}
		out[i] = v
	}
	return out
}

func normalizeMetrics(in []SuccessMetric) []SuccessMetric {
	out := make([]SuccessMetric, len(in))
	for i, m := range in {
		if m.Goal == "" {
			m.Goal = GoalIncrease
		}
		if m.Weight == 0 {
			m.Weight = 1.0
		}
		out[i] = m
	}
	return out
}
