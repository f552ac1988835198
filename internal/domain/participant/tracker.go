package participant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/splitlab/internal/repository"
)

// Tracker assigns participant identities to experiment variants.
type Tracker struct {
	repo    Repository
	policy  Policy
	metrics Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewTracker creates a tracker. An empty policy means PolicyOverwrite.
func NewTracker(repo Repository, policy Policy, metrics Metrics, logger *slog.Logger) *Tracker {
	if policy == "" {
		policy = PolicyOverwrite
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Tracker{repo: repo, policy: policy, metrics: metrics, logger: logger, now: time.Now}
}

// AssignRequest describes a variant assignment.
type AssignRequest struct {
	ExperimentID string
	VariantName  string
	Identity     Identity
	AssignedAt   time.Time
}

// Policy returns the reassignment policy in effect.
func (t *Tracker) Policy() Policy {
	return t.policy
}

// Assign records the assignment, upserting on the experiment+identity key.
func (t *Tracker) Assign(ctx context.Context, req AssignRequest) (*Assignment, error) {
	if req.Identity.Empty() {
		return nil, ErrMissingIdentity
	}
	if strings.TrimSpace(req.ExperimentID) == "" || strings.TrimSpace(req.VariantName) == "" {
		return nil, ErrInvalidInput
	}

	assignedAt := req.AssignedAt
	if assignedAt.IsZero() {
		assignedAt = t.now()
	}

	row := &Assignment{
		ID:           uuid.NewString(),
		ExperimentID: req.ExperimentID,
		UserID:       optional(req.Identity.UserID),
		CustomerID:   optional(req.Identity.CustomerID),
		SessionID:    optional(req.Identity.SessionID),
		VariantName:  req.VariantName,
		AssignedAt:   assignedAt.UTC(),
	}

	stored, err := t.repo.Upsert(ctx, row, t.policy)
	if err != nil {
		t.logger.Error("experiments.assignment_failed", "experiment_id", req.ExperimentID, "error", err)
		if errors.Is(err, repository.ErrForeignKeyViolation) {
			return nil, ErrExperimentNotFound
		}
		return nil, fmt.Errorf("upserting assignment: %w", err)
	}

	if t.metrics != nil {
		t.metrics.AssignmentRecorded(ctx, stored.ExperimentID, stored.VariantName)
	}
	t.logger.Debug("experiments.assigned", "experiment_id", stored.ExperimentID, "participant_id", stored.ID, "variant", stored.VariantName)

	return stored, nil
}
