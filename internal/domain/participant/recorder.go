package participant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/rpggio/splitlab/internal/repository"
)

// Recorder attaches conversion outcomes to existing assignments.
type Recorder struct {
	repo    Repository
	metrics Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewRecorder creates a conversion recorder.
func NewRecorder(repo Repository, metrics Metrics, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Recorder{repo: repo, metrics: metrics, logger: logger, now: time.Now}
}

// ConversionRequest marks a participant as converted.
type ConversionRequest struct {
	ParticipantID string
	// ExperimentID, when set, must match the participant's experiment.
	ExperimentID    string
	ConvertedAt     *time.Time
	ConversionValue *float64
}

// Record sets the conversion fields, overwriting any earlier conversion.
func (r *Recorder) Record(ctx context.Context, req ConversionRequest) (*Assignment, error) {
	if strings.TrimSpace(req.ParticipantID) == "" {
		return nil, ErrInvalidInput
	}
	if v := req.ConversionValue; v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
		return nil, ErrInvalidInput
	}

	convertedAt := r.now()
	if req.ConvertedAt != nil && !req.ConvertedAt.IsZero() {
		convertedAt = *req.ConvertedAt
	}

	rec, err := r.repo.UpdateConversion(ctx, req.ParticipantID, req.ExperimentID, convertedAt.UTC(), req.ConversionValue)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, r.notFound(ctx, req)
		}
		return nil, fmt.Errorf("recording conversion: %w", err)
	}

	if r.metrics != nil {
		r.metrics.ConversionRecorded(ctx, rec.ExperimentID, rec.VariantName, rec.ConversionValue)
	}
	r.logger.Info("experiments.conversion_recorded", "participant_id", rec.ID, "experiment_id", rec.ExperimentID)

	return rec, nil
}

// notFound tells an unknown participant apart from one scoped to another experiment.
func (r *Recorder) notFound(ctx context.Context, req ConversionRequest) error {
	if req.ExperimentID == "" {
		return ErrParticipantNotFound
	}
	if _, err := r.repo.Get(ctx, req.ParticipantID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrParticipantNotFound
		}
		return fmt.Errorf("loading participant: %w", err)
	}
	return ErrExperimentMismatch
}
