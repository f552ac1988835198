package participant_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rpggio/splitlab/internal/domain/participant"
	"github.com/rpggio/splitlab/internal/repository"
	"github.com/rpggio/splitlab/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Record(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ParticipantRepository{}
	metrics := &mocks.Metrics{}
	at := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	value := 42.5

	stored := &participant.Assignment{
		ID:              "p1",
		ExperimentID:    "exp1",
		VariantName:     "VariantB",
		ConvertedAt:     &at,
		ConversionValue: &value,
	}
	repo.On("UpdateConversion", ctx, "p1", "", at, &value).Return(stored, nil)
	metrics.On("ConversionRecorded", ctx, "exp1", "VariantB", &value).Return()

	rec := participant.NewRecorder(repo, metrics, nil)
	got, err := rec.Record(ctx, participant.ConversionRequest{
		ParticipantID:   "p1",
		ConvertedAt:     &at,
		ConversionValue: &value,
	})
	require.NoError(t, err)
	require.True(t, got.Converted())
	require.Equal(t, 42.5, *got.ConversionValue)
	metrics.AssertExpectations(t)
}

func TestRecorder_RecordDefaultsConvertedAt(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ParticipantRepository{}
	before := time.Now().UTC()
	repo.On("UpdateConversion", ctx, "p1", "exp1", mock.MatchedBy(func(ts time.Time) bool {
		return !ts.Before(before)
	}), (*float64)(nil)).Return(&participant.Assignment{ID: "p1", ExperimentID: "exp1"}, nil)

	rec := participant.NewRecorder(repo, nil, nil)
	_, err := rec.Record(ctx, participant.ConversionRequest{ParticipantID: "p1", ExperimentID: "exp1"})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestRecorder_RecordUnknownParticipant(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ParticipantRepository{}
	repo.On("UpdateConversion", ctx, "nope", "", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)

	rec := participant.NewRecorder(repo, nil, nil)
	_, err := rec.Record(ctx, participant.ConversionRequest{ParticipantID: "nope"})
	require.ErrorIs(t, err, participant.ErrParticipantNotFound)
	repo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestRecorder_RecordExperimentMismatch(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ParticipantRepository{}
	repo.On("UpdateConversion", ctx, "p1", "exp2", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)
	repo.On("Get", ctx, "p1").Return(&participant.Assignment{ID: "p1", ExperimentID: "exp1"}, nil)

	rec := participant.NewRecorder(repo, nil, nil)
	_, err := rec.Record(ctx, participant.ConversionRequest{ParticipantID: "p1", ExperimentID: "exp2"})
	require.ErrorIs(t, err, participant.ErrExperimentMismatch)
}

func TestRecorder_RecordScopedUnknown(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ParticipantRepository{}
	repo.On("UpdateConversion", ctx, "p9", "exp1", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)
	repo.On("Get", ctx, "p9").Return(nil, repository.ErrNotFound)

	rec := participant.NewRecorder(repo, nil, nil)
	_, err := rec.Record(ctx, participant.ConversionRequest{ParticipantID: "p9", ExperimentID: "exp1"})
	require.ErrorIs(t, err, participant.ErrParticipantNotFound)
}

func TestRecorder_RecordRejectsNonFiniteValue(t *testing.T) {
	rec := participant.NewRecorder(&mocks.ParticipantRepository{}, nil, nil)
	inf := math.Inf(1)
	_, err := rec.Record(context.Background(), participant.ConversionRequest{ParticipantID: "p1", ConversionValue: &inf})
	require.ErrorIs(t, err, participant.ErrInvalidInput)
}
