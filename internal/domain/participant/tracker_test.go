package participant_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rpggio/splitlab/internal/domain/participant"
	"github.com/rpggio/splitlab/internal/repository"
	"github.com/rpggio/splitlab/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTracker_AssignRequiresIdentity(t *testing.T) {
	repo := &mocks.ParticipantRepository{}
	tracker := participant.NewTracker(repo, "", nil, nil)

	_, err := tracker.Assign(context.Background(), participant.AssignRequest{
		ExperimentID: "exp1",
		VariantName:  "Control",
		Identity:     participant.Identity{UserID: "  "},
	})
	require.ErrorIs(t, err, participant.ErrMissingIdentity)
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
}

func TestTracker_AssignRequiresVariant(t *testing.T) {
	tracker := participant.NewTracker(&mocks.ParticipantRepository{}, "", nil, nil)
	_, err := tracker.Assign(context.Background(), participant.AssignRequest{
		ExperimentID: "exp1",
		Identity:     participant.Identity{SessionID: "s1"},
	})
	require.ErrorIs(t, err, participant.ErrInvalidInput)
}

func TestTracker_Assign(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ParticipantRepository{}
	metrics := &mocks.Metrics{}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	repo.On("Upsert", ctx, mock.MatchedBy(func(a *participant.Assignment) bool {
		return a.ID != "" &&
			a.ExperimentID == "exp1" &&
			a.UserID != nil && *a.UserID == "u1" &&
			a.CustomerID == nil &&
			a.VariantName == "VariantB" &&
			a.AssignedAt.Equal(at)
	}), participant.PolicyOverwrite).Return(&participant.Assignment{
		ID:           "p1",
		ExperimentID: "exp1",
		VariantName:  "VariantB",
		AssignedAt:   at,
	}, nil)
	metrics.On("AssignmentRecorded", ctx, "exp1", "VariantB").Return()

	tracker := participant.NewTracker(repo, "", metrics, nil)
	require.Equal(t, participant.PolicyOverwrite, tracker.Policy())

	got, err := tracker.Assign(ctx, participant.AssignRequest{
		ExperimentID: "exp1",
		VariantName:  "VariantB",
		Identity:     participant.Identity{UserID: "u1"},
		AssignedAt:   at,
	})
	require.NoError(t, err)
	require.Equal(t, "VariantB", got.VariantName)
	require.False(t, got.Converted())
	repo.AssertExpectations(t)
	metrics.AssertExpectations(t)
}

func TestTracker_AssignPassesPolicy(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ParticipantRepository{}
	existing := &participant.Assignment{ID: "p1", ExperimentID: "exp1", VariantName: "Control"}
	repo.On("Upsert", ctx, mock.Anything, participant.PolicySticky).Return(existing, nil)

	tracker := participant.NewTracker(repo, participant.PolicySticky, nil, nil)
	got, err := tracker.Assign(ctx, participant.AssignRequest{
		ExperimentID: "exp1",
		VariantName:  "VariantB",
		Identity:     participant.Identity{CustomerID: "c1"},
	})
	require.NoError(t, err)
	require.Equal(t, "Control", got.VariantName)
}

func TestTracker_AssignUnknownExperiment(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ParticipantRepository{}
	repo.On("Upsert", ctx, mock.Anything, participant.PolicyOverwrite).Return(nil, repository.ErrForeignKeyViolation)

	tracker := participant.NewTracker(repo, "", nil, nil)
	_, err := tracker.Assign(ctx, participant.AssignRequest{
		ExperimentID: "missing",
		VariantName:  "Control",
		Identity:     participant.Identity{UserID: "u1"},
	})
	require.ErrorIs(t, err, participant.ErrExperimentNotFound)
}

func TestTracker_AssignStoreError(t *testing.T) {
	ctx := context.Background()
	storeErr := errors.New("database is locked")
	repo := &mocks.ParticipantRepository{}
	repo.On("Upsert", ctx, mock.Anything, participant.PolicyOverwrite).Return(nil, storeErr)

	tracker := participant.NewTracker(repo, "", nil, nil)
	_, err := tracker.Assign(ctx, participant.AssignRequest{
		ExperimentID: "exp1",
		VariantName:  "Control",
		Identity:     participant.Identity{UserID: "u1"},
	})
	require.ErrorIs(t, err, storeErr)
}

func TestIdentityKey(t *testing.T) {
	require.Equal(t, "u:a|c:|s:", participant.Identity{UserID: "a"}.Key())
	require.NotEqual(t, participant.Identity{UserID: "a"}.Key(), participant.Identity{CustomerID: "a"}.Key())
	require.Equal(t, participant.Identity{UserID: " a "}.Key(), participant.Identity{UserID: "a"}.Key())
}
