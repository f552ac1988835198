package mocks

import (
	"context"
	"time"

	"github.com/rpggio/splitlab/internal/domain/activity"
	"github.com/rpggio/splitlab/internal/domain/experiment"
	"github.com/rpggio/splitlab/internal/domain/participant"
	"github.com/rpggio/splitlab/internal/domain/stats"
	"github.com/stretchr/testify/mock"
)

// ExperimentRepository is a mock for experiment.Repository.
type ExperimentRepository struct {
	mock.Mock
}

func (m *ExperimentRepository) Create(ctx context.Context, tenantID string, exp *experiment.Experiment) error {
	args := m.Called(ctx, tenantID, exp)
	return args.Error(0)
}

func (m *ExperimentRepository) Get(ctx context.Context, tenantID, id string) (*experiment.Experiment, error) {
	args := m.Called(ctx, tenantID, id)
	if exp, ok := args.Get(0).(*experiment.Experiment); ok {
		return exp, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ExperimentRepository) List(ctx context.Context, tenantID string) ([]experiment.Summary, error) {
	args := m.Called(ctx, tenantID)
	if list, ok := args.Get(0).([]experiment.Summary); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ExperimentRepository) UpdateStatus(ctx context.Context, tenantID, id string, change experiment.StatusChange) error {
	args := m.Called(ctx, tenantID, id, change)
	return args.Error(0)
}

// ParticipantRepository is a mock for participant.Repository and
// experiment.ParticipantRepository.
type ParticipantRepository struct {
	mock.Mock
}

func (m *ParticipantRepository) Upsert(ctx context.Context, a *participant.Assignment, policy participant.Policy) (*participant.Assignment, error) {
	args := m.Called(ctx, a, policy)
	if rec, ok := args.Get(0).(*participant.Assignment); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ParticipantRepository) Get(ctx context.Context, id string) (*participant.Assignment, error) {
	args := m.Called(ctx, id)
	if rec, ok := args.Get(0).(*participant.Assignment); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ParticipantRepository) UpdateConversion(ctx context.Context, id, experimentID string, convertedAt time.Time, value *float64) (*participant.Assignment, error) {
	args := m.Called(ctx, id, experimentID, convertedAt, value)
	if rec, ok := args.Get(0).(*participant.Assignment); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ParticipantRepository) Aggregates(ctx context.Context, experimentID string) ([]stats.Counts, error) {
	args := m.Called(ctx, experimentID)
	if list, ok := args.Get(0).([]stats.Counts); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, tenantID string, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, tenantID, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, tenantID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, tenantID, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// Metrics is a mock for the experiment and participant metrics sinks.
type Metrics struct {
	mock.Mock
}

func (m *Metrics) ExperimentCreated(ctx context.Context, tenantID string) {
	m.Called(ctx, tenantID)
}

func (m *Metrics) AssignmentRecorded(ctx context.Context, experimentID, variant string) {
	m.Called(ctx, experimentID, variant)
}

func (m *Metrics) ConversionRecorded(ctx context.Context, experimentID, variant string, value *float64) {
	m.Called(ctx, experimentID, variant, value)
}
