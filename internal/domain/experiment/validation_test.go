package experiment_test

import (
	"testing"
	"time"

	"github.com/rpggio/splitlab/internal/domain/experiment"
	"github.com/stretchr/testify/require"
)

func TestAllocationSumValid(t *testing.T) {
	require.True(t, experiment.AllocationSumValid(1.0))
	require.True(t, experiment.AllocationSumValid(0.99))
	require.True(t, experiment.AllocationSumValid(1.01))
	require.True(t, experiment.AllocationSumValid(0.33+0.33+0.33))
	require.False(t, experiment.AllocationSumValid(0.98))
	require.False(t, experiment.AllocationSumValid(1.02))
}

func TestValidateCreateInput_AllocationBand(t *testing.T) {
	req := validRequest()
	req.Variants[0].Allocation = 0.5
	req.Variants[1].Allocation = 0.49
	require.NoError(t, experiment.ValidateCreateInput(req))

	req.Variants[1].Allocation = 0.51
	require.NoError(t, experiment.ValidateCreateInput(req))

	req.Variants[1].Allocation = 0.47
	require.ErrorIs(t, experiment.ValidateCreateInput(req), experiment.ErrInvalidDefinition)
}

func TestValidateCreateInput_Rules(t *testing.T) {
	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)

	cases := map[string]func(r *experiment.CreateRequest){
		"blank name":         func(r *experiment.CreateRequest) { r.Name = "  " },
		"missing created_by": func(r *experiment.CreateRequest) { r.CreatedBy = "" },
		"unknown status":     func(r *experiment.CreateRequest) { r.Status = "live" },
		"end before start":   func(r *experiment.CreateRequest) { r.StartDate, r.EndDate = &start, &end },
		"duplicate names":    func(r *experiment.CreateRequest) { r.Variants[1].Name = r.Variants[0].Name },
		"zero allocation": func(r *experiment.CreateRequest) {
			r.Variants[0].Allocation = 0
			r.Variants[1].Allocation = 1
		},
		"missing key":       func(r *experiment.CreateRequest) { r.Variants[0].Key = "" },
		"unknown traffic":   func(r *experiment.CreateRequest) { r.TrafficAllocation = map[string]float64{"Ghost": 1} },
		"unknown goal":      func(r *experiment.CreateRequest) { r.SuccessMetrics[0].Goal = "sideways" },
		"negative weight":   func(r *experiment.CreateRequest) { r.SuccessMetrics[0].Weight = -1 },
		"blank metric name": func(r *experiment.CreateRequest) { r.SuccessMetrics[0].Name = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validRequest()
			mutate(&req)
			require.ErrorIs(t, experiment.ValidateCreateInput(req), experiment.ErrInvalidDefinition)
		})
	}
}

func TestValidateTransition(t *testing.T) {
	allowed := [][2]experiment.Status{
		{experiment.StatusDraft, experiment.StatusRunning},
		{experiment.StatusRunning, experiment.StatusPaused},
		{experiment.StatusPaused, experiment.StatusRunning},
		{experiment.StatusRunning, experiment.StatusCompleted},
		{experiment.StatusDraft, experiment.StatusArchived},
		{experiment.StatusCompleted, experiment.StatusArchived},
	}
	for _, tr := range allowed {
		require.NoError(t, experiment.ValidateTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	rejected := [][2]experiment.Status{
		{experiment.StatusDraft, experiment.StatusCompleted},
		{experiment.StatusPaused, experiment.StatusCompleted},
		{experiment.StatusCompleted, experiment.StatusRunning},
		{experiment.StatusArchived, experiment.StatusRunning},
		{experiment.StatusArchived, experiment.StatusArchived},
		{experiment.StatusDraft, "live"},
	}
	for _, tr := range rejected {
		require.ErrorIs(t, experiment.ValidateTransition(tr[0], tr[1]), experiment.ErrInvalidTransition, "%s -> %s", tr[0], tr[1])
	}
}

func TestDeriveAllocation(t *testing.T) {
	got := experiment.DeriveAllocation([]experiment.Variant{
		{Name: "A", Allocation: 0.33333},
		{Name: "B", Allocation: 0.66667},
	})
	require.Equal(t, map[string]float64{"A": 0.3333, "B": 0.6667}, got)
}
