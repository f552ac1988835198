package experiment

import (
	"math"
	"strings"
)

const (
	// AllocationTolerance is how far the variant allocations may drift from 1.0.
	AllocationTolerance = 0.01

	// absorbs float rounding so 0.99 and 1.01 stay inside the band
	allocationEpsilon = 1e-9
)

// ValidateCreateInput validates an experiment definition.
func ValidateCreateInput(req CreateRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return invalid("name", "name is required")
	}
	if strings.TrimSpace(req.CreatedBy) == "" {
		return invalid("created_by", "created_by is required")
	}
	if req.Status != "" && !req.Status.Valid() {
		return invalid("status", "unknown status %q", req.Status)
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return invalid("end_date", "end_date must not precede start_date")
	}

	if len(req.Variants) < 2 {
		return invalid("variants", "at least two variants are required, got %d", len(req.Variants))
	}
	seen := make(map[string]struct{}, len(req.Variants))
	var total float64
	for i, v := range req.Variants {
		if strings.TrimSpace(v.Key) == "" {
			return invalid("variants", "variant %d is missing a key", i)
		}
		if strings.TrimSpace(v.Name) == "" {
			return invalid("variants", "variant %d is missing a name", i)
		}
		if _, dup := seen[v.Name]; dup {
			return invalid("variants", "duplicate variant name %q", v.Name)
		}
		seen[v.Name] = struct{}{}
		if v.Allocation <= 0 || v.Allocation > 1 {
			return invalid("variants", "variant %q allocation %.4f must be in (0, 1]", v.Name, v.Allocation)
		}
		total += v.Allocation
	}
	if !AllocationSumValid(total) {
		return invalid("variants", "variant allocations must sum to 1.0 (±%.2f), got %.4f", AllocationTolerance, total)
	}

	for name := range req.TrafficAllocation {
		if _, ok := seen[name]; !ok {
			return invalid("traffic_allocation", "unknown variant %q", name)
		}
	}

	if len(req.SuccessMetrics) < 1 {
		return invalid("success_metrics", "at least one success metric is required")
	}
	for i, m := range req.SuccessMetrics {
		if strings.TrimSpace(m.Name) == "" {
			return invalid("success_metrics", "metric %d is missing a name", i)
		}
		if m.Goal != "" && m.Goal != GoalIncrease && m.Goal != GoalDecrease {
			return invalid("success_metrics", "metric %q has unknown goal %q", m.Name, m.Goal)
		}
		if m.Weight < 0 || math.IsNaN(m.Weight) {
			return invalid("success_metrics", "metric %q weight must be positive", m.Name)
		}
	}

	return nil
}

// AllocationSumValid reports whether total is within tolerance of 1.0.
func AllocationSumValid(total float64) bool {
	return math.Abs(total-1.0) <= AllocationTolerance+allocationEpsilon
}

// ValidateTransition checks a status change against the lifecycle graph:
// draft→running, running⇄paused, running→completed, any non-archived→archived.
func ValidateTransition(from, to Status) error {
	if !to.Valid() {
		return ErrInvalidTransition
	}
	valid := false
	switch from {
	case StatusDraft:
		valid = to == StatusRunning || to == StatusArchived
	case StatusRunning:
		switch to {
		case StatusPaused, StatusCompleted, StatusArchived:
			valid = true
		}
	case StatusPaused:
		valid = to == StatusRunning || to == StatusArchived
	case StatusCompleted:
		valid = to == StatusArchived
	case StatusArchived:
		valid = false
	}
	if !valid {
		return ErrInvalidTransition
	}
	return nil
}
