package participant

import (
	"context"
	"time"
)

// Repository provides persistence for participant assignments.
type Repository interface {
	// Upsert inserts the assignment or, when the (experiment, identity) pair
	// already exists, applies the policy in a single statement and returns
	// the stored row.
	Upsert(ctx context.Context, a *Assignment, policy Policy) (*Assignment, error)
	Get(ctx context.Context, id string) (*Assignment, error)
	// UpdateConversion sets the conversion fields. A non-empty experimentID
	// restricts the update to that experiment.
	UpdateConversion(ctx context.Context, id, experimentID string, convertedAt time.Time, value *float64) (*Assignment, error)
}

// Metrics receives participant counters.
type Metrics interface {
	AssignmentRecorded(ctx context.Context, experimentID, variant string)
	ConversionRecorded(ctx context.Context, experimentID, variant string, value *float64)
}
