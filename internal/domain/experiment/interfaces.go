package experiment

import (
	"context"
	"time"

	"github.com/rpggio/splitlab/internal/domain/activity"
	"github.com/rpggio/splitlab/internal/domain/stats"
)

// Repository provides persistence for experiments.
type Repository interface {
	Create(ctx context.Context, tenantID string, exp *Experiment) error
	Get(ctx context.Context, tenantID, id string) (*Experiment, error)
	List(ctx context.Context, tenantID string) ([]Summary, error)
	// UpdateStatus applies change only while the stored status still equals
	// change.From. It returns repository.ErrConflict when it does not.
	UpdateStatus(ctx context.Context, tenantID, id string, change StatusChange) error
}

// StatusChange is a compare-and-set of an experiment's status.
type StatusChange struct {
	From Status
	To   Status
	// Results, when non-nil, replaces the cached results in the same write.
	Results   CachedResults
	UpdatedAt time.Time
}

// ParticipantRepository provides per-variant participant aggregates.
type ParticipantRepository interface {
	Aggregates(ctx context.Context, experimentID string) ([]stats.Counts, error)
}

// ActivityRepository logs experiment lifecycle events.
type ActivityRepository interface {
	Log(ctx context.Context, tenantID string, entry *activity.ActivityEntry) error
}

// Metrics receives experiment counters.
type Metrics interface {
	ExperimentCreated(ctx context.Context, tenantID string)
}
