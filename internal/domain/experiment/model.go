package experiment

import (
	"time"

	"github.com/rpggio/splitlab/internal/domain/stats"
)

// Status represents the lifecycle label of an experiment.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusRunning, StatusPaused, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

// Goal is the desired direction of a success metric.
type Goal string

const (
	GoalIncrease Goal = "increase"
	GoalDecrease Goal = "decrease"
)

// Variant is a treatment arm with a static traffic weight.
// Name, not Key, is what participant assignments reference.
type Variant struct {
	Key         string         `json:"key"`
	Name        string         `json:"name"`
	Allocation  float64        `json:"allocation"`
	Description string         `json:"description,omitempty"`
	IsControl   bool           `json:"is_control,omitempty"`
	Metadata    map[string]any `json:"metadata"`
}

// SuccessMetric describes what the experiment is trying to move.
type SuccessMetric struct {
	Name   string   `json:"name"`
	Goal   Goal     `json:"goal"`
	Target *float64 `json:"target,omitempty"`
	Weight float64  `json:"weight"`
}

// Experiment is a persisted experiment definition.
type Experiment struct {
	ID                string             `json:"id"`
	TenantID          string             `json:"tenant_id"`
	Name              string             `json:"name"`
	Description       string             `json:"description,omitempty"`
	Hypothesis        string             `json:"hypothesis,omitempty"`
	Variants          []Variant          `json:"variants"`
	SuccessMetrics    []SuccessMetric    `json:"success_metrics"`
	TrafficAllocation map[string]float64 `json:"traffic_allocation"`
	Status            Status             `json:"status"`
	StartDate         *time.Time         `json:"start_date,omitempty"`
	EndDate           *time.Time         `json:"end_date,omitempty"`
	CreatedBy         string             `json:"created_by"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
	Results           CachedResults      `json:"results"`
}

// VariantNames returns variant names in definition order.
func (e *Experiment) VariantNames() []string {
	names := make([]string, 0, len(e.Variants))
	for _, v := range e.Variants {
		names = append(names, v.Name)
	}
	return names
}

// CachedResults is the results blob stored alongside an experiment.
// It is opaque to the store; only "winner" is read back for summaries.
type CachedResults map[string]any

// Winner returns the cached winner, if one was recorded.
func (r CachedResults) Winner() *string {
	if r == nil {
		return nil
	}
	winner, ok := r["winner"].(string)
	if !ok || winner == "" {
		return nil
	}
	return &winner
}

// Summary is a lightweight representation for listing.
type Summary struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Status      Status     `json:"status"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Winner      *string    `json:"winner,omitempty"`
	Conversions int64      `json:"conversions"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Detail pairs an experiment with freshly computed results.
type Detail struct {
	Experiment *Experiment   `json:"experiment"`
	Results    stats.Results `json:"results"`
}
