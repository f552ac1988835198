package activity

import "time"

// ActivityType represents the type of activity event
type ActivityType string

const (
	TypeExperimentCreated ActivityType = "experiment_created"
	TypeStatusChanged     ActivityType = "experiment_status_changed"
)

// ActivityEntry represents an event in an experiment's activity log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	TenantID     string       `json:"tenant_id"`
	ExperimentID string       `json:"experiment_id"`
	ActivityType ActivityType `json:"type"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
}
