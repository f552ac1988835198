package participant

import (
	"strings"
	"time"
)

// Policy controls what happens when an identity is assigned twice.
type Policy string

const (
	// PolicyOverwrite replaces variant_name and assigned_at on reassignment.
	PolicyOverwrite Policy = "overwrite"
	// PolicySticky keeps the first assignment and ignores later ones.
	PolicySticky Policy = "sticky"
)

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool {
	return p == PolicyOverwrite || p == PolicySticky
}

// Identity names a participant. At least one field must be set.
type Identity struct {
	UserID     string `json:"user_id,omitempty"`
	CustomerID string `json:"customer_id,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
}

// Empty reports whether no identifier is present.
func (i Identity) Empty() bool {
	return strings.TrimSpace(i.UserID) == "" &&
		strings.TrimSpace(i.CustomerID) == "" &&
		strings.TrimSpace(i.SessionID) == ""
}

// Key is the uniqueness key of the identity within an experiment.
// Absent fields are kept positional so {user:a} and {customer:a} differ.
func (i Identity) Key() string {
	return "u:" + strings.TrimSpace(i.UserID) +
		"|c:" + strings.TrimSpace(i.CustomerID) +
		"|s:" + strings.TrimSpace(i.SessionID)
}

// Assignment is a participant's variant assignment, with its conversion
// outcome embedded once recorded.
type Assignment struct {
	ID              string     `json:"id"`
	ExperimentID    string     `json:"experiment_id"`
	UserID          *string    `json:"user_id"`
	CustomerID      *string    `json:"customer_id"`
	SessionID       *string    `json:"session_id"`
	VariantName     string     `json:"variant_name"`
	AssignedAt      time.Time  `json:"assigned_at"`
	ConvertedAt     *time.Time `json:"converted_at"`
	ConversionValue *float64   `json:"conversion_value"`
}

// Identity returns the identity fields of the assignment.
func (a *Assignment) Identity() Identity {
	var id Identity
	if a.UserID != nil {
		id.UserID = *a.UserID
	}
	if a.CustomerID != nil {
		id.CustomerID = *a.CustomerID
	}
	if a.SessionID != nil {
		id.SessionID = *a.SessionID
	}
	return id
}

// Converted reports whether a conversion was recorded.
func (a *Assignment) Converted() bool {
	return a.ConvertedAt != nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
