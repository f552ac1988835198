package stats

import (
	"encoding/json"
	"math"
)

// Counts holds raw per-variant aggregates as read from the store.
type Counts struct {
	Variant      string
	Participants int64
	Conversions  int64
	TotalValue   float64
}

// Lift is a relative change in conversion rate. It can be +Inf when the
// baseline never converted, which JSON cannot represent as a number.
type Lift float64

// MarshalJSON encodes infinities as the strings "Infinity" / "-Infinity".
func (l Lift) MarshalJSON() ([]byte, error) {
	f := float64(l)
	switch {
	case math.IsInf(f, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Infinity"`), nil
	case math.IsNaN(f):
		return []byte(`null`), nil
	}
	return json.Marshal(f)
}

// UnmarshalJSON accepts numbers and the infinity strings.
func (l *Lift) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"Infinity"`:
		*l = Lift(math.Inf(1))
		return nil
	case `"-Infinity"`:
		*l = Lift(math.Inf(-1))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*l = Lift(f)
	return nil
}

// VariantResult is the computed view of one variant.
type VariantResult struct {
	Name                 string  `json:"name"`
	Participants         int64   `json:"participants"`
	Conversions          int64   `json:"conversions"`
	ConversionRate       float64 `json:"conversion_rate"`
	TotalConversionValue float64 `json:"total_conversion_value"`
	AvgConversionValue   float64 `json:"avg_conversion_value"`
	Lift                 *Lift   `json:"lift"`
}

// Comparison is a variant measured against the baseline.
// ZScore is (variant rate - baseline rate) / pooled standard error, so it is
// positive when the variant converts better than the baseline.
// ZScore, PValue and Confidence are nil when the test is inconclusive.
type Comparison struct {
	Baseline      string   `json:"baseline"`
	Variant       string   `json:"variant"`
	Lift          *Lift    `json:"lift"`
	ZScore        *float64 `json:"z_score"`
	PValue        *float64 `json:"p_value"`
	Confidence    *float64 `json:"confidence"`
	IsSignificant bool     `json:"is_significant"`
}

// Results is the full statistical readout for an experiment.
type Results struct {
	BaselineVariant   string          `json:"baseline_variant"`
	Variants          []VariantResult `json:"variants"`
	Comparisons       []Comparison    `json:"comparisons"`
	SuggestedWinner   *string         `json:"suggested_winner"`
	OverallConfidence *float64        `json:"overall_confidence"`
}
