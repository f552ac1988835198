// Package stats computes per-variant aggregates and two-proportion z-test
// comparisons against a baseline variant.
package stats

import "math"

// SignificanceThreshold is the fixed confidence bar for is_significant.
const SignificanceThreshold = 0.95

// Evaluate aggregates counts for the ordered variant names and compares every
// non-baseline variant against the first one.
func Evaluate(variants []string, counts []Counts) Results {
	results := Aggregate(variants, counts)
	comparisons := Compare(results)

	res := Results{
		Variants:          results,
		Comparisons:       comparisons,
		SuggestedWinner:   SuggestWinner(comparisons),
		OverallConfidence: OverallConfidence(comparisons),
	}
	if len(results) > 0 {
		res.BaselineVariant = results[0].Name
	}
	return res
}

// Aggregate builds one VariantResult per defined variant, in definition order.
// Counts for names that are not defined variants are ignored.
func Aggregate(variants []string, counts []Counts) []VariantResult {
	byName := make(map[string]Counts, len(counts))
	for _, c := range counts {
		byName[c.Variant] = c
	}

	results := make([]VariantResult, 0, len(variants))
	for _, name := range variants {
		c := byName[name]
		results = append(results, VariantResult{
			Name:                 name,
			Participants:         c.Participants,
			Conversions:          c.Conversions,
			ConversionRate:       ratio(float64(c.Conversions), c.Participants),
			TotalConversionValue: c.TotalValue,
			AvgConversionValue:   ratio(c.TotalValue, c.Conversions),
		})
	}

	if len(results) == 0 {
		return results
	}
	baselineRate := results[0].ConversionRate
	for i := 1; i < len(results); i++ {
		lift := relativeLift(results[i].ConversionRate, baselineRate)
		results[i].Lift = &lift
	}
	return results
}

// Compare runs the z-test for every variant after the baseline.
func Compare(results []VariantResult) []Comparison {
	if len(results) < 2 {
		return []Comparison{}
	}
	baseline := results[0]
	comparisons := make([]Comparison, 0, len(results)-1)
	for _, variant := range results[1:] {
		cmp := Comparison{
			Baseline: baseline.Name,
			Variant:  variant.Name,
			Lift:     variant.Lift,
		}
		if test, ok := TwoProportionZTest(baseline.Participants, baseline.Conversions, variant.Participants, variant.Conversions); ok {
			confidence := 1 - test.PValue
			z, p := test.Z, test.PValue
			cmp.ZScore = &z
			cmp.PValue = &p
			cmp.Confidence = &confidence
			cmp.IsSignificant = confidence >= SignificanceThreshold
		}
		comparisons = append(comparisons, cmp)
	}
	return comparisons
}

// SuggestWinner returns the first significant variant with positive lift.
func SuggestWinner(comparisons []Comparison) *string {
	for _, cmp := range comparisons {
		if cmp.IsSignificant && cmp.Lift != nil && *cmp.Lift > 0 {
			name := cmp.Variant
			return &name
		}
	}
	return nil
}

// OverallConfidence is the highest defined confidence, or nil when every
// comparison was inconclusive.
func OverallConfidence(comparisons []Comparison) *float64 {
	var best *float64
	for _, cmp := range comparisons {
		if cmp.Confidence == nil {
			continue
		}
		if best == nil || *cmp.Confidence > *best {
			c := *cmp.Confidence
			best = &c
		}
	}
	return best
}

func ratio(num float64, den int64) float64 {
	if den <= 0 {
		return 0
	}
	return num / float64(den)
}

func relativeLift(rate, baselineRate float64) Lift {
	switch {
	case baselineRate > 0:
		return Lift((rate - baselineRate) / baselineRate)
	case rate > 0:
		return Lift(math.Inf(1))
	default:
		return 0
	}
}
