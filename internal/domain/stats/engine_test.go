package stats_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/rpggio/splitlab/internal/domain/stats"
	"github.com/stretchr/testify/require"
)

func TestAggregate_RatesAndLift(t *testing.T) {
	results := stats.Aggregate([]string{"Control", "VariantB"}, []stats.Counts{
		{Variant: "VariantB", Participants: 190, Conversions: 30, TotalValue: 750},
		{Variant: "Control", Participants: 200, Conversions: 20, TotalValue: 400},
	})
	require.Len(t, results, 2)

	control := results[0]
	require.Equal(t, "Control", control.Name)
	require.InDelta(t, 0.1, control.ConversionRate, 1e-9)
	require.InDelta(t, 20.0, control.AvgConversionValue, 1e-9)
	require.Nil(t, control.Lift)

	variant := results[1]
	require.Equal(t, "VariantB", variant.Name)
	require.InDelta(t, 0.1579, variant.ConversionRate, 1e-4)
	require.InDelta(t, 25.0, variant.AvgConversionValue, 1e-9)
	require.NotNil(t, variant.Lift)
	require.InDelta(t, 0.5789, float64(*variant.Lift), 1e-4)
}

func TestAggregate_MissingCountsAreZero(t *testing.T) {
	results := stats.Aggregate([]string{"A", "B"}, nil)
	require.Len(t, results, 2)
	for _, r := range results {
		require.Zero(t, r.Participants)
		require.Zero(t, r.ConversionRate)
		require.Zero(t, r.AvgConversionValue)
	}
	require.NotNil(t, results[1].Lift)
	require.Equal(t, stats.Lift(0), *results[1].Lift)
}

func TestAggregate_IgnoresUndefinedVariants(t *testing.T) {
	results := stats.Aggregate([]string{"A", "B"}, []stats.Counts{
		{Variant: "Ghost", Participants: 50, Conversions: 5},
	})
	require.Len(t, results, 2)
	require.Zero(t, results[0].Participants)
	require.Zero(t, results[1].Participants)
}

func TestAggregate_ZeroBaselineRateGivesInfiniteLift(t *testing.T) {
	results := stats.Aggregate([]string{"A", "B"}, []stats.Counts{
		{Variant: "A", Participants: 100, Conversions: 0},
		{Variant: "B", Participants: 100, Conversions: 5},
	})
	require.True(t, math.IsInf(float64(*results[1].Lift), 1))
}

func TestEvaluate_IdenticalRates(t *testing.T) {
	res := stats.Evaluate([]string{"A", "B"}, []stats.Counts{
		{Variant: "A", Participants: 200, Conversions: 20},
		{Variant: "B", Participants: 200, Conversions: 20},
	})
	require.Len(t, res.Comparisons, 1)
	cmp := res.Comparisons[0]
	require.NotNil(t, cmp.PValue)
	require.InDelta(t, 1.0, *cmp.PValue, 1e-9)
	require.InDelta(t, 0.0, *cmp.Confidence, 1e-9)
	require.False(t, cmp.IsSignificant)
	require.Nil(t, res.SuggestedWinner)
}

func TestEvaluate_NoConversionsIsInconclusive(t *testing.T) {
	res := stats.Evaluate([]string{"A", "B"}, []stats.Counts{
		{Variant: "A", Participants: 100},
		{Variant: "B", Participants: 100},
	})
	cmp := res.Comparisons[0]
	require.Nil(t, cmp.PValue)
	require.Nil(t, cmp.Confidence)
	require.Nil(t, cmp.ZScore)
	require.False(t, cmp.IsSignificant)
	require.Nil(t, res.OverallConfidence)
}

func TestEvaluate_AllConvertedIsInconclusive(t *testing.T) {
	res := stats.Evaluate([]string{"A", "B"}, []stats.Counts{
		{Variant: "A", Participants: 10, Conversions: 10},
		{Variant: "B", Participants: 10, Conversions: 10},
	})
	require.Nil(t, res.Comparisons[0].PValue)
}

func TestEvaluate_EmptyArmIsInconclusive(t *testing.T) {
	res := stats.Evaluate([]string{"A", "B"}, []stats.Counts{
		{Variant: "A", Participants: 100, Conversions: 10},
	})
	require.Nil(t, res.Comparisons[0].PValue)
	require.False(t, res.Comparisons[0].IsSignificant)
}

func TestEvaluate_SignificantWinner(t *testing.T) {
	res := stats.Evaluate([]string{"Control", "VariantB"}, []stats.Counts{
		{Variant: "Control", Participants: 200, Conversions: 10},
		{Variant: "VariantB", Participants: 190, Conversions: 30},
	})
	require.Equal(t, "Control", res.BaselineVariant)

	cmp := res.Comparisons[0]
	require.Equal(t, "Control", cmp.Baseline)
	require.Equal(t, "VariantB", cmp.Variant)
	require.InDelta(t, 2.1579, float64(*cmp.Lift), 1e-3)
	require.Greater(t, *cmp.ZScore, 0.0)
	require.InDelta(t, 3.51, *cmp.ZScore, 0.01)
	require.Less(t, *cmp.PValue, 0.05)
	require.True(t, cmp.IsSignificant)

	require.NotNil(t, res.SuggestedWinner)
	require.Equal(t, "VariantB", *res.SuggestedWinner)
	require.NotNil(t, res.OverallConfidence)
	require.InDelta(t, *cmp.Confidence, *res.OverallConfidence, 1e-12)
}

func TestEvaluate_SignificantLoserIsNotWinner(t *testing.T) {
	res := stats.Evaluate([]string{"Control", "Worse"}, []stats.Counts{
		{Variant: "Control", Participants: 190, Conversions: 30},
		{Variant: "Worse", Participants: 200, Conversions: 10},
	})
	require.True(t, res.Comparisons[0].IsSignificant)
	require.Less(t, *res.Comparisons[0].ZScore, 0.0)
	require.Nil(t, res.SuggestedWinner)
}

func TestEvaluate_WinnerFollowsDefinitionOrder(t *testing.T) {
	res := stats.Evaluate([]string{"A", "B", "C"}, []stats.Counts{
		{Variant: "A", Participants: 200, Conversions: 10},
		{Variant: "B", Participants: 200, Conversions: 40},
		{Variant: "C", Participants: 200, Conversions: 60},
	})
	require.Len(t, res.Comparisons, 2)
	require.Equal(t, "B", *res.SuggestedWinner)
	require.InDelta(t, *res.Comparisons[1].Confidence, *res.OverallConfidence, 1e-12)
}

func TestEvaluate_NoVariants(t *testing.T) {
	res := stats.Evaluate(nil, nil)
	require.Empty(t, res.Variants)
	require.Empty(t, res.Comparisons)
	require.Empty(t, res.BaselineVariant)
	require.Nil(t, res.SuggestedWinner)
}

func TestTwoProportionZTest_PValueClamped(t *testing.T) {
	test, ok := stats.TwoProportionZTest(100000, 1, 100000, 50000)
	require.True(t, ok)
	require.GreaterOrEqual(t, test.PValue, 0.0)
	require.LessOrEqual(t, test.PValue, 1.0)
}

func TestNormalCDF(t *testing.T) {
	require.InDelta(t, 0.5, stats.NormalCDF(0), 1e-12)
	require.InDelta(t, 0.975, stats.NormalCDF(1.959964), 1e-6)
}

func TestLift_JSON(t *testing.T) {
	inf := stats.Lift(math.Inf(1))
	data, err := json.Marshal(stats.VariantResult{Name: "B", Lift: &inf})
	require.NoError(t, err)
	require.Contains(t, string(data), `"lift":"Infinity"`)

	var decoded stats.VariantResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.True(t, math.IsInf(float64(*decoded.Lift), 1))

	data, err = json.Marshal(stats.VariantResult{Name: "A"})
	require.NoError(t, err)
	require.Contains(t, string(data), `"lift":null`)
}
