package stats

import "math"

// ZTest is the outcome of a two-proportion z-test.
type ZTest struct {
	// Z is oriented so that a variant converting better than the baseline
	// yields a positive score.
	Z      float64
	PValue float64
}

// TwoProportionZTest compares baseline (a) against variant (b) using the
// pooled proportion as the null rate. ok is false when the test is
// inconclusive: an empty arm, a pooled rate of exactly 0 or 1, or zero
// standard error.
func TwoProportionZTest(participantsA, conversionsA, participantsB, conversionsB int64) (ZTest, bool) {
	if participantsA <= 0 || participantsB <= 0 {
		return ZTest{}, false
	}

	nA, nB := float64(participantsA), float64(participantsB)
	pA := float64(conversionsA) / nA
	pB := float64(conversionsB) / nB

	pooled := float64(conversionsA+conversionsB) / (nA + nB)
	if pooled <= 0 || pooled >= 1 {
		return ZTest{}, false
	}

	stdErr := math.Sqrt(pooled * (1 - pooled) * (1/nA + 1/nB))
	if stdErr == 0 || math.IsNaN(stdErr) {
		return ZTest{}, false
	}

	z := (pB - pA) / stdErr
	pValue := 2 * (1 - NormalCDF(math.Abs(z)))
	pValue = math.Max(0, math.Min(1, pValue))

	return ZTest{Z: z, PValue: pValue}, true
}

// NormalCDF is the standard normal cumulative distribution function.
func NormalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}
