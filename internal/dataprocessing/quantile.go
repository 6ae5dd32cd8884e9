// Package dataprocessing holds the pipeline's algorithmic stages: cleaning
// (validation, deduplication, IQR outlier fencing, null fill), feature
// derivation, and report aggregation.
package dataprocessing

import (
	"math"
	"sort"
)

// Quantile computes the q-th quantile (0 <= q <= 1) of values using linear
// interpolation between order statistics: with n sorted values, the
// quantile sits at position pos = q*(n-1) and interpolates between the
// surrounding values. This matches the pandas/NumPy "linear" rule and is a
// compatibility contract: changing the interpolation changes outlier drop
// sets, so it must not vary silently.
//
// The input does not need to be sorted. Returns NaN for an empty input.
func Quantile(values []float64, q float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return values[0]
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}

	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// Median is the 0.5 quantile.
func Median(values []float64) float64 {
	return Quantile(values, 0.5)
}

// Mean returns the arithmetic mean; NaN for an empty input.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the sample standard deviation (n-1 denominator); zero for
// fewer than two values.
func StdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	mean := Mean(values)
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}
