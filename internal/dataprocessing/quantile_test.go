package dataprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantileLinearInterpolation(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		q      float64
		want   float64
	}{
		{name: "q25 interpolates", values: []float64{1, 2, 3, 4}, q: 0.25, want: 1.75},
		{name: "median even count", values: []float64{1, 2, 3, 4}, q: 0.5, want: 2.5},
		{name: "q75 interpolates", values: []float64{1, 2, 3, 4}, q: 0.75, want: 3.25},
		{name: "median odd count", values: []float64{5, 1, 3}, q: 0.5, want: 3},
		{name: "unsorted input", values: []float64{4, 1, 3, 2}, q: 0.25, want: 1.75},
		{name: "q0 is min", values: []float64{9, 2, 7}, q: 0, want: 2},
		{name: "q1 is max", values: []float64{9, 2, 7}, q: 1, want: 9},
		{name: "single value", values: []float64{42}, q: 0.75, want: 42},
		{name: "exact order statistic", values: []float64{1, 2, 3, 4, 5}, q: 0.25, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Quantile(tt.values, tt.q)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestQuantileDoesNotMutateInput(t *testing.T) {
	values := []float64{4, 1, 3, 2}
	Quantile(values, 0.5)
	assert.Equal(t, []float64{4, 1, 3, 2}, values)
}

func TestQuantileEmpty(t *testing.T) {
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestMean(t *testing.T) {
	assert.InDelta(t, 2.5, Mean([]float64{1, 2, 3, 4}), 1e-12)
	assert.True(t, math.IsNaN(Mean(nil)))
}

func TestStdDev(t *testing.T) {
	// Sample standard deviation of {2, 4, 4, 4, 5, 5, 7, 9} with n-1.
	got := StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 2.13809, got, 1e-5)

	assert.Equal(t, 0.0, StdDev([]float64{3}))
	assert.Equal(t, 0.0, StdDev(nil))
}
