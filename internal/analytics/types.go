// Package analytics provides common series statistics shared by the feature
// builder, the heuristic forecasters and the model metrics.
package analytics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Series is an ordered run of weekly quantities
type Series []float64

// Len returns the number of values
func (s Series) Len() int {
	return len(s)
}

// Sum returns the total of all values
func (s Series) Sum() float64 {
	if len(s) == 0 {
		return 0
	}
	return floats.Sum(s)
}

// Mean calculates the mean of all values
func (s Series) Mean() float64 {
	if len(s) == 0 {
		return 0
	}
	return stat.Mean(s, nil)
}

// StdDev calculates the sample standard deviation (n-1). NaN below two values.
func (s Series) StdDev() float64 {
	if len(s) < 2 {
		return math.NaN()
	}
	return stat.StdDev(s, nil)
}

// Last returns the final value, 0 for an empty series
func (s Series) Last() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1]
}

// Tail returns the last n values (all of them when n exceeds the length)
func (s Series) Tail(n int) Series {
	if n <= 0 {
		return Series{}
	}
	if n >= len(s) {
		return s
	}
	return s[len(s)-n:]
}

// Trend returns the mean first difference, 0 below two values
func (s Series) Trend() float64 {
	if len(s) < 2 {
		return 0
	}
	diffs := make([]float64, len(s)-1)
	for i := 1; i < len(s); i++ {
		diffs[i-1] = s[i] - s[i-1]
	}
	return stat.Mean(diffs, nil)
}

// CV returns the coefficient of variation std/mean. +Inf when the mean is not
// positive.
func (s Series) CV() float64 {
	mean := s.Mean()
	if mean <= 0 {
		return math.Inf(1)
	}
	std := s.StdDev()
	if math.IsNaN(std) {
		return 0
	}
	return std / mean
}

// ClampNonNegative maps NaN and negative values to 0
func ClampNonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
