// Package reduce provides the aggregation strategies shared by the
// compositor and the table aggregators. Every reducer skips masked (NaN)
// inputs and returns NaN when nothing is left.
package reduce

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Kind names a reducer in configuration and logs
type Kind string

const (
	KindSum    Kind = "sum"
	KindMean   Kind = "mean"
	KindMedian Kind = "median"
	KindMax    Kind = "max"
	KindMin    Kind = "min"
	KindCount  Kind = "count"
)

// Reducer collapses a collection of values into one
type Reducer func(values []float64) float64

// Valid returns the unmasked values of xs in a new slice
func Valid(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

// Sum adds the unmasked values
func Sum(xs []float64) float64 {
	v := Valid(xs)
	if len(v) == 0 {
		return math.NaN()
	}
	return floats.Sum(v)
}

// Mean averages the unmasked values
func Mean(xs []float64) float64 {
	v := Valid(xs)
	if len(v) == 0 {
		return math.NaN()
	}
	return stat.Mean(v, nil)
}

// Median returns the middle unmasked value, averaging the two central
// values for even counts.
func Median(xs []float64) float64 {
	v := Valid(xs)
	n := len(v)
	if n == 0 {
		return math.NaN()
	}
	sort.Float64s(v)
	if n%2 == 1 {
		return v[n/2]
	}
	return stat.Mean(v[n/2-1:n/2+1], nil)
}

// Max returns the largest unmasked value
func Max(xs []float64) float64 {
	v := Valid(xs)
	if len(v) == 0 {
		return math.NaN()
	}
	return floats.Max(v)
}

// Min returns the smallest unmasked value
func Min(xs []float64) float64 {
	v := Valid(xs)
	if len(v) == 0 {
		return math.NaN()
	}
	return floats.Min(v)
}

// Count returns the number of unmasked values. It never returns NaN.
func Count(xs []float64) float64 {
	return float64(len(Valid(xs)))
}

// ByKind resolves a reducer name
func ByKind(k Kind) (Reducer, error) {
	switch k {
	case KindSum:
		return Sum, nil
	case KindMean:
		return Mean, nil
	case KindMedian:
		return Median, nil
	case KindMax:
		return Max, nil
	case KindMin:
		return Min, nil
	case KindCount:
		return Count, nil
	}
	return nil, fmt.Errorf("unknown reducer %q", k)
}
