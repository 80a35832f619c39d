// Package analysis holds the statistics computed over finished monthly
// tables: seasonal decomposition, fit error, drought classes and
// correlations.
package analysis

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/vjranagit/drought/pkg/reduce"
	"github.com/vjranagit/drought/pkg/types"
)

// MonthlyPeriod is the seasonal period of a monthly series
const MonthlyPeriod = 12

// ErrEmpty is returned when a statistic has no unmasked input
var ErrEmpty = errors.New("no unmasked values")

// Decomposition holds the additive components of a series. Trend and
// Residual are masked where the centered moving average is undefined.
type Decomposition struct {
	Period   int
	Observed []float64
	Trend    []float64
	Seasonal []float64
	Residual []float64
}

// Decompose splits values into trend, seasonal and residual components using
// classical additive decomposition. The trend is a centered moving average
// over one period (a 2×period average for even periods); the seasonal
// component is the per-position mean of the detrended series, centered on
// zero. At least two full periods are required.
func Decompose(values []float64, period int) (*Decomposition, error) {
	if period < 2 {
		return nil, &types.PreconditionError{Op: "decompose", Reason: fmt.Sprintf("period %d < 2", period)}
	}
	n := len(values)
	if n < 2*period {
		return nil, &types.PreconditionError{Op: "decompose", Reason: fmt.Sprintf("%d values cover less than two periods of %d", n, period)}
	}

	d := &Decomposition{
		Period:   period,
		Observed: append([]float64(nil), values...),
		Trend:    movingAverage(values, period),
		Seasonal: make([]float64, n),
		Residual: make([]float64, n),
	}

	positions := make([][]float64, period)
	for i, v := range values {
		positions[i%period] = append(positions[i%period], v-d.Trend[i])
	}
	pattern := make([]float64, period)
	for i, p := range positions {
		pattern[i] = reduce.Mean(p)
	}
	mean := reduce.Mean(pattern)
	for i := range pattern {
		pattern[i] -= mean
	}

	for i, v := range values {
		d.Seasonal[i] = pattern[i%period]
		d.Residual[i] = v - d.Trend[i] - d.Seasonal[i]
	}
	return d, nil
}

func movingAverage(values []float64, period int) []float64 {
	weights := make([]float64, period+1-period%2)
	for i := range weights {
		weights[i] = 1
	}
	if period%2 == 0 {
		weights[0], weights[len(weights)-1] = 0.5, 0.5
	}
	total := floats.Sum(weights)
	half := len(weights) / 2

	out := make([]float64, len(values))
	for i := range values {
		if i < half || i+half >= len(values) {
			out[i] = types.Masked
			continue
		}
		out[i] = floats.Dot(weights, values[i-half:i+half+1]) / total
	}
	return out
}

// SeasonalWithLevel returns the seasonal component shifted by the mean of
// the observed series, the form in which profiles are compared across
// regions.
func (d *Decomposition) SeasonalWithLevel() []float64 {
	level := reduce.Mean(d.Observed)
	out := make([]float64, len(d.Seasonal))
	for i, s := range d.Seasonal {
		out[i] = s + level
	}
	return out
}

// NRMSE returns the root mean squared error between original and fitted,
// normalized by the mean of original. Pairs with a masked side are skipped.
func NRMSE(original, fitted []float64) (float64, error) {
	if len(original) != len(fitted) {
		return 0, &types.PreconditionError{Op: "nrmse", Reason: fmt.Sprintf("length %d != %d", len(original), len(fitted))}
	}
	var obs, sq []float64
	for i := range original {
		if math.IsNaN(original[i]) || math.IsNaN(fitted[i]) {
			continue
		}
		obs = append(obs, original[i])
		diff := original[i] - fitted[i]
		sq = append(sq, diff*diff)
	}
	if len(obs) == 0 {
		return 0, ErrEmpty
	}
	return math.Sqrt(stat.Mean(sq, nil)) / stat.Mean(obs, nil), nil
}

// SeasonalAmplitude returns max-min of the seasonal profile and that range
// relative to the profile mean.
func SeasonalAmplitude(seasonal []float64) (absolute, relative float64, err error) {
	v := reduce.Valid(seasonal)
	if len(v) == 0 {
		return 0, 0, ErrEmpty
	}
	absolute = floats.Max(v) - floats.Min(v)
	return absolute, absolute / stat.Mean(v, nil), nil
}
