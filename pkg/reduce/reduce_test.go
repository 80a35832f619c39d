package reduce

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReducers(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name   string
		kind   Kind
		values []float64
		want   float64
	}{
		{name: "sum", kind: KindSum, values: []float64{1, 2, 3}, want: 6},
		{name: "sum skips masked", kind: KindSum, values: []float64{1, nan, 3}, want: 4},
		{name: "mean", kind: KindMean, values: []float64{2, 4, nan}, want: 3},
		{name: "median odd", kind: KindMedian, values: []float64{5, 1, 3}, want: 3},
		{name: "median even", kind: KindMedian, values: []float64{4, 1, 3, 2}, want: 2.5},
		{name: "max", kind: KindMax, values: []float64{-1, 7, nan, 2}, want: 7},
		{name: "min", kind: KindMin, values: []float64{-1, 7, 2}, want: -1},
		{name: "count", kind: KindCount, values: []float64{1, nan, 1}, want: 2},
		{name: "count empty", kind: KindCount, values: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ByKind(tt.kind)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, r(tt.values), 1e-12)
		})
	}
}

func TestReducersEmptyIsMasked(t *testing.T) {
	for _, k := range []Kind{KindSum, KindMean, KindMedian, KindMax, KindMin} {
		r, err := ByKind(k)
		require.NoError(t, err)
		assert.True(t, math.IsNaN(r(nil)), "%s of nothing must be masked", k)
		assert.True(t, math.IsNaN(r([]float64{math.NaN()})), "%s of masked must be masked", k)
	}
}

func TestMedianDoesNotReorderInput(t *testing.T) {
	in := []float64{3, 1, 2}
	Median(in)
	assert.Equal(t, []float64{3, 1, 2}, in)
}

func TestByKindUnknown(t *testing.T) {
	_, err := ByKind("mode")
	require.Error(t, err)
}
