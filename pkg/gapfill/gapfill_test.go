package gapfill

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vjranagit/drought/pkg/table"
)

var cols = []string{table.ColYear, table.ColMonth, table.ColRegion, "precip", "weight"}

func date(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func build(t *testing.T, rows ...[]float64) *table.Table {
	t.Helper()
	tbl, err := table.New(cols, rows)
	require.NoError(t, err)
	return tbl
}

func TestScenarioFillThenInterpolate(t *testing.T) {
	in := build(t,
		[]float64{2023, 1, 1, 10, 5},
		[]float64{2023, 3, 1, 20, 15},
	)

	filled, err := FillMissing(in, []int{1}, date(2023, time.January), date(2023, time.April),
		map[string]float64{"precip": 0, "weight": 0})
	require.NoError(t, err)
	require.Equal(t, 3, filled.Len())

	got, err := WeightedRolling(filled, "precip", "weight")
	require.NoError(t, err)
	require.Equal(t, 3, got.Len())

	assert.Equal(t, 2.0, got.Value(1, table.ColMonth))
	assert.InDelta(t, 17.5, got.Value(1, "precip_interpolated"), 1e-12)
	assert.True(t, math.IsNaN(got.Value(0, "precip_interpolated")), "first month has no window")
	assert.True(t, math.IsNaN(got.Value(2, "precip_interpolated")), "last month has no window")
}

func TestFillMissingNeverOverwrites(t *testing.T) {
	in := build(t,
		[]float64{2020, 2, 1, 3, 1},
		[]float64{2020, 1, 2, 4, 2},
	)
	got, err := FillMissing(in, []int{1, 2}, date(2020, time.January), date(2020, time.April),
		map[string]float64{"precip": -1})
	require.NoError(t, err)

	// 2 regions x 3 months
	require.Equal(t, 6, got.Len())
	for i := 0; i < in.Len(); i++ {
		assert.Equal(t, in.Values(i), got.Values(i))
	}
	for i := in.Len(); i < got.Len(); i++ {
		assert.Equal(t, -1.0, got.Value(i, "precip"))
		assert.True(t, math.IsNaN(got.Value(i, "weight")))
	}
	// input unchanged
	assert.Equal(t, 2, in.Len())
}

func TestFillMissingIdempotent(t *testing.T) {
	in := build(t, []float64{2020, 1, 1, 3, 1})
	once, err := FillMissing(in, []int{1}, date(2020, time.January), date(2020, time.July), nil)
	require.NoError(t, err)
	twice, err := FillMissing(once, []int{1}, date(2020, time.January), date(2020, time.July), nil)
	require.NoError(t, err)
	assert.Equal(t, 6, once.Len())
	assert.Equal(t, once.Len(), twice.Len())
}

func TestFillMissingValidatesColumns(t *testing.T) {
	in := build(t)
	_, err := FillMissing(in, []int{1}, date(2020, time.January), date(2020, time.February),
		map[string]float64{"nope": 1})
	assert.ErrorIs(t, err, table.ErrUnknownColumn)

	bare, err := table.New([]string{table.ColRegion}, nil)
	require.NoError(t, err)
	_, err = FillMissing(bare, []int{1}, date(2020, time.January), date(2020, time.February), nil)
	assert.ErrorIs(t, err, table.ErrUnknownColumn)
}

func TestWeightedRolling(t *testing.T) {
	tests := []struct {
		name string
		rows [][]float64
		want []float64
	}{
		{
			name: "equal weights average",
			rows: [][]float64{
				{2020, 1, 1, 1, 1},
				{2020, 2, 1, 2, 1},
				{2020, 3, 1, 6, 1},
			},
			want: []float64{math.NaN(), 3, math.NaN()},
		},
		{
			name: "non adjacent months are incomplete",
			rows: [][]float64{
				{2020, 1, 1, 1, 1},
				{2020, 2, 1, 2, 1},
				{2020, 5, 1, 6, 1},
			},
			want: []float64{math.NaN(), math.NaN(), math.NaN()},
		},
		{
			name: "zero weights masked",
			rows: [][]float64{
				{2020, 1, 1, 1, 0},
				{2020, 2, 1, 2, 0},
				{2020, 3, 1, 6, 0},
			},
			want: []float64{math.NaN(), math.NaN(), math.NaN()},
		},
		{
			name: "masked value in window",
			rows: [][]float64{
				{2020, 1, 1, math.NaN(), 1},
				{2020, 2, 1, 2, 1},
				{2020, 3, 1, 6, 1},
			},
			want: []float64{math.NaN(), math.NaN(), math.NaN()},
		},
		{
			name: "year boundary",
			rows: [][]float64{
				{2020, 12, 1, 3, 1},
				{2021, 1, 1, 6, 2},
				{2021, 2, 1, 0, 3},
			},
			want: []float64{math.NaN(), 2.5, math.NaN()},
		},
		{
			name: "regions do not share windows",
			rows: [][]float64{
				{2020, 1, 1, 1, 1},
				{2020, 2, 1, 2, 1},
				{2020, 1, 2, 6, 1},
				{2020, 2, 2, 6, 1},
			},
			want: []float64{math.NaN(), math.NaN(), math.NaN(), math.NaN()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := build(t, tt.rows...)
			got, err := WeightedRolling(in, "precip", "weight")
			require.NoError(t, err)
			res, err := got.Column("precip_interpolated")
			require.NoError(t, err)
			require.Len(t, res, len(tt.want))
			for i := range tt.want {
				if math.IsNaN(tt.want[i]) {
					assert.True(t, math.IsNaN(res[i]), "row %d: got %v", i, res[i])
					continue
				}
				assert.InDelta(t, tt.want[i], res[i], 1e-12, "row %d", i)
			}
			assert.False(t, in.Has("precip_interpolated"))
		})
	}
}

func TestWeightedRollingUnknownColumn(t *testing.T) {
	_, err := WeightedRolling(build(t), "nope", "weight")
	assert.ErrorIs(t, err, table.ErrUnknownColumn)
}
