// Package gapfill completes per-region monthly tables: it inserts rows for
// absent months and smooths a value column with a weighted three-month
// centered average.
package gapfill

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/vjranagit/drought/pkg/observability"
	"github.com/vjranagit/drought/pkg/table"
	"github.com/vjranagit/drought/pkg/types"
)

// InterpolatedSuffix is appended to the value column name for the
// interpolation output
const InterpolatedSuffix = "_interpolated"

var monthKeys = []string{table.ColYear, table.ColMonth, table.ColRegion}

type regionMonth struct {
	region int
	key    types.TimeKey
}

// FillMissing appends one row for every (region, month) inside [start, end)
// that t lacks. Synthetic rows take their non-key values from defaults and
// are masked where defaults has no entry. Existing rows are kept unchanged
// and in their original order ahead of the synthetic ones.
func FillMissing(t *table.Table, regions []int, start, end time.Time, defaults map[string]float64) (*table.Table, error) {
	for _, c := range monthKeys {
		if !t.Has(c) {
			return nil, fmt.Errorf("failed to fill gaps: %w: %s", table.ErrUnknownColumn, c)
		}
	}
	for c := range defaults {
		if !t.Has(c) {
			return nil, fmt.Errorf("failed to fill gaps: default for %w: %s", table.ErrUnknownColumn, c)
		}
	}

	present := make(map[regionMonth]bool, t.Len())
	b := table.NewBuilder(t.Columns()...)
	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		present[regionMonth{row.Region(), row.Key()}] = true
		b.AppendRow(row)
	}

	inserted := 0
	keys := types.KeysInRange(start, end)
	for _, region := range regions {
		for _, k := range keys {
			if present[regionMonth{region, k}] {
				continue
			}
			row := table.Row{
				table.ColYear:   float64(k.Year),
				table.ColMonth:  float64(k.Month),
				table.ColRegion: float64(region),
			}
			for c, v := range defaults {
				if _, isKey := row[c]; !isKey {
					row[c] = v
				}
			}
			b.AppendRow(row)
			inserted++
		}
	}
	observability.GapRowsInserted.Add(float64(inserted))
	return b.Build(), nil
}

// WeightedRolling adds the column value+"_interpolated" holding, for each
// row, sum(V×W)/sum(W) over the region's previous, current and next month.
// The result is masked when any of the three months is absent from the
// region's series, when any value or weight in the window is masked, or when
// the weights sum to zero. Output rows are sorted by region, then year and
// month.
func WeightedRolling(t *table.Table, value, weight string) (*table.Table, error) {
	out := value + InterpolatedSuffix
	sorted, err := table.SortBy(t, table.ColRegion, table.ColYear, table.ColMonth)
	if err != nil {
		return nil, fmt.Errorf("failed to interpolate: %w", err)
	}
	vals, err := sorted.Column(value)
	if err != nil {
		return nil, fmt.Errorf("failed to interpolate: %w", err)
	}
	weights, err := sorted.Column(weight)
	if err != nil {
		return nil, fmt.Errorf("failed to interpolate: %w", err)
	}

	n := sorted.Len()
	result := make([]float64, n)
	for i := 0; i < n; i++ {
		result[i] = types.Masked
		if i == 0 || i == n-1 {
			continue
		}
		prev, cur, next := sorted.Row(i-1), sorted.Row(i), sorted.Row(i+1)
		if prev.Region() != cur.Region() || next.Region() != cur.Region() {
			continue
		}
		if prev.Key() != cur.Key().Prev() || next.Key() != cur.Key().Next() {
			continue
		}

		num := floats.Dot(vals[i-1:i+2], weights[i-1:i+2])
		den := floats.Sum(weights[i-1 : i+2])
		if math.IsNaN(num) || math.IsNaN(den) || den == 0 {
			continue
		}
		result[i] = num / den
	}

	res, err := table.WithColumn(sorted, out, result)
	if err != nil {
		return nil, fmt.Errorf("failed to interpolate: %w", err)
	}
	return res, nil
}
