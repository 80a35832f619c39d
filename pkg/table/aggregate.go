package table

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vjranagit/drought/pkg/reduce"
	"github.com/vjranagit/drought/pkg/types"
)

// PeriodKeys is the default grouping of per-period aggregations
var PeriodKeys = []string{ColYear, ColMonth, ColRegion}

type group struct {
	key  []float64
	rows []int
}

// GroupBy collapses t into one row per distinct combination of keys,
// applying r to each value column. Output columns are keys followed by
// columns; rows are sorted by the keys in the order given. Key combinations
// with no rows do not appear.
func GroupBy(t *Table, keys []string, r reduce.Reducer, columns []string) (*Table, error) {
	if err := t.require(keys...); err != nil {
		return nil, err
	}
	if err := t.require(columns...); err != nil {
		return nil, err
	}

	groups := groupRows(t, keys)

	b := NewBuilder(append(append([]string(nil), keys...), columns...)...)
	values := make([]float64, 0, t.Len())
	for _, g := range groups {
		row := append([]float64(nil), g.key...)
		for _, col := range columns {
			ci := t.index[col]
			values = values[:0]
			for _, ri := range g.rows {
				values = append(values, t.rows[ri][ci])
			}
			row = append(row, r(values))
		}
		if err := b.Append(row...); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

func groupRows(t *Table, keys []string) []*group {
	byKey := make(map[string]*group)
	var order []*group

	keyIdx := make([]int, len(keys))
	for i, k := range keys {
		keyIdx[i] = t.index[k]
	}

	var sb strings.Builder
	for ri, row := range t.rows {
		sb.Reset()
		for _, ci := range keyIdx {
			sb.WriteString(strconv.FormatFloat(row[ci], 'g', -1, 64))
			sb.WriteByte('|')
		}
		id := sb.String()

		g, ok := byKey[id]
		if !ok {
			g = &group{key: make([]float64, len(keyIdx))}
			for i, ci := range keyIdx {
				g.key[i] = row[ci]
			}
			byKey[id] = g
			order = append(order, g)
		}
		g.rows = append(g.rows, ri)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return lessTuple(order[i].key, order[j].key)
	})
	return order
}

func lessTuple(a, b []float64) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Aggregate is GroupBy for per-region, per-period keys. keys must include
// region_id and a time granularity: year and month, or timestamp.
func Aggregate(t *Table, keys []string, r reduce.Reducer, columns []string) (*Table, error) {
	has := func(name string) bool {
		for _, k := range keys {
			if k == name {
				return true
			}
		}
		return false
	}
	if !has(ColRegion) {
		return nil, &types.PreconditionError{Op: "aggregate", Reason: fmt.Sprintf("group keys %v lack %s", keys, ColRegion)}
	}
	if !(has(ColYear) && has(ColMonth)) && !has(ColTimestamp) {
		return nil, &types.PreconditionError{Op: "aggregate", Reason: fmt.Sprintf("group keys %v lack a time granularity", keys)}
	}
	return GroupBy(t, keys, r, columns)
}

// PerPeriod aggregates each (year, month, region_id)
func PerPeriod(t *Table, r reduce.Reducer, columns []string) (*Table, error) {
	return Aggregate(t, PeriodKeys, r, columns)
}

// AcrossYears aggregates each (region_id, month) over every observed year,
// giving a climatological monthly profile per region. The year column never
// appears in the output.
func AcrossYears(t *Table, r reduce.Reducer, columns []string) (*Table, error) {
	kept := make([]string, 0, len(columns))
	for _, c := range columns {
		if c != ColYear {
			kept = append(kept, c)
		}
	}
	return GroupBy(t, []string{ColRegion, ColMonth}, r, kept)
}

// CountPerPeriod returns the number of rows per (year, month, region_id) in
// column out.
func CountPerPeriod(t *Table, out string) (*Table, error) {
	if err := t.require(PeriodKeys...); err != nil {
		return nil, err
	}

	b := NewBuilder(append(append([]string(nil), PeriodKeys...), out)...)
	for _, g := range groupRows(t, PeriodKeys) {
		if err := b.Append(append(g.key, float64(len(g.rows)))...); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}
