package table

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vjranagit/drought/pkg/types"
)

// JoinKind selects join semantics
type JoinKind int

const (
	// JoinInner keeps left rows with a matching right row
	JoinInner JoinKind = iota
	// JoinLeft keeps every left row, masking right columns without a match
	JoinLeft
)

// Filter returns the rows for which keep returns true
func Filter(t *Table, keep func(Row) bool) *Table {
	b := NewBuilder(t.columns...)
	for i := range t.rows {
		if keep(t.Row(i)) {
			b.rows = append(b.rows, t.Values(i))
		}
	}
	return b.Build()
}

// Select projects t onto columns
func Select(t *Table, columns ...string) (*Table, error) {
	if err := t.require(columns...); err != nil {
		return nil, err
	}
	b := NewBuilder(columns...)
	for _, row := range t.rows {
		out := make([]float64, len(columns))
		for i, c := range columns {
			out[i] = row[t.index[c]]
		}
		b.rows = append(b.rows, out)
	}
	return b.Build(), nil
}

// SortBy returns t stably sorted by columns ascending
func SortBy(t *Table, columns ...string) (*Table, error) {
	if err := t.require(columns...); err != nil {
		return nil, err
	}
	b := NewBuilder(t.columns...)
	for i := range t.rows {
		b.rows = append(b.rows, t.Values(i))
	}
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = t.index[c]
	}
	sort.SliceStable(b.rows, func(i, j int) bool {
		for _, c := range idx {
			if b.rows[i][c] != b.rows[j][c] {
				return b.rows[i][c] < b.rows[j][c]
			}
		}
		return false
	})
	return b.Build(), nil
}

// WithColumn returns t plus a new column holding values
func WithColumn(t *Table, name string, values []float64) (*Table, error) {
	if t.Has(name) {
		return nil, fmt.Errorf("%w: %s", ErrColumnConflict, name)
	}
	if len(values) != t.Len() {
		return nil, fmt.Errorf("%w: %d values for %d rows", ErrRowWidth, len(values), t.Len())
	}
	b := NewBuilder(append(t.Columns(), name)...)
	for i := range t.rows {
		b.rows = append(b.rows, append(t.Values(i), values[i]))
	}
	return b.Build(), nil
}

// Join combines left and right on the key columns. Right key combinations
// must be unique. Output columns are left's followed by right's non-key
// columns; row order follows left.
func Join(left, right *Table, keys []string, kind JoinKind) (*Table, error) {
	if err := left.require(keys...); err != nil {
		return nil, err
	}
	if err := right.require(keys...); err != nil {
		return nil, err
	}

	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}
	var extra []string
	for _, c := range right.columns {
		if isKey[c] {
			continue
		}
		if left.Has(c) {
			return nil, fmt.Errorf("%w: %s", ErrColumnConflict, c)
		}
		extra = append(extra, c)
	}

	index := make(map[string]int, right.Len())
	for i := range right.rows {
		id := rowKey(right, i, keys)
		if _, dup := index[id]; dup {
			return nil, &types.PreconditionError{Op: "join", Reason: fmt.Sprintf("right table repeats key %v", keys)}
		}
		index[id] = i
	}

	b := NewBuilder(append(left.Columns(), extra...)...)
	for i := range left.rows {
		ri, ok := index[rowKey(left, i, keys)]
		if !ok && kind == JoinInner {
			continue
		}
		row := left.Values(i)
		for _, c := range extra {
			v := types.Masked
			if ok {
				v = right.Value(ri, c)
			}
			row = append(row, v)
		}
		b.rows = append(b.rows, row)
	}
	return b.Build(), nil
}

func rowKey(t *Table, i int, keys []string) string {
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(strconv.FormatFloat(t.Value(i, k), 'g', -1, 64))
		sb.WriteByte('|')
	}
	return sb.String()
}

// Concat appends the rows of b to a. Both must share the same columns.
func Concat(a, b *Table) (*Table, error) {
	if len(a.columns) != len(b.columns) {
		return nil, fmt.Errorf("%w: %v vs %v", ErrRowWidth, a.columns, b.columns)
	}
	if err := b.require(a.columns...); err != nil {
		return nil, err
	}
	out := NewBuilder(a.columns...)
	for i := range a.rows {
		out.rows = append(out.rows, a.Values(i))
	}
	for i := range b.rows {
		out.AppendRow(b.Row(i))
	}
	return out.Build(), nil
}

// DateLabels returns the "YYYY-MM" label of every row
func DateLabels(t *Table) ([]string, error) {
	if err := t.require(ColYear, ColMonth); err != nil {
		return nil, err
	}
	out := make([]string, t.Len())
	for i := range t.rows {
		out[i] = types.TimeKey{Year: int(t.Value(i, ColYear)), Month: monthOf(t.Value(i, ColMonth))}.Label()
	}
	return out, nil
}
