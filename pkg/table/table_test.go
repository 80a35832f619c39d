package table

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vjranagit/drought/pkg/reduce"
	"github.com/vjranagit/drought/pkg/types"
)

func mustTable(t *testing.T, columns []string, rows ...[]float64) *Table {
	t.Helper()
	tbl, err := New(columns, rows)
	require.NoError(t, err)
	return tbl
}

func rowsOf(tbl *Table) [][]float64 {
	out := make([][]float64, tbl.Len())
	for i := range out {
		out[i] = tbl.Values(i)
	}
	return out
}

func TestBuilder(t *testing.T) {
	b := NewBuilder(ColRegion, "v")
	require.NoError(t, b.Append(1, 2))
	assert.ErrorIs(t, b.Append(1), ErrRowWidth)
	b.AppendRow(Row{ColRegion: 2, "other": 5})
	assert.Equal(t, 2, b.Len())

	tbl := b.Build()
	assert.Equal(t, 0, b.Len())
	require.Equal(t, 2, tbl.Len())
	assert.True(t, math.IsNaN(tbl.Value(1, "v")))
	assert.True(t, math.IsNaN(tbl.Value(0, "missing")))

	// the built table does not see rows added afterwards
	require.NoError(t, b.Append(3, 4))
	assert.Equal(t, 2, tbl.Len())
}

func TestTableCopies(t *testing.T) {
	tbl := mustTable(t, []string{"a"}, []float64{1})
	vals := tbl.Values(0)
	vals[0] = 99
	row := tbl.Row(0)
	row["a"] = 99
	cols := tbl.Columns()
	cols[0] = "z"

	assert.Equal(t, 1.0, tbl.Value(0, "a"))
	assert.Equal(t, []string{"a"}, tbl.Columns())

	_, err := tbl.Column("b")
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestGroupBySortsByKeyOrder(t *testing.T) {
	tbl := mustTable(t, []string{ColYear, ColMonth, ColRegion, "v"},
		[]float64{2020, 2, 1, 4},
		[]float64{2019, 12, 2, 1},
		[]float64{2020, 2, 1, 6},
		[]float64{2019, 12, 1, 3},
		[]float64{2020, 1, 2, 8},
	)

	got, err := PerPeriod(tbl, reduce.Mean, []string{"v"})
	require.NoError(t, err)

	assert.Equal(t, []string{ColYear, ColMonth, ColRegion, "v"}, got.Columns())
	want := [][]float64{
		{2019, 12, 1, 3},
		{2019, 12, 2, 1},
		{2020, 1, 2, 8},
		{2020, 2, 1, 5},
	}
	if diff := cmp.Diff(want, rowsOf(got)); diff != "" {
		t.Errorf("PerPeriod mismatch (-want +got):\n%s", diff)
	}
	// input unchanged
	assert.Equal(t, 5, tbl.Len())
}

func TestGroupByMedian(t *testing.T) {
	tbl := mustTable(t, []string{ColRegion, ColMonth, "v"},
		[]float64{1, 1, 1},
		[]float64{1, 1, 10},
		[]float64{1, 1, 2},
		[]float64{1, 1, 3},
	)
	got, err := GroupBy(tbl, []string{ColRegion, ColMonth}, reduce.Median, []string{"v"})
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, 2.5, got.Value(0, "v"))
}

func TestAggregateRequiresRegionAndTime(t *testing.T) {
	tbl := mustTable(t, []string{ColYear, ColMonth, ColRegion, "v"}, []float64{2020, 1, 1, 1})

	tests := []struct {
		name string
		keys []string
		ok   bool
	}{
		{"period", []string{ColYear, ColMonth, ColRegion}, true},
		{"no region", []string{ColYear, ColMonth}, false},
		{"no year", []string{ColMonth, ColRegion}, false},
		{"region only", []string{ColRegion}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Aggregate(tbl, tt.keys, reduce.Sum, []string{"v"})
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, types.IsPrecondition(err), "got %v", err)
		})
	}

	_, err := PerPeriod(tbl, reduce.Sum, []string{"nope"})
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestAcrossYearsSingleYearEqualValues(t *testing.T) {
	b := NewBuilder(ColYear, ColMonth, ColRegion, "v")
	for region := 1; region <= 6; region++ {
		for m := 1; m <= 12; m++ {
			require.NoError(t, b.Append(2020, float64(m), float64(region), 7))
		}
	}
	got, err := AcrossYears(b.Build(), reduce.Median, []string{ColYear, "v"})
	require.NoError(t, err)

	assert.Equal(t, []string{ColRegion, ColMonth, "v"}, got.Columns())
	require.Equal(t, 72, got.Len())
	for i := 0; i < got.Len(); i++ {
		assert.Equal(t, 7.0, got.Value(i, "v"))
	}
	assert.Equal(t, 1.0, got.Value(0, ColRegion))
	assert.Equal(t, 12.0, got.Value(11, ColMonth))
	assert.Equal(t, 2.0, got.Value(12, ColRegion))
}

func TestAcrossYearsMultipleYears(t *testing.T) {
	tbl := mustTable(t, []string{ColYear, ColMonth, ColRegion, "v"},
		[]float64{2019, 3, 1, 1},
		[]float64{2020, 3, 1, 3},
		[]float64{2021, 3, 1, math.NaN()},
	)
	got, err := AcrossYears(tbl, reduce.Mean, []string{"v"})
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, 2.0, got.Value(0, "v"))
	assert.False(t, got.Has(ColYear))
}

func TestCountPerPeriod(t *testing.T) {
	tbl := mustTable(t, []string{ColYear, ColMonth, ColRegion, "pai"},
		[]float64{2020, 1, 1, 0.5},
		[]float64{2020, 1, 1, 0.7},
		[]float64{2020, 1, 2, 0.1},
		[]float64{2020, 3, 1, math.NaN()},
	)
	got, err := CountPerPeriod(tbl, "shots")
	require.NoError(t, err)
	want := [][]float64{
		{2020, 1, 1, 2},
		{2020, 1, 2, 1},
		{2020, 3, 1, 1},
	}
	assert.Equal(t, want, rowsOf(got))
}

func TestFilterAndSelect(t *testing.T) {
	tbl := mustTable(t, []string{"flag", "pai"},
		[]float64{1, 0.5},
		[]float64{0, 0.9},
		[]float64{1, 0},
	)
	got := Filter(tbl, func(r Row) bool { return r["flag"] == 1 && r["pai"] > 0 })
	require.Equal(t, 1, got.Len())
	assert.Equal(t, 0.5, got.Value(0, "pai"))

	sel, err := Select(tbl, "pai")
	require.NoError(t, err)
	assert.Equal(t, []string{"pai"}, sel.Columns())
	_, err = Select(tbl, "x")
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestSortByAndWithColumn(t *testing.T) {
	tbl := mustTable(t, []string{ColRegion, ColMonth},
		[]float64{2, 1},
		[]float64{1, 2},
		[]float64{1, 1},
	)
	sorted, err := SortBy(tbl, ColRegion, ColMonth)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 1}, {1, 2}, {2, 1}}, rowsOf(sorted))

	wc, err := WithColumn(sorted, "v", []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 3.0, wc.Value(2, "v"))

	_, err = WithColumn(sorted, ColMonth, []float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrColumnConflict)
	_, err = WithColumn(sorted, "w", []float64{1})
	assert.ErrorIs(t, err, ErrRowWidth)
}

func TestJoin(t *testing.T) {
	left := mustTable(t, []string{ColRegion, ColMonth, "pai"},
		[]float64{1, 1, 0.5},
		[]float64{1, 2, 0.6},
	)
	right := mustTable(t, []string{ColMonth, ColRegion, "precip"},
		[]float64{1, 1, 30},
	)
	keys := []string{ColRegion, ColMonth}

	inner, err := Join(left, right, keys, JoinInner)
	require.NoError(t, err)
	assert.Equal(t, []string{ColRegion, ColMonth, "pai", "precip"}, inner.Columns())
	assert.Equal(t, [][]float64{{1, 1, 0.5, 30}}, rowsOf(inner))

	outer, err := Join(left, right, keys, JoinLeft)
	require.NoError(t, err)
	require.Equal(t, 2, outer.Len())
	assert.True(t, math.IsNaN(outer.Value(1, "precip")))

	dup := mustTable(t, []string{ColRegion, ColMonth, "precip"},
		[]float64{1, 1, 30},
		[]float64{1, 1, 31},
	)
	_, err = Join(left, dup, keys, JoinInner)
	assert.True(t, types.IsPrecondition(err))

	_, err = Join(left, left, keys, JoinInner)
	assert.ErrorIs(t, err, ErrColumnConflict)
}

func TestConcat(t *testing.T) {
	a := mustTable(t, []string{"x", "y"}, []float64{1, 2})
	b := mustTable(t, []string{"y", "x"}, []float64{4, 3})
	got, err := Concat(a, b)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, rowsOf(got))

	c := mustTable(t, []string{"x"}, []float64{1})
	_, err = Concat(a, c)
	assert.ErrorIs(t, err, ErrRowWidth)
}

func TestDateLabels(t *testing.T) {
	tbl := mustTable(t, []string{ColYear, ColMonth}, []float64{2019, 3}, []float64{2020, 12})
	got, err := DateLabels(tbl)
	require.NoError(t, err)
	assert.Equal(t, []string{"2019-03", "2020-12"}, got)
}

func TestJSONMasksAsNull(t *testing.T) {
	tbl := mustTable(t, []string{"a", "b"}, []float64{1.5, math.NaN()})
	data, err := json.Marshal(tbl)
	require.NoError(t, err)
	assert.JSONEq(t, `{"columns":["a","b"],"rows":[[1.5,null]]}`, string(data))

	var back Table
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 1.5, back.Value(0, "a"))
	assert.True(t, math.IsNaN(back.Value(0, "b")))
}

func TestCSVRoundTrip(t *testing.T) {
	in := "year,month,region_id,pai\n2020,1,1,0.5\n2020,2,1,\n"
	tbl, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())
	assert.True(t, math.IsNaN(tbl.Value(1, "pai")))

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl))
	assert.Equal(t, in, buf.String())

	_, err = ReadCSV(strings.NewReader("a\nx\n"))
	assert.Error(t, err)
	_, err = ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}
