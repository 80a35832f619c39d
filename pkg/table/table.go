// Package table holds the flat per-region sample and aggregate tables.
//
// Tables are immutable: every operation returns a new table. Rows are built
// through a Builder and materialized once with Build.
package table

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/vjranagit/drought/pkg/types"
)

// Well-known key columns
const (
	ColRegion    = "region_id"
	ColYear      = "year"
	ColMonth     = "month"
	ColTimestamp = "timestamp"
)

var (
	// ErrUnknownColumn is returned when an operation names a missing column
	ErrUnknownColumn = errors.New("unknown column")
	// ErrColumnConflict is returned when a new column already exists
	ErrColumnConflict = errors.New("column already exists")
	// ErrRowWidth is returned when a row does not match the schema
	ErrRowWidth = errors.New("row width does not match columns")
)

// Row is a detached copy of one table row
type Row map[string]float64

// Key returns the row's TimeKey from its year and month columns
func (r Row) Key() types.TimeKey {
	return types.TimeKey{Year: int(r[ColYear]), Month: monthOf(r[ColMonth])}
}

// Region returns the row's region id
func (r Row) Region() int {
	return int(r[ColRegion])
}

// Table is an immutable column-named matrix of float64 values.
// Masked cells hold NaN.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]float64
}

// Columns returns the column names in order
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Has reports whether the table has the column
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Value returns one cell, Masked for unknown columns
func (t *Table) Value(row int, col string) float64 {
	i, ok := t.index[col]
	if !ok {
		return types.Masked
	}
	return t.rows[row][i]
}

// Row returns a copy of row i
func (t *Table) Row(i int) Row {
	r := make(Row, len(t.columns))
	for c, name := range t.columns {
		r[name] = t.rows[i][c]
	}
	return r
}

// Values returns a copy of row i in column order
func (t *Table) Values(i int) []float64 {
	return append([]float64(nil), t.rows[i]...)
}

// Column returns a copy of a whole column
func (t *Table) Column(col string) ([]float64, error) {
	i, ok := t.index[col]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, col)
	}
	out := make([]float64, len(t.rows))
	for r, row := range t.rows {
		out[r] = row[i]
	}
	return out, nil
}

func (t *Table) require(cols ...string) error {
	for _, c := range cols {
		if !t.Has(c) {
			return fmt.Errorf("%w: %s", ErrUnknownColumn, c)
		}
	}
	return nil
}

// Builder accumulates rows for a new table
type Builder struct {
	columns []string
	index   map[string]int
	rows    [][]float64
}

// NewBuilder creates a builder for the given schema
func NewBuilder(columns ...string) *Builder {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		idx[c] = i
	}
	return &Builder{
		columns: append([]string(nil), columns...),
		index:   idx,
	}
}

// Append adds a row given in column order
func (b *Builder) Append(values ...float64) error {
	if len(values) != len(b.columns) {
		return fmt.Errorf("%w: got %d values for %d columns", ErrRowWidth, len(values), len(b.columns))
	}
	b.rows = append(b.rows, append([]float64(nil), values...))
	return nil
}

// AppendRow adds a row by name. Columns missing from r are masked and
// names outside the schema are ignored.
func (b *Builder) AppendRow(r Row) {
	row := make([]float64, len(b.columns))
	for i, c := range b.columns {
		v, ok := r[c]
		if !ok {
			v = math.NaN()
		}
		row[i] = v
	}
	b.rows = append(b.rows, row)
}

// Len returns the number of rows appended so far
func (b *Builder) Len() int {
	return len(b.rows)
}

// Build materializes the table. The builder is reset and may be reused.
func (b *Builder) Build() *Table {
	t := &Table{columns: b.columns, index: b.index, rows: b.rows}
	b.columns = append([]string(nil), b.columns...)
	idx := make(map[string]int, len(b.index))
	for k, v := range b.index {
		idx[k] = v
	}
	b.index = idx
	b.rows = nil
	return t
}

// New builds a table from rows given in column order
func New(columns []string, rows [][]float64) (*Table, error) {
	b := NewBuilder(columns...)
	for _, r := range rows {
		if err := b.Append(r...); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

func monthOf(v float64) time.Month {
	return time.Month(int(v))
}
