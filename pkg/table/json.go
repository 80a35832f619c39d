package table

import (
	"encoding/json"
	"math"
)

type tableJSON struct {
	Columns []string     `json:"columns"`
	Rows    [][]*float64 `json:"rows"`
}

// MarshalJSON encodes the table with masked cells as null
func (t *Table) MarshalJSON() ([]byte, error) {
	out := tableJSON{Columns: t.columns, Rows: make([][]*float64, len(t.rows))}
	for i, row := range t.rows {
		cells := make([]*float64, len(row))
		for c := range row {
			if math.IsNaN(row[c]) || math.IsInf(row[c], 0) {
				continue
			}
			v := row[c]
			cells[c] = &v
		}
		out.Rows[i] = cells
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a table, turning nulls into masked cells
func (t *Table) UnmarshalJSON(data []byte) error {
	var in tableJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	b := NewBuilder(in.Columns...)
	for _, cells := range in.Rows {
		row := make([]float64, len(cells))
		for c, v := range cells {
			row[c] = math.NaN()
			if v != nil {
				row[c] = *v
			}
		}
		if err := b.Append(row...); err != nil {
			return err
		}
	}
	*t = *b.Build()
	return nil
}
