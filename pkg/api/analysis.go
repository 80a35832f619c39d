package api

import (
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/vjranagit/drought/pkg/analysis"
	"github.com/vjranagit/drought/pkg/reduce"
	"github.com/vjranagit/drought/pkg/table"
)

type seasonalityResponse struct {
	Column            string     `json:"column"`
	Labels            []string   `json:"labels"`
	Observed          []*float64 `json:"observed"`
	Trend             []*float64 `json:"trend"`
	Seasonal          []*float64 `json:"seasonal"`
	AbsoluteAmplitude float64    `json:"absolute_amplitude"`
	RelativeAmplitude *float64   `json:"relative_amplitude"`
	NRMSE             *float64   `json:"nrmse"`
}

// handleSeasonality decomposes one column of a monthly table (usually
// restricted to a region) with a twelve-month period
func (s *Server) handleSeasonality(w http.ResponseWriter, r *http.Request) {
	t, err := s.loadTable(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	column := r.URL.Query().Get("column")
	if column == "" {
		s.writeError(w, fmt.Errorf("%w: column is required", errBadRequest))
		return
	}

	if err := singleRegion(t); err != nil {
		s.writeError(w, err)
		return
	}

	t, err = table.SortBy(t, table.ColYear, table.ColMonth)
	if err != nil {
		s.writeError(w, err)
		return
	}
	values, err := t.Column(column)
	if err != nil {
		s.writeError(w, err)
		return
	}
	labels, err := table.DateLabels(t)
	if err != nil {
		s.writeError(w, err)
		return
	}

	d, err := analysis.Decompose(values, analysis.MonthlyPeriod)
	if err != nil {
		s.writeError(w, err)
		return
	}
	seasonal := d.SeasonalWithLevel()
	abs, rel, err := analysis.SeasonalAmplitude(seasonal)
	if err != nil {
		s.writeError(w, err)
		return
	}
	nrmse, err := analysis.NRMSE(values, seasonal)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, seasonalityResponse{
		Column:            column,
		Labels:            labels,
		Observed:          nullable(values),
		Trend:             nullable(d.Trend),
		Seasonal:          nullable(seasonal),
		AbsoluteAmplitude: abs,
		RelativeAmplitude: finite(rel),
		NRMSE:             finite(nrmse),
	})
}

// handleCorrelation returns the Pearson correlation of columns x and y
func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	t, err := s.loadTable(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	q := r.URL.Query()
	x, err := t.Column(q.Get("x"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	y, err := t.Column(q.Get("y"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	corr, err := analysis.Correlation(x, y)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"x":           q.Get("x"),
		"y":           q.Get("y"),
		"correlation": corr,
	})
}

// handleSPEI counts the drought classes of an SPEI column
func (s *Server) handleSPEI(w http.ResponseWriter, r *http.Request) {
	t, err := s.loadTable(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	column := r.URL.Query().Get("column")
	if column == "" {
		column = "spei"
	}
	values, err := t.Column(column)
	if err != nil {
		s.writeError(w, err)
		return
	}

	counts := analysis.ClassifySPEI(values)
	out := make(map[string]int, len(counts))
	for c, n := range counts {
		out[analysis.SPEIClass(c).String()] = n
	}
	writeJSON(w, http.StatusOK, out)
}

// handleVertical summarizes per-level profile columns of every row with one
// vertical statistic and returns the table with the result appended
func (s *Server) handleVertical(w http.ResponseWriter, r *http.Request) {
	t, err := s.loadTable(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	q := r.URL.Query()
	if q.Get("columns") == "" {
		s.writeError(w, fmt.Errorf("%w: columns is required", errBadRequest))
		return
	}
	kind := reduce.Kind(q.Get("stat"))
	if kind == "" {
		kind = reduce.KindMean
	}

	levels := strings.Split(q.Get("columns"), ",")
	profiles := make([][]float64, len(levels))
	for i, col := range levels {
		if profiles[i], err = t.Column(strings.TrimSpace(col)); err != nil {
			s.writeError(w, err)
			return
		}
	}

	out := make([]float64, t.Len())
	profile := make([]float64, len(levels))
	for row := range out {
		for i := range levels {
			profile[i] = profiles[i][row]
		}
		if out[row], err = analysis.VerticalStat(profile, kind); err != nil {
			s.writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
	}

	t, err = table.WithColumn(t, "vertical_"+string(kind), out)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// singleRegion rejects tables holding more than one region, whose rows
// would interleave into a single series
func singleRegion(t *table.Table) error {
	if !t.Has(table.ColRegion) || t.Len() == 0 {
		return nil
	}
	first := t.Row(0).Region()
	for i := 1; i < t.Len(); i++ {
		if id := t.Row(i).Region(); id != first {
			return fmt.Errorf("%w: table holds regions %d and %d, select one with region", errBadRequest, first, id)
		}
	}
	return nil
}

// finite returns nil for NaN and infinities, which JSON cannot carry
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func nullable(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		out[i] = finite(v)
	}
	return out
}
