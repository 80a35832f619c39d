package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/vjranagit/drought/pkg/table"
)

var errBadRequest = errors.New("bad request")

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	keys, err := s.store.Keys(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"tables": keys})
}

// handleGetTable returns a table as JSON (masked cells are null) or CSV.
// The optional region parameter keeps one region's rows.
func (s *Server) handleGetTable(w http.ResponseWriter, r *http.Request) {
	t, err := s.loadTable(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		writeJSON(w, http.StatusOK, t)
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		if err := table.WriteCSV(w, t); err != nil {
			s.log.WithError(err).Warn("Failed to write csv response")
		}
	default:
		s.writeError(w, fmt.Errorf("%w: unsupported format %q", errBadRequest, format))
	}
}

// loadTable loads the {key} table, filtered by the region parameter
func (s *Server) loadTable(r *http.Request) (*table.Table, error) {
	t, err := s.store.Load(r.Context(), r.PathValue("key"))
	if err != nil {
		return nil, err
	}

	regionParam := r.URL.Query().Get("region")
	if regionParam == "" {
		return t, nil
	}
	region, err := strconv.Atoi(regionParam)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid region %q", errBadRequest, regionParam)
	}
	if !t.Has(table.ColRegion) {
		return nil, fmt.Errorf("%w: %s", table.ErrUnknownColumn, table.ColRegion)
	}
	return table.Filter(t, func(row table.Row) bool { return row.Region() == region }), nil
}
