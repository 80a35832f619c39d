package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/vjranagit/drought/pkg/analysis"
	"github.com/vjranagit/drought/pkg/observability"
	"github.com/vjranagit/drought/pkg/storage"
	"github.com/vjranagit/drought/pkg/table"
	"github.com/vjranagit/drought/pkg/types"
)

// TableReader is the read side of the table store
type TableReader interface {
	Keys(ctx context.Context) ([]string, error)
	Load(ctx context.Context, key string) (*table.Table, error)
}

// Server implements the HTTP API server
type Server struct {
	store   TableReader
	addr    string
	timeout time.Duration
	log     logrus.FieldLogger
	server  *http.Server
}

// NewServer creates a new API server
func NewServer(addr string, timeout time.Duration, store TableReader, log logrus.FieldLogger) *Server {
	return &Server{
		store:   store,
		addr:    addr,
		timeout: timeout,
		log:     log.WithField("component", "api"),
	}
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/tables", s.handleListTables)
	mux.HandleFunc("GET /api/v1/tables/{key}", s.handleGetTable)
	mux.HandleFunc("GET /api/v1/tables/{key}/seasonality", s.handleSeasonality)
	mux.HandleFunc("GET /api/v1/tables/{key}/correlation", s.handleCorrelation)
	mux.HandleFunc("GET /api/v1/tables/{key}/spei", s.handleSPEI)
	mux.HandleFunc("GET /api/v1/tables/{key}/vertical", s.handleVertical)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s.logging(mux)
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.timeout,
		WriteTimeout: s.timeout,
	}

	s.log.WithField("addr", s.addr).Info("API server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		observability.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Debug("Request served")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidKey), errors.Is(err, table.ErrUnknownColumn), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case types.IsPrecondition(err), errors.Is(err, analysis.ErrEmpty):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.log.WithError(err).Error("Request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
