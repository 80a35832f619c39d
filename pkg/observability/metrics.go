// Package observability provides prometheus metrics for the pipeline
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics must be global for registration
var (
	// CompositesTotal counts monthly composites by source and outcome
	CompositesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drought_composites_total",
			Help: "Total number of monthly composites produced",
		},
		[]string{"source", "status"}, // status: ok, masked
	)

	// EmptyJoinsTotal counts stacking folds that left no TimeKey
	EmptyJoinsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "drought_empty_joins_total",
			Help: "Number of multi-source stacks whose inner join produced zero months",
		},
	)

	// StageDuration measures pipeline stage duration in seconds
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "drought_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		},
		[]string{"stage", "status"},
	)

	// StageCacheTotal counts table store lookups per stage
	StageCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drought_stage_cache_total",
			Help: "Table store lookups made before running a stage",
		},
		[]string{"stage", "result"}, // result: hit, miss
	)

	// StoreCacheTotal counts in-memory table cache lookups
	StoreCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drought_store_cache_total",
			Help: "In-memory table cache lookups",
		},
		[]string{"result"},
	)

	// RegionsExtracted counts per-region extractions
	RegionsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drought_regions_extracted_total",
			Help: "Number of per-region extractions performed",
		},
		[]string{"stage", "status"},
	)

	// GapRowsInserted counts synthetic rows added by gap filling
	GapRowsInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "drought_gap_rows_inserted_total",
			Help: "Synthetic rows inserted for missing region months",
		},
	)

	// HTTPRequests counts API requests by route and status code
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drought_http_requests_total",
			Help: "Number of API requests served",
		},
		[]string{"route", "code"},
	)
)

// RecordComposite records one produced composite
func RecordComposite(source string, masked bool) {
	status := "ok"
	if masked {
		status = "masked"
	}
	CompositesTotal.WithLabelValues(source, status).Inc()
}

// RecordStage records a finished pipeline stage
func RecordStage(stage, status string, duration float64) {
	StageDuration.WithLabelValues(stage, status).Observe(duration)
}

// RecordStageCache records a stage cache lookup
func RecordStageCache(stage string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	StageCacheTotal.WithLabelValues(stage, result).Inc()
}

// RecordStoreCache records an in-memory cache lookup
func RecordStoreCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	StoreCacheTotal.WithLabelValues(result).Inc()
}
