package pipeline

import (
	"context"

	"github.com/vjranagit/drought/pkg/table"
	"github.com/vjranagit/drought/pkg/types"
)

// RasterSource queries an upstream image collection. The returned series is
// time ordered; geom, when non-nil, restricts the query area.
type RasterSource interface {
	Query(ctx context.Context, sourceID string, bands []string, r types.TimeRange, geom *types.Geometry) (types.Series, error)
}

// RegionExtractor samples a series over one region at a fixed resolution
// (in meters). The result has a timestamp column (unix seconds) plus one
// column per band, with one row per sampled pixel and image.
type RegionExtractor interface {
	Extract(ctx context.Context, s types.Series, geom types.Geometry, resolution float64) (*table.Table, error)
}

// RegionCatalog lists the study regions in a stable order
type RegionCatalog interface {
	ListRegions(ctx context.Context) ([]types.Region, error)
}

// TableStore persists stage outputs. Load must wrap storage.ErrNotFound
// for absent keys.
type TableStore interface {
	Load(ctx context.Context, key string) (*table.Table, error)
	Save(ctx context.Context, key string, t *table.Table) error
}
