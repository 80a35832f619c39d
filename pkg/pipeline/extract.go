package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vjranagit/drought/pkg/observability"
	"github.com/vjranagit/drought/pkg/table"
	"github.com/vjranagit/drought/pkg/types"
)

// regions returns the catalog's regions, which must be non-empty with
// distinct ids
func (p *Pipeline) regions(ctx context.Context) ([]types.Region, error) {
	regions, err := p.catalog.ListRegions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list regions: %w", err)
	}
	if len(regions) == 0 {
		return nil, &types.PreconditionError{Op: "regions", Reason: "catalog is empty"}
	}
	seen := make(map[int]bool, len(regions))
	for _, r := range regions {
		if seen[r.ID] {
			return nil, &types.PreconditionError{Op: "regions", Reason: fmt.Sprintf("duplicate region id %d", r.ID)}
		}
		seen[r.ID] = true
	}
	return regions, nil
}

func regionIDs(regions []types.Region) []int {
	ids := make([]int, len(regions))
	for i, r := range regions {
		ids[i] = r.ID
	}
	return ids
}

// extractAll samples s over every region, at most Workers at a time, and
// concatenates the per-region tables in catalog order
func (p *Pipeline) extractAll(ctx context.Context, stage string, s types.Series) (*table.Table, error) {
	regions, err := p.regions(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*table.Table, len(regions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for i, region := range regions {
		g.Go(func() error {
			raw, err := p.extractor.Extract(gctx, s, region.Geometry, p.cfg.Scale)
			if err != nil {
				observability.RegionsExtracted.WithLabelValues(stage, "error").Inc()
				return fmt.Errorf("failed to extract region %d: %w", region.ID, err)
			}
			annotated, err := annotate(raw, region.ID)
			if err != nil {
				observability.RegionsExtracted.WithLabelValues(stage, "error").Inc()
				return fmt.Errorf("failed to annotate region %d: %w", region.ID, err)
			}
			observability.RegionsExtracted.WithLabelValues(stage, "ok").Inc()
			results[i] = annotated
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := results[0]
	for _, t := range results[1:] {
		if out, err = table.Concat(out, t); err != nil {
			return nil, err
		}
	}

	p.log.WithFields(logrus.Fields{
		"stage":   stage,
		"regions": len(regions),
		"rows":    out.Len(),
	}).Debug("Regions extracted")
	return out, nil
}

// annotate prefixes an extracted table with year, month and region_id
// columns derived from its timestamp column
func annotate(raw *table.Table, regionID int) (*table.Table, error) {
	ts, err := raw.Column(table.ColTimestamp)
	if err != nil {
		return nil, err
	}

	columns := []string{table.ColYear, table.ColMonth, table.ColRegion}
	for _, c := range raw.Columns() {
		if c == table.ColYear || c == table.ColMonth || c == table.ColRegion {
			continue
		}
		columns = append(columns, c)
	}

	b := table.NewBuilder(columns...)
	for i := 0; i < raw.Len(); i++ {
		row := raw.Row(i)
		k := types.KeyOf(time.Unix(int64(ts[i]), 0))
		row[table.ColYear] = float64(k.Year)
		row[table.ColMonth] = float64(k.Month)
		row[table.ColRegion] = float64(regionID)
		b.AppendRow(row)
	}
	return b.Build(), nil
}
