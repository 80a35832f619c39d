package pipeline

import (
	"context"
	"fmt"

	"github.com/vjranagit/drought/pkg/gapfill"
	"github.com/vjranagit/drought/pkg/reduce"
	"github.com/vjranagit/drought/pkg/table"
)

// Ground-truth columns
const (
	ColPAI         = "pai"
	ColQualityFlag = "quality_flag"
	ColShots       = "shots"
)

// periodKeys are the join keys between monthly tables
var periodKeys = []string{table.ColYear, table.ColMonth, table.ColRegion}

// FilterSamples keeps good-quality samples with a positive PAI. Tables
// without a quality flag column are only filtered on PAI.
func FilterSamples(samples *table.Table) *table.Table {
	flagged := samples.Has(ColQualityFlag)
	return table.Filter(samples, func(r table.Row) bool {
		if flagged && r[ColQualityFlag] != 1 {
			return false
		}
		return r[ColPAI] > 0
	})
}

// GroundTruth aggregates ground-truth samples per period and across years
// with mean and median, and counts samples per period
func (p *Pipeline) GroundTruth(ctx context.Context, samples *table.Table) error {
	if !samples.Has(ColPAI) {
		return fmt.Errorf("failed to aggregate ground truth: %w: %s", table.ErrUnknownColumn, ColPAI)
	}
	good := FilterSamples(samples)
	values := []string{ColPAI}

	stages := []struct {
		key     string
		compute func() (*table.Table, error)
	}{
		{StageGroundTruthMonthlyMean, func() (*table.Table, error) { return table.PerPeriod(good, reduce.Mean, values) }},
		{StageGroundTruthMonthlyMedian, func() (*table.Table, error) { return table.PerPeriod(good, reduce.Median, values) }},
		{StageGroundTruthAcrossMean, func() (*table.Table, error) { return table.AcrossYears(good, reduce.Mean, values) }},
		{StageGroundTruthAcrossMedian, func() (*table.Table, error) { return table.AcrossYears(good, reduce.Median, values) }},
		{StageShots, func() (*table.Table, error) { return table.CountPerPeriod(good, ColShots) }},
	}
	for _, s := range stages {
		compute := s.compute
		if _, err := p.stage(ctx, s.key, func(context.Context) (*table.Table, error) { return compute() }); err != nil {
			return err
		}
	}
	return nil
}

// Combined joins monthly mean ground truth with the sample counts, inserts
// rows for absent months of every region, attaches monthly climate and adds
// the shot-weighted PAI interpolation.
func (p *Pipeline) Combined(ctx context.Context, samples *table.Table) (*table.Table, error) {
	climate, err := p.ClimateMonthly(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.GroundTruth(ctx, samples); err != nil {
		return nil, err
	}
	gt, err := p.store.Load(ctx, StageGroundTruthMonthlyMean)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", StageGroundTruthMonthlyMean, err)
	}
	shots, err := p.store.Load(ctx, StageShots)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", StageShots, err)
	}

	return p.stage(ctx, StageCombined, func(ctx context.Context) (*table.Table, error) {
		regions, err := p.regions(ctx)
		if err != nil {
			return nil, err
		}

		joined, err := table.Join(gt, shots, periodKeys, table.JoinLeft)
		if err != nil {
			return nil, err
		}
		filled, err := gapfill.FillMissing(joined, regionIDs(regions), p.cfg.Start, p.cfg.End,
			map[string]float64{ColPAI: 0, ColShots: 0})
		if err != nil {
			return nil, err
		}
		filled, err = table.Join(filled, climate, periodKeys, table.JoinLeft)
		if err != nil {
			return nil, err
		}
		return gapfill.WeightedRolling(filled, ColPAI, ColShots)
	})
}
