package pipeline

import (
	"context"
	"fmt"

	"github.com/vjranagit/drought/pkg/composite"
	"github.com/vjranagit/drought/pkg/observability"
	"github.com/vjranagit/drought/pkg/reduce"
	"github.com/vjranagit/drought/pkg/table"
	"github.com/vjranagit/drought/pkg/types"
)

// Climate band names
const (
	BandPrecipitation = "precipitation"
	BandRadiation     = "radiation"
	BandTemperature   = "temperature"
	BandFpar          = "fpar"
	BandET            = "ET"
	BandPET           = "PET"
)

// ClimateColumns lists the climate value columns in stacking order
var ClimateColumns = []string{BandPrecipitation, BandRadiation, BandTemperature, BandFpar, BandET, BandPET}

// Upstream band names and quality masks
const (
	radiationBand = "surface_net_solar_radiation"
	lstBand       = "LST_Day_1km"
	lstQABand     = "QC_Day"
	fparBand      = "Fpar_500m"
	fparQABand    = "FparExtra_QC"
	etQABand      = "ET_QC"

	// land (bits 0-1), aerosol (3), cirrus (4), cloud (5), shadow (6)
	fparQAMask = 0b11 | 1<<3 | 1<<4 | 1<<5 | 1<<6
	// overall quality (bit 0), cloud state (bits 3-4)
	etQAMask = 1 | 3<<3

	lstScale = 0.02
	kelvin   = 273.15
	etScale  = 0.1
)

// Climate extracts the stacked monthly climate composites over every region
func (p *Pipeline) Climate(ctx context.Context) (*table.Table, error) {
	return p.stage(ctx, StageClimate, func(ctx context.Context) (*table.Table, error) {
		comps, err := p.ClimateComposites(ctx)
		if err != nil {
			return nil, err
		}
		return p.extractAll(ctx, StageClimate, composite.AsSeries(StageClimate, comps))
	})
}

// ClimateMonthly aggregates the climate samples to per-period and
// cross-year medians
func (p *Pipeline) ClimateMonthly(ctx context.Context) (*table.Table, error) {
	climate, err := p.Climate(ctx)
	if err != nil {
		return nil, err
	}
	monthly, err := p.stage(ctx, StageClimateMonthly, func(context.Context) (*table.Table, error) {
		return table.PerPeriod(climate, reduce.Median, ClimateColumns)
	})
	if err != nil {
		return nil, err
	}
	_, err = p.stage(ctx, StageClimateAcrossYears, func(context.Context) (*table.Table, error) {
		return table.AcrossYears(climate, reduce.Median, ClimateColumns)
	})
	if err != nil {
		return nil, err
	}
	return monthly, nil
}

// ClimateComposites builds one monthly composite per month of the run
// carrying every climate band
func (p *Pipeline) ClimateComposites(ctx context.Context) ([]types.MonthlyComposite, error) {
	builders := []func(context.Context) ([]types.MonthlyComposite, error){
		p.precipitation,
		p.radiation,
		p.temperature,
		p.fpar,
		p.evapotranspiration,
	}

	inputs := make([][]types.MonthlyComposite, 0, len(builders))
	for _, build := range builders {
		comps, err := build(ctx)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, comps)
	}
	return p.stacker.Stack(inputs...)
}

func (p *Pipeline) runRange() types.TimeRange {
	return types.TimeRange{Start: p.cfg.Start, End: p.cfg.End}
}

func (p *Pipeline) query(ctx context.Context, sourceID string, bands []string, r types.TimeRange) (types.Series, error) {
	s, err := p.source.Query(ctx, sourceID, bands, r, nil)
	if err != nil {
		return types.Series{}, fmt.Errorf("failed to query %s: %w", sourceID, err)
	}
	return s, nil
}

func (p *Pipeline) monthly(s types.Series, agg composite.Aggregator) ([]types.MonthlyComposite, error) {
	comps, err := composite.Monthly(s, agg, p.cfg.Start, p.cfg.End)
	if err != nil {
		return nil, err
	}
	recordComposites(s.Source, comps)
	return comps, nil
}

func recordComposites(source string, comps []types.MonthlyComposite) {
	for _, c := range comps {
		observability.RecordComposite(source, c.Image.Masked())
	}
}

// precipitation sums daily rainfall per month
func (p *Pipeline) precipitation(ctx context.Context) ([]types.MonthlyComposite, error) {
	s, err := p.query(ctx, p.cfg.Sources.Precipitation, []string{BandPrecipitation}, p.runRange())
	if err != nil {
		return nil, err
	}
	return p.monthly(s, composite.Sum(BandPrecipitation))
}

// radiation averages monthly reanalysis and patches masked months from
// the same month of earlier years
func (p *Pipeline) radiation(ctx context.Context) ([]types.MonthlyComposite, error) {
	s, err := p.query(ctx, p.cfg.Sources.Radiation, []string{radiationBand}, p.runRange())
	if err != nil {
		return nil, err
	}
	s = s.Map([]string{BandRadiation}, func(img types.Image) types.Image {
		return composite.Rename(img, map[string]string{radiationBand: BandRadiation})
	})
	comps, err := p.monthly(s, composite.Mean(BandRadiation))
	if err != nil {
		return nil, err
	}
	if p.cfg.FillYears > 0 {
		comps = composite.FillFromPriorYears(comps, p.cfg.FillYears)
	}
	return comps, nil
}

// temperature averages quality-filtered daily land surface temperature in
// degrees Celsius
func (p *Pipeline) temperature(ctx context.Context) ([]types.MonthlyComposite, error) {
	s, err := p.query(ctx, p.cfg.Sources.Temperature, []string{lstBand, lstQABand}, p.runRange())
	if err != nil {
		return nil, err
	}
	s, err = mapImages(s, []string{BandTemperature}, func(img types.Image) (types.Image, error) {
		img, err := composite.MaskEquals(img, lstQABand, 0)
		if err != nil {
			return types.Image{}, err
		}
		img = composite.Rename(img, map[string]string{lstBand: BandTemperature})
		img = composite.Scale(img, lstScale, -kelvin, BandTemperature)
		return composite.Select(img, BandTemperature)
	})
	if err != nil {
		return nil, err
	}
	return p.monthly(s, composite.Mean(BandTemperature))
}

// fpar averages quality-filtered 8-day composites
func (p *Pipeline) fpar(ctx context.Context) ([]types.MonthlyComposite, error) {
	s, err := p.query(ctx, p.cfg.Sources.Fpar, []string{fparBand, fparQABand}, p.runRange())
	if err != nil {
		return nil, err
	}
	s, err = mapImages(s, []string{BandFpar}, func(img types.Image) (types.Image, error) {
		img, err := composite.MaskBits(img, fparQABand, fparQAMask)
		if err != nil {
			return types.Image{}, err
		}
		img = composite.Rename(img, map[string]string{fparBand: BandFpar})
		return composite.Select(img, BandFpar)
	})
	if err != nil {
		return nil, err
	}
	return p.monthly(s, composite.Mean(BandFpar))
}

// evapotranspiration spreads cumulative 8-day ET and PET over their days
// and accumulates the daily rates per month
func (p *Pipeline) evapotranspiration(ctx context.Context) ([]types.MonthlyComposite, error) {
	period := p.cfg.UpsamplePeriod
	r := p.runRange()
	// composites that began before the run still cover its first days
	r.Start = r.Start.AddDate(0, 0, -2*period)

	s, err := p.query(ctx, p.cfg.Sources.Evapotranspiration, []string{BandET, BandPET, etQABand}, r)
	if err != nil {
		return nil, err
	}
	s, err = mapImages(s, []string{BandET, BandPET}, func(img types.Image) (types.Image, error) {
		img, err := composite.MaskBits(img, etQABand, etQAMask)
		if err != nil {
			return types.Image{}, err
		}
		img = composite.Scale(img, etScale, 0, BandET, BandPET)
		return composite.Select(img, BandET, BandPET)
	})
	if err != nil {
		return nil, err
	}

	daily, err := composite.Upsample(s, period, p.cfg.Start, p.cfg.End)
	if err != nil {
		return nil, err
	}
	daily.Source = s.Source + "/daily"

	comps, err := composite.DailyToMonthly(daily, p.cfg.Start, p.cfg.End)
	if err != nil {
		return nil, err
	}
	recordComposites(s.Source, comps)
	return comps, nil
}

func mapImages(s types.Series, bands []string, fn func(types.Image) (types.Image, error)) (types.Series, error) {
	out := types.Series{Source: s.Source, Bands: bands, Images: make([]types.Image, 0, len(s.Images))}
	for _, img := range s.Images {
		mapped, err := fn(img)
		if err != nil {
			return types.Series{}, fmt.Errorf("failed to process %s image at %s: %w", s.Source, img.Time.Format("2006-01-02"), err)
		}
		out.Images = append(out.Images, mapped)
	}
	return out, nil
}
