package pipeline

import (
	"context"

	"github.com/vjranagit/drought/pkg/composite"
	"github.com/vjranagit/drought/pkg/reduce"
	"github.com/vjranagit/drought/pkg/table"
	"github.com/vjranagit/drought/pkg/types"
)

// Vegetation index band names
const (
	BandNDVI = "ndvi"
	BandEVI  = "evi"
)

// VegetationColumns lists the vegetation value columns
var VegetationColumns = []string{BandNDVI, BandEVI}

const (
	redBand  = "Nadir_Reflectance_Band1"
	nirBand  = "Nadir_Reflectance_Band2"
	blueBand = "Nadir_Reflectance_Band3"
)

// Vegetation extracts monthly median NDVI and EVI over every region and
// aggregates them per period
func (p *Pipeline) Vegetation(ctx context.Context) (*table.Table, error) {
	samples, err := p.stage(ctx, StageVegetation, func(ctx context.Context) (*table.Table, error) {
		comps, err := p.VegetationComposites(ctx)
		if err != nil {
			return nil, err
		}
		return p.extractAll(ctx, StageVegetation, composite.AsSeries(StageVegetation, comps))
	})
	if err != nil {
		return nil, err
	}
	return p.stage(ctx, StageVegetationMonthly, func(context.Context) (*table.Table, error) {
		return table.PerPeriod(samples, reduce.Median, VegetationColumns)
	})
}

// VegetationComposites computes NDVI and EVI from surface reflectance and
// takes their monthly median
func (p *Pipeline) VegetationComposites(ctx context.Context) ([]types.MonthlyComposite, error) {
	s, err := p.query(ctx, p.cfg.Sources.Reflectance, []string{redBand, nirBand, blueBand}, p.runRange())
	if err != nil {
		return nil, err
	}
	s, err = mapImages(s, VegetationColumns, func(img types.Image) (types.Image, error) {
		img, err := composite.NormalizedDifference(img, nirBand, redBand, BandNDVI)
		if err != nil {
			return types.Image{}, err
		}
		img, err = composite.EVI(img, nirBand, redBand, blueBand, BandEVI)
		if err != nil {
			return types.Image{}, err
		}
		return composite.Select(img, VegetationColumns...)
	})
	if err != nil {
		return nil, err
	}
	return p.monthly(s, composite.Median(VegetationColumns...))
}
