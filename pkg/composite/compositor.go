package composite

import (
	"time"

	"github.com/vjranagit/drought/pkg/types"
)

// MonthKeys returns the months composited for [start, end): those fully
// contained in the range. Partial months at either end are not composited.
func MonthKeys(start, end time.Time) []types.TimeKey {
	return types.KeysInRange(start, end)
}

// Monthly aggregates the series into one composite per calendar month of
// [start, end). A month without samples yields whatever agg returns for an
// empty collection, normally a masked image.
func Monthly(s types.Series, agg Aggregator, start, end time.Time) ([]types.MonthlyComposite, error) {
	return composeMonthly(s, MonthKeys(start, end), func(types.TimeKey) Aggregator {
		return agg
	})
}

// composeMonthly runs one aggregator per month. aggFor lets month-dependent
// aggregators (days in month) share the windowing.
func composeMonthly(s types.Series, keys []types.TimeKey, aggFor func(types.TimeKey) Aggregator) ([]types.MonthlyComposite, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	out := make([]types.MonthlyComposite, 0, len(keys))
	for _, k := range keys {
		img := aggFor(k)(s.Between(k.Start(), k.End()))
		img.Time = k.Start()
		out = append(out, types.MonthlyComposite{
			Key:    k,
			Source: s.Source,
			Image:  img,
		})
	}
	return out, nil
}

// AsSeries converts composites back into a series keyed by month start
func AsSeries(source string, comps []types.MonthlyComposite) types.Series {
	s := types.Series{Source: source, Images: make([]types.Image, len(comps))}
	for i, c := range comps {
		s.Images[i] = c.Image
		if i == 0 {
			s.Bands = c.Image.BandNames()
		}
	}
	return s
}
