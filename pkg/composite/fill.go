package composite

import (
	"github.com/vjranagit/drought/pkg/types"
)

// FillFromPriorYears replaces every masked composite by the pixel-wise mean
// of the same calendar month in up to years preceding years. Months with no
// usable prior year stay masked.
func FillFromPriorYears(comps []types.MonthlyComposite, years int) []types.MonthlyComposite {
	byKey := make(map[types.TimeKey]types.MonthlyComposite, len(comps))
	for _, c := range comps {
		byKey[c.Key] = c
	}

	out := make([]types.MonthlyComposite, len(comps))
	for i, c := range comps {
		out[i] = c
		if !c.Image.Masked() {
			continue
		}

		var prior []types.Image
		for y := 1; y <= years; y++ {
			p, ok := byKey[types.TimeKey{Year: c.Key.Year - y, Month: c.Key.Month}]
			if ok && !p.Image.Masked() {
				prior = append(prior, p.Image)
			}
		}
		if len(prior) == 0 {
			continue
		}

		img := Mean(c.Image.BandNames()...)(prior)
		img.Time = c.Image.Time
		out[i].Image = img
	}
	return out
}
