// Package composite turns irregularly sampled raster series into a uniform
// monthly cadence and aligns several sources on their TimeKey.
package composite

import (
	"github.com/vjranagit/drought/pkg/reduce"
	"github.com/vjranagit/drought/pkg/types"
)

// Aggregator collapses the images of one period into a single image. It is
// called with an empty slice when the period has no data and must then
// return a masked image instead of failing.
type Aggregator func(images []types.Image) types.Image

// Reduce builds a pixel-wise Aggregator for the given bands. For every pixel
// the reducer sees the unmasked values of that pixel across all images.
func Reduce(r reduce.Reducer, bands []string) Aggregator {
	return func(images []types.Image) types.Image {
		out := types.Image{Bands: make([]types.Band, len(bands))}
		for bi, name := range bands {
			out.Bands[bi] = types.Band{Name: name}

			width := 0
			for _, img := range images {
				if px, ok := img.Band(name); ok && len(px) > width {
					width = len(px)
				}
			}
			if width == 0 {
				continue
			}

			pixels := make([]float64, width)
			column := make([]float64, 0, len(images))
			for p := 0; p < width; p++ {
				column = column[:0]
				for _, img := range images {
					column = append(column, img.Value(name, p))
				}
				pixels[p] = r(column)
			}
			out.Bands[bi].Pixels = pixels
		}
		return out
	}
}

// Sum, Mean, Median and Max are the aggregators used by the climate stages.
func Sum(bands ...string) Aggregator    { return Reduce(reduce.Sum, bands) }
func Mean(bands ...string) Aggregator   { return Reduce(reduce.Mean, bands) }
func Median(bands ...string) Aggregator { return Reduce(reduce.Median, bands) }
func Max(bands ...string) Aggregator    { return Reduce(reduce.Max, bands) }
