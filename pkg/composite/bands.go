package composite

import (
	"fmt"

	"github.com/vjranagit/drought/pkg/types"
)

// Select keeps the named bands in the given order
func Select(img types.Image, bands ...string) (types.Image, error) {
	out := types.Image{Time: img.Time, Bands: make([]types.Band, 0, len(bands))}
	for _, name := range bands {
		px, ok := img.Band(name)
		if !ok {
			return types.Image{}, fmt.Errorf("%w: %s", ErrMissingBand, name)
		}
		out.Bands = append(out.Bands, types.Band{Name: name, Pixels: copyPixels(px)})
	}
	return out, nil
}

// Rename renames bands present in mapping; other bands keep their names
func Rename(img types.Image, mapping map[string]string) types.Image {
	out := img.Clone()
	for i, b := range out.Bands {
		if to, ok := mapping[b.Name]; ok {
			out.Bands[i].Name = to
		}
	}
	return out
}

// Scale applies v*factor + offset to the named bands, or to all bands when
// none are named.
func Scale(img types.Image, factor, offset float64, bands ...string) types.Image {
	out := img.Clone()
	for i, b := range out.Bands {
		if len(bands) > 0 && !contains(bands, b.Name) {
			continue
		}
		for p, v := range b.Pixels {
			out.Bands[i].Pixels[p] = v*factor + offset
		}
	}
	return out
}

// MaskBits masks every band at pixels whose quality value has any of the
// mask bits set. Pixels with a masked quality value are masked as well.
func MaskBits(img types.Image, qaBand string, mask uint) (types.Image, error) {
	return maskWhere(img, qaBand, func(qa float64) bool {
		return uint(qa)&mask != 0
	})
}

// MaskEquals keeps only pixels whose quality value equals want
func MaskEquals(img types.Image, qaBand string, want float64) (types.Image, error) {
	return maskWhere(img, qaBand, func(qa float64) bool {
		return qa != want
	})
}

func maskWhere(img types.Image, qaBand string, drop func(qa float64) bool) (types.Image, error) {
	qa, ok := img.Band(qaBand)
	if !ok {
		return types.Image{}, fmt.Errorf("%w: %s", ErrMissingBand, qaBand)
	}
	qa = copyPixels(qa)

	out := img.Clone()
	for i := range out.Bands {
		for p := range out.Bands[i].Pixels {
			if p >= len(qa) || types.IsMasked(qa[p]) || drop(qa[p]) {
				out.Bands[i].Pixels[p] = types.Masked
			}
		}
	}
	return out, nil
}

// NormalizedDifference appends (a-b)/(a+b) as band out
func NormalizedDifference(img types.Image, a, b, out string) (types.Image, error) {
	return appendBand(img, out, []string{a, b}, func(v []float64) float64 {
		return (v[0] - v[1]) / (v[0] + v[1])
	})
}

// EVI appends the enhanced vegetation index as band out
func EVI(img types.Image, nir, red, blue, out string) (types.Image, error) {
	return appendBand(img, out, []string{nir, red, blue}, func(v []float64) float64 {
		return 2.5 * (v[0] - v[1]) / (v[0] + 6*v[1] - 7.5*v[2] + 1)
	})
}

func appendBand(img types.Image, out string, inputs []string, fn func([]float64) float64) (types.Image, error) {
	src := make([][]float64, len(inputs))
	width := 0
	for i, name := range inputs {
		px, ok := img.Band(name)
		if !ok {
			return types.Image{}, fmt.Errorf("%w: %s", ErrMissingBand, name)
		}
		src[i] = px
		if len(px) > width {
			width = len(px)
		}
	}

	res := img.Clone()
	band := types.Band{Name: out}
	if width > 0 {
		band.Pixels = make([]float64, width)
		vals := make([]float64, len(inputs))
		for p := 0; p < width; p++ {
			masked := false
			for i := range inputs {
				vals[i] = img.Value(inputs[i], p)
				masked = masked || types.IsMasked(vals[i])
			}
			if masked {
				band.Pixels[p] = types.Masked
				continue
			}
			band.Pixels[p] = fn(vals)
		}
	}
	res.Bands = append(res.Bands, band)
	return res, nil
}

func copyPixels(px []float64) []float64 {
	if px == nil {
		return nil
	}
	return append([]float64(nil), px...)
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
