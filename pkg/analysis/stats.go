package analysis

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/vjranagit/drought/pkg/reduce"
	"github.com/vjranagit/drought/pkg/types"
)

// SPEIClass is a drought category of the standardized precipitation
// evapotranspiration index
type SPEIClass int

const (
	ExtremeDrought SPEIClass = iota
	SevereDrought
	ModerateDrought
	NearNormal
	ModeratelyWet
	VeryWet
	ExtremelyWet
)

var speiNames = [...]string{
	"extreme_drought",
	"severe_drought",
	"moderate_drought",
	"near_normal",
	"moderately_wet",
	"very_wet",
	"extremely_wet",
}

func (c SPEIClass) String() string {
	if c < 0 || int(c) >= len(speiNames) {
		return fmt.Sprintf("SPEIClass(%d)", int(c))
	}
	return speiNames[c]
}

// ClassOf returns the class of one SPEI value. Drought thresholds are
// inclusive on the dry side, wet thresholds on the wet side.
func ClassOf(v float64) SPEIClass {
	switch {
	case v <= -2:
		return ExtremeDrought
	case v <= -1.5:
		return SevereDrought
	case v <= -1:
		return ModerateDrought
	case v < 1:
		return NearNormal
	case v < 1.5:
		return ModeratelyWet
	case v < 2:
		return VeryWet
	default:
		return ExtremelyWet
	}
}

// ClassifySPEI counts values per class. Masked values are not counted.
func ClassifySPEI(values []float64) [7]int {
	var counts [7]int
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		counts[ClassOf(v)]++
	}
	return counts
}

// Correlation returns the Pearson correlation of x and y over the positions
// where both are unmasked.
func Correlation(x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0, &types.PreconditionError{Op: "correlation", Reason: fmt.Sprintf("length %d != %d", len(x), len(y))}
	}
	var a, b stats.Float64Data
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		a = append(a, x[i])
		b = append(b, y[i])
	}
	if len(a) == 0 {
		return 0, ErrEmpty
	}
	r, err := stats.Correlation(a, b)
	if err != nil {
		return 0, fmt.Errorf("failed to correlate: %w", err)
	}
	return r, nil
}

// VerticalStat summarizes a vertical profile. Mean and min ignore empty
// (zero) levels and are zero for an all-empty profile.
func VerticalStat(profile []float64, kind reduce.Kind) (float64, error) {
	switch kind {
	case reduce.KindMean, reduce.KindMin:
		var filled []float64
		for _, v := range profile {
			if v != 0 && !math.IsNaN(v) {
				filled = append(filled, v)
			}
		}
		if len(filled) == 0 {
			return 0, nil
		}
		if kind == reduce.KindMean {
			return reduce.Mean(filled), nil
		}
		return reduce.Min(filled), nil
	case reduce.KindMax:
		return reduce.Max(profile), nil
	case reduce.KindSum:
		return reduce.Sum(profile), nil
	default:
		return 0, fmt.Errorf("unsupported vertical statistic %q", kind)
	}
}
