package composite

import (
	"fmt"
	"time"

	"github.com/vjranagit/drought/pkg/types"
)

// Upsample expands a cumulative composite series with a fixed period (in
// days) into a daily rate series over [start, end).
//
// Composites start on zero-based day-of-year multiples of period, so start
// must too. Each day takes the most recent composite that began within the
// previous 2*period days, which lets a day reuse a stale composite when the
// expected one is missing. The composite total is divided by the number of
// days it covers: period, or fewer for the truncated last composite of a
// year. Days without any composite in reach are masked.
func Upsample(s types.Series, period int, start, end time.Time) (types.Series, error) {
	if period <= 0 {
		return types.Series{}, &types.PreconditionError{
			Op:     "upsample",
			Reason: fmt.Sprintf("period must be positive, got %d", period),
		}
	}
	start = start.UTC()
	if doy := start.YearDay() - 1; doy%period != 0 {
		return types.Series{}, &types.PreconditionError{
			Op:     "upsample",
			Reason: fmt.Sprintf("start %s is day %d of the year, not a multiple of %d", start.Format(time.DateOnly), doy, period),
		}
	}
	if err := s.Validate(); err != nil {
		return types.Series{}, err
	}

	out := types.Series{Source: s.Source, Bands: s.Bands}
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		window := s.Between(d.AddDate(0, 0, 1-2*period), d.AddDate(0, 0, 1))
		if len(window) == 0 {
			out.Images = append(out.Images, types.NewMaskedImage(d, s.Bands))
			continue
		}

		latest := window[len(window)-1]
		daily := latest.Clone()
		divisor := float64(coveredDays(latest.Time, period))
		for bi := range daily.Bands {
			for p := range daily.Bands[bi].Pixels {
				daily.Bands[bi].Pixels[p] /= divisor
			}
		}
		daily.Time = d
		out.Images = append(out.Images, daily)
	}
	return out, nil
}

// coveredDays is the number of days a composite starting at t represents:
// the period, capped at the days left before the next calendar year.
func coveredDays(t time.Time, period int) int {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	nextYear := time.Date(t.Year()+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	left := int(nextYear.Sub(day).Hours() / 24)
	if left < period {
		return left
	}
	return period
}
