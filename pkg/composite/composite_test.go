package composite

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vjranagit/drought/pkg/types"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func scalar(t time.Time, bands map[string]float64) types.Image {
	img := types.Image{Time: t}
	for _, name := range sortedNames(bands) {
		img.Bands = append(img.Bands, types.Band{Name: name, Pixels: []float64{bands[name]}})
	}
	return img
}

func sortedNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j] < names[j-1]; j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
	return names
}

func dailySeries(band string, start, end time.Time, value func(time.Time) float64) types.Series {
	s := types.Series{Source: "daily", Bands: []string{band}}
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		s.Images = append(s.Images, scalar(d, map[string]float64{band: value(d)}))
	}
	return s
}

func TestMonthKeysCoverRange(t *testing.T) {
	keys := MonthKeys(day(2019, time.January, 1), day(2023, time.January, 1))
	require.Len(t, keys, 48)
	assert.Equal(t, "2019-01", keys[0].Label())
	assert.Equal(t, "2022-12", keys[47].Label())
}

func TestMonthKeysSkipPartialMonths(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
		want       []string
	}{
		{"mid-month start", day(2020, time.January, 15), day(2020, time.April, 1), []string{"2020-02", "2020-03"}},
		{"mid-month end", day(2020, time.January, 1), day(2020, time.March, 20), []string{"2020-01", "2020-02"}},
		{"inside one month", day(2020, time.January, 5), day(2020, time.January, 25), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, k := range MonthKeys(tt.start, tt.end) {
				got = append(got, k.Label())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMonthlyIgnoresSamplesBeforeStart(t *testing.T) {
	s := dailySeries("precipitation", day(2020, time.January, 1), day(2020, time.April, 1), func(d time.Time) float64 {
		if d.Equal(day(2020, time.January, 2)) {
			return 100
		}
		return 1
	})

	comps, err := Monthly(s, Sum("precipitation"), day(2020, time.January, 15), day(2020, time.April, 1))
	require.NoError(t, err)
	require.Len(t, comps, 2)
	assert.Equal(t, "2020-02", comps[0].Key.Label())
	assert.InDelta(t, 29.0, comps[0].Image.Value("precipitation", 0), 1e-12)
	assert.InDelta(t, 31.0, comps[1].Image.Value("precipitation", 0), 1e-12)
}

func TestMonthlySumsDailySamples(t *testing.T) {
	s := dailySeries("precipitation", day(2023, time.January, 1), day(2023, time.April, 1), func(time.Time) float64 { return 1 })

	comps, err := Monthly(s, Sum("precipitation"), day(2023, time.January, 1), day(2023, time.April, 1))
	require.NoError(t, err)
	require.Len(t, comps, 3)

	want := map[string]float64{"2023-01": 31, "2023-02": 28, "2023-03": 31}
	for _, c := range comps {
		assert.Equal(t, c.Key.Start(), c.Image.Time)
		assert.Equal(t, want[c.Label()], c.Image.Value("precipitation", 0), c.Label())
	}
}

func TestMonthlyEmptyMonthIsMasked(t *testing.T) {
	s := types.Series{Source: "lst", Bands: []string{"temperature"}, Images: []types.Image{
		scalar(day(2023, time.January, 10), map[string]float64{"temperature": 25}),
		scalar(day(2023, time.March, 10), map[string]float64{"temperature": 27}),
	}}

	comps, err := Monthly(s, Mean("temperature"), day(2023, time.January, 1), day(2023, time.April, 1))
	require.NoError(t, err)
	require.Len(t, comps, 3)

	assert.False(t, comps[0].Image.Masked())
	assert.True(t, comps[1].Image.Masked())
	assert.Equal(t, []string{"temperature"}, comps[1].Image.BandNames())
	assert.True(t, math.IsNaN(comps[1].Image.Value("temperature", 0)))
	assert.Equal(t, 27.0, comps[2].Image.Value("temperature", 0))
}

func TestMonthlyIdempotentOnSpan(t *testing.T) {
	start, end := day(2022, time.January, 1), day(2023, time.January, 1)
	s := dailySeries("fpar", start, end, func(d time.Time) float64 {
		return float64(d.YearDay()%17) + 0.25
	})

	first, err := Monthly(s, Mean("fpar"), start, end)
	require.NoError(t, err)

	second, err := Monthly(AsSeries("fpar", first), Mean("fpar"), start, end)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Key, second[i].Key)
		assert.InDelta(t, first[i].Image.Value("fpar", 0), second[i].Image.Value("fpar", 0), 1e-12)
	}
}

func TestMonthlyRejectsUnorderedSeries(t *testing.T) {
	s := types.Series{Source: "bad", Images: []types.Image{
		scalar(day(2023, time.February, 1), map[string]float64{"v": 1}),
		scalar(day(2023, time.January, 1), map[string]float64{"v": 1}),
	}}
	_, err := Monthly(s, Sum("v"), day(2023, time.January, 1), day(2023, time.March, 1))
	require.Error(t, err)
	assert.True(t, types.IsPrecondition(err))
}

func TestReduceIsPixelWise(t *testing.T) {
	imgs := []types.Image{
		{Bands: []types.Band{{Name: "ndvi", Pixels: []float64{0.2, math.NaN(), 0.6}}}},
		{Bands: []types.Band{{Name: "ndvi", Pixels: []float64{0.4, math.NaN(), 0.8}}}},
	}
	out := Mean("ndvi")(imgs)
	px, ok := out.Band("ndvi")
	require.True(t, ok)
	assert.InDelta(t, 0.3, px[0], 1e-12)
	assert.True(t, math.IsNaN(px[1]))
	assert.InDelta(t, 0.7, px[2], 1e-12)
}

func eightDay(values map[time.Time]float64) types.Series {
	s := types.Series{Source: "mod16", Bands: []string{"ET"}}
	var times []time.Time
	for t := range values {
		times = append(times, t)
	}
	for i := 1; i < len(times); i++ {
		for j := i; j > 0 && times[j].Before(times[j-1]); j-- {
			times[j], times[j-1] = times[j-1], times[j]
		}
	}
	for _, t := range times {
		s.Images = append(s.Images, scalar(t, map[string]float64{"ET": values[t]}))
	}
	return s
}

func TestUpsampleSplitsCompositeEvenly(t *testing.T) {
	s := eightDay(map[time.Time]float64{day(2023, time.January, 1): 80})

	daily, err := Upsample(s, 8, day(2023, time.January, 1), day(2023, time.January, 9))
	require.NoError(t, err)
	require.Len(t, daily.Images, 8)
	for i, img := range daily.Images {
		assert.Equal(t, day(2023, time.January, 1+i), img.Time)
		assert.InDelta(t, 10.0, img.Value("ET", 0), 1e-12)
	}
}

func TestUpsampleTruncatedYearEnd(t *testing.T) {
	// Zero-based day 360 of 2023 is December 27, five days before the year ends.
	s := eightDay(map[time.Time]float64{day(2023, time.December, 27): 40})

	daily, err := Upsample(s, 8, day(2023, time.December, 27), day(2024, time.January, 1))
	require.NoError(t, err)
	require.Len(t, daily.Images, 5)
	for _, img := range daily.Images {
		assert.InDelta(t, 8.0, img.Value("ET", 0), 1e-12)
	}
}

func TestUpsampleRequiresPeriodAlignedStart(t *testing.T) {
	s := eightDay(map[time.Time]float64{day(2023, time.January, 1): 80})

	_, err := Upsample(s, 8, day(2023, time.January, 2), day(2023, time.January, 9))
	require.Error(t, err)

	var pe *types.PreconditionError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "upsample", pe.Op)

	_, err = Upsample(s, 0, day(2023, time.January, 1), day(2023, time.January, 9))
	assert.True(t, types.IsPrecondition(err))
}

func TestUpsampleReusesStaleComposite(t *testing.T) {
	// The January 9 composite is missing.
	s := eightDay(map[time.Time]float64{
		day(2023, time.January, 1):  80,
		day(2023, time.January, 17): 16,
	})

	daily, err := Upsample(s, 8, day(2023, time.January, 1), day(2023, time.January, 25))
	require.NoError(t, err)
	require.Len(t, daily.Images, 24)

	for i := 0; i < 16; i++ {
		assert.InDelta(t, 10.0, daily.Images[i].Value("ET", 0), 1e-12, "day %d", i+1)
	}
	for i := 16; i < 24; i++ {
		assert.InDelta(t, 2.0, daily.Images[i].Value("ET", 0), 1e-12, "day %d", i+1)
	}
}

func TestUpsampleMasksDaysOutOfReach(t *testing.T) {
	s := eightDay(map[time.Time]float64{day(2023, time.January, 1): 80})

	daily, err := Upsample(s, 8, day(2023, time.January, 1), day(2023, time.January, 18))
	require.NoError(t, err)
	require.Len(t, daily.Images, 17)

	assert.InDelta(t, 10.0, daily.Images[15].Value("ET", 0), 1e-12)
	assert.True(t, daily.Images[16].Masked())
	assert.Equal(t, day(2023, time.January, 17), daily.Images[16].Time)
}

func TestUpsamplePreservesCompositeTotals(t *testing.T) {
	values := make(map[time.Time]float64)
	for doy := 0; doy < 365; doy += 8 {
		values[day(2023, time.January, 1).AddDate(0, 0, doy)] = float64(doy%40) + 3.5
	}
	s := eightDay(values)

	daily, err := Upsample(s, 8, day(2023, time.January, 1), day(2024, time.January, 1))
	require.NoError(t, err)
	require.Len(t, daily.Images, 365)

	for _, c := range s.Images {
		if coveredDays(c.Time, 8) != 8 {
			continue
		}
		total := 0.0
		for _, img := range daily.Between(c.Time, c.Time.AddDate(0, 0, 8)) {
			total += img.Value("ET", 0)
		}
		assert.InDelta(t, c.Value("ET", 0), total, 1e-9, c.Time.Format(time.DateOnly))
	}
}

func TestDailyToMonthlyExtrapolatesGaps(t *testing.T) {
	s := dailySeries("ET", day(2023, time.January, 1), day(2023, time.March, 1), func(d time.Time) float64 {
		if d.Month() == time.January {
			return 1
		}
		if d.Day()%2 == 0 {
			return math.NaN()
		}
		return 2
	})

	comps, err := DailyToMonthly(s, day(2023, time.January, 1), day(2023, time.March, 1))
	require.NoError(t, err)
	require.Len(t, comps, 2)
	assert.InDelta(t, 31.0, comps[0].Image.Value("ET", 0), 1e-9)
	assert.InDelta(t, 56.0, comps[1].Image.Value("ET", 0), 1e-9)
}

func TestUpsampleThenCumulativeMonthly(t *testing.T) {
	values := make(map[time.Time]float64)
	for doy := 0; doy < 365; doy += 8 {
		values[day(2023, time.January, 1).AddDate(0, 0, doy)] = 16
	}

	daily, err := Upsample(eightDay(values), 8, day(2023, time.January, 1), day(2023, time.March, 1))
	require.NoError(t, err)

	comps, err := DailyToMonthly(daily, day(2023, time.January, 1), day(2023, time.March, 1))
	require.NoError(t, err)
	assert.InDelta(t, 62.0, comps[0].Image.Value("ET", 0), 1e-9)
	assert.InDelta(t, 56.0, comps[1].Image.Value("ET", 0), 1e-9)
}
