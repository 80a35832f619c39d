package composite

import (
	"time"

	"github.com/vjranagit/drought/pkg/reduce"
	"github.com/vjranagit/drought/pkg/types"
)

// DailyToMonthly turns a daily rate series into monthly totals. Each pixel
// is the mean of its available daily values times the days in the month, so
// gaps do not pull the total down the way a plain sum would.
func DailyToMonthly(daily types.Series, start, end time.Time) ([]types.MonthlyComposite, error) {
	return composeMonthly(daily, MonthKeys(start, end), func(k types.TimeKey) Aggregator {
		days := float64(k.Days())
		return Reduce(func(xs []float64) float64 {
			return reduce.Mean(xs) * days
		}, daily.Bands)
	})
}
