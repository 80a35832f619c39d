package types

import (
	"fmt"
	"time"
)

// labelLayout is the canonical "YYYY-MM" join label
const labelLayout = "2006-01"

// TimeKey identifies one calendar month
type TimeKey struct {
	Year  int
	Month time.Month
}

// KeyOf returns the TimeKey containing t (in UTC)
func KeyOf(t time.Time) TimeKey {
	t = t.UTC()
	return TimeKey{Year: t.Year(), Month: t.Month()}
}

// ParseKey parses a "YYYY-MM" label
func ParseKey(label string) (TimeKey, error) {
	t, err := time.Parse(labelLayout, label)
	if err != nil {
		return TimeKey{}, fmt.Errorf("failed to parse time key %q: %w", label, err)
	}
	return KeyOf(t), nil
}

// Start returns the first instant of the month
func (k TimeKey) Start() time.Time {
	return time.Date(k.Year, k.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the first instant of the following month
func (k TimeKey) End() time.Time {
	return k.Start().AddDate(0, 1, 0)
}

// Next returns the following month
func (k TimeKey) Next() TimeKey {
	return k.Add(1)
}

// Prev returns the preceding month
func (k TimeKey) Prev() TimeKey {
	return k.Add(-1)
}

// Add returns the key n months away
func (k TimeKey) Add(n int) TimeKey {
	return KeyFromIndex(k.Index() + n)
}

// Days returns the number of calendar days in the month
func (k TimeKey) Days() int {
	return k.End().AddDate(0, 0, -1).Day()
}

// Index returns a monotonic month number (year*12 + month-1)
func (k TimeKey) Index() int {
	return k.Year*12 + int(k.Month) - 1
}

// KeyFromIndex is the inverse of Index
func KeyFromIndex(idx int) TimeKey {
	y := idx / 12
	m := idx % 12
	if m < 0 {
		m += 12
		y--
	}
	return TimeKey{Year: y, Month: time.Month(m + 1)}
}

// Before reports whether k precedes o
func (k TimeKey) Before(o TimeKey) bool {
	return k.Index() < o.Index()
}

// Label returns the canonical "YYYY-MM" label
func (k TimeKey) Label() string {
	return k.Start().Format(labelLayout)
}

func (k TimeKey) String() string {
	return k.Label()
}

// KeysInRange returns every month fully contained in [start, end)
func KeysInRange(start, end time.Time) []TimeKey {
	first := KeyOf(start)
	if first.Start().Before(start.UTC()) {
		first = first.Next()
	}
	var keys []TimeKey
	for k := first; !k.End().After(end.UTC()); k = k.Next() {
		keys = append(keys, k)
	}
	return keys
}
