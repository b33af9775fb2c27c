// Package period resolves calendar-month boundaries and closed date ranges.
//
// All month arithmetic goes through time.Date normalization, so December
// rolls into the next year and leap years need no special casing.
package period

import "time"

// Month identifies one calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// Range is a closed interval [From, To]. A zero bound is unbounded.
type Range struct {
	From time.Time
	To   time.Time
}

// MonthOf returns the calendar month containing t, in t's location.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// NewMonth builds a Month from plain integers. Out-of-range months are
// normalized the way time.Date does it; callers validate input first.
func NewMonth(year, month int) Month {
	t := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return MonthOf(t)
}

// AddMonths returns the month n months after m (n may be negative).
func (m Month) AddMonths(n int) Month {
	return MonthOf(time.Date(m.Year, m.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC))
}

// Bounds returns the first instant of m and 23:59:59 of its last day in loc.
func (m Month) Bounds(loc *time.Location) (start, end time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	start = time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, loc)
	// Day 0 of the following month is the last day of this one.
	end = time.Date(m.Year, m.Month+1, 0, 23, 59, 59, 0, loc)
	return start, end
}

// Range returns the closed range covering m in loc.
func (m Month) Range(loc *time.Location) Range {
	start, end := m.Bounds(loc)
	return Range{From: start, To: end}
}

// Label returns the short English month name, e.g. "Jan".
func (m Month) Label() string {
	return m.Month.String()[:3]
}

// MonthBounds returns the UTC bounds of the given month.
func MonthBounds(year, month int) (start, end time.Time) {
	return MonthBoundsIn(year, month, time.UTC)
}

// MonthBoundsIn returns the bounds of the given month in loc.
func MonthBoundsIn(year, month int, loc *time.Location) (start, end time.Time) {
	return Month{Year: year, Month: time.Month(month)}.Bounds(loc)
}

// TrailingMonths returns exactly n months, oldest first, ending with the
// month containing anchor. n <= 0 yields nil.
func TrailingMonths(n int, anchor time.Time) []Month {
	if n <= 0 {
		return nil
	}
	last := MonthOf(anchor)
	out := make([]Month, n)
	for i := 0; i < n; i++ {
		out[i] = last.AddMonths(i - (n - 1))
	}
	return out
}

// Contains reports whether t lies inside the closed range.
func (r Range) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// WholeSeconds narrows r to whole-second bounds: From is rounded up and To
// down. For instants stored at second precision, Contains gives the same
// answer for r and r.WholeSeconds().
func (r Range) WholeSeconds() Range {
	if !r.From.IsZero() {
		if f := r.From.Truncate(time.Second); !f.Equal(r.From) {
			r.From = f.Add(time.Second)
		}
	}
	if !r.To.IsZero() {
		r.To = r.To.Truncate(time.Second)
	}
	return r
}

// IsZero reports whether the range is unbounded on both ends.
func (r Range) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}
