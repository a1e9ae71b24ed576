// Package calendar builds month grids and the cell view model shown to parents.
package calendar

import (
	"fmt"
	"time"
)

// Day is one cell date in a month grid.
type Day struct {
	Date           time.Time
	IsCurrentMonth bool
}

// Key returns the day's YYYY-MM-DD key.
func (d Day) Key() string {
	return d.Date.Format(time.DateOnly)
}

// Grid is the whole weeks, Sunday through Saturday, covering one month.
type Grid struct {
	Month time.Time // first day of the month, UTC midnight
	Days  []Day
}

// CivilDate strips t down to its calendar date at UTC midnight, read in t's
// own location. Grid arithmetic on these values never crosses a DST shift.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthOf returns the first day of ref's month.
func MonthOf(ref time.Time) time.Time {
	y, m, _ := ref.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths moves ref by n months and returns the 1st of the result, so
// January 31 plus one month is February 1 rather than March 2.
func AddMonths(ref time.Time, n int) time.Time {
	return MonthOf(ref).AddDate(0, n, 0)
}

// ParseMonth parses a YYYY-MM month.
func ParseMonth(s string) (time.Time, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q, expected YYYY-MM", s)
	}
	return t, nil
}

// MonthKey formats a month as YYYY-MM.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// BuildMonthGrid returns every date from the Sunday on or before the 1st of
// ref's month through the Saturday on or after its last day. The day of month
// in ref is ignored.
func BuildMonthGrid(ref time.Time) Grid {
	first := MonthOf(ref)
	last := first.AddDate(0, 1, -1)

	start := first.AddDate(0, 0, -int(first.Weekday()))
	end := last.AddDate(0, 0, int(time.Saturday-last.Weekday()))

	days := make([]Day, 0, int(end.Sub(start).Hours()/24)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, Day{
			Date:           d,
			IsCurrentMonth: d.Year() == first.Year() && d.Month() == first.Month(),
		})
	}
	return Grid{Month: first, Days: days}
}

// Start is the first date shown.
func (g Grid) Start() time.Time {
	if len(g.Days) == 0 {
		return time.Time{}
	}
	return g.Days[0].Date
}

// End is the last date shown.
func (g Grid) End() time.Time {
	if len(g.Days) == 0 {
		return time.Time{}
	}
	return g.Days[len(g.Days)-1].Date
}

// Weeks splits the grid into rows of seven days.
func (g Grid) Weeks() [][]Day {
	weeks := make([][]Day, 0, len(g.Days)/7)
	for i := 0; i+7 <= len(g.Days); i += 7 {
		weeks = append(weeks, g.Days[i:i+7])
	}
	return weeks
}

// InMonth returns only the days belonging to the grid's month.
func (g Grid) InMonth() []Day {
	var days []Day
	for _, d := range g.Days {
		if d.IsCurrentMonth {
			days = append(days, d)
		}
	}
	return days
}

// Label is the localised month heading, e.g. "2024년 7월".
func (g Grid) Label(loc Locale) string {
	return loc.MonthLabel(g.Month)
}
