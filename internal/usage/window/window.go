// Package window computes the trailing today, weekly and monthly sums.
package window

import (
	"time"

	usagedomain "github.com/smallbiznis/aquaalerts/internal/usage/domain"
)

const (
	weeklySpan  = 7
	monthlySpan = 30
)

// Calendar normalizes instants to local midnight in a fixed location.
type Calendar struct {
	loc *time.Location
}

func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.Local
	}
	return Calendar{loc: loc}
}

func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.Local
	}
	return c.loc
}

// Midnight drops the time of day in the calendar's location. The result is UTC.
func (c Calendar) Midnight(t time.Time) time.Time {
	local := t.In(c.Location())
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.Location()).UTC()
}

// AddDays moves a midnight by whole calendar days, tolerating DST shifts.
func (c Calendar) AddDays(day time.Time, n int) time.Time {
	local := day.In(c.Location())
	y, m, d := local.Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, c.Location()).UTC()
}

// Windows are half-open ranges sharing the same exclusive end.
type Windows struct {
	Today      time.Time
	WeekStart  time.Time
	MonthStart time.Time
	End        time.Time
}

func (c Calendar) Windows(now time.Time) Windows {
	today := c.Midnight(now)
	return Windows{
		Today:      today,
		WeekStart:  c.AddDays(today, -(weeklySpan - 1)),
		MonthStart: c.AddDays(today, -(monthlySpan - 1)),
		End:        c.AddDays(today, 1),
	}
}

// Compute sums each window independently over the full record set.
func Compute(records []usagedomain.UsageRecord, w Windows) usagedomain.Statistics {
	var stats usagedomain.Statistics
	for _, r := range records {
		day := r.Day
		if contains(day, w.Today, w.End) {
			stats.Today += r.AmountLiters
		}
		if contains(day, w.WeekStart, w.End) {
			stats.Weekly += r.AmountLiters
		}
		if contains(day, w.MonthStart, w.End) {
			stats.Monthly += r.AmountLiters
		}
	}
	return stats
}

func contains(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}
