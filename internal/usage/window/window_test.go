package window

import (
	"testing"
	"time"

	usagedomain "github.com/smallbiznis/aquaalerts/internal/usage/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMidnightUsesCalendarLocation(t *testing.T) {
	loc := time.FixedZone("WIB", 7*3600)
	cal := NewCalendar(loc)

	// 20:00 UTC on the 14th is already the 15th at UTC+7.
	got := cal.Midnight(time.Date(2026, 10, 14, 20, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 10, 15, 0, 0, 0, 0, loc).UTC(), got)
	assert.Equal(t, time.UTC, got.Location())
}

func TestAddDaysAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	cal := NewCalendar(loc)

	day := cal.Midnight(time.Date(2026, 3, 8, 12, 0, 0, 0, loc))
	next := cal.AddDays(day, 1)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, loc).UTC(), next)
	assert.Equal(t, 23*time.Hour, next.Sub(day))
}

func TestComputeHalfOpenWindows(t *testing.T) {
	cal := NewCalendar(time.UTC)
	now := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	w := cal.Windows(now)

	rec := func(offset int, amount float64) usagedomain.UsageRecord {
		return usagedomain.UsageRecord{Day: cal.AddDays(w.Today, offset), AmountLiters: amount}
	}
	records := []usagedomain.UsageRecord{
		rec(1, 1000),  // tomorrow
		rec(0, 100),   // today
		rec(-6, 10),   // last day inside the week
		rec(-7, 20),   // first day outside the week
		rec(-29, 30),  // last day inside the month
		rec(-30, 500), // outside
	}

	stats := Compute(records, w)
	assert.Equal(t, 100.0, stats.Today)
	assert.Equal(t, 110.0, stats.Weekly)
	assert.Equal(t, 160.0, stats.Monthly)
}

func TestComputeEmpty(t *testing.T) {
	w := NewCalendar(time.UTC).Windows(time.Now())
	require.Equal(t, usagedomain.Statistics{}, Compute(nil, w))
}
