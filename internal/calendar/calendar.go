// Package calendar implements the NYSE trading calendar used to snap
// requested dates onto valid trading days.
package calendar

import (
	"fmt"
	"time"

	"github.com/gbard/histcache/internal/models"
)

// DefaultWindowDays bounds the look-around search in either direction.
// Real market calendars never have week-long gaps, so 7 is conservative.
const DefaultWindowDays = 7

// Calendar answers trading-day queries. It is stateless and read-only;
// holiday sets are computed per year on demand.
type Calendar struct {
	windowDays int
}

// New creates a calendar with the given look-around window in calendar
// days. Values below 1 fall back to DefaultWindowDays.
func New(windowDays int) *Calendar {
	if windowDays < 1 {
		windowDays = DefaultWindowDays
	}
	return &Calendar{windowDays: windowDays}
}

// NextTradingDay returns the smallest trading day >= date.
func (c *Calendar) NextTradingDay(date time.Time) (time.Time, error) {
	d := midnight(date)
	for i := 0; i <= c.windowDays; i++ {
		if c.IsTradingDay(d) {
			return d, nil
		}
		d = d.AddDate(0, 0, 1)
	}
	return time.Time{}, fmt.Errorf("%w: no trading day within %d days after %s",
		models.ErrNoTradingDay, c.windowDays, date.Format(models.DateLayout))
}

// PrevTradingDay returns the largest trading day <= date.
func (c *Calendar) PrevTradingDay(date time.Time) (time.Time, error) {
	d := midnight(date)
	for i := 0; i <= c.windowDays; i++ {
		if c.IsTradingDay(d) {
			return d, nil
		}
		d = d.AddDate(0, 0, -1)
	}
	return time.Time{}, fmt.Errorf("%w: no trading day within %d days before %s",
		models.ErrNoTradingDay, c.windowDays, date.Format(models.DateLayout))
}

// IsTradingDay reports whether the market is open on the given date.
func (c *Calendar) IsTradingDay(date time.Time) bool {
	d := midnight(date)
	if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	for _, h := range holidays(d.Year()) {
		if h.Equal(d) {
			return false
		}
	}
	return true
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// holidays returns the NYSE full-day closures for a year.
func holidays(year int) []time.Time {
	hs := []time.Time{
		observed(date(year, time.January, 1)),              // New Year's Day
		nthWeekday(year, time.January, time.Monday, 3),     // MLK Day
		nthWeekday(year, time.February, time.Monday, 3),    // Washington's Birthday
		goodFriday(year),                                   // Good Friday
		lastWeekday(year, time.May, time.Monday),           // Memorial Day
		observed(date(year, time.July, 4)),                 // Independence Day
		nthWeekday(year, time.September, time.Monday, 1),   // Labor Day
		nthWeekday(year, time.November, time.Thursday, 4),  // Thanksgiving
		observed(date(year, time.December, 25)),            // Christmas
	}
	if year >= 2022 {
		hs = append(hs, observed(date(year, time.June, 19))) // Juneteenth
	}
	return hs
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// observed shifts a holiday landing on a weekend to the nearest weekday.
func observed(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}

// nthWeekday returns the nth occurrence of a weekday in a month.
func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	d := date(year, month, 1)
	for d.Weekday() != weekday {
		d = d.AddDate(0, 0, 1)
	}
	return d.AddDate(0, 0, 7*(n-1))
}

// lastWeekday returns the final occurrence of a weekday in a month.
func lastWeekday(year int, month time.Month, weekday time.Weekday) time.Time {
	d := date(year, month+1, 1).AddDate(0, 0, -1)
	for d.Weekday() != weekday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// goodFriday is two days before Easter Sunday (anonymous Gregorian computus).
func goodFriday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	dd := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - dd - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return date(year, time.Month(month), day).AddDate(0, 0, -2)
}
