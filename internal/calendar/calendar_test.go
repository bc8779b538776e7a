package calendar

import (
	"errors"
	"testing"
	"time"

	"github.com/gbard/histcache/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextTradingDay(t *testing.T) {
	cal := New(DefaultWindowDays)

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		// Jan 1 2023 is a Sunday; New Year observed Monday Jan 2.
		{"new year weekend", day(2023, 1, 1), day(2023, 1, 3)},
		{"already trading day", day(2023, 8, 31), day(2023, 8, 31)},
		{"saturday", day(2023, 7, 1), day(2023, 7, 3)},
		// July 4 2023 (Tuesday) is Independence Day.
		{"independence day", day(2023, 7, 4), day(2023, 7, 5)},
		{"good friday 2024", day(2024, 3, 29), day(2024, 4, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cal.NextTradingDay(tt.in)
			if err != nil {
				t.Fatalf("NextTradingDay failed: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("got %s, want %s", got.Format(models.DateLayout), tt.want.Format(models.DateLayout))
			}
		})
	}
}

func TestPrevTradingDay(t *testing.T) {
	cal := New(DefaultWindowDays)

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"already trading day", day(2023, 8, 31), day(2023, 8, 31)},
		{"sunday", day(2023, 9, 3), day(2023, 9, 1)},
		// Thanksgiving 2023 is Thursday Nov 23.
		{"thanksgiving", day(2023, 11, 23), day(2023, 11, 22)},
		{"christmas 2023", day(2023, 12, 25), day(2023, 12, 22)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cal.PrevTradingDay(tt.in)
			if err != nil {
				t.Fatalf("PrevTradingDay failed: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("got %s, want %s", got.Format(models.DateLayout), tt.want.Format(models.DateLayout))
			}
		})
	}
}

func TestIsTradingDay_Holidays(t *testing.T) {
	cal := New(DefaultWindowDays)

	closed := []time.Time{
		day(2023, 1, 2),   // New Year observed
		day(2023, 1, 16),  // MLK Day
		day(2023, 2, 20),  // Washington's Birthday
		day(2023, 4, 7),   // Good Friday
		day(2023, 5, 29),  // Memorial Day
		day(2023, 6, 19),  // Juneteenth
		day(2023, 9, 4),   // Labor Day
		day(2023, 11, 23), // Thanksgiving
		day(2023, 12, 25), // Christmas
	}
	for _, d := range closed {
		if cal.IsTradingDay(d) {
			t.Errorf("%s should be a holiday", d.Format(models.DateLayout))
		}
	}

	open := []time.Time{
		day(2023, 1, 3),
		day(2023, 6, 30),
		day(2023, 9, 1),
	}
	for _, d := range open {
		if !cal.IsTradingDay(d) {
			t.Errorf("%s should be a trading day", d.Format(models.DateLayout))
		}
	}
}

func TestBoundedWindow(t *testing.T) {
	cal := New(1)

	// Saturday 2022-12-31: the next trading day is Tuesday 2023-01-03,
	// outside a 1-day window.
	_, err := cal.NextTradingDay(day(2022, 12, 31))
	if !errors.Is(err, models.ErrNoTradingDay) {
		t.Fatalf("expected ErrNoTradingDay, got %v", err)
	}

	// The same window is fine when the day itself trades.
	got, err := cal.NextTradingDay(day(2023, 1, 4))
	if err != nil || !got.Equal(day(2023, 1, 4)) {
		t.Fatalf("got %v, %v", got, err)
	}
}
