package models

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSeriesNormalize_SortsAscending(t *testing.T) {
	s := &Series{Symbol: "AAPL", Bars: []Bar{
		{Date: day(2023, 1, 5), Close: 3},
		{Date: day(2023, 1, 3), Close: 1},
		{Date: day(2023, 1, 4), Close: 2},
	}}
	s.Normalize()

	for i := 1; i < len(s.Bars); i++ {
		if !s.Bars[i-1].Date.Before(s.Bars[i].Date) {
			t.Fatalf("bars not strictly ascending at %d", i)
		}
	}
}

func TestSeriesNormalize_DedupeKeepsLast(t *testing.T) {
	s := &Series{Symbol: "AAPL", Bars: []Bar{
		{Date: day(2023, 1, 3), AdjClose: 1.0},
		{Date: day(2023, 1, 4), AdjClose: 2.0},
		{Date: day(2023, 1, 4), AdjClose: 9.0}, // later occurrence wins
	}}
	s.Normalize()

	if len(s.Bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(s.Bars))
	}
	if got := s.Bars[1].AdjClose; got != 9.0 {
		t.Fatalf("expected last duplicate to win, got adj=%v", got)
	}
}

func TestSeriesRange_RecomputedFromBars(t *testing.T) {
	s := &Series{Symbol: "AAPL"}
	if _, ok := s.Range(); ok {
		t.Fatal("empty series should have no range")
	}

	s.Bars = []Bar{
		{Date: day(2023, 1, 3)},
		{Date: day(2023, 6, 30)},
	}
	s.Normalize()
	r, ok := s.Range()
	if !ok {
		t.Fatal("expected a range")
	}
	if !r.From.Equal(day(2023, 1, 3)) || !r.To.Equal(day(2023, 6, 30)) {
		t.Fatalf("unexpected range %s", r)
	}
}

func TestRangeContains(t *testing.T) {
	outer := Range{From: day(2023, 1, 3), To: day(2023, 6, 30)}

	if !outer.Contains(Range{From: day(2023, 2, 1), To: day(2023, 3, 1)}) {
		t.Fatal("inner range should be contained")
	}
	if !outer.Contains(outer) {
		t.Fatal("range should contain itself")
	}
	if outer.Contains(Range{From: day(2023, 1, 1), To: day(2023, 3, 1)}) {
		t.Fatal("range extending earlier should not be contained")
	}
	if outer.Contains(Range{From: day(2023, 2, 1), To: day(2023, 7, 1)}) {
		t.Fatal("range extending later should not be contained")
	}
}

func TestSeriesAt(t *testing.T) {
	s := &Series{Symbol: "AAPL", Bars: []Bar{
		{Date: day(2023, 1, 3), AdjClose: 125.5},
	}}

	bar, ok := s.At(day(2023, 1, 3))
	if !ok || bar.AdjClose != 125.5 {
		t.Fatalf("expected bar at 2023-01-03, got ok=%v bar=%+v", ok, bar)
	}
	if _, ok := s.At(day(2023, 1, 4)); ok {
		t.Fatal("expected no bar at 2023-01-04")
	}
}
