// Package models defines the canonical data types for cached price series.
package models

import (
	"fmt"
	"sort"
	"time"
)

// DateLayout is the canonical date format used in cache files, logs and
// date keys. Day precision; all dates are midnight UTC.
const DateLayout = "2006-01-02"

// Bar is one daily price row in its canonical form. Every field is
// required; rows with missing values never enter a series.
type Bar struct {
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
	Volume   int64
}

// DateKey returns the bar's date in canonical form, the identity used for
// sorting and deduplication.
func (b Bar) DateKey() string {
	return b.Date.Format(DateLayout)
}

// Range is an inclusive date interval at day precision.
type Range struct {
	From time.Time
	To   time.Time
}

// Valid reports whether the range is non-empty and ordered.
func (r Range) Valid() bool {
	return !r.From.IsZero() && !r.To.IsZero() && !r.From.After(r.To)
}

// Equal reports whether both bounds match at day precision.
func (r Range) Equal(other Range) bool {
	return r.From.Equal(other.From) && r.To.Equal(other.To)
}

// Contains reports whether other lies entirely within r.
func (r Range) Contains(other Range) bool {
	return !other.From.Before(r.From) && !other.To.After(r.To)
}

func (r Range) String() string {
	return fmt.Sprintf("%s..%s", r.From.Format(DateLayout), r.To.Format(DateLayout))
}

// Series is the full cached history for one symbol.
type Series struct {
	Symbol string
	Bars   []Bar
}

// Normalize sorts bars ascending by date and collapses duplicate dates,
// keeping the last occurrence. Callers append fetched rows after cached
// rows, so fresh data wins any overlap.
func (s *Series) Normalize() {
	sort.SliceStable(s.Bars, func(i, j int) bool {
		return s.Bars[i].Date.Before(s.Bars[j].Date)
	})

	deduped := s.Bars[:0]
	for i, bar := range s.Bars {
		if i+1 < len(s.Bars) && s.Bars[i+1].DateKey() == bar.DateKey() {
			continue
		}
		deduped = append(deduped, bar)
	}
	s.Bars = deduped
}

// Range returns the covered interval, recomputed from the rows. The range
// is never stored; the file contents are the single source of truth.
func (s *Series) Range() (Range, bool) {
	if len(s.Bars) == 0 {
		return Range{}, false
	}
	return Range{From: s.Bars[0].Date, To: s.Bars[len(s.Bars)-1].Date}, true
}

// At returns the bar for the given date, if present.
func (s *Series) At(date time.Time) (Bar, bool) {
	key := date.Format(DateLayout)
	for _, bar := range s.Bars {
		if bar.DateKey() == key {
			return bar, true
		}
	}
	return Bar{}, false
}
