// Package interfaces defines service contracts for histcache
package interfaces

import (
	"context"
	"time"

	"github.com/gbard/histcache/internal/models"
)

// SeriesProvider fetches raw daily time-series rows from the remote source.
type SeriesProvider interface {
	// FetchDaily retrieves daily bars for [startInclusive, endExclusive).
	// An empty result is not an error — the range may simply hold no data.
	FetchDaily(ctx context.Context, symbol string, startInclusive, endExclusive time.Time) ([]models.Bar, error)

	// ValidateSymbol reports whether the symbol exists at the remote source.
	ValidateSymbol(ctx context.Context, symbol string) (bool, error)
}

// TradingCalendar snaps dates onto valid trading days.
type TradingCalendar interface {
	// NextTradingDay returns the smallest trading day >= date.
	NextTradingDay(date time.Time) (time.Time, error)

	// PrevTradingDay returns the largest trading day <= date.
	PrevTradingDay(date time.Time) (time.Time, error)

	// IsTradingDay reports whether the market is open on the given date.
	IsTradingDay(date time.Time) bool
}
