package models

import "errors"

var (
	// ErrNoTradingDay means no trading day was found within the calendar's
	// bounded search window.
	ErrNoTradingDay = errors.New("no trading day within search window")

	// ErrInvalidRange means a requested date range is empty or inverted
	// after normalization.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrProviderFetch wraps failures from the remote series provider.
	ErrProviderFetch = errors.New("provider fetch failed")

	// ErrNotCached means no cache file exists for the symbol.
	ErrNotCached = errors.New("symbol not cached")
)
