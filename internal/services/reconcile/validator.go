// Package reconcile implements the incremental cache reconciliation engine:
// spot-validation, planning, edge fetching, and atomic merge of per-symbol
// price series.
package reconcile

import (
	"context"
	"math"
	"time"

	"github.com/gbard/histcache/internal/common"
	"github.com/gbard/histcache/internal/interfaces"
	"github.com/gbard/histcache/internal/models"
)

// DefaultTolerance is the absolute epsilon for adjusted-close comparison.
// Absolute, not relative: prices near zero would pass a relative check
// far too permissively.
const DefaultTolerance = 1e-6

// Validator spot-checks a cached series against the remote provider at a
// single anchor date. Read-only; callers decide what to do with the verdict.
type Validator struct {
	provider  interfaces.SeriesProvider
	tolerance float64
	logger    *common.Logger
}

// NewValidator creates a validator with the given absolute tolerance.
// A non-positive tolerance falls back to DefaultTolerance.
func NewValidator(provider interfaces.SeriesProvider, tolerance float64, logger *common.Logger) *Validator {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Validator{provider: provider, tolerance: tolerance, logger: logger}
}

// Validate compares the cached bar at anchorDate against the remote row for
// the same day. AdjClose is the field of record; Close is a secondary
// safeguard since it rarely gets corrupted or edited on its own.
//
// Returns TrustIndeterminate when the anchor is outside the cached range or
// the remote has no row for it — that is not the same as untrusted, and
// conflating the two would force a needless full refetch.
func (v *Validator) Validate(ctx context.Context, series *models.Series, anchorDate time.Time) models.TrustState {
	cached, ok := series.At(anchorDate)
	if !ok {
		v.logger.Debug().Str("symbol", series.Symbol).
			Str("anchor", anchorDate.Format(models.DateLayout)).
			Msg("Anchor date not in cached range")
		return models.TrustIndeterminate
	}

	remote, err := v.provider.FetchDaily(ctx, series.Symbol, anchorDate, anchorDate.AddDate(0, 0, 1))
	if err != nil {
		v.logger.Warn().Str("symbol", series.Symbol).Err(err).Msg("Anchor fetch failed")
		return models.TrustIndeterminate
	}

	var remoteBar models.Bar
	found := false
	for _, b := range remote {
		if b.DateKey() == cached.DateKey() {
			remoteBar = b
			found = true
			break
		}
	}
	if !found {
		v.logger.Debug().Str("symbol", series.Symbol).
			Str("anchor", anchorDate.Format(models.DateLayout)).
			Msg("Remote has no row at anchor date")
		return models.TrustIndeterminate
	}

	adjDelta := math.Abs(cached.AdjClose - remoteBar.AdjClose)
	closeDelta := math.Abs(cached.Close - remoteBar.Close)
	if adjDelta <= v.tolerance && closeDelta <= v.tolerance {
		return models.TrustTrusted
	}

	v.logger.Info().Str("symbol", series.Symbol).
		Str("anchor", anchorDate.Format(models.DateLayout)).
		Float64("adj_delta", adjDelta).
		Float64("close_delta", closeDelta).
		Msg("Cached values drifted from remote")
	return models.TrustUntrusted
}
