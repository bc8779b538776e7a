package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/gbard/histcache/internal/models"
)

// fetchRange requests an inclusive edge window from the provider, whose end
// bound is exclusive: [edge.From, edge.To + 1 day).
func (s *Service) fetchRange(ctx context.Context, symbol string, edge models.Range) ([]models.Bar, error) {
	bars, err := s.provider.FetchDaily(ctx, symbol, edge.From, edge.To.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", models.ErrProviderFetch, symbol, edge, err)
	}
	return bars, nil
}

// executeMerge handles the prepend/append plans: fetch only the missing
// edge windows, stitch them onto the existing rows, and write atomically.
func (s *Service) executeMerge(ctx context.Context, existing *models.Series, plan models.Plan, result *models.ReconcileResult) error {
	var prependBars, appendBars []models.Bar
	var err error

	if plan.Kind == models.PlanPrepend || plan.Kind == models.PlanPrependAndAppend {
		if prependBars, err = s.fetchRange(ctx, existing.Symbol, plan.Prepend); err != nil {
			return err
		}
	}
	if plan.Kind == models.PlanAppend || plan.Kind == models.PlanPrependAndAppend {
		if appendBars, err = s.fetchRange(ctx, existing.Symbol, plan.Append); err != nil {
			return err
		}
	}

	if len(prependBars) == 0 && len(appendBars) == 0 {
		s.logger.Info().Str("symbol", existing.Symbol).Msg("Edge windows held no data; cache unchanged")
		result.Outcome = models.OutcomeEmptyFetch
		return nil
	}

	// [prepend..., existing..., append...]: duplicate dates keep the last
	// occurrence, so freshly fetched edge data wins any accidental overlap.
	merged := &models.Series{Symbol: existing.Symbol}
	merged.Bars = make([]models.Bar, 0, len(prependBars)+len(existing.Bars)+len(appendBars))
	merged.Bars = append(merged.Bars, prependBars...)
	merged.Bars = append(merged.Bars, existing.Bars...)
	merged.Bars = append(merged.Bars, appendBars...)
	merged.Normalize()

	if err := s.store.Write(merged); err != nil {
		return err
	}

	result.Outcome = models.OutcomeMerged
	result.RowsWritten = len(merged.Bars)
	s.logger.Info().Str("symbol", existing.Symbol).
		Int("prepended", len(prependBars)).
		Int("appended", len(appendBars)).
		Int("rows", len(merged.Bars)).
		Msg("Stitched cached data with fetched edges")
	return nil
}

// executeReplace handles the full-replace plan. A fetch that returns zero
// rows aborts with no mutation — the existing file, if any, is never
// deleted on an empty fetch. Otherwise the old file is backed up and the
// new series renamed into place atomically.
func (s *Service) executeReplace(ctx context.Context, symbol string, plan models.Plan, existing *models.Series, result *models.ReconcileResult) error {
	bars, err := s.fetchRange(ctx, symbol, plan.Replace)
	if err != nil {
		return err
	}

	if len(bars) == 0 {
		s.logger.Info().Str("symbol", symbol).Str("range", plan.Replace.String()).
			Msg("Fetch returned no rows; keeping existing files")
		result.Outcome = models.OutcomeEmptyFetch
		return nil
	}

	// Anchor for the post-write check: the old cache's own start date if a
	// file existed, otherwise the new range start.
	var anchor time.Time
	var oldAdj float64
	hadOld := false
	if existing != nil {
		if r, ok := existing.Range(); ok {
			anchor = r.From
			if bar, ok := existing.At(anchor); ok {
				oldAdj = bar.AdjClose
				hadOld = true
			}
		}
	}
	if anchor.IsZero() {
		anchor = plan.Replace.From
	}

	series := &models.Series{Symbol: symbol, Bars: bars}
	if err := s.store.Replace(series); err != nil {
		return err
	}

	result.Outcome = models.OutcomeReplaced
	result.RowsWritten = len(series.Bars)

	s.postReplaceCheck(symbol, anchor, oldAdj, hadOld, result)
	return nil
}

// postReplaceCheck re-reads the anchor date from the freshly written file
// and reports any adjusted-close delta. Observability, not a correctness
// gate: a failure here never fails the reconciliation.
func (s *Service) postReplaceCheck(symbol string, anchor time.Time, oldAdj float64, hadOld bool, result *models.ReconcileResult) {
	written, err := s.store.Load(symbol)
	if err != nil {
		s.logger.Warn().Str("symbol", symbol).Err(err).Msg("Post-replace check skipped")
		return
	}
	bar, ok := written.At(anchor)
	if !ok {
		s.logger.Info().Str("symbol", symbol).
			Str("anchor", anchor.Format(models.DateLayout)).
			Msg("Post-replace check: anchor not in new cache (start date changed)")
		return
	}
	if hadOld {
		result.AnchorDelta = bar.AdjClose - oldAdj
		s.logger.Info().Str("symbol", symbol).
			Str("anchor", anchor.Format(models.DateLayout)).
			Float64("old_adj", oldAdj).
			Float64("new_adj", bar.AdjClose).
			Float64("delta", result.AnchorDelta).
			Msg("Post-replace check")
		return
	}
	s.logger.Info().Str("symbol", symbol).
		Str("anchor", anchor.Format(models.DateLayout)).
		Float64("new_adj", bar.AdjClose).
		Msg("Post-replace check")
}
