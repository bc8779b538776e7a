package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gbard/histcache/internal/common"
	"github.com/gbard/histcache/internal/interfaces"
	"github.com/gbard/histcache/internal/models"
)

// DefaultConcurrency caps parallel symbols in a batch to respect
// remote-API rate limits.
const DefaultConcurrency = 4

// Service drives reconciliation for symbols: validate, plan, fetch missing
// edges, merge, and persist atomically. Dependencies are injected so tests
// can substitute fakes; nothing here is ambient state.
type Service struct {
	provider    interfaces.SeriesProvider
	store       interfaces.SeriesStore
	calendar    interfaces.TradingCalendar
	validator   *Validator
	concurrency int
	logger      *common.Logger
}

// NewService creates a reconciliation service.
func NewService(
	provider interfaces.SeriesProvider,
	store interfaces.SeriesStore,
	calendar interfaces.TradingCalendar,
	tolerance float64,
	concurrency int,
	logger *common.Logger,
) *Service {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Service{
		provider:    provider,
		store:       store,
		calendar:    calendar,
		validator:   NewValidator(provider, tolerance, logger),
		concurrency: concurrency,
		logger:      logger,
	}
}

// Reconcile brings one symbol's cache to the desired range. Within a
// symbol the steps run in strict order: normalize -> validate -> plan ->
// fetch edges -> merge -> atomic write. Synchronous, persisted on return.
func (s *Service) Reconcile(ctx context.Context, symbol string, desiredFrom, desiredTo time.Time) (*models.ReconcileResult, error) {
	result := &models.ReconcileResult{
		Symbol:  symbol,
		Plan:    models.PlanNoOp,
		Trust:   models.TrustSkipped,
		Outcome: models.OutcomeSkipped,
	}

	if desiredFrom.After(desiredTo) {
		result.Err = fmt.Errorf("%w: %s > %s", models.ErrInvalidRange,
			desiredFrom.Format(models.DateLayout), desiredTo.Format(models.DateLayout))
		return result, result.Err
	}

	// Snap the target window onto trading days: forward for the start,
	// backward for the end.
	desired, err := s.normalizeRange(desiredFrom, desiredTo)
	if err != nil {
		result.Err = err
		return result, err
	}
	result.Range = desired

	var existing *models.Series
	var cachedRange *models.Range
	trusted := false
	if s.store.Exists(symbol) {
		existing, err = s.store.Load(symbol)
		if err != nil {
			result.Err = err
			return result, err
		}
		if r, ok := existing.Range(); ok {
			cachedRange = &r
		}
	}

	// A cache that already covers the desired window is a no-op before any
	// remote traffic — not even the spot-check runs. Retention is
	// monotonic, so covering is enough.
	if cachedRange != nil && cachedRange.Contains(desired) {
		result.Outcome = models.OutcomeNoOp
		s.logger.Debug().Str("symbol", symbol).Str("desired", desired.String()).
			Msg("Cache already covers desired range")
		return result, nil
	}

	// Validate the existing cache at its own start date before extending
	// it. Indeterminate is treated as untrusted when planning: silent
	// drift is worse than one extra fetch.
	if cachedRange != nil {
		verdict := s.validator.Validate(ctx, existing, cachedRange.From)
		result.Trust = verdict
		trusted = verdict == models.TrustTrusted
	}

	plan, err := BuildPlan(cachedRange, desired, trusted)
	if err != nil {
		result.Err = err
		return result, err
	}
	result.Plan = plan.Kind

	s.logger.Debug().Str("symbol", symbol).
		Str("desired", desired.String()).
		Str("plan", string(plan.Kind)).
		Str("trust", string(result.Trust)).
		Msg("Reconciliation planned")

	switch plan.Kind {
	case models.PlanNoOp:
		result.Outcome = models.OutcomeNoOp
	case models.PlanFullReplace:
		err = s.executeReplace(ctx, symbol, plan, existing, result)
	default:
		err = s.executeMerge(ctx, existing, plan, result)
	}

	if err != nil {
		result.Err = err
		return result, err
	}
	return result, nil
}

// normalizeRange snaps [from, to) onto valid trading days and rejects
// windows that collapse past each other (e.g. a weekend-only range).
// The end bound is exclusive: the last cached day is the latest trading
// day strictly before to, mirroring the provider's fetch convention.
func (s *Service) normalizeRange(from, to time.Time) (models.Range, error) {
	tFrom, err := s.calendar.NextTradingDay(from)
	if err != nil {
		return models.Range{}, err
	}
	tTo, err := s.calendar.PrevTradingDay(to.AddDate(0, 0, -1))
	if err != nil {
		return models.Range{}, err
	}
	desired := models.Range{From: tFrom, To: tTo}
	if !desired.Valid() {
		return models.Range{}, fmt.Errorf("%w: no trading days in %s..%s",
			models.ErrInvalidRange, from.Format(models.DateLayout), to.Format(models.DateLayout))
	}
	return desired, nil
}

// ReconcileBatch reconciles each symbol with bounded parallelism. Symbols
// are independent; one failure never aborts the rest, and every symbol
// gets a terminal outcome in the report. Cancellation stops launching new
// symbols but lets in-flight writes finish.
func (s *Service) ReconcileBatch(ctx context.Context, symbols []string, desiredFrom, desiredTo time.Time) *models.BatchReport {
	report := &models.BatchReport{
		RunID:   uuid.NewString(),
		Started: time.Now(),
	}

	s.logger.Info().Str("run_id", report.RunID).
		Int("symbols", len(symbols)).
		Int("concurrency", s.concurrency).
		Msg("Batch reconciliation started")

	var mu sync.Mutex
	g := &errgroup.Group{}
	g.SetLimit(s.concurrency)

	for _, symbol := range symbols {
		if ctx.Err() != nil {
			mu.Lock()
			report.Results = append(report.Results, &models.ReconcileResult{
				Symbol:  symbol,
				Plan:    models.PlanNoOp,
				Trust:   models.TrustSkipped,
				Outcome: models.OutcomeSkipped,
				Err:     ctx.Err(),
			})
			mu.Unlock()
			continue
		}
		symbol := symbol
		g.Go(func() error {
			res, err := s.Reconcile(ctx, symbol, desiredFrom, desiredTo)
			if err != nil {
				s.logger.Warn().Str("run_id", report.RunID).
					Str("symbol", symbol).Err(err).
					Msg("Symbol reconciliation failed")
			}
			mu.Lock()
			report.Results = append(report.Results, res)
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	report.Finished = time.Now()

	s.logger.Info().Str("run_id", report.RunID).
		Int("failed", len(report.Failed())).
		Dur("elapsed", report.Finished.Sub(report.Started)).
		Msg("Batch reconciliation finished")

	return report
}

// ValidateSymbols splits the input into symbols the remote source knows
// and ones it does not. Provider errors count a symbol as invalid but are
// logged rather than surfaced — a flaky lookup should not kill a batch.
func (s *Service) ValidateSymbols(ctx context.Context, symbols []string) (valid, invalid []string) {
	for _, symbol := range symbols {
		ok, err := s.provider.ValidateSymbol(ctx, symbol)
		if err != nil {
			s.logger.Warn().Str("symbol", symbol).Err(err).Msg("Symbol validation failed")
		}
		if ok {
			valid = append(valid, symbol)
		} else {
			invalid = append(invalid, symbol)
		}
	}
	return valid, invalid
}

// Ensure Service implements Reconciler
var _ interfaces.Reconciler = (*Service)(nil)
