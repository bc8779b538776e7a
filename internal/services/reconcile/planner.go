package reconcile

import (
	"fmt"

	"github.com/gbard/histcache/internal/models"
)

// BuildPlan decides what a reconciliation must do. Pure function of the
// current cached range (nil when no cache exists), the desired range
// already normalized to trading days, and the trust verdict.
//
// Cache retention is monotonic: a desired range fully inside the cached
// range plans NoOp even though the bounds differ — shrinking is never
// performed. Callers who truly want a smaller file delete it out-of-band.
func BuildPlan(cached *models.Range, desired models.Range, trusted bool) (models.Plan, error) {
	if !desired.Valid() {
		return models.Plan{}, fmt.Errorf("%w: %s", models.ErrInvalidRange, desired)
	}

	if cached == nil || !trusted {
		return models.Plan{Kind: models.PlanFullReplace, Replace: desired}, nil
	}

	needPrepend := desired.From.Before(cached.From)
	needAppend := desired.To.After(cached.To)

	switch {
	case needPrepend && needAppend:
		return models.Plan{
			Kind:    models.PlanPrependAndAppend,
			Prepend: models.Range{From: desired.From, To: cached.From.AddDate(0, 0, -1)},
			Append:  models.Range{From: cached.To.AddDate(0, 0, 1), To: desired.To},
		}, nil
	case needPrepend:
		return models.Plan{
			Kind:    models.PlanPrepend,
			Prepend: models.Range{From: desired.From, To: cached.From.AddDate(0, 0, -1)},
		}, nil
	case needAppend:
		return models.Plan{
			Kind:   models.PlanAppend,
			Append: models.Range{From: cached.To.AddDate(0, 0, 1), To: desired.To},
		}, nil
	default:
		return models.Plan{Kind: models.PlanNoOp}, nil
	}
}
