package models

import "time"

// PlanKind identifies what a reconciliation run will do to the cache file.
type PlanKind string

const (
	PlanNoOp             PlanKind = "noop"
	PlanPrepend          PlanKind = "prepend"
	PlanAppend           PlanKind = "append"
	PlanPrependAndAppend PlanKind = "prepend+append"
	PlanFullReplace      PlanKind = "full-replace"
)

// Plan describes the fetch work for one reconciliation. Only the ranges
// relevant to the kind are set; all ranges are inclusive.
type Plan struct {
	Kind    PlanKind
	Prepend Range // set for prepend kinds
	Append  Range // set for append kinds
	Replace Range // set for full-replace
}

// TrustState is the verdict of the anchor spot-check.
type TrustState string

const (
	// TrustTrusted means the cached anchor row matched the remote within
	// tolerance.
	TrustTrusted TrustState = "trusted"
	// TrustUntrusted means the anchor row drifted beyond tolerance.
	TrustUntrusted TrustState = "untrusted"
	// TrustIndeterminate means the check could not be performed: the
	// anchor is missing from the cache or the remote had no row for it.
	TrustIndeterminate TrustState = "indeterminate"
	// TrustSkipped means no check ran, e.g. no cache file exists or the
	// desired range was already covered.
	TrustSkipped TrustState = "skipped"
)

// Outcome is the terminal state of one symbol's reconciliation.
type Outcome string

const (
	OutcomeNoOp       Outcome = "noop"
	OutcomeMerged     Outcome = "merged"
	OutcomeReplaced   Outcome = "replaced"
	OutcomeEmptyFetch Outcome = "empty-fetch"
	OutcomeSkipped    Outcome = "skipped"
)

// ReconcileResult reports what happened to one symbol.
type ReconcileResult struct {
	Symbol      string
	Plan        PlanKind
	Trust       TrustState
	Outcome     Outcome
	RowsWritten int
	Range       Range // normalized desired range
	AnchorDelta float64
	Err         error
}

// BatchReport aggregates the results of one batch run.
type BatchReport struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Results  []*ReconcileResult
}

// Failed returns the results that ended in an error.
func (r *BatchReport) Failed() []*ReconcileResult {
	var failed []*ReconcileResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}
