// Package interfaces defines service contracts for histcache
package interfaces

import (
	"context"
	"time"

	"github.com/gbard/histcache/internal/models"
)

// SeriesStore reads and writes the on-disk representation of a symbol's
// cached series. One file per symbol; the path namespace is partitioned per
// symbol, so no locking is needed across symbols.
type SeriesStore interface {
	// Exists reports whether a cache file is present for the symbol.
	Exists(symbol string) bool

	// Load reads, parses, and normalizes the cached series. The cached
	// range is recomputed from the rows on every load, never stored.
	// Returns models.ErrNotCached when no file exists.
	Load(symbol string) (*models.Series, error)

	// Write persists the series atomically: temp file then rename.
	// A crash mid-write never leaves a corrupt or truncated cache file.
	Write(series *models.Series) error

	// Replace backs up the existing file (if any) to the symbol's backup
	// path, then atomically writes the new series in its place.
	Replace(series *models.Series) error

	// Path returns the live cache file path for a symbol.
	Path(symbol string) string

	// BackupPath returns the symbol-scoped backup file path.
	BackupPath(symbol string) string
}

// Reconciler is the caller-facing reconciliation operation.
type Reconciler interface {
	// Reconcile brings the symbol's cache to the desired range, fetching
	// only what is missing. desiredTo is exclusive at day precision.
	// Synchronous; the cache is persisted on return.
	Reconcile(ctx context.Context, symbol string, desiredFrom, desiredTo time.Time) (*models.ReconcileResult, error)

	// ReconcileBatch runs Reconcile for each symbol with bounded
	// parallelism. Failures are local to a symbol and never abort the rest.
	ReconcileBatch(ctx context.Context, symbols []string, desiredFrom, desiredTo time.Time) *models.BatchReport
}
