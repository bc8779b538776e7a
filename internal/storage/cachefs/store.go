// Package cachefs implements file-based storage for cached price series.
// One CSV per symbol; the cached range is always recomputed from the rows.
package cachefs

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gbard/histcache/internal/common"
	"github.com/gbard/histcache/internal/interfaces"
	"github.com/gbard/histcache/internal/models"
)

// header is the canonical column order of a cache file.
var header = []string{"Date", "Open", "High", "Low", "Close", "AdjClose", "Volume"}

// floatPrecision keeps 1e-6 validation deltas alive across a round-trip.
const floatPrecision = 8

// Store provides per-symbol CSV storage for price series.
type Store struct {
	dir    string
	logger *common.Logger
}

// NewStore creates a series store rooted at dir, creating it if needed.
func NewStore(logger *common.Logger, dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store path %s: %w", dir, err)
	}
	logger.Info().Str("path", dir).Msg("Series store opened")
	return &Store{dir: dir, logger: logger}, nil
}

// Path returns the live cache file path for a symbol.
func (s *Store) Path(symbol string) string {
	return filepath.Join(s.dir, sanitizeSymbol(symbol)+".csv")
}

// BackupPath returns the symbol-scoped backup file path.
func (s *Store) BackupPath(symbol string) string {
	return filepath.Join(s.dir, sanitizeSymbol(symbol)+"_OLD.csv")
}

// Exists reports whether a cache file is present for the symbol.
func (s *Store) Exists(symbol string) bool {
	_, err := os.Stat(s.Path(symbol))
	return err == nil
}

// Load reads and normalizes the cached series for a symbol.
// Rows that fail to parse are dropped rather than failing the load.
func (s *Store) Load(symbol string) (*models.Series, error) {
	f, err := os.Open(s.Path(symbol))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", models.ErrNotCached, symbol)
		}
		return nil, fmt.Errorf("failed to open cache for %s: %w", symbol, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(header)

	series := &models.Series{Symbol: symbol}
	first := true
	dropped := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if errors.Is(err, csv.ErrFieldCount) {
				dropped++
				continue
			}
			return nil, fmt.Errorf("failed to read cache for %s: %w", symbol, err)
		}
		if first {
			first = false
			if record[0] == header[0] {
				continue
			}
		}
		bar, ok := parseRecord(record)
		if !ok {
			dropped++
			continue
		}
		series.Bars = append(series.Bars, bar)
	}

	if dropped > 0 {
		s.logger.Warn().Str("symbol", symbol).Int("dropped", dropped).Msg("Dropped unparseable cache rows")
	}

	series.Normalize()
	return series, nil
}

// Write persists the series atomically: temp file in the same directory,
// then rename into place.
func (s *Store) Write(series *models.Series) error {
	series.Normalize()

	tmpFile, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	w := csv.NewWriter(tmpFile)
	if err := w.Write(header); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, bar := range series.Bars {
		if err := w.Write(formatRecord(bar)); err != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush rows: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path(series.Symbol)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	s.logger.Debug().Str("symbol", series.Symbol).Int("rows", len(series.Bars)).Msg("Series written")
	return nil
}

// Replace backs up the existing cache file (if any), then atomically
// writes the new series. If any step fails, the prior file stays intact.
func (s *Store) Replace(series *models.Series) error {
	if s.Exists(series.Symbol) {
		if err := s.backup(series.Symbol); err != nil {
			return err
		}
	}
	return s.Write(series)
}

// backup copies the live file to the symbol's backup path.
func (s *Store) backup(symbol string) error {
	src, err := os.Open(s.Path(symbol))
	if err != nil {
		return fmt.Errorf("failed to open cache for backup: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(s.BackupPath(symbol))
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to copy backup: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to close backup: %w", err)
	}

	s.logger.Info().Str("symbol", symbol).Str("backup", s.BackupPath(symbol)).Msg("Cache backed up")
	return nil
}

// --- row codec ---

func parseRecord(record []string) (models.Bar, bool) {
	date, err := time.Parse(models.DateLayout, record[0])
	if err != nil {
		return models.Bar{}, false
	}
	var vals [5]float64
	for i := 1; i <= 5; i++ {
		v, err := strconv.ParseFloat(record[i], 64)
		if err != nil {
			return models.Bar{}, false
		}
		vals[i-1] = v
	}
	vol, err := strconv.ParseInt(record[6], 10, 64)
	if err != nil {
		return models.Bar{}, false
	}
	return models.Bar{
		Date:     date,
		Open:     vals[0],
		High:     vals[1],
		Low:      vals[2],
		Close:    vals[3],
		AdjClose: vals[4],
		Volume:   vol,
	}, true
}

func formatRecord(bar models.Bar) []string {
	f := func(v float64) string {
		return strconv.FormatFloat(v, 'f', floatPrecision, 64)
	}
	return []string{
		bar.Date.Format(models.DateLayout),
		f(bar.Open),
		f(bar.High),
		f(bar.Low),
		f(bar.Close),
		f(bar.AdjClose),
		strconv.FormatInt(bar.Volume, 10),
	}
}

func sanitizeSymbol(symbol string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")
	return r.Replace(symbol)
}

// Ensure Store implements SeriesStore
var _ interfaces.SeriesStore = (*Store)(nil)
