package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gbard/histcache/internal/common"
	"github.com/gbard/histcache/internal/models"
)

// anchorProvider serves a fixed answer for anchor lookups.
type anchorProvider struct {
	bars []models.Bar
	err  error
}

func (p *anchorProvider) FetchDaily(_ context.Context, _ string, _, _ time.Time) ([]models.Bar, error) {
	return p.bars, p.err
}

func (p *anchorProvider) ValidateSymbol(_ context.Context, _ string) (bool, error) {
	return true, nil
}

func cachedSeries(anchor time.Time, adjClose, close float64) *models.Series {
	return &models.Series{Symbol: "AAPL", Bars: []models.Bar{
		{Date: anchor, Open: 1, High: 1, Low: 1, Close: close, AdjClose: adjClose, Volume: 100},
	}}
}

func TestValidate_Trusted(t *testing.T) {
	anchor := d(2023, 1, 3)
	provider := &anchorProvider{bars: []models.Bar{
		{Date: anchor, Close: 125.07, AdjClose: 124.216354},
	}}
	v := NewValidator(provider, DefaultTolerance, common.NewSilentLogger())

	verdict := v.Validate(context.Background(), cachedSeries(anchor, 124.216354, 125.07), anchor)
	assert.Equal(t, models.TrustTrusted, verdict)
}

func TestValidate_TrustedAtToleranceBoundary(t *testing.T) {
	// Deltas exactly at the tolerance still pass; the comparison is <=.
	anchor := d(2023, 1, 3)
	provider := &anchorProvider{bars: []models.Bar{
		{Date: anchor, Close: 125.0, AdjClose: 124.0},
	}}
	v := NewValidator(provider, 0.5, common.NewSilentLogger())

	verdict := v.Validate(context.Background(), cachedSeries(anchor, 124.5, 125.0), anchor)
	assert.Equal(t, models.TrustTrusted, verdict)
}

func TestValidate_UntrustedOnAdjCloseDrift(t *testing.T) {
	anchor := d(2023, 1, 3)
	provider := &anchorProvider{bars: []models.Bar{
		{Date: anchor, Close: 125.07, AdjClose: 124.216354},
	}}
	v := NewValidator(provider, DefaultTolerance, common.NewSilentLogger())

	// A split or dividend restatement shifts AdjClose while Close holds.
	verdict := v.Validate(context.Background(), cachedSeries(anchor, 120.0, 125.07), anchor)
	assert.Equal(t, models.TrustUntrusted, verdict)
}

func TestValidate_UntrustedOnCloseDrift(t *testing.T) {
	anchor := d(2023, 1, 3)
	provider := &anchorProvider{bars: []models.Bar{
		{Date: anchor, Close: 125.07, AdjClose: 124.216354},
	}}
	v := NewValidator(provider, DefaultTolerance, common.NewSilentLogger())

	verdict := v.Validate(context.Background(), cachedSeries(anchor, 124.216354, 125.08), anchor)
	assert.Equal(t, models.TrustUntrusted, verdict)
}

func TestValidate_IndeterminateWhenAnchorNotCached(t *testing.T) {
	provider := &anchorProvider{}
	v := NewValidator(provider, DefaultTolerance, common.NewSilentLogger())

	verdict := v.Validate(context.Background(), cachedSeries(d(2023, 1, 3), 124.0, 125.0), d(2023, 1, 4))
	assert.Equal(t, models.TrustIndeterminate, verdict)
}

func TestValidate_IndeterminateOnFetchError(t *testing.T) {
	anchor := d(2023, 1, 3)
	provider := &anchorProvider{err: errors.New("rate limited")}
	v := NewValidator(provider, DefaultTolerance, common.NewSilentLogger())

	verdict := v.Validate(context.Background(), cachedSeries(anchor, 124.0, 125.0), anchor)
	assert.Equal(t, models.TrustIndeterminate, verdict)
}

func TestValidate_IndeterminateWhenRemoteMissingRow(t *testing.T) {
	anchor := d(2023, 1, 3)
	provider := &anchorProvider{bars: []models.Bar{}}
	v := NewValidator(provider, DefaultTolerance, common.NewSilentLogger())

	verdict := v.Validate(context.Background(), cachedSeries(anchor, 124.0, 125.0), anchor)
	assert.Equal(t, models.TrustIndeterminate, verdict)
}
