// Package yahoo provides a client for the Yahoo Finance chart API
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/gbard/histcache/internal/common"
	"github.com/gbard/histcache/internal/interfaces"
	"github.com/gbard/histcache/internal/models"
)

const (
	DefaultBaseURL    = "https://query1.finance.yahoo.com"
	DefaultTimeout    = 30 * time.Second
	DefaultRateLimit  = 5 // requests per second
	DefaultMaxRetries = 3

	userAgent = "Mozilla/5.0 (compatible; histcache)"
)

// Client implements the SeriesProvider interface
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration // base backoff, doubled per attempt
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithMaxRetries sets the retry cap for retryable failures
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithBackoff sets the base backoff delay between retries
func WithBackoff(d time.Duration) ClientOption {
	return func(c *Client) {
		c.backoff = d
	}
}

// NewClient creates a new Yahoo Finance chart API client.
// No API key is required — this is a public endpoint.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:     common.NewSilentLogger(),
		maxRetries: DefaultMaxRetries,
		backoff:    500 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents a remote API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("yahoo API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// retryable reports whether the failure is worth another attempt.
// Transport errors, 429 and 5xx retry; other HTTP statuses are terminal.
func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// get performs a rate-limited GET with bounded retries and exponential
// backoff, decoding a JSON response into result.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff << (attempt - 1)
			c.logger.Debug().Str("endpoint", path).Int("attempt", attempt).Dur("delay", delay).Msg("Retrying request")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}

		lastErr = c.doOnce(ctx, reqURL, path, result)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("request failed after %d retries: %w", c.maxRetries, lastErr)
}

func (c *Client) doOnce(ctx context.Context, reqURL, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// chartResponse mirrors the Yahoo chart API payload. Price slots are
// pointers: the API reports missing values as JSON nulls.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchDaily retrieves daily bars for [startInclusive, endExclusive).
// An empty range at the remote is not an error. Rows with any missing
// field are dropped — the canonical schema has no nullable columns.
func (c *Client) FetchDaily(ctx context.Context, symbol string, startInclusive, endExclusive time.Time) ([]models.Bar, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("events", "div,split")
	params.Set("period1", fmt.Sprintf("%d", startInclusive.Unix()))
	params.Set("period2", fmt.Sprintf("%d", endExclusive.Unix()))

	path := fmt.Sprintf("/v8/finance/chart/%s", url.PathEscape(symbol))

	var resp chartResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}

	if resp.Chart.Error != nil {
		if resp.Chart.Error.Code == "Not Found" {
			return nil, nil
		}
		return nil, fmt.Errorf("yahoo chart error for %s: %s", symbol, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, nil
	}

	result := resp.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil, nil
	}

	quote := result.Indicators.Quote[0]
	var adj []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adj = result.Indicators.AdjClose[0].AdjClose
	}

	bars := make([]models.Bar, 0, len(result.Timestamp))
	dropped := 0
	for i, ts := range result.Timestamp {
		bar, ok := projectBar(ts, i, quote.Open, quote.High, quote.Low, quote.Close, adj, quote.Volume)
		if !ok {
			dropped++
			continue
		}
		// The chart API can return a partial bar for the in-progress
		// session; the range end is exclusive at day precision.
		if !bar.Date.Before(midnight(endExclusive)) || bar.Date.Before(midnight(startInclusive)) {
			continue
		}
		bars = append(bars, bar)
	}

	if dropped > 0 {
		c.logger.Debug().Str("symbol", symbol).Int("dropped", dropped).Msg("Dropped incomplete rows")
	}
	c.logger.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("Fetched daily bars")

	return bars, nil
}

// projectBar maps one slot of the chart payload onto the canonical row
// shape. Any missing required field excludes the row, never coerces it.
func projectBar(ts int64, i int, open, high, low, closes, adj []*float64, volume []*int64) (models.Bar, bool) {
	at := func(vals []*float64) (float64, bool) {
		if i >= len(vals) || vals[i] == nil {
			return 0, false
		}
		return *vals[i], true
	}

	o, ok := at(open)
	if !ok {
		return models.Bar{}, false
	}
	h, ok := at(high)
	if !ok {
		return models.Bar{}, false
	}
	l, ok := at(low)
	if !ok {
		return models.Bar{}, false
	}
	cl, ok := at(closes)
	if !ok {
		return models.Bar{}, false
	}
	ac, ok := at(adj)
	if !ok {
		return models.Bar{}, false
	}
	if i >= len(volume) || volume[i] == nil {
		return models.Bar{}, false
	}

	t := time.Unix(ts, 0).UTC()
	return models.Bar{
		Date:     time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
		Open:     o,
		High:     h,
		Low:      l,
		Close:    cl,
		AdjClose: ac,
		Volume:   *volume[i],
	}, true
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ValidateSymbol probes the chart endpoint with a five-day range and reports
// whether the symbol exists at the remote source. Five days rather than one
// so a symbol with no bar yesterday still resolves.
func (c *Client) ValidateSymbol(ctx context.Context, symbol string) (bool, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("range", "5d")

	path := fmt.Sprintf("/v8/finance/chart/%s", url.PathEscape(symbol))

	var resp chartResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return false, err
	}

	if resp.Chart.Error != nil {
		return false, nil
	}
	return len(resp.Chart.Result) > 0, nil
}

// Ensure Client implements SeriesProvider
var _ interfaces.SeriesProvider = (*Client)(nil)
