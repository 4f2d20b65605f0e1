package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clawback/clawback/internal/logging"
	"clawback/clawback/internal/parsererror"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public frankfurter.app endpoint.
const DefaultBaseURL = "https://api.frankfurter.app"

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL           string
	Timeout           time.Duration
	CacheTTL          time.Duration
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Clock             Clock
}

// Client fetches rates from a frankfurter-compatible HTTP API.
//
// Rates are cached for the configured TTL. Concurrent lookups of the same pair
// share one request, and outbound requests are throttled. A failed lookup is
// never answered from an expired rate.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	cache   *Cache
	limiter *rate.Limiter
	group   singleflight.Group
	logger  logging.Logger
}

type latestResponse struct {
	Base  string                     `json:"base"`
	Date  string                     `json:"date"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// NewClient creates a Client. Zero config values fall back to the defaults.
func NewClient(cfg ClientConfig, logger logging.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	burst := int(cfg.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		http:    httpClient,
		cache:   NewCache(cfg.CacheTTL, cfg.Clock),
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		logger:  logger,
	}
}

// Cache exposes the rate cache, mainly so callers can clear it.
func (c *Client) Cache() *Cache {
	return c.cache
}

// Convert implements Converter.
func (c *Client) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if sameCurrency(from, to) {
		return amount, nil
	}
	r, err := c.Rate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return applyRate(amount, r), nil
}

// Rate returns the exchange rate from one currency to another.
func (c *Client) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	key := Key(from, to)
	if cached, ok := c.cache.Get(key); ok {
		return cached, nil
	}

	if err := ctx.Err(); err != nil {
		return decimal.Zero, &parsererror.ConversionError{From: from, To: to, Reason: "cancelled", Err: err}
	}

	// The lookup is shared, so it must outlive the caller that started it.
	ch := c.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		r, err := c.fetch(fetchCtx, from, to)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, r)
		return r, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return decimal.Zero, &parsererror.ConversionError{From: from, To: to, Reason: "cancelled", Err: ctx.Err()}
	}
	v, err, shared := res.Val, res.Err, res.Shared
	if err != nil {
		c.logger.WithError(err).Warn("Exchange rate lookup failed",
			logging.F(logging.FieldCurrency, key))
		return decimal.Zero, err
	}
	if shared {
		c.logger.Debug("Shared in-flight exchange rate lookup", logging.F(logging.FieldCurrency, key))
	}
	return v.(decimal.Decimal), nil
}

func (c *Client) fetch(ctx context.Context, from, to string) (decimal.Decimal, error) {
	fail := func(reason string, err error) error {
		return &parsererror.ConversionError{From: from, To: to, Reason: reason, Err: err}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return decimal.Zero, fail("rate limited", err)
	}

	query := url.Values{}
	query.Set("from", from)
	query.Set("to", to)
	endpoint := c.baseURL + "/latest?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fail("building request", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return decimal.Zero, fail("request failed", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.WithError(cerr).Debug("Failed to close exchange rate response body")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decimal.Zero, fail(fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var body latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fail("invalid response", err)
	}
	r, ok := body.Rates[to]
	if !ok {
		return decimal.Zero, fail(fmt.Sprintf("currency %s not found in response", to), nil)
	}

	c.logger.Debug("Fetched exchange rate",
		logging.F(logging.FieldCurrency, Key(from, to)),
		logging.F(logging.FieldDuration, time.Since(start).Milliseconds()))
	return r, nil
}
