// Package client provides the Census API HTTP client with request pacing,
// optional response caching and error handling.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/acs-harvest/pkg/assemble"
	"github.com/Sternrassler/acs-harvest/pkg/cache"
	"github.com/Sternrassler/acs-harvest/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for Census API requests.
var (
	acsRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "acs_requests_total",
		Help: "Total Census API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	acsRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "acs_request_duration_seconds",
		Help:    "Census API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	acsErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "acs_errors_total",
		Help: "Total Census API errors by class",
	}, []string{"class"})
)

// DefaultBaseURL is the ACS 5-year 2022 dataset endpoint.
const DefaultBaseURL = "https://api.census.gov/data/2022/acs/acs5"

// maxErrorBody bounds how much of a failed response is kept in a RequestError.
const maxErrorBody = 512

// ErrorClass represents a classification of request errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors (bad variable, bad key).
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassUnexpected represents any other non-200 status, such as the
	// 204 the API returns for a query without results.
	ErrorClassUnexpected ErrorClass = "unexpected"
)

// Client is the Census API client.
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the dataset endpoint, e.g. DefaultBaseURL.
	BaseURL string

	// APIKey is optional; anonymous use is limited to 500 queries per day.
	APIKey string

	// Geography is the unit level queried within each state.
	Geography string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout per HTTP request.
	Timeout time.Duration

	// Rate Limiting
	RateLimit float64 // Requests per second, <= 0 disables pacing
	RateBurst int

	// Retry
	Retry RetryConfig

	// Caching (optional): nil Redis disables the response cache.
	Redis    *redis.Client
	CacheTTL time.Duration
}

// DefaultConfig returns a configuration matching the public API defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		Geography: GeographyBlockGroup,
		UserAgent: "acs-harvest/0.1.0",
		Timeout:   60 * time.Second,
		RateLimit: 5,
		RateBurst: 1,
		Retry:     DefaultRetryConfig(),
		CacheTTL:  cache.DefaultTTL,
	}
}

// New creates a new Census API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if !SupportedGeography(cfg.Geography) {
		return nil, fmt.Errorf("unsupported geography %q", cfg.Geography)
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	logger := log.With().Str("component", "acs-client").Logger()

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: ratelimit.NewLimiter(cfg.RateLimit, cfg.RateBurst, logger),
		config:  cfg,
		logger:  logger,
	}
	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis, cfg.CacheTTL)
	}

	return c, nil
}

// Query performs one GET against rawURL and decodes the tabular JSON body.
// Any status other than 200 yields a *RequestError carrying the status code
// and the exact request URL.
func (c *Client) Query(ctx context.Context, rawURL string) (assemble.Table, error) {
	cacheKey, err := cache.KeyFromURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("build cache key: %w", err)
	}

	if c.cache != nil {
		cached, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			var table assemble.Table
			if err := json.Unmarshal(cached, &table); err == nil {
				c.logger.Debug().Str("key", cacheKey.String()).Msg("Cache hit")
				return table, nil
			}
			c.logger.Warn().Str("key", cacheKey.String()).Msg("Discarding undecodable cache entry")
			if err := c.cache.Delete(ctx, cacheKey); err != nil {
				c.logger.Warn().Err(err).Msg("Cache delete error")
			}
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Msg("Cache get error")
		}
	}

	body, err := c.get(ctx, rawURL, cacheKey.Endpoint)
	if err != nil {
		return nil, err
	}

	var table assemble.Table
	if err := json.Unmarshal(body, &table); err != nil {
		return nil, fmt.Errorf("decode response from %s: %w", rawURL, err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, body); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		}
	}

	return table, nil
}

// get fetches rawURL with pacing and retries and returns the 200 body.
func (c *Client) get(ctx context.Context, rawURL, endpoint string) ([]byte, error) {
	startTime := time.Now()
	defer func() {
		acsRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	var body []byte
	err := retryWithBackoff(ctx, c.config.Retry, c.logger, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		b, err := c.do(ctx, rawURL, endpoint)
		if err != nil {
			return err
		}
		body = b
		return nil
	}, func(err error) ErrorClass {
		var reqErr *RequestError
		if errors.As(err, &reqErr) {
			return reqErr.ErrorClass
		}
		if ctx.Err() != nil || errors.Is(err, ratelimit.ErrDeadlineTooSoon) {
			return ""
		}
		return ErrorClassNetwork
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// do executes a single request attempt.
func (c *Client) do(ctx context.Context, rawURL, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("query", req.URL.Query().Get("for")).
		Msg("Executing Census API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		acsErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		acsRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, fmt.Errorf("get %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	acsRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		errClass := c.classifyError(resp, nil)
		acsErrorsTotal.WithLabelValues(string(errClass)).Inc()

		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Census API request error")

		return nil, &RequestError{
			StatusCode: resp.StatusCode,
			URL:        rawURL,
			ErrorClass: errClass,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		acsErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

// classifyError categorizes an error for observability and handling.
func (c *Client) classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return ""
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return ErrorClassClient
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		return ErrorClassUnexpected
	}
}

// Scopes lists every state in API order.
func (c *Client) Scopes(ctx context.Context) ([]Scope, error) {
	table, err := c.Query(ctx, c.ScopesURL())
	if err != nil {
		return nil, fmt.Errorf("list scopes: %w", err)
	}

	nameCol, codeCol := table.Column(nameField), table.Column("state")
	if nameCol < 0 || codeCol < 0 {
		nameCol, codeCol = 0, 1
	}

	scopes := make([]Scope, 0, table.Len())
	seen := make(map[string]struct{}, table.Len())
	for i := 0; i < table.Len(); i++ {
		row := table.Row(i)
		if len(row) <= nameCol || len(row) <= codeCol {
			continue
		}
		code := row[codeCol]
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		scopes = append(scopes, Scope{Code: code, Name: row[nameCol]})
	}

	c.logger.Debug().Int("scopes", len(scopes)).Msg("Listed scopes")
	return scopes, nil
}

// FetchScope queries codes for every unit of the configured geography in scope.
func (c *Client) FetchScope(ctx context.Context, scope Scope, codes []string) (assemble.Table, error) {
	return c.Query(ctx, c.DataURL(scope, codes))
}

// Close releases resources held by the client. The Redis client passed in
// Config is owned by the caller and left open.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
