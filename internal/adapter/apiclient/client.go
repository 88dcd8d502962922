// Package apiclient is the shared HTTP transport for upstream data APIs. It
// retries HTTP 429 exactly once after a fixed wait and trips a per-API circuit
// breaker on repeated server errors or transport failures. Rate limiting is
// handled per call and never opens the breaker.
package apiclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/couchcryptid/flood-data-etl/internal/observability"
)

var (
	// ErrRateLimited means the API still answered 429 after the single retry.
	ErrRateLimited = errors.New("rate limited")
	// ErrCircuitOpen means the API's breaker rejected the call without sending it.
	ErrCircuitOpen = errors.New("circuit breaker open")
	errServer      = errors.New("server error")
)

// StatusError is a non-200 response that is neither 429 nor a 5xx.
type StatusError struct {
	API        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error: status %d: %s", e.API, e.StatusCode, e.Body)
}

// Config configures one upstream API.
type Config struct {
	Name          string
	Timeout       time.Duration
	RateLimitWait time.Duration
	Headers       map[string]string

	// BreakerThreshold is the number of consecutive failures that opens the breaker.
	BreakerThreshold uint32
	// BreakerTimeout is how long the breaker stays open before probing again.
	BreakerTimeout time.Duration
}

// Response is a successful upstream reply.
type Response struct {
	Body       []byte
	Header     http.Header
	StatusCode int
}

// Client issues GET requests against a single upstream API.
type Client struct {
	name    string
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a client. metrics may be nil.
func New(cfg Config, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if cfg.BreakerThreshold == 0 {
		cfg.BreakerThreshold = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = time.Minute
	}
	logger = logger.With("api", cfg.Name)
	wait := cfg.RateLimitWait

	rc := resty.New().
		SetLogger(slogAdapter{logger: logger}).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeaders(cfg.Headers).
		SetRetryCount(1).
		SetRetryWaitTime(wait).
		SetRetryMaxWaitTime(wait).
		SetRetryAfter(func(*resty.Client, *resty.Response) (time.Duration, error) {
			return wait, nil
		}).
		AddRetryCondition(func(r *resty.Response, _ error) bool {
			return r != nil && r.StatusCode() == http.StatusTooManyRequests
		}).
		AddRetryHook(func(r *resty.Response, _ error) {
			if r != nil && r.Request != nil && r.Request.Attempt <= 1 {
				logger.Warn("rate limited, retrying once", "wait", wait, "url", r.Request.URL)
			}
		})

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		name:    cfg.Name,
		http:    rc,
		breaker: breaker,
		logger:  logger,
		metrics: metrics,
	}
}

// Name returns the API name used in logs and metrics.
func (c *Client) Name() string {
	return c.name
}

// Get requests endpoint with params. Any status other than 200 is an error:
// ErrRateLimited, ErrCircuitOpen, a *StatusError, or a wrapped transport error.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) (*Response, error) {
	start := time.Now()
	var (
		ctxErr      error
		rateLimited bool
	)

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParamsFromValues(params).
			Get(endpoint)
		if err != nil {
			// Cancellation is not an upstream failure.
			if ctx.Err() != nil {
				ctxErr = ctx.Err()
				return nil, nil
			}
			return nil, fmt.Errorf("%s request: %w", c.name, err)
		}
		switch code := resp.StatusCode(); {
		case code == http.StatusTooManyRequests:
			rateLimited = true
			return nil, nil
		case code >= http.StatusInternalServerError:
			return nil, fmt.Errorf("%w: status %d", errServer, code)
		}
		return resp, nil
	})
	if c.metrics != nil {
		c.metrics.UpstreamDuration.WithLabelValues(c.name).Observe(time.Since(start).Seconds())
	}

	switch {
	case ctxErr != nil:
		return nil, fmt.Errorf("%s: %w", c.name, ctxErr)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.observe("circuit_open")
		return nil, fmt.Errorf("%s: %w", c.name, ErrCircuitOpen)
	case rateLimited:
		c.observe("rate_limited")
		return nil, fmt.Errorf("%s: %w", c.name, ErrRateLimited)
	case err != nil:
		c.observe("error")
		return nil, err
	}

	resp, ok := result.(*resty.Response)
	if !ok {
		c.observe("error")
		return nil, fmt.Errorf("%s: unexpected result type %T", c.name, result)
	}
	if resp.StatusCode() != http.StatusOK {
		c.observe("error")
		return nil, &StatusError{API: c.name, StatusCode: resp.StatusCode(), Body: truncate(resp.String(), 512)}
	}
	c.observe("success")
	return &Response{Body: resp.Body(), Header: resp.Header(), StatusCode: resp.StatusCode()}, nil
}

func (c *Client) observe(outcome string) {
	if c.metrics == nil {
		return
	}
	c.metrics.UpstreamRequests.WithLabelValues(c.name, outcome).Inc()
}

// IsTransient reports whether err must not be cached as a permanent absence:
// the caller's context is done or the breaker refused the call.
func IsTransient(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, ErrCircuitOpen)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// slogAdapter routes resty's internal log lines to slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Errorf(format string, v ...interface{}) {
	a.logger.Error(fmt.Sprintf(format, v...))
}

func (a slogAdapter) Warnf(format string, v ...interface{}) {
	a.logger.Warn(fmt.Sprintf(format, v...))
}

func (a slogAdapter) Debugf(format string, v ...interface{}) {
	a.logger.Debug(fmt.Sprintf(format, v...))
}
