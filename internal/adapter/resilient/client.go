package resilient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/sony/gobreaker"

	"github.com/hive-corporation/responder/internal/config"
	"github.com/hive-corporation/responder/internal/core/domain"
	"github.com/hive-corporation/responder/internal/metrics"
)

// Client wraps an HTTP client with circuit breaker and retry logic.
// One Client is created per vendor so an outage of one product does not
// open the breaker for the others.
type Client struct {
	vendor  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	config  Config
	logger  hclog.Logger
}

// Config holds configuration for the resilient client
type Config struct {
	Timeout time.Duration

	// Circuit breaker settings
	EnableCircuitBreaker bool
	MaxFailures          uint32
	CircuitTimeout       time.Duration

	// Retry settings, only applied to idempotent methods
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// ConfigFrom converts the upstream section of the process configuration.
func ConfigFrom(c config.UpstreamConfig) Config {
	return Config{
		Timeout:              c.Timeout,
		EnableCircuitBreaker: c.EnableCircuitBreaker,
		MaxFailures:          c.MaxFailures,
		CircuitTimeout:       c.CircuitTimeout,
		MaxRetries:           c.MaxRetries,
		InitialInterval:      c.InitialInterval,
		MaxInterval:          c.MaxInterval,
	}
}

// New creates a resilient HTTP client for one vendor.
func New(vendor string, cfg Config, logger hclog.Logger) *Client {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger = logger.Named("upstream").With("vendor", vendor)

	c := &Client{
		vendor: vendor,
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
		logger: logger,
	}

	if cfg.EnableCircuitBreaker {
		settings := gobreaker.Settings{
			Name:        vendor,
			MaxRequests: 1,
			Interval:    0, // Don't reset counts automatically
			Timeout:     cfg.CircuitTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.MaxFailures
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.Warn("⚡ circuit breaker changed state", "from", from.String(), "to", to.String())
				if to == gobreaker.StateOpen {
					metrics.RecordUpstreamError(name, "circuit_open")
				}
			},
		}
		c.breaker = gobreaker.NewCircuitBreaker(settings)
	}

	return c
}

// Do executes an HTTP request with circuit breaker and retry logic.
// Responses below 500 are returned to the caller for classification; a 5xx
// that survives the retries, a transport failure or an open breaker comes
// back as *domain.UpstreamError.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.doChecked(req)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doChecked(req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordUpstreamError(c.vendor, "circuit_open")
			return nil, &domain.UpstreamError{
				Vendor: c.vendor,
				Err:    fmt.Errorf("circuit breaker is open: %w", err),
			}
		}
		return nil, err
	}

	return result.(*http.Response), nil
}

func (c *Client) doChecked(req *http.Request) (*http.Response, error) {
	resp, err := c.doWithRetry(req)
	if err != nil {
		return nil, &domain.UpstreamError{Vendor: c.vendor, Err: err}
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		drainAndClose(resp.Body)
		return nil, &domain.UpstreamError{
			Vendor:     c.vendor,
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
		}
	}

	return resp, nil
}

// doWithRetry executes an HTTP request with exponential backoff retry logic
func (c *Client) doWithRetry(req *http.Request) (*http.Response, error) {
	// Login, token and isolation calls are not safe to replay
	if c.config.MaxRetries <= 0 || !idempotent(req.Method) {
		resp, err := c.client.Do(req)
		if err != nil {
			c.recordTransportError(err)
			return nil, err
		}
		c.recordResponse(resp)
		return resp, nil
	}

	// Configure exponential backoff
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = c.config.InitialInterval
	expBackoff.MaxInterval = c.config.MaxInterval
	expBackoff.Multiplier = 2.0
	expBackoff.MaxElapsedTime = 0 // No max elapsed time, only max retries

	retryBackoff := backoff.WithContext(
		backoff.WithMaxRetries(expBackoff, uint64(c.config.MaxRetries)),
		req.Context(),
	)

	var resp *http.Response
	attempt := 0

	operation := func() error {
		attempt++
		if attempt > 1 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return backoff.Permanent(fmt.Errorf("failed to rewind request body: %w", err))
			}
			req.Body = body
		}

		r, err := c.client.Do(req)
		if err != nil {
			c.recordTransportError(err)
			if c.shouldRetry(err, nil) {
				return err // Retry
			}
			return backoff.Permanent(err) // Don't retry
		}
		c.recordResponse(r)

		// The last attempt keeps its response whatever the status
		if c.shouldRetry(nil, r) && attempt <= c.config.MaxRetries {
			drainAndClose(r.Body)
			c.logger.Debug("🔁 retrying request", "status", r.StatusCode, "attempt", attempt)
			return fmt.Errorf("HTTP %d: %s", r.StatusCode, r.Status)
		}

		resp = r
		return nil
	}

	if err := backoff.Retry(operation, retryBackoff); err != nil {
		return nil, fmt.Errorf("request failed after %d attempt(s): %w", attempt, err)
	}

	return resp, nil
}

// shouldRetry determines if an error or response should trigger a retry
func (c *Client) shouldRetry(err error, resp *http.Response) bool {
	// Retry on network errors or timeouts
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return false
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return true
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return true
		}
		// Check for connection errors
		if strings.Contains(err.Error(), "connection refused") ||
			strings.Contains(err.Error(), "connection reset") ||
			strings.Contains(err.Error(), "EOF") {
			return true
		}
		return false
	}

	// Retry on specific HTTP status codes
	if resp != nil {
		switch resp.StatusCode {
		case http.StatusTooManyRequests, // 429
			http.StatusServiceUnavailable,  // 503
			http.StatusGatewayTimeout,      // 504
			http.StatusBadGateway,          // 502
			http.StatusInternalServerError: // 500
			return true
		}
	}

	return false
}

func (c *Client) recordResponse(resp *http.Response) {
	metrics.RecordUpstreamRequest(c.vendor, resp.StatusCode)
	if resp.StatusCode < 400 {
		return
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		metrics.RecordUpstreamError(c.vendor, "auth")
	case http.StatusTooManyRequests:
		metrics.RecordUpstreamError(c.vendor, "rate_limit")
	case http.StatusRequestTimeout:
		metrics.RecordUpstreamError(c.vendor, "timeout")
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		metrics.RecordUpstreamError(c.vendor, "server_error")
	default:
		metrics.RecordUpstreamError(c.vendor, "http_error")
	}
}

func (c *Client) recordTransportError(err error) {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		metrics.RecordUpstreamError(c.vendor, "timeout")
		return
	}
	metrics.RecordUpstreamError(c.vendor, "connection")
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}
