package provider

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourusername/clever-edge/internal/config"
	"github.com/yourusername/clever-edge/internal/metrics"
)

// BreakerObserver is told when the circuit breaker changes state
type BreakerObserver interface {
	LogCircuitBreakerEvent(eventType, provider string, consecutiveFailures int)
}

// HTTPClientConfig holds configuration for HTTP clients
type HTTPClientConfig struct {
	Name              string
	Timeout           time.Duration
	MaxRetries        int
	RetryWaitMin      time.Duration
	RetryWaitMax      time.Duration
	RateLimit         float64 // requests per second
	CircuitBreakerMax int     // consecutive failures before the breaker opens, 0 disables
	BreakerCooldown   time.Duration
}

// DefaultHTTPClientConfig returns recommended defaults
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Name:              "provider",
		Timeout:           30 * time.Second,
		MaxRetries:        5,
		RetryWaitMin:      100 * time.Millisecond,
		RetryWaitMax:      10 * time.Second,
		RateLimit:         10.0,
		CircuitBreakerMax: 5,
		BreakerCooldown:   30 * time.Second,
	}
}

// HTTPClientConfigFrom maps the providers section of the application config
func HTTPClientConfigFrom(cfg config.ProviderConfig) HTTPClientConfig {
	c := DefaultHTTPClientConfig()
	if cfg.TimeoutSeconds > 0 {
		c.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c.MaxRetries = cfg.MaxRetries
	if cfg.RateLimit > 0 {
		c.RateLimit = cfg.RateLimit
	}
	c.CircuitBreakerMax = cfg.CircuitBreakerMax
	return c
}

// RateLimitedHTTPClient wraps retryablehttp.Client with rate limiting and a circuit breaker
type RateLimitedHTTPClient struct {
	client   *retryablehttp.Client
	limiter  *rate.Limiter
	name     string
	observer BreakerObserver
	logger   *logrus.Entry

	mu                sync.Mutex
	circuitBreakerMax int
	cooldown          time.Duration
	consecutiveErrors int
	openedAt          time.Time
	isOpen            bool
	lastError         error
	now               func() time.Time
}

// NewRateLimitedHTTPClient creates a new rate-limited HTTP client
func NewRateLimitedHTTPClient(cfg HTTPClientConfig, logger *logrus.Logger, observer BreakerObserver) *RateLimitedHTTPClient {
	if logger == nil {
		logger = logrus.New()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.CheckRetry = customRetryPolicy()
	// give up without an error so the caller can inspect the last status code
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = nil

	return &RateLimitedHTTPClient{
		client:            retryClient,
		limiter:           rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		name:              cfg.Name,
		observer:          observer,
		logger:            logger.WithField("component", "http_client"),
		circuitBreakerMax: cfg.CircuitBreakerMax,
		cooldown:          cfg.BreakerCooldown,
		now:               time.Now,
	}
}

// Do executes an HTTP request with rate limiting and circuit breaker
func (c *RateLimitedHTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.allow(); err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	retryReq, err := retryablehttp.FromRequest(req)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(retryReq.WithContext(ctx))
	if err != nil {
		c.recordFailure(err)
		return nil, err
	}
	if resp.StatusCode >= 500 {
		c.recordFailure(fmt.Errorf("status %d", resp.StatusCode))
		return resp, nil
	}
	c.recordSuccess()
	return resp, nil
}

// Get executes a GET request
func (c *RateLimitedHTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

// IsOpen reports whether the circuit breaker is rejecting calls
func (c *RateLimitedHTTPClient) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isOpen
}

// Close closes any resources held by the client
func (c *RateLimitedHTTPClient) Close() error {
	c.client.HTTPClient.CloseIdleConnections()
	return nil
}

// allow rejects calls while the breaker is open. After the cooldown one call
// is let through; its outcome closes or re-opens the breaker.
func (c *RateLimitedHTTPClient) allow() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isOpen {
		return nil
	}
	if c.cooldown > 0 && c.now().Sub(c.openedAt) >= c.cooldown {
		c.openedAt = c.now()
		return nil
	}
	return fmt.Errorf("%w: %v", ErrCircuitOpen, c.lastError)
}

func (c *RateLimitedHTTPClient) recordFailure(err error) {
	c.mu.Lock()
	c.consecutiveErrors++
	c.lastError = err
	tripped := false
	if c.circuitBreakerMax > 0 && !c.isOpen && c.consecutiveErrors >= c.circuitBreakerMax {
		c.isOpen = true
		c.openedAt = c.now()
		tripped = true
	}
	failures := c.consecutiveErrors
	c.mu.Unlock()

	if tripped {
		metrics.RecordCircuitBreakerTrip()
		c.logger.WithError(err).WithField("consecutive_failures", failures).Warn("Circuit breaker opened")
		if c.observer != nil {
			c.observer.LogCircuitBreakerEvent("opened", c.name, failures)
		}
	}
}

func (c *RateLimitedHTTPClient) recordSuccess() {
	c.mu.Lock()
	wasOpen := c.isOpen
	c.consecutiveErrors = 0
	c.isOpen = false
	c.lastError = nil
	c.mu.Unlock()

	if wasOpen && c.observer != nil {
		c.observer.LogCircuitBreakerEvent("closed", c.name, 0)
	}
}

// customRetryPolicy defines which HTTP responses should trigger a retry
func customRetryPolicy() retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			// network errors
			return true, nil
		}

		switch resp.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true, nil
		}
		return false, nil
	}
}
