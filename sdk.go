// sdk.go
// ------
// Client is the entry point: one Client per upstream host, carrying the
// whole resilience pipeline. Every outbound call runs through the same
// fixed stage order, innermost to outermost:
//
//	attempt timeout -> retry -> circuit breaker -> rate limiter -> total timeout
//
// The total deadline is the outer boundary of the operation; the attempt
// deadline bounds each individual try. Circuit state, limiter permits, and
// the last quota signal are owned by the Client instance, so multiple
// configured clients in one process never share state.
package edgeclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"
)

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	creds      Credentials
	cfg        Config
	logger     *slog.Logger

	limiter  *rateLimiter
	breaker  *circuitBreaker
	executor *requestExecutor
	quota    atomic.Pointer[QuotaSignal]

	// sleep is swapped out by tests to avoid real waits.
	sleep func(context.Context, time.Duration) error
}

// NewClient configures a client for one upstream host. creds may be nil
// for unauthenticated hosts; cfg may be nil for defaults.
func NewClient(baseURL string, creds Credentials, cfg *Config) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("edgeclient: invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("edgeclient: base URL %q must be absolute", baseURL)
	}

	if cfg == nil {
		cfg = DefaultConfig()
	}
	resolved := cfg.withDefaults()

	c := &Client{
		baseURL:    u,
		httpClient: resolved.HTTPClient,
		creds:      creds,
		cfg:        resolved,
		logger:     resolved.Logger,
		sleep:      sleepContext,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}

	c.limiter = newRateLimiter(resolved, &c.quota)
	c.limiter.throttleHook = func(d time.Duration) {
		c.logger.Debug("throttling before admission", "delay", d)
		resolved.Metrics.throttleRecorded(d)
	}
	c.breaker = newCircuitBreaker(resolved)
	c.breaker.onTransition = func(from, to circuitState) {
		c.logger.Debug("circuit state changed", "from", from, "to", to)
		resolved.Metrics.breakerTransition(to)
	}
	c.executor = newRequestExecutor(c)
	return c, nil
}

// Do runs one logical operation through the full pipeline and returns the
// raw 2xx response. Any other outcome is an error from the taxonomy in
// errors.go; decoding the envelope is the caller's (or Execute's) job.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if c.cfg.TotalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, c.cfg.TotalTimeout, ErrOperationTimeout)
		defer cancel()
	}

	if err := c.limiter.acquire(ctx); err != nil {
		if err == ErrOverloaded {
			c.cfg.Metrics.rejectionRecorded("queue_full")
			return nil, err
		}
		return nil, c.terminal(ctx, err)
	}
	defer c.limiter.release()

	if err := c.breaker.allow(); err != nil {
		c.cfg.Metrics.rejectionRecorded("circuit_open")
		return nil, err
	}

	resp, err := c.executor.executeWithRetry(ctx, req)
	if isNeutralOutcome(err) {
		c.breaker.recordNeutral()
	} else {
		c.breaker.record(isBreakerFailure(err))
	}
	if err != nil {
		return nil, c.terminal(ctx, err)
	}
	return resp, nil
}

// terminal maps context expiry onto the operation-level classification:
// the total deadline becomes ErrOperationTimeout, caller cancellation
// stays a plain context error. Other errors pass through untouched.
func (c *Client) terminal(ctx context.Context, err error) error {
	if ctx.Err() != nil && context.Cause(ctx) == ErrOperationTimeout {
		return ErrOperationTimeout
	}
	return err
}

// newHTTPRequest materializes one physical attempt from a Request.
func (c *Client) newHTTPRequest(ctx context.Context, req *Request) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.url(c.baseURL), bodyReader(req))
	if err != nil {
		return nil, err
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if !req.Raw && httpReq.Header.Get("Content-Type") == "" && len(req.Body) > 0 {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.creds != nil {
		if err := c.creds.Apply(httpReq); err != nil {
			return nil, fmt.Errorf("edgeclient: applying credentials: %w", err)
		}
	}
	return httpReq, nil
}

// QuotaInfo returns a copy of the last quota signal observed on a
// response, or nil if none has been seen.
func (c *Client) QuotaInfo() *QuotaSignal {
	sig := c.quota.Load()
	if sig == nil {
		return nil
	}
	out := *sig
	return &out
}
