// request_executor.go
// --------------------
// The retry stage and the per-attempt deadline. executeWithRetry issues a
// request up to MaxRetries+1 times, waiting between attempts with capped
// exponential backoff and jitter, or with the server-supplied Retry-After
// delay when the failed response carried one. Retry eligibility is decided
// by shouldRetry; on exhaustion the last observed failure is returned
// unchanged.
package edgeclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"net/http"
	"time"
)

type requestExecutor struct {
	client *Client
}

func newRequestExecutor(c *Client) *requestExecutor {
	return &requestExecutor{client: c}
}

// shouldRetry classifies a failed attempt. The rules apply in order:
// attempts exhausted and non-idempotent verbs never retry; cancellation
// and the total deadline never retry; transport exceptions and attempt
// timeouts always retry; then 408/5xx, and 429 only when configured.
// Application failures never reach this function: a 2xx envelope with
// success=false is decoded after the pipeline and signals a logical error,
// not transience.
func shouldRetry(err error, req *Request, attempt, maxAttempts int, retryOnRateLimit bool) bool {
	if attempt >= maxAttempts {
		return false
	}
	if !req.IsIdempotent() {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		// Connection-level failure or attempt-timeout expiry.
		return true
	}
	switch {
	case httpErr.StatusCode == http.StatusRequestTimeout:
		return true
	case httpErr.StatusCode >= 500:
		return true
	case httpErr.StatusCode == http.StatusTooManyRequests:
		return retryOnRateLimit
	}
	return false
}

// isBreakerFailure decides whether an outcome counts against the circuit
// breaker: transport failures and 408/429/5xx statuses do; other client
// errors and caller cancellation do not.
func isBreakerFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return true
	}
	switch {
	case httpErr.StatusCode == http.StatusRequestTimeout:
		return true
	case httpErr.StatusCode == http.StatusTooManyRequests:
		return true
	case httpErr.StatusCode >= 500:
		return true
	}
	return false
}

// isNeutralOutcome reports whether an outcome says nothing about upstream
// health: the caller cancelled or a deadline fired before the upstream
// answered. Neutral outcomes leave the breaker untouched. The per-attempt
// deadline is excluded; its sentinel does not match the context errors and
// an upstream too slow for the attempt budget does count as a failure.
func isNeutralOutcome(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (re *requestExecutor) executeWithRetry(ctx context.Context, req *Request) (*Response, error) {
	cfg := re.client.cfg
	maxAttempts := cfg.MaxRetries + 1

	for attempt := 1; ; attempt++ {
		resp, err := re.attempt(ctx, req)
		if err == nil {
			if attempt > 1 {
				re.client.logger.Debug("request succeeded after retry",
					"method", req.Method, "path", req.Path, "attempts", attempt)
			}
			return resp, nil
		}

		if !shouldRetry(err, req, attempt, maxAttempts, cfg.RetryOnRateLimit) {
			return nil, err
		}

		delay := re.retryDelay(err, attempt)
		re.client.logger.Debug("retrying request",
			"method", req.Method, "path", req.Path,
			"attempt", attempt, "max_attempts", maxAttempts,
			"delay", delay, "error", err)
		cfg.Metrics.retryRecorded()

		if sleepErr := re.client.sleep(ctx, delay); sleepErr != nil {
			// Total deadline or caller cancellation pre-empts the
			// pending retry; it takes precedence over the partial
			// outcome that was in flight.
			return nil, sleepErr
		}
	}
}

// attempt performs one physical call, bounded by the attempt deadline.
func (re *requestExecutor) attempt(ctx context.Context, req *Request) (*Response, error) {
	c := re.client

	actx := ctx
	if c.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeoutCause(ctx, c.cfg.AttemptTimeout, errAttemptTimeout)
		defer cancel()
	}

	httpReq, err := c.newHTTPRequest(actx, req)
	if err != nil {
		return nil, err
	}

	c.cfg.Metrics.attemptRecorded(req.Method)
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, re.translateAttemptErr(actx, ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, re.translateAttemptErr(actx, ctx, err)
	}

	if sig := parseQuotaSignal(resp.Header.Get, time.Now()); sig != nil {
		c.quota.Store(sig)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return &Response{StatusCode: resp.StatusCode, Headers: resp.Header, Body: body}, nil
	}
	return nil, &HTTPError{StatusCode: resp.StatusCode, Headers: resp.Header, Body: body}
}

// translateAttemptErr distinguishes the attempt deadline from the caller's
// cancellation: only the former is retryable.
func (re *requestExecutor) translateAttemptErr(actx, ctx context.Context, err error) error {
	if context.Cause(actx) == errAttemptTimeout && ctx.Err() == nil {
		return errAttemptTimeout
	}
	return err
}

// retryDelay picks the wait before the next attempt. A parseable
// Retry-After on the failed response takes precedence over computed
// backoff for that single wait.
func (re *requestExecutor) retryDelay(err error, attempt int) time.Duration {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if d, ok := httpErr.RetryAfter(); ok {
			return d
		}
	}
	return re.calculateBackoff(attempt)
}

// calculateBackoff computes min(maxBackoff, base*2^(attempt-1)) scaled by
// a uniform jitter in [0.5, 1.5) so synchronized callers spread out.
func (re *requestExecutor) calculateBackoff(attempt int) time.Duration {
	cfg := re.client.cfg
	backoff := cfg.BaseBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff >= cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
			break
		}
	}
	jitter := 0.5 + rand.Float64()
	return time.Duration(float64(backoff) * jitter)
}

// bodyReader returns a fresh reader for the request body; each physical
// attempt gets its own.
func bodyReader(req *Request) io.Reader {
	if len(req.Body) == 0 {
		return nil
	}
	return bytes.NewReader(req.Body)
}
