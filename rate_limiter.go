// rate_limiter.go
// ----------------
// The admission stage: a bulkhead limiting concurrent in-flight requests,
// with a bounded FIFO wait queue, plus two advisory pacing mechanisms that
// run before a permit is taken:
//
//   - proactive throttling driven by the last QuotaSignal parsed from
//     rate-limit response headers (delay admission when the server says
//     quota is nearly exhausted, bounded by the time to window reset);
//   - optional steady-state smoothing via a token bucket, for callers that
//     want a hard client-side requests-per-second ceiling.
//
// Permits are released on completion of the wrapped call, success or
// failure, and waiters are admitted in arrival order. Queued waiters whose
// context is cancelled are dequeued and rejected.
package edgeclient

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/opengovern/edgeclient/internal"
)

// QuotaSignal is the server's view of remaining request quota, parsed from
// X-RateLimit-* response headers. Last write wins; staleness is acceptable
// because the signal is advisory.
type QuotaSignal struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// parseQuotaSignal extracts a QuotaSignal from response headers, or nil if
// the response carries none.
func parseQuotaSignal(get func(string) string, now time.Time) *QuotaSignal {
	limit := internal.ParseIntHeader(get("X-RateLimit-Limit"))
	remaining := internal.ParseIntHeader(get("X-RateLimit-Remaining"))
	if limit < 0 || remaining < 0 {
		return nil
	}
	sig := &QuotaSignal{Limit: limit, Remaining: remaining}
	if reset, ok := internal.ParseResetTime(get("X-RateLimit-Reset"), now); ok {
		sig.ResetAt = reset
	}
	return sig
}

type rateLimiter struct {
	permits    *semaphore.Weighted
	queueLimit int64
	waiting    atomic.Int64

	pacer *rate.Limiter // nil when smoothing is disabled

	proactive    bool
	lowThreshold float64
	maxThrottle  time.Duration
	quota        *atomic.Pointer[QuotaSignal]
	now          func() time.Time
	sleep        func(context.Context, time.Duration) error
	throttleHook func(time.Duration)
}

func newRateLimiter(cfg Config, quota *atomic.Pointer[QuotaSignal]) *rateLimiter {
	rl := &rateLimiter{
		permits:      semaphore.NewWeighted(int64(cfg.PermitLimit)),
		queueLimit:   int64(cfg.QueueLimit),
		proactive:    cfg.ProactiveThrottling,
		lowThreshold: cfg.QuotaLowThreshold,
		maxThrottle:  cfg.MaxBackoff,
		quota:        quota,
		now:          time.Now,
		sleep:        sleepContext,
	}
	if cfg.RequestsPerSecond > 0 {
		rl.pacer = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return rl
}

// acquire admits the caller, queuing it if permits are exhausted and queue
// room remains. It returns ErrOverloaded on a full queue and the context's
// error if cancellation fires while queued.
func (rl *rateLimiter) acquire(ctx context.Context) error {
	if delay := rl.throttleDelay(); delay > 0 {
		if rl.throttleHook != nil {
			rl.throttleHook(delay)
		}
		if err := rl.sleep(ctx, delay); err != nil {
			return err
		}
	}
	if rl.pacer != nil {
		if err := rl.pacer.Wait(ctx); err != nil {
			return err
		}
	}

	if rl.permits.TryAcquire(1) {
		return nil
	}
	if rl.waiting.Add(1) > rl.queueLimit {
		rl.waiting.Add(-1)
		return ErrOverloaded
	}
	err := rl.permits.Acquire(ctx, 1)
	rl.waiting.Add(-1)
	return err
}

func (rl *rateLimiter) release() {
	rl.permits.Release(1)
}

// throttleDelay computes the proactive pacing delay from the last quota
// signal: when remaining quota falls below the configured fraction of the
// limit, wait out (a bounded share of) the window reset.
func (rl *rateLimiter) throttleDelay() time.Duration {
	if !rl.proactive {
		return 0
	}
	sig := rl.quota.Load()
	if sig == nil || sig.Limit <= 0 {
		return 0
	}
	if float64(sig.Remaining)/float64(sig.Limit) >= rl.lowThreshold {
		return 0
	}
	now := rl.now()
	if !internal.IsInFuture(sig.ResetAt, now) {
		return 0
	}
	delay := sig.ResetAt.Sub(now)
	if sig.Remaining > 0 {
		// Quota is low but not gone: spread the remainder over the
		// rest of the window instead of stalling until reset.
		delay /= time.Duration(sig.Remaining + 1)
	}
	if delay > rl.maxThrottle {
		delay = rl.maxThrottle
	}
	return delay
}

// sleepContext waits for d or until the context is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
