// config.go
// ----------
// Config carries every knob the pipeline recognizes: concurrency limits,
// retry policy, per-attempt and total deadlines, circuit breaker thresholds,
// and rate-limit behavior. Zero values fall back to the defaults below,
// except where the zero value is itself meaningful (QueueLimit=0 means no
// wait queue, AttemptTimeout=0 and TotalTimeout=0 mean unbounded,
// MaxRetries=0 means a single attempt). DefaultConfig sets every knob to
// a production-ready value.
package edgeclient

import (
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultPermitLimit       = 10
	defaultBaseBackoff       = 500 * time.Millisecond
	defaultMaxBackoff        = 30 * time.Second
	defaultAttemptTimeout    = 30 * time.Second
	defaultBreakerThroughput = 5
	defaultBreakerBreak      = 30 * time.Second
	defaultQuotaLowThreshold = 0.1
)

type Config struct {
	// PermitLimit is the number of requests allowed in flight at once.
	PermitLimit int
	// QueueLimit bounds how many callers may wait for a permit; a caller
	// arriving with the queue full is rejected with ErrOverloaded.
	QueueLimit int

	// MaxRetries is the number of re-issues after the initial attempt.
	MaxRetries int
	// BaseBackoff and MaxBackoff shape the exponential retry delay.
	BaseBackoff time.Duration
	MaxBackoff  time.Duration

	// AttemptTimeout bounds one physical attempt; expiry is retryable.
	// TotalTimeout bounds the whole operation including retries; expiry
	// is terminal and reported as ErrOperationTimeout.
	AttemptTimeout time.Duration
	TotalTimeout   time.Duration

	// BreakerMinimumThroughput is the consecutive-failure count that
	// opens the circuit; BreakerBreakDuration is how long it stays open
	// before admitting a half-open probe.
	BreakerMinimumThroughput int
	BreakerBreakDuration     time.Duration

	// RetryOnRateLimit makes 429 responses retryable.
	RetryOnRateLimit bool

	// ProactiveThrottling delays admission when the last observed server
	// quota drops below QuotaLowThreshold (a fraction of the limit).
	ProactiveThrottling bool
	QuotaLowThreshold   float64

	// RequestsPerSecond smooths outbound request rate client-side,
	// independent of server signals. 0 disables smoothing.
	RequestsPerSecond float64

	// HTTPClient overrides the transport; useful for tests.
	HTTPClient *http.Client
	// Logger receives debug records for retry, throttle, and breaker
	// decisions. Nil means silent.
	Logger *slog.Logger
	// Metrics, when set, counts pipeline events. See NewMetrics.
	Metrics *Metrics
}

// DefaultConfig mirrors the defaults applied to an omitted Config.
func DefaultConfig() *Config {
	return &Config{
		PermitLimit:              defaultPermitLimit,
		QueueLimit:               2 * defaultPermitLimit,
		MaxRetries:               3,
		BaseBackoff:              defaultBaseBackoff,
		MaxBackoff:               defaultMaxBackoff,
		AttemptTimeout:           defaultAttemptTimeout,
		BreakerMinimumThroughput: defaultBreakerThroughput,
		BreakerBreakDuration:     defaultBreakerBreak,
		RetryOnRateLimit:         true,
		ProactiveThrottling:      true,
		QuotaLowThreshold:        defaultQuotaLowThreshold,
	}
}

// withDefaults fills the fields whose zero value is not meaningful.
func (c *Config) withDefaults() Config {
	out := *c
	if out.PermitLimit <= 0 {
		out.PermitLimit = defaultPermitLimit
	}
	if out.BaseBackoff <= 0 {
		out.BaseBackoff = defaultBaseBackoff
	}
	if out.MaxBackoff <= 0 {
		out.MaxBackoff = defaultMaxBackoff
	}
	if out.AttemptTimeout < 0 {
		out.AttemptTimeout = 0
	}
	if out.TotalTimeout < 0 {
		out.TotalTimeout = 0
	}
	if out.BreakerMinimumThroughput <= 0 {
		out.BreakerMinimumThroughput = defaultBreakerThroughput
	}
	if out.BreakerBreakDuration <= 0 {
		out.BreakerBreakDuration = defaultBreakerBreak
	}
	if out.QuotaLowThreshold <= 0 {
		out.QuotaLowThreshold = defaultQuotaLowThreshold
	}
	return out
}
