// circuit_breaker.go
// -------------------
// A per-client circuit breaker. Consecutive transport-level failures open
// the circuit once they reach the configured minimum throughput; while
// open, calls are rejected with ErrCircuitOpen without touching the
// transport. After the break duration elapses exactly one probe call is
// admitted: success closes the circuit and resets counters, failure
// reopens it and restarts the break timer.
//
// Application failures (envelope success=false on a 2xx) never reach the
// breaker; a logical error does not mean the upstream is down.
package edgeclient

import (
	"sync"
	"time"
)

type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

func (s circuitState) String() string {
	switch s {
	case circuitOpen:
		return "open"
	case circuitHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

type circuitBreaker struct {
	mu                  sync.Mutex
	state               circuitState
	consecutiveFailures int
	openedAt            time.Time
	probeInFlight       bool

	minThroughput int
	breakDuration time.Duration
	now           func() time.Time
	onTransition  func(from, to circuitState)
}

func newCircuitBreaker(cfg Config) *circuitBreaker {
	return &circuitBreaker{
		minThroughput: cfg.BreakerMinimumThroughput,
		breakDuration: cfg.BreakerBreakDuration,
		now:           time.Now,
	}
}

// allow decides whether a call may proceed. In the open state it admits
// nothing until the break duration elapses, then transitions to half-open
// and admits a single probe.
func (cb *circuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case circuitClosed:
		return nil
	case circuitOpen:
		if cb.now().Sub(cb.openedAt) < cb.breakDuration {
			return ErrCircuitOpen
		}
		cb.transition(circuitHalfOpen)
		cb.probeInFlight = true
		return nil
	default: // half-open
		if cb.probeInFlight {
			return ErrCircuitOpen
		}
		cb.probeInFlight = true
		return nil
	}
}

// record feeds the outcome of an admitted call back into the state machine.
func (cb *circuitBreaker) record(failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case circuitHalfOpen:
		cb.probeInFlight = false
		if failed {
			cb.open()
			return
		}
		cb.transition(circuitClosed)
		cb.consecutiveFailures = 0
	case circuitClosed:
		if !failed {
			cb.consecutiveFailures = 0
			return
		}
		cb.consecutiveFailures++
		if cb.consecutiveFailures >= cb.minThroughput {
			cb.open()
		}
	case circuitOpen:
		// A call admitted before the circuit opened finished late;
		// nothing to update.
	}
}

// recordNeutral discards the outcome of an admitted call whose caller went
// away before the upstream could prove anything. Failure counters stay as
// they are; in half-open the probe slot is released so the next caller can
// probe instead of counting the cancellation as a successful probe.
func (cb *circuitBreaker) recordNeutral() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == circuitHalfOpen {
		cb.probeInFlight = false
	}
}

func (cb *circuitBreaker) open() {
	cb.transition(circuitOpen)
	cb.openedAt = cb.now()
	cb.probeInFlight = false
}

func (cb *circuitBreaker) transition(to circuitState) {
	from := cb.state
	cb.state = to
	if from != to && cb.onTransition != nil {
		cb.onTransition(from, to)
	}
}

// currentState reports the state for inspection; decisions go through
// allow and record only.
func (cb *circuitBreaker) currentState() circuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
