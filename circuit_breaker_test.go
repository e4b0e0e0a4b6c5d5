package edgeclient

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func newTestBreaker(minThroughput int, breakDur time.Duration) (*circuitBreaker, *time.Time) {
	now := time.Now()
	cb := newCircuitBreaker(Config{
		BreakerMinimumThroughput: minThroughput,
		BreakerBreakDuration:     breakDur,
	})
	cb.now = func() time.Time { return now }
	return cb, &now
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	cb, _ := newTestBreaker(3, time.Minute)
	for i := 0; i < 3; i++ {
		if err := cb.allow(); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		cb.record(true)
	}
	if err := cb.allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("want ErrCircuitOpen, got %v", err)
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	cb, _ := newTestBreaker(3, time.Minute)
	cb.record(true)
	cb.record(true)
	cb.record(false)
	cb.record(true)
	cb.record(true)
	if err := cb.allow(); err != nil {
		t.Fatalf("breaker opened despite interleaved success: %v", err)
	}
}

func TestBreakerHalfOpenAdmitsSingleProbe(t *testing.T) {
	t.Parallel()

	cb, now := newTestBreaker(1, 30*time.Second)
	cb.record(true) // opens

	if err := cb.allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("want open, got %v", err)
	}

	*now = now.Add(31 * time.Second)
	if err := cb.allow(); err != nil {
		t.Fatalf("probe should be admitted after break: %v", err)
	}
	// Second caller during the probe is still rejected.
	if err := cb.allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("concurrent probe admitted: %v", err)
	}
}

func TestBreakerProbeOutcomes(t *testing.T) {
	t.Parallel()

	t.Run("success closes and resets", func(t *testing.T) {
		t.Parallel()
		cb, now := newTestBreaker(2, 10*time.Second)
		cb.record(true)
		cb.record(true)
		*now = now.Add(11 * time.Second)
		if err := cb.allow(); err != nil {
			t.Fatalf("probe: %v", err)
		}
		cb.record(false)
		if got := cb.currentState(); got != circuitClosed {
			t.Fatalf("state = %v, want closed", got)
		}
		// One fresh failure must not reopen immediately.
		cb.record(true)
		if err := cb.allow(); err != nil {
			t.Fatalf("counters were not reset: %v", err)
		}
	})

	t.Run("failure reopens and restarts the break timer", func(t *testing.T) {
		t.Parallel()
		cb, now := newTestBreaker(1, 10*time.Second)
		cb.record(true)
		*now = now.Add(11 * time.Second)
		if err := cb.allow(); err != nil {
			t.Fatalf("probe: %v", err)
		}
		cb.record(true)
		if err := cb.allow(); !errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("want reopened circuit, got %v", err)
		}
		// Timer restarted: 5s later it is still open, 11s later a new
		// probe goes through.
		*now = now.Add(5 * time.Second)
		if err := cb.allow(); !errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("break timer was not restarted: %v", err)
		}
		*now = now.Add(6 * time.Second)
		if err := cb.allow(); err != nil {
			t.Fatalf("second probe: %v", err)
		}
	})
}

func TestBreakerNeutralOutcomes(t *testing.T) {
	t.Parallel()

	t.Run("closed state keeps the failure streak", func(t *testing.T) {
		t.Parallel()
		cb, _ := newTestBreaker(3, time.Minute)
		cb.record(true)
		cb.record(true)
		cb.recordNeutral()
		cb.record(true)
		if err := cb.allow(); !errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("neutral outcome reset the failure streak: %v", err)
		}
	})

	t.Run("cancelled probe releases the slot without closing", func(t *testing.T) {
		t.Parallel()
		cb, now := newTestBreaker(1, 10*time.Second)
		cb.record(true)
		*now = now.Add(11 * time.Second)
		if err := cb.allow(); err != nil {
			t.Fatalf("probe: %v", err)
		}
		cb.recordNeutral()
		if got := cb.currentState(); got != circuitHalfOpen {
			t.Fatalf("state = %v, want half-open", got)
		}
		if err := cb.allow(); err != nil {
			t.Fatalf("next probe after abandoned one: %v", err)
		}
		cb.record(false)
		if got := cb.currentState(); got != circuitClosed {
			t.Fatalf("state = %v, want closed", got)
		}
	})
}

func TestCancelledCallIsNeutralForBreaker(t *testing.T) {
	t.Parallel()

	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if err := req.Context().Err(); err != nil {
			return nil, err
		}
		return jsonResponse(500, `down`), nil
	})
	c := newTestClient(t, rt, &Config{
		MaxRetries:               0,
		BreakerMinimumThroughput: 2,
		BreakerBreakDuration:     time.Minute,
	})

	get := &Request{Method: http.MethodGet, Path: "/zones"}
	if _, err := c.Do(context.Background(), get); err == nil {
		t.Fatal("expected first failure")
	}

	// A cancelled call in between must neither extend nor reset the streak.
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Do(cancelled, get); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if got := c.breaker.currentState(); got != circuitClosed {
		t.Fatalf("state after cancellation = %v, want closed", got)
	}

	if _, err := c.Do(context.Background(), get); err == nil {
		t.Fatal("expected second failure")
	}
	if _, err := c.Do(context.Background(), get); !errors.Is(err, ErrCircuitOpen) {
		t.Fatal("two real failures with a cancellation between them must open the circuit")
	}
}

func TestOpenCircuitShortCircuitsTransport(t *testing.T) {
	t.Parallel()

	calls := 0
	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(500, `down`), nil
	})
	c := newTestClient(t, rt, &Config{
		MaxRetries:               0,
		BreakerMinimumThroughput: 2,
		BreakerBreakDuration:     time.Minute,
	})

	for i := 0; i < 2; i++ {
		if _, err := c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/zones"}); err == nil {
			t.Fatal("expected failure")
		}
	}
	before := calls
	_, err := c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/zones"})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("want ErrCircuitOpen, got %v", err)
	}
	if calls != before {
		t.Errorf("transport invoked while circuit open")
	}
}

func TestApplicationFailureDoesNotTripBreaker(t *testing.T) {
	t.Parallel()

	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"success":false,"errors":[{"code":1,"message":"bad input"}],"messages":[],"result":null}`), nil
	})
	c := newTestClient(t, rt, &Config{BreakerMinimumThroughput: 2, BreakerBreakDuration: time.Minute})

	for i := 0; i < 5; i++ {
		_, err := Execute[string](context.Background(), c, &Request{Method: http.MethodGet, Path: "/zones"})
		var apiErr *APIRequestError
		if !errors.As(err, &apiErr) {
			t.Fatalf("want application failure, got %v", err)
		}
	}
	if got := c.breaker.currentState(); got != circuitClosed {
		t.Errorf("breaker state = %v; logical errors must not open it", got)
	}
}

func TestIsBreakerFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transport", errors.New("connection reset"), true},
		{"attempt timeout", errAttemptTimeout, true},
		{"500", &HTTPError{StatusCode: 500}, true},
		{"408", &HTTPError{StatusCode: 408}, true},
		{"429", &HTTPError{StatusCode: 429}, true},
		{"404", &HTTPError{StatusCode: 404}, false},
		{"cancelled", context.Canceled, false},
	}
	for _, tt := range tests {
		if got := isBreakerFailure(tt.err); got != tt.want {
			t.Errorf("%s: isBreakerFailure = %v, want %v", tt.name, got, tt.want)
		}
	}
}
