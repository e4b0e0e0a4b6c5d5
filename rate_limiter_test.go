package edgeclient

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

func newTestLimiter(permits, queue int) *rateLimiter {
	var quota atomic.Pointer[QuotaSignal]
	return newRateLimiter(Config{
		PermitLimit: permits,
		QueueLimit:  queue,
		MaxBackoff:  30 * time.Second,
	}, &quota)
}

func TestLimiterRejectsWhenQueueFull(t *testing.T) {
	t.Parallel()

	rl := newTestLimiter(1, 0)
	if err := rl.acquire(context.Background()); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := rl.acquire(context.Background()); !errors.Is(err, ErrOverloaded) {
		t.Fatalf("second acquire: want ErrOverloaded, got %v", err)
	}
	rl.release()
	if err := rl.acquire(context.Background()); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestLimiterQueuesOneAndRejectsThird(t *testing.T) {
	t.Parallel()

	rl := newTestLimiter(1, 1)
	if err := rl.acquire(context.Background()); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	queued := make(chan error, 1)
	go func() {
		queued <- rl.acquire(context.Background())
	}()

	// Wait until the second caller is actually queued.
	deadline := time.After(time.Second)
	for rl.waiting.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("second caller never queued")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if err := rl.acquire(context.Background()); !errors.Is(err, ErrOverloaded) {
		t.Fatalf("third acquire: want ErrOverloaded, got %v", err)
	}

	rl.release()
	select {
	case err := <-queued:
		if err != nil {
			t.Fatalf("queued acquire: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("queued caller was not admitted after release")
	}
}

func TestQueuedWaiterIsDequeuedOnCancellation(t *testing.T) {
	t.Parallel()

	rl := newTestLimiter(1, 1)
	if err := rl.acquire(context.Background()); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	queued := make(chan error, 1)
	go func() {
		queued <- rl.acquire(ctx)
	}()

	deadline := time.After(time.Second)
	for rl.waiting.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("caller never queued")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	cancel()
	select {
	case err := <-queued:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("want context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled waiter never returned")
	}
	if rl.waiting.Load() != 0 {
		t.Errorf("waiting count not restored: %d", rl.waiting.Load())
	}
}

func TestOverloadedCallNeverReachesTransport(t *testing.T) {
	t.Parallel()

	inFlight := make(chan struct{})
	proceed := make(chan struct{})
	var calls atomic.Int64
	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		calls.Add(1)
		close(inFlight)
		<-proceed
		return jsonResponse(200, successEnvelope), nil
	})
	c := newTestClient(t, rt, &Config{PermitLimit: 1, QueueLimit: 0})

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_, _ = c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/a"})
	}()
	<-inFlight

	_, err := c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/b"})
	if !errors.Is(err, ErrOverloaded) {
		t.Fatalf("want ErrOverloaded, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("transport invoked for rejected call")
	}

	close(proceed)
	<-firstDone
}

func TestProactiveThrottleDelay(t *testing.T) {
	t.Parallel()

	now := time.Now()
	var quota atomic.Pointer[QuotaSignal]
	rl := newRateLimiter(Config{
		PermitLimit:         1,
		ProactiveThrottling: true,
		QuotaLowThreshold:   0.2,
		MaxBackoff:          30 * time.Second,
	}, &quota)
	rl.now = func() time.Time { return now }

	t.Run("no signal, no delay", func(t *testing.T) {
		if d := rl.throttleDelay(); d != 0 {
			t.Errorf("delay = %v", d)
		}
	})

	t.Run("ample quota, no delay", func(t *testing.T) {
		quota.Store(&QuotaSignal{Limit: 100, Remaining: 50, ResetAt: now.Add(time.Minute)})
		if d := rl.throttleDelay(); d != 0 {
			t.Errorf("delay = %v", d)
		}
	})

	t.Run("low quota paces toward reset", func(t *testing.T) {
		quota.Store(&QuotaSignal{Limit: 100, Remaining: 9, ResetAt: now.Add(time.Minute)})
		d := rl.throttleDelay()
		if d <= 0 {
			t.Fatal("expected a pacing delay")
		}
		if d > time.Minute {
			t.Errorf("delay %v exceeds window", d)
		}
	})

	t.Run("exhausted quota waits for reset, bounded", func(t *testing.T) {
		quota.Store(&QuotaSignal{Limit: 100, Remaining: 0, ResetAt: now.Add(10 * time.Minute)})
		d := rl.throttleDelay()
		if d != 30*time.Second {
			t.Errorf("delay = %v, want the 30s bound", d)
		}
	})

	t.Run("stale reset, no delay", func(t *testing.T) {
		quota.Store(&QuotaSignal{Limit: 100, Remaining: 0, ResetAt: now.Add(-time.Second)})
		if d := rl.throttleDelay(); d != 0 {
			t.Errorf("delay = %v", d)
		}
	})
}

func TestParseQuotaSignal(t *testing.T) {
	t.Parallel()

	now := time.Now()
	header := http.Header{}
	header.Set("X-RateLimit-Limit", "1200")
	header.Set("X-RateLimit-Remaining", "17")
	header.Set("X-RateLimit-Reset", "120")

	sig := parseQuotaSignal(header.Get, now)
	if sig == nil {
		t.Fatal("signal not parsed")
	}
	if sig.Limit != 1200 || sig.Remaining != 17 {
		t.Errorf("sig = %+v", sig)
	}
	if got := sig.ResetAt.Sub(now); got != 2*time.Minute {
		t.Errorf("reset delta = %v", got)
	}

	if sig := parseQuotaSignal(http.Header{}.Get, now); sig != nil {
		t.Errorf("signal parsed from empty headers: %+v", sig)
	}
}

func TestQuotaSignalLastWriteWins(t *testing.T) {
	t.Parallel()

	responses := []struct{ remaining string }{{"40"}, {"10"}}
	i := 0
	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		resp := jsonResponse(200, successEnvelope)
		resp.Header.Set("X-RateLimit-Limit", "100")
		resp.Header.Set("X-RateLimit-Remaining", responses[i].remaining)
		i++
		return resp, nil
	})
	c := newTestClient(t, rt, nil)

	for range responses {
		if _, err := c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/zones"}); err != nil {
			t.Fatalf("Do: %v", err)
		}
	}
	sig := c.QuotaInfo()
	if sig == nil || sig.Remaining != 10 {
		t.Errorf("QuotaInfo = %+v, want remaining 10", sig)
	}
}
