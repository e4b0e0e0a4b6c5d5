package edgeclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"
)

// roundTripperFunc adapts a function to http.RoundTripper for scripting
// transport behavior inline in tests.
type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

const successEnvelope = `{"success":true,"errors":[],"messages":[],"result":{"id":"abc"}}`

// newTestClient builds a client over the given transport with waits
// stubbed out so retry tests run instantly.
func newTestClient(t *testing.T, rt http.RoundTripper, cfg *Config) *Client {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Transport: rt}
	}
	c, err := NewClient("https://api.test.local/v4", TokenCredentials{Token: "test-token"}, cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return c
}
