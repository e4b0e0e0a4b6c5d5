// mock/transport.go
// ------------------
// Transport is a scripted http.RoundTripper for tests and offline
// examples. Responses are consumed in order; once the script is exhausted
// the Default response (or a plain success envelope) answers everything.
package mock

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sync"
)

type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       string
	Err        error // returned instead of a response when set
}

type Transport struct {
	mu      sync.Mutex
	script  []Response
	Default *Response
	reqs    []*http.Request
	bodies  []string
}

// Enqueue appends responses to the script.
func (t *Transport) Enqueue(responses ...Response) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.script = append(t.script, responses...)
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.Lock()
	var body string
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		req.Body.Close()
		body = string(b)
	}
	t.reqs = append(t.reqs, req)
	t.bodies = append(t.bodies, body)

	var next Response
	switch {
	case len(t.script) > 0:
		next = t.script[0]
		t.script = t.script[1:]
	case t.Default != nil:
		next = *t.Default
	default:
		next = Response{StatusCode: 200, Body: `{"success":true,"errors":[],"messages":[],"result":null}`}
	}
	t.mu.Unlock()

	if next.Err != nil {
		return nil, next.Err
	}

	header := make(http.Header)
	for k, v := range next.Headers {
		header.Set(k, v)
	}
	if header.Get("Content-Type") == "" {
		header.Set("Content-Type", "application/json")
	}
	return &http.Response{
		StatusCode: next.StatusCode,
		Status:     fmt.Sprintf("%d %s", next.StatusCode, http.StatusText(next.StatusCode)),
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader([]byte(next.Body))),
		Request:    req,
	}, nil
}

// Calls reports how many requests reached the transport.
func (t *Transport) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.reqs)
}

// Requests returns the recorded requests in arrival order.
func (t *Transport) Requests() []*http.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*http.Request, len(t.reqs))
	copy(out, t.reqs)
	return out
}

// Bodies returns the recorded request bodies in arrival order.
func (t *Transport) Bodies() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.bodies))
	copy(out, t.bodies)
	return out
}
