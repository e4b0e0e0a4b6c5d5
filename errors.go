// errors.go
// ----------
// The failure taxonomy surfaced by the pipeline. Every failure a caller can
// observe is one of:
//
//   - *APIRequestError: the server answered 2xx but the envelope says
//     success=false. Carries every envelope error, in order.
//   - *HTTPError: a non-2xx status with no usable envelope.
//   - *MalformedResponseError: a 2xx body that could not be parsed as the
//     envelope. Distinct from an application error; never treated as success.
//   - a sentinel pipeline rejection (ErrCircuitOpen, ErrOverloaded,
//     ErrOperationTimeout) or a transport-level error from net/http.
//
// No stage replaces a specific inner failure with a generic one.
package edgeclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/opengovern/edgeclient/internal"
)

var (
	// ErrCircuitOpen is returned without touching the transport while the
	// circuit breaker is open.
	ErrCircuitOpen = errors.New("edgeclient: circuit open")

	// ErrOverloaded is returned when the concurrency limiter's wait queue
	// is full. It is a local rejection, not a retryable transient failure.
	ErrOverloaded = errors.New("edgeclient: request queue full")

	// ErrOperationTimeout is returned when the total operation deadline
	// expires, cancelling any in-flight attempt and all pending retries.
	ErrOperationTimeout = errors.New("edgeclient: operation timed out")
)

// errAttemptTimeout marks the expiry of a single attempt's deadline. It is
// retryable, unlike ErrOperationTimeout.
var errAttemptTimeout = errors.New("edgeclient: attempt timed out")

// APIError is one error entry from the response envelope.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// APIRequestError is an application-level failure: the HTTP exchange
// succeeded but the envelope declared success=false. All envelope errors
// and messages are preserved in order, never truncated to the first.
type APIRequestError struct {
	Errors   []APIError
	Messages []string
}

func (e *APIRequestError) Error() string {
	if len(e.Errors) == 0 {
		return "edgeclient: request failed with no error detail"
	}
	parts := make([]string, len(e.Errors))
	for i, apiErr := range e.Errors {
		parts[i] = apiErr.Error()
	}
	return "edgeclient: " + strings.Join(parts, "; ")
}

// HTTPError is a transport-layer failure: the server answered outside the
// 2xx range. The status, headers, and raw body are kept so callers (and the
// retry stage) see the full detail.
type HTTPError struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("edgeclient: HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// RetryAfter reports the server-supplied retry delay, if the response
// carried a parseable Retry-After header.
func (e *HTTPError) RetryAfter() (time.Duration, bool) {
	return internal.ParseRetryAfter(e.Headers.Get("Retry-After"))
}

// MalformedResponseError marks a 2xx response whose body is not the
// expected envelope shape.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return "edgeclient: malformed response body: " + e.Err.Error()
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
