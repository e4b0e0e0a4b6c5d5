// envelope.go
// ------------
// Every non-raw endpoint wraps its payload in the same JSON envelope:
//
//	{"success": bool, "errors": [...], "messages": [...], "result": ..., "result_info": {...}}
//
// The decoder splits result from metadata and classifies the outcome. The
// critical asymmetry: HTTP-layer success does not imply application-layer
// success. A 2xx with success=false is an *APIRequestError carrying every
// envelope error; a 2xx that does not parse is a *MalformedResponseError,
// never silently treated as either.
package edgeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// ResultInfo is the envelope's pagination metadata. Page-number endpoints
// populate the page fields; cursor endpoints populate Cursor (or
// Cursors.After). TotalPages == 0 means the server did not compute a
// total, not that there are no pages.
type ResultInfo struct {
	Page       int    `json:"page"`
	PerPage    int    `json:"per_page"`
	Count      int    `json:"count"`
	TotalCount int    `json:"total_count"`
	TotalPages int    `json:"total_pages"`
	Cursor     string `json:"cursor"`
	Cursors    struct {
		After  string `json:"after"`
		Before string `json:"before"`
	} `json:"cursors"`
}

// nextCursor returns the opaque token for the following page, or "" when
// the server signalled the end.
func (ri *ResultInfo) nextCursor() string {
	if ri == nil {
		return ""
	}
	if ri.Cursor != "" {
		return ri.Cursor
	}
	return ri.Cursors.After
}

type envelope struct {
	Success    bool            `json:"success"`
	Errors     []APIError      `json:"errors"`
	Messages   []string        `json:"messages"`
	Result     json.RawMessage `json:"result"`
	ResultInfo *ResultInfo     `json:"result_info"`
}

// decodeEnvelope parses a 2xx body. If success is false the result is
// treated as absent regardless of its JSON value.
func decodeEnvelope(body []byte) (*envelope, error) {
	var env envelope
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&env); err != nil {
		return nil, &MalformedResponseError{Err: err}
	}
	if !env.Success {
		return nil, &APIRequestError{Errors: env.Errors, Messages: env.Messages}
	}
	return &env, nil
}

// Execute runs one operation through the pipeline and decodes the envelope
// result into T. A null or absent result yields T's zero value.
func Execute[T any](ctx context.Context, c *Client, req *Request) (T, error) {
	v, _, err := executeEnvelope[T](ctx, c, req)
	return v, err
}

// executeEnvelope is Execute plus the pagination metadata; the pagination
// engine needs both.
func executeEnvelope[T any](ctx context.Context, c *Client, req *Request) (T, *ResultInfo, error) {
	var zero T
	resp, err := c.Do(ctx, req)
	if err != nil {
		return zero, nil, err
	}
	env, err := decodeEnvelope(resp.Body)
	if err != nil {
		return zero, nil, err
	}
	if len(env.Result) == 0 || bytes.Equal(env.Result, []byte("null")) {
		return zero, env.ResultInfo, nil
	}
	var v T
	if err := json.Unmarshal(env.Result, &v); err != nil {
		return zero, nil, &MalformedResponseError{Err: err}
	}
	return v, env.ResultInfo, nil
}

// ExecuteRaw runs an operation against a declared raw endpoint: the body
// is returned as-is on 2xx, a 404 becomes (nil, nil), and any other status
// is surfaced as the usual *HTTPError. The envelope decoder is bypassed
// entirely.
func ExecuteRaw(ctx context.Context, c *Client, req *Request) ([]byte, error) {
	raw := *req
	raw.Raw = true
	resp, err := c.Do(ctx, &raw)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return resp.Body, nil
}
