// request_response.go
// --------------------
// Request and Response are the normalized shapes the pipeline works with.
// A Request describes one logical operation: the method, the path relative
// to the client's base URL, optional query/headers/body, and whether the
// endpoint speaks the standard JSON envelope or returns raw bytes.
//
// A retried operation reuses the same Request value; every physical attempt
// builds a fresh *http.Request from it.
package edgeclient

import (
	"net/http"
	"net/url"
	"strings"
)

type Request struct {
	Method  string
	Path    string // relative to the client base URL, e.g. "/zones"
	Query   url.Values
	Headers map[string]string
	Body    []byte

	// Raw marks an endpoint that does not use the JSON envelope
	// (binary values, plain-text exports). Raw responses bypass the
	// envelope decoder entirely; see ExecuteRaw.
	Raw bool
}

// IsIdempotent reports whether the request's verb is safe to repeat.
// POST and PATCH are not; everything else defined by HTTP is.
func (r *Request) IsIdempotent() bool {
	switch r.Method {
	case http.MethodPost, http.MethodPatch:
		return false
	default:
		return true
	}
}

// url joins the request path and query onto the client base URL. The path
// is taken as already escaped and may itself carry an encoded query
// string; explicit Query values are added on top of it.
func (r *Request) url(base *url.URL) string {
	path, rawQuery, _ := strings.Cut(r.Path, "?")
	u, err := url.Parse(strings.TrimSuffix(base.String(), "/") + path)
	if err != nil {
		return base.String() + r.Path
	}
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		q = url.Values{}
	}
	for k, vs := range r.Query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}
