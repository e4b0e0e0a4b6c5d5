// resources/storage.go
// ---------------------
// Key-value storage endpoints. Values are raw: reads return the stored
// bytes directly (no envelope), a missing key reads as nil. Key listing is
// cursor paginated; prefix and limit filters travel unchanged on every
// page request.
package resources

import (
	"context"
	"iter"
	"net/http"
	"net/url"
	"strconv"

	"github.com/opengovern/edgeclient"
)

type Key struct {
	Name       string `json:"name"`
	Expiration int64  `json:"expiration,omitempty"`
}

type KeyListOptions struct {
	Prefix string
	Limit  int // per-page limit; server default when 0
}

type StorageService struct {
	client    *edgeclient.Client
	namespace string
}

func NewStorage(c *edgeclient.Client, namespace string) *StorageService {
	return &StorageService{client: c, namespace: namespace}
}

func (s *StorageService) path(elem ...string) string {
	p := "/storage/namespaces/" + url.PathEscape(s.namespace)
	for _, e := range elem {
		p += "/" + url.PathEscape(e)
	}
	return p
}

// Get reads a value's raw bytes. A missing key returns (nil, nil).
func (s *StorageService) Get(ctx context.Context, key string) ([]byte, error) {
	return edgeclient.ExecuteRaw(ctx, s.client, &edgeclient.Request{
		Method: http.MethodGet,
		Path:   s.path("values", key),
	})
}

// Put writes a value. PUT keeps writes idempotent and therefore retryable.
func (s *StorageService) Put(ctx context.Context, key string, value []byte) error {
	_, err := edgeclient.Execute[struct{}](ctx, s.client, &edgeclient.Request{
		Method:  http.MethodPut,
		Path:    s.path("values", key),
		Headers: map[string]string{"Content-Type": "application/octet-stream"},
		Body:    value,
	})
	return err
}

func (s *StorageService) Delete(ctx context.Context, key string) error {
	_, err := edgeclient.Execute[struct{}](ctx, s.client, &edgeclient.Request{
		Method: http.MethodDelete,
		Path:   s.path("values", key),
	})
	return err
}

// Keys lazily walks key names, following server cursors until exhausted.
func (s *StorageService) Keys(ctx context.Context, opts KeyListOptions) iter.Seq2[Key, error] {
	return edgeclient.PaginateCursor[Key](ctx, s.client, func(cursor string) *edgeclient.Request {
		q := url.Values{}
		if opts.Prefix != "" {
			q.Set("prefix", opts.Prefix)
		}
		if opts.Limit > 0 {
			q.Set("limit", strconv.Itoa(opts.Limit))
		}
		if cursor != "" {
			q.Set("cursor", cursor)
		}
		return &edgeclient.Request{Method: http.MethodGet, Path: s.path("keys"), Query: q}
	})
}
