// resources/records.go
// ---------------------
// DNS record endpoints under a zone. The record listing is page-number
// paginated but the server does not always compute total_pages for it, so
// the pager falls back to the full-page heuristic.
package resources

import (
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"net/url"
	"strconv"

	"github.com/opengovern/edgeclient"
)

type Record struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
	Proxied bool   `json:"proxied"`
}

type RecordParams struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl,omitempty"`
	Proxied *bool  `json:"proxied,omitempty"`
}

type RecordListOptions struct {
	Type    string
	Name    string
	PerPage int
}

type RecordsService struct {
	client *edgeclient.Client
	zoneID string
}

func NewRecords(c *edgeclient.Client, zoneID string) *RecordsService {
	return &RecordsService{client: c, zoneID: zoneID}
}

func (s *RecordsService) path(elem ...string) string {
	p := "/zones/" + url.PathEscape(s.zoneID) + "/dns_records"
	for _, e := range elem {
		p += "/" + url.PathEscape(e)
	}
	return p
}

func (s *RecordsService) Get(ctx context.Context, recordID string) (Record, error) {
	return edgeclient.Execute[Record](ctx, s.client, &edgeclient.Request{
		Method: http.MethodGet,
		Path:   s.path(recordID),
	})
}

func (s *RecordsService) Create(ctx context.Context, params RecordParams) (Record, error) {
	body, err := marshalParams(params)
	if err != nil {
		return Record{}, err
	}
	return edgeclient.Execute[Record](ctx, s.client, &edgeclient.Request{
		Method: http.MethodPost,
		Path:   s.path(),
		Body:   body,
	})
}

// Update replaces a record. PUT, so a transient failure may be retried.
func (s *RecordsService) Update(ctx context.Context, recordID string, params RecordParams) (Record, error) {
	body, err := marshalParams(params)
	if err != nil {
		return Record{}, err
	}
	return edgeclient.Execute[Record](ctx, s.client, &edgeclient.Request{
		Method: http.MethodPut,
		Path:   s.path(recordID),
		Body:   body,
	})
}

func (s *RecordsService) Delete(ctx context.Context, recordID string) error {
	_, err := edgeclient.Execute[Record](ctx, s.client, &edgeclient.Request{
		Method: http.MethodDelete,
		Path:   s.path(recordID),
	})
	return err
}

func (s *RecordsService) List(ctx context.Context, opts RecordListOptions) iter.Seq2[Record, error] {
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = 100
	}
	return edgeclient.PaginatePages[Record](ctx, s.client, 1, func(page int) *edgeclient.Request {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", strconv.Itoa(perPage))
		if opts.Type != "" {
			q.Set("type", opts.Type)
		}
		if opts.Name != "" {
			q.Set("name", opts.Name)
		}
		return &edgeclient.Request{Method: http.MethodGet, Path: s.path(), Query: q}
	})
}

func marshalParams(v any) ([]byte, error) {
	return json.Marshal(v)
}
