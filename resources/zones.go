// resources/zones.go
// -------------------
// Zone endpoints. Listing is page-number paginated; the server reports
// total_pages for this resource.
package resources

import (
	"context"
	"iter"
	"net/http"
	"net/url"
	"strconv"

	"github.com/opengovern/edgeclient"
)

type Zone struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Paused bool   `json:"paused"`
}

type ZoneParams struct {
	Name   string `json:"name"`
	Paused *bool  `json:"paused,omitempty"`
}

type ZoneListOptions struct {
	Name    string // filter by zone name
	Status  string
	PerPage int // defaults to 50
}

type ZonesService struct {
	client *edgeclient.Client
}

func NewZones(c *edgeclient.Client) *ZonesService {
	return &ZonesService{client: c}
}

func (s *ZonesService) Get(ctx context.Context, zoneID string) (Zone, error) {
	return edgeclient.Execute[Zone](ctx, s.client, &edgeclient.Request{
		Method: http.MethodGet,
		Path:   "/zones/" + url.PathEscape(zoneID),
	})
}

func (s *ZonesService) Create(ctx context.Context, params ZoneParams) (Zone, error) {
	body, err := marshalParams(params)
	if err != nil {
		return Zone{}, err
	}
	return edgeclient.Execute[Zone](ctx, s.client, &edgeclient.Request{
		Method: http.MethodPost,
		Path:   "/zones",
		Body:   body,
	})
}

func (s *ZonesService) Delete(ctx context.Context, zoneID string) error {
	_, err := edgeclient.Execute[Zone](ctx, s.client, &edgeclient.Request{
		Method: http.MethodDelete,
		Path:   "/zones/" + url.PathEscape(zoneID),
	})
	return err
}

// List lazily walks all zones matching the options, one page per fetch.
func (s *ZonesService) List(ctx context.Context, opts ZoneListOptions) iter.Seq2[Zone, error] {
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	return edgeclient.PaginatePages[Zone](ctx, s.client, 1, func(page int) *edgeclient.Request {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", strconv.Itoa(perPage))
		if opts.Name != "" {
			q.Set("name", opts.Name)
		}
		if opts.Status != "" {
			q.Set("status", opts.Status)
		}
		return &edgeclient.Request{Method: http.MethodGet, Path: "/zones", Query: q}
	})
}
