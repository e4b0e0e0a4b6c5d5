// pagination.go
// --------------
// The pagination engine: two strategies producing lazy, forward-only,
// non-restartable sequences. Consumption drives fetching one page at a
// time; nothing is prefetched beyond the current page. A failure on an
// intermediate page is yielded as the terminal element, after everything
// already fetched has been delivered.
package edgeclient

import (
	"context"
	"iter"
)

// PaginatePages walks a page-number endpoint starting at startPage (pages
// are 1-based; pass 1 unless the caller wants to resume mid-listing). The
// builder is invoked once per page and must re-attach any filters itself.
//
// Termination: while the server reports total_pages, the walk stops at
// page >= total_pages. When total_pages is 0 (server did not compute a
// total) the walk instead continues while the current page came back full
// (item count >= per_page) and stops on the first short or empty page.
func PaginatePages[T any](ctx context.Context, c *Client, startPage int, build func(page int) *Request) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		page := startPage
		if page < 1 {
			page = 1
		}
		for {
			if err := ctx.Err(); err != nil {
				yield(zero, c.terminal(ctx, err))
				return
			}

			items, info, err := executeEnvelope[[]T](ctx, c, build(page))
			if err != nil {
				yield(zero, err)
				return
			}
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}

			if info == nil {
				return
			}
			if info.TotalPages > 0 {
				if page >= info.TotalPages {
					return
				}
			} else {
				// Unknown total: a short page means we are done.
				if info.PerPage <= 0 || len(items) < info.PerPage {
					return
				}
			}
			page++
		}
	}
}

// PaginateCursor walks a cursor endpoint. The builder is called with ""
// for the first page and with the server-issued token afterwards; it must
// re-attach caller-supplied filters unchanged on every call. The walk ends
// when a response carries no cursor.
func PaginateCursor[T any](ctx context.Context, c *Client, build func(cursor string) *Request) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		cursor := ""
		for {
			if err := ctx.Err(); err != nil {
				yield(zero, c.terminal(ctx, err))
				return
			}

			items, info, err := executeEnvelope[[]T](ctx, c, build(cursor))
			if err != nil {
				yield(zero, err)
				return
			}
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}

			cursor = info.nextCursor()
			if cursor == "" {
				return
			}
		}
	}
}

// Collect drains a paginated sequence into a slice, stopping at the first
// failure. Convenience for callers that do not need laziness.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for item, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
	return out, nil
}
