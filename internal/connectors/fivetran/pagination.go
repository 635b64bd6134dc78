package fivetran

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// envelope is the standard response wrapper: {"code": ..., "message": ..., "data": ...}.
type envelope[T any] struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data"`
}

// page is the data payload of list endpoints.
type page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// getData issues a GET and decodes the envelope's data field.
func getData[T any](ctx context.Context, c *Client, path string) (T, error) {
	var zero T
	body, err := c.Request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return zero, err
	}
	var env envelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		return zero, fmt.Errorf("%w: %s: %w", ErrUnexpectedResponse, path, err)
	}
	return env.Data, nil
}

// listAll follows next_cursor until the last page and returns every item.
func listAll[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var all []T
	cursor := ""

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		p, err := getData[page[T]](ctx, c, pagePath(path, cursor))
		if err != nil {
			return nil, err
		}
		all = append(all, p.Items...)

		if p.NextCursor == "" || p.NextCursor == cursor {
			return all, nil
		}
		cursor = p.NextCursor
	}
}

// pagePath appends limit and cursor query parameters.
func pagePath(path, cursor string) string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(PageLimit))
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	return path + "?" + q.Encode()
}
