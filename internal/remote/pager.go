package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// decodeFunc turns one page's raw JSON body into items plus the URL of
// the next page ("" when there is none).
type decodeFunc[T any] func(body []byte) (items []T, nextURL string, err error)

// Pager implements spec.md §4.4's pagination contract: follow
// links.next until null or revisited, seeding page[size]=100 on the
// first request when the caller didn't already specify one. It is a
// synchronous, pull-based cursor rather than a buffering async
// generator, matching the Design Notes' "lazy async stream; do not
// eagerly buffer" guidance without requiring goroutines to model it.
type Pager[T any] struct {
	client  *Client
	nextURL string
	visited map[string]bool
	decode  decodeFunc[T]
	done    bool
}

func newPager[T any](c *Client, firstURL string, decode decodeFunc[T]) *Pager[T] {
	return &Pager[T]{
		client:  c,
		nextURL: withDefaultPageSize(firstURL),
		visited: make(map[string]bool),
		decode:  decode,
	}
}

// Next returns the next page of items. A nil, nil result means
// pagination is exhausted.
func (p *Pager[T]) Next(ctx context.Context) ([]T, error) {
	if p.done || p.nextURL == "" {
		return nil, nil
	}

	next := p.nextURL
	if p.visited[next] {
		// A links.next cycle; stop rather than loop forever (spec.md
		// §4.4, property 5).
		p.done = true
		return nil, nil
	}
	p.visited[next] = true

	resp, err := p.client.Get(ctx, next)
	if err != nil {
		return nil, fmt.Errorf("remote: fetch page %s: %w", next, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("remote: read page body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote: unexpected status %d fetching %s", resp.StatusCode, next)
	}

	items, nextURL, err := p.decode(body)
	if err != nil {
		return nil, fmt.Errorf("remote: decode page %s: %w", next, err)
	}

	p.nextURL = nextURL
	if nextURL == "" {
		p.done = true
	}
	return items, nil
}

func withDefaultPageSize(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Get("page[size]") == "" {
		q.Set("page[size]", "100")
	}
	u.RawQuery = q.Encode()
	return u.String()
}
