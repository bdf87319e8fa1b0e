package zendesk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// SearchManager runs Zendesk search queries.
type SearchManager interface {
	// Search runs query and gathers matching records up to the cap.
	Search(ctx context.Context, query string, opts SearchOptions) (*Collection, error)

	// SearchCount returns how many records match query without fetching them.
	SearchCount(ctx context.Context, query string) (int, error)
}

// SearchOptions controls ordering and the record cap of a search.
type SearchOptions struct {
	ListOptions

	// SortBy is a Zendesk sort field such as created_at or priority.
	SortBy string

	// SortOrder is "asc" or "desc".
	SortOrder string
}

// TicketQuery scopes a free-form query to tickets unless it names a type.
func TicketQuery(query string) string {
	query = strings.TrimSpace(query)
	if strings.Contains(query, "type:") {
		return query
	}
	if query == "" {
		return "type:ticket"
	}
	return "type:ticket " + query
}

func (c *httpClient) Search(ctx context.Context, query string, opts SearchOptions) (*Collection, error) {
	params := url.Values{"query": {query}}
	if opts.SortBy != "" {
		params.Set("sort_by", opts.SortBy)
	}
	if opts.SortOrder != "" {
		params.Set("sort_order", opts.SortOrder)
	}
	return c.collect(ctx, request{
		method:   http.MethodGet,
		endpoint: EndpointSearch,
		path:     "search.json",
		query:    params,
		resource: "search results",
	}, "results", c.maxRecords(opts.ListOptions))
}

func (c *httpClient) SearchCount(ctx context.Context, query string) (int, error) {
	var body struct {
		Count int `json:"count"`
	}
	err := c.do(ctx, request{
		method:   http.MethodGet,
		endpoint: EndpointSearch,
		path:     "search/count.json",
		query:    url.Values{"query": {query}},
		resource: "search count",
	}, &body)
	if err != nil {
		return 0, err
	}
	return body.Count, nil
}
