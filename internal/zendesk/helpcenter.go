package zendesk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// HelpCenterManager reads Help Center sections and articles.
type HelpCenterManager interface {
	// SearchArticles runs a Help Center full-text search.
	SearchArticles(ctx context.Context, query string, opts ListOptions) (*Collection, error)

	// ListSections returns every Help Center section.
	ListSections(ctx context.Context) (*Collection, error)

	// ListSectionArticles returns the articles of one section.
	ListSectionArticles(ctx context.Context, sectionID int64) (*Collection, error)
}

func (c *httpClient) SearchArticles(ctx context.Context, query string, opts ListOptions) (*Collection, error) {
	return c.collect(ctx, request{
		method:   http.MethodGet,
		endpoint: EndpointHelpCenter,
		path:     "help_center/articles/search.json",
		query:    url.Values{"query": {query}},
		resource: "articles",
	}, "results", c.maxRecords(opts))
}

func (c *httpClient) ListSections(ctx context.Context) (*Collection, error) {
	return c.collect(ctx, request{
		method:   http.MethodGet,
		endpoint: EndpointHelpCenter,
		path:     "help_center/sections.json",
		resource: "sections",
	}, "sections", c.config.MaxRecords)
}

func (c *httpClient) ListSectionArticles(ctx context.Context, sectionID int64) (*Collection, error) {
	return c.collect(ctx, request{
		method:   http.MethodGet,
		endpoint: EndpointHelpCenter,
		path:     fmt.Sprintf("help_center/sections/%d/articles.json", sectionID),
		resource: "section",
		id:       sectionID,
	}, "articles", c.config.MaxRecords)
}
