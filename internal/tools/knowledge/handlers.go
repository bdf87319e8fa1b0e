package knowledge

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/mcp-zendesk/internal/server"
	"github.com/giantswarm/mcp-zendesk/internal/tools"
	"github.com/giantswarm/mcp-zendesk/internal/tools/output"
	"github.com/giantswarm/mcp-zendesk/internal/zendesk"
)

// handleSearchArticles runs a Help Center search and returns the bounded
// article envelope.
func handleSearchArticles(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	query, err := tools.StringArg(args, "query", true)
	if err != nil {
		return tools.ErrorResult(err), nil
	}
	locale, err := tools.StringArg(args, "locale", false)
	if err != nil {
		return tools.ErrorResult(err), nil
	}
	opts, err := tools.ParseOptions(sc, args, articlesSpec)
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	articles, err := sc.ZendeskClient().SearchArticles(ctx, query, zendesk.ListOptions{})
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	records := articles.Records
	params := map[string]interface{}{}
	if locale != "" {
		params["locale"] = locale
		records = byLocale(records, locale)
	}

	return tools.Respond(ctx, sc, tools.Records(records), output.EntityArticle, opts, output.QueryMeta{
		Query:    query,
		Params:   params,
		Warnings: tools.CollectionWarnings(articles),
	})
}

func byLocale(articles []zendesk.Record, locale string) []zendesk.Record {
	var out []zendesk.Record
	for _, a := range articles {
		if strings.EqualFold(zendesk.String(a, "locale"), locale) {
			out = append(out, a)
		}
	}
	return out
}
