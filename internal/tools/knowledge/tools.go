// Package knowledge provides the Help Center article search tool and the
// knowledge-base resource.
package knowledge

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/mcp-zendesk/internal/server"
	"github.com/giantswarm/mcp-zendesk/internal/tools"
	"github.com/giantswarm/mcp-zendesk/internal/tools/output"
)

var articlesSpec = output.OptionSpec{MaxLimit: output.AbsoluteMaxLimit}

// RegisterKnowledgeTools registers the Help Center tools and the
// knowledge-base resource with the MCP server
func RegisterKnowledgeTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// search_articles tool
	searchOpts := []mcp.ToolOption{
		mcp.WithDescription("Search Help Center articles. Use it to find documented answers before drafting a ticket response."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Words to search for in article titles and bodies"),
		),
		mcp.WithString("locale",
			mcp.Description("Restrict results to a locale such as en-us"),
		),
	}
	searchOpts = append(searchOpts, tools.AddOutputParams(articlesSpec)...)
	if err := tools.AddTool(s, sc, mcp.NewTool("search_articles", searchOpts...), handleSearchArticles); err != nil {
		return err
	}

	h := NewResourceHandler(sc)
	s.AddResource(h.KnowledgeBaseResource(), h.HandleKnowledgeBase)
	return nil
}
