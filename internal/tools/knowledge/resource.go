package knowledge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/mcp-zendesk/internal/kb"
	"github.com/giantswarm/mcp-zendesk/internal/server"
)

// KnowledgeBaseURI addresses the Help Center resource.
const KnowledgeBaseURI = "zendesk://knowledge-base"

// ResourceHandler serves the knowledge-base resource from the server's
// knowledge-base cache.
type ResourceHandler struct {
	sc *server.ServerContext
}

// NewResourceHandler creates a ResourceHandler.
func NewResourceHandler(sc *server.ServerContext) *ResourceHandler {
	return &ResourceHandler{sc: sc}
}

// KnowledgeBaseResource returns the MCP resource definition.
func (h *ResourceHandler) KnowledgeBaseResource() mcp.Resource {
	return mcp.NewResource(
		KnowledgeBaseURI,
		"Zendesk Knowledge Base",
		mcp.WithResourceDescription("Help Center sections with their articles. Cached for an hour."),
		mcp.WithMIMEType("application/json"),
	)
}

// knowledgeBaseDocument is the JSON served for the resource.
type knowledgeBaseDocument struct {
	KnowledgeBase []kb.Section `json:"knowledge_base"`
	Metadata      kb.Metadata  `json:"metadata"`
	Cached        bool         `json:"cached"`
}

// HandleKnowledgeBase returns the knowledge base, loading it on a cache miss.
func (h *ResourceHandler) HandleKnowledgeBase(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if req.Params.URI != KnowledgeBaseURI {
		return nil, fmt.Errorf("unknown resource %q", req.Params.URI)
	}

	base, hit, err := h.sc.KnowledgeBaseCache().Get(ctx, kb.NewLoader(h.sc.ZendeskClient()))
	if err != nil {
		h.sc.Logger().Error("Failed to load knowledge base", "error", err)
		return nil, fmt.Errorf("failed to load knowledge base: %w", err)
	}

	data, err := json.MarshalIndent(knowledgeBaseDocument{
		KnowledgeBase: base.Sections,
		Metadata:      base.Metadata,
		Cached:        hit,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode knowledge base: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
