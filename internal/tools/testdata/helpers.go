package testdata

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcp-zendesk/internal/server"
	"github.com/giantswarm/mcp-zendesk/internal/zendesk"
)

// NewServerContext builds a server context around client for handler tests.
func NewServerContext(t testing.TB, client zendesk.Client, opts ...server.Option) *server.ServerContext {
	t.Helper()

	all := append([]server.Option{
		server.WithZendeskClient(client),
		server.WithLogger(&MockLogger{}),
	}, opts...)

	sc, err := server.NewServerContext(context.Background(), all...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

// Request builds a tool call carrying args.
func Request(name string, args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

// ResultText returns the text of the first content item of result.
func ResultText(t testing.TB, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

// DecodeResult decodes a successful JSON result.
func DecodeResult(t testing.TB, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	text := ResultText(t, result)
	require.False(t, result.IsError, "unexpected tool error: %s", text)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text), &out), "result is not JSON: %s", text)
	return out
}

// Items returns the items of a decoded envelope.
func Items(t testing.TB, envelope map[string]interface{}) []map[string]interface{} {
	t.Helper()
	raw, ok := envelope["items"].([]interface{})
	require.True(t, ok, "envelope has no items: %v", envelope)
	out := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		require.True(t, ok)
		out = append(out, m)
	}
	return out
}

// Ticket builds a ticket fixture.
func Ticket(id int64, subject, status, priority string) zendesk.Record {
	return zendesk.Record{
		"id":          float64(id),
		"subject":     subject,
		"description": "Description of " + subject,
		"status":      status,
		"priority":    priority,
		"tags":        []interface{}{},
		"created_at":  "2026-01-02T10:00:00Z",
		"updated_at":  "2026-01-03T10:00:00Z",
	}
}
