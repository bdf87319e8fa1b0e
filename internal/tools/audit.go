// Package tools provides shared utilities and types for MCP tool implementations.
package tools

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/mcp-zendesk/internal/instrumentation"
	"github.com/giantswarm/mcp-zendesk/internal/logging"
	"github.com/giantswarm/mcp-zendesk/internal/server"
)

// ToolHandler is the signature for MCP tool handler functions that take ServerContext.
type ToolHandler func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error)

type invocationKey struct{}

// invocationFromContext returns the audit record of the running call, if any.
func invocationFromContext(ctx context.Context) *instrumentation.ToolInvocation {
	ti, _ := ctx.Value(invocationKey{}).(*instrumentation.ToolInvocation)
	return ti
}

// AddTool validates the tool's arguments against its input schema, wraps the
// handler with audit logging and registers it.
func AddTool(s *mcpserver.MCPServer, sc *server.ServerContext, tool mcp.Tool, handler ToolHandler) error {
	schema, err := CompileArgSchema(tool)
	if err != nil {
		return err
	}
	s.AddTool(tool, WrapWithAuditLogging(tool.Name, WithArgValidation(schema, handler), sc))
	return nil
}

// WithArgValidation rejects calls whose arguments do not match schema
// before handler runs.
func WithArgValidation(schema *ArgSchema, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
		if err := schema.Validate(request.GetArguments()); err != nil {
			return ErrorResult(err), nil
		}
		return handler(ctx, request, sc)
	}
}

// WrapWithAuditLogging wraps a tool handler with audit logging.
// This function creates a wrapper that automatically captures:
//   - Tool invocation timing
//   - The Zendesk agent the server acts as
//   - Ticket ids from request arguments
//   - The entity and mode of the returned envelope
//   - Success/error status from the handler result
//   - OpenTelemetry trace context for correlation
//
// If no instrumentation provider is available, the handler is called without audit logging.
func WrapWithAuditLogging(
	toolName string,
	handler ToolHandler,
	sc *server.ServerContext,
) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		provider := sc.InstrumentationProvider()
		if provider == nil || provider.AuditLogger() == nil {
			return handler(ctx, request, sc)
		}

		args := request.GetArguments()

		ctx, span := instrumentation.StartToolSpan(ctx, toolName,
			instrumentation.NewSpanAttributeBuilder().WithTool(toolName).Build()...)
		defer span.End()

		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx).
			WithUser(sc.Config().AgentEmail).
			WithMutating(IsMutatingCall(toolName, args))
		extractAuditInfoFromArgs(invocation, args)

		ctx = context.WithValue(ctx, invocationKey{}, invocation)

		result, err := handler(ctx, request, sc)

		switch {
		case err != nil:
			invocation.CompleteWithError(err)
			instrumentation.SetSpanError(span, err)
		case result != nil && result.IsError:
			// MCP tool errors are returned in the result, not as Go errors
			invocation.Complete(false, nil)
			if len(result.Content) > 0 {
				if textContent, ok := result.Content[0].(mcp.TextContent); ok {
					invocation.Error = textContent.Text
				}
			}
			instrumentation.SetSpanError(span, errors.New(invocation.Error))
			sc.Logger().Debug("Tool call returned an error",
				logging.Tool(toolName),
				logging.Status(logging.StatusError),
				"error", invocation.Error)
		default:
			invocation.CompleteSuccess()
			instrumentation.SetSpanSuccess(span)
		}

		provider.Metrics().RecordToolInvocation(ctx, toolName, invocation.Status(), invocation.Duration)
		provider.AuditLogger().LogToolInvocation(invocation)

		return result, err
	}
}

// extractAuditInfoFromArgs records the tickets a call names.
func extractAuditInfoFromArgs(invocation *instrumentation.ToolInvocation, args map[string]interface{}) {
	if id, ok, err := Int64Arg(args, "ticket_id", false); ok && err == nil {
		invocation.WithTickets(id)
		return
	}
	if ids, err := Int64SliceArg(args, "ticket_ids", false); err == nil && len(ids) > 0 {
		invocation.WithTickets(ids...)
	}
}
