package tools

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/mcp-zendesk/internal/instrumentation"
	"github.com/giantswarm/mcp-zendesk/internal/server"
	"github.com/giantswarm/mcp-zendesk/internal/tools/output"
)

// Respond assembles raw into a bounded envelope and returns it as the tool
// result. Assembly failures become tool errors.
func Respond(
	ctx context.Context,
	sc *server.ServerContext,
	raw []output.Record,
	entity output.EntityType,
	opts *output.Options,
	meta output.QueryMeta,
) (*mcp.CallToolResult, error) {
	_, data, err := Assemble(ctx, sc, raw, entity, opts, meta)
	if err != nil {
		return ErrorResult(err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// Assemble renders raw with the server's assembler and records the outcome
// on the running invocation and span. Tools that wrap the envelope in a
// larger report use it instead of Respond.
func Assemble(
	ctx context.Context,
	sc *server.ServerContext,
	raw []output.Record,
	entity output.EntityType,
	opts *output.Options,
	meta output.QueryMeta,
) (*output.Envelope, []byte, error) {
	env, data, err := sc.Assembler().Assemble(raw, entity, opts, meta)
	if err != nil {
		return nil, nil, err
	}

	if ti := invocationFromContext(ctx); ti != nil {
		ti.WithResponse(string(entity), string(env.Mode))
	}

	instrumentation.AddSpanEvent(trace.SpanFromContext(ctx), "envelope.assembled",
		instrumentation.NewSpanAttributeBuilder().
			WithEnvelope(string(entity), string(env.Mode), env.TotalFound, env.Showing, env.Truncated).
			Build()...)

	if env.Degraded {
		sc.Logger().Warn("Response degraded to a hard cut",
			"entity", string(entity), "total_found", env.TotalFound, "showing", env.Showing)
	}

	return env, data, nil
}

// Embeddable returns envelope data as a JSON value for nesting in a report.
// An envelope hard-cut to fit its budget is no longer valid JSON and is
// nested as a string.
func Embeddable(data []byte) json.RawMessage {
	if json.Valid(data) {
		return data
	}
	quoted, _ := json.Marshal(string(data))
	return quoted
}

// ParseOptions parses the response options for a tool with the server's
// output configuration.
func ParseOptions(sc *server.ServerContext, args map[string]interface{}, spec output.OptionSpec) (*output.Options, error) {
	return output.ParseOptions(args, spec, sc.Config().Output)
}
