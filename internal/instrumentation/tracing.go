package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the default tracer name for the mcp-zendesk package.
const TracerName = "github.com/giantswarm/mcp-zendesk"

// Span attribute keys.
const (
	SpanAttrTool       = "mcp.tool"
	SpanAttrEntity     = "mcp.entity"
	SpanAttrMode       = "mcp.mode"
	SpanAttrTotalFound = "mcp.total_found"
	SpanAttrShowing    = "mcp.showing"
	SpanAttrTruncated  = "mcp.truncated"

	SpanAttrEndpoint   = "zendesk.endpoint"
	SpanAttrTicketID   = "zendesk.ticket_id"
	SpanAttrStatusCode = "zendesk.status_code"
	SpanAttrRequestID  = "zendesk.request_id"
	// SpanAttrRetryAfter is in seconds; zero means Zendesk sent no hint.
	SpanAttrRetryAfter = "zendesk.retry_after_seconds"
)

// SpanAttributeBuilder collects span attributes under the keys above.
// Ticket bodies and agent addresses are never recorded.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewSpanAttributeBuilder creates an empty builder.
func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{attrs: make([]attribute.KeyValue, 0, 6)}
}

// WithTool adds the MCP tool name.
func (b *SpanAttributeBuilder) WithTool(tool string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.String(SpanAttrTool, tool))
	return b
}

// WithTicket adds the ticket id. Zero ids are skipped.
func (b *SpanAttributeBuilder) WithTicket(id int64) *SpanAttributeBuilder {
	if id != 0 {
		b.attrs = append(b.attrs, attribute.Int64(SpanAttrTicketID, id))
	}
	return b
}

// WithEnvelope adds the shape of an assembled response.
func (b *SpanAttributeBuilder) WithEnvelope(entity, mode string, totalFound, showing int, truncated bool) *SpanAttributeBuilder {
	b.attrs = append(b.attrs,
		attribute.String(SpanAttrEntity, entity),
		attribute.String(SpanAttrMode, mode),
		attribute.Int(SpanAttrTotalFound, totalFound),
		attribute.Int(SpanAttrShowing, showing),
		attribute.Bool(SpanAttrTruncated, truncated),
	)
	return b
}

// WithEndpoint adds the Zendesk endpoint class. Empty classes are skipped.
func (b *SpanAttributeBuilder) WithEndpoint(endpoint string) *SpanAttributeBuilder {
	if endpoint != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrEndpoint, endpoint))
	}
	return b
}

// WithResponse adds the HTTP status and the request id of a Zendesk call.
func (b *SpanAttributeBuilder) WithResponse(statusCode int, requestID string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs,
		attribute.Int(SpanAttrStatusCode, statusCode),
		attribute.String(SpanAttrRequestID, requestID),
	)
	return b
}

// Build returns the collected attributes.
func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

// StartToolSpan starts the server span of one MCP tool call.
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return startSpan(ctx, "tool."+toolName, trace.SpanKindServer, attribute.String(SpanAttrTool, toolName), attrs)
}

// StartZendeskSpan starts the client span of one Zendesk API request.
// Retries by the rate budget get a span each.
func StartZendeskSpan(ctx context.Context, endpoint string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return startSpan(ctx, "zendesk."+endpoint, trace.SpanKindClient, attribute.String(SpanAttrEndpoint, endpoint), attrs)
}

func startSpan(ctx context.Context, name string, kind trace.SpanKind, first attribute.KeyValue, rest []attribute.KeyValue) (context.Context, trace.Span) {
	attrs := append([]attribute.KeyValue{first}, rest...)
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(kind),
	)
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddSpanEvent adds an event to the span with optional attributes.
func AddSpanEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// GetTraceID returns the trace id of the span in ctx, or "" without one.
func GetTraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// GetSpanID returns the span id of the span in ctx, or "" without one.
func GetSpanID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.SpanID().String()
	}
	return ""
}
