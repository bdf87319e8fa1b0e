package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency and DRY
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrEndpoint  = "endpoint"
	attrTool      = "tool"
	attrEntity    = "entity"
	attrMode      = "mode"
	attrTruncated = "truncated"
	attrDegraded  = "degraded"
	attrHinted    = "hinted"
	attrReason    = "reason"
	attrBackend   = "backend"
)

var durationBuckets = []float64{0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0}

// Metrics provides methods for recording observability metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Zendesk API metrics
	zendeskCallsTotal   metric.Int64Counter
	zendeskCallDuration metric.Float64Histogram

	// Rate budget metrics
	throttlesTotal   metric.Int64Counter
	backoffWait      metric.Float64Histogram
	unavailableTotal metric.Int64Counter

	// Response engine metrics
	envelopesTotal metric.Int64Counter

	// Tool metrics
	toolCallsTotal   metric.Int64Counter
	toolCallDuration metric.Float64Histogram

	// Knowledge-base cache metrics
	cacheHitsTotal   metric.Int64Counter
	cacheMissesTotal metric.Int64Counter

	// detailedLabels adds the tool label to envelope metrics.
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether the tool label is included
// on envelope metrics.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.zendeskCallsTotal, err = meter.Int64Counter(
		"zendesk_api_calls_total",
		metric.WithDescription("Total number of Zendesk API calls by endpoint class and status"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create zendesk_api_calls_total counter: %w", err)
	}

	m.zendeskCallDuration, err = meter.Float64Histogram(
		"zendesk_api_call_duration_seconds",
		metric.WithDescription("Zendesk API call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create zendesk_api_call_duration_seconds histogram: %w", err)
	}

	m.throttlesTotal, err = meter.Int64Counter(
		"zendesk_throttles_total",
		metric.WithDescription("Total number of rate-limit rejections from Zendesk"),
		metric.WithUnit("{rejection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create zendesk_throttles_total counter: %w", err)
	}

	m.backoffWait, err = meter.Float64Histogram(
		"zendesk_backoff_wait_seconds",
		metric.WithDescription("Time callers spent waiting for the rate budget to recover"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2, 4, 8, 16, 32, 60),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create zendesk_backoff_wait_seconds histogram: %w", err)
	}

	m.unavailableTotal, err = meter.Int64Counter(
		"zendesk_unavailable_total",
		metric.WithDescription("Total number of calls that failed because Zendesk was unavailable"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create zendesk_unavailable_total counter: %w", err)
	}

	m.envelopesTotal, err = meter.Int64Counter(
		"mcp_envelopes_total",
		metric.WithDescription("Total number of response envelopes assembled"),
		metric.WithUnit("{envelope}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_envelopes_total counter: %w", err)
	}

	m.toolCallsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolCallDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool invocation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	m.cacheHitsTotal, err = meter.Int64Counter(
		"kb_cache_hits_total",
		metric.WithDescription("Total number of knowledge-base cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kb_cache_hits_total counter: %w", err)
	}

	m.cacheMissesTotal, err = meter.Int64Counter(
		"kb_cache_misses_total",
		metric.WithDescription("Total number of knowledge-base cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kb_cache_misses_total counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordZendeskCall records one HTTP round trip to Zendesk. endpoint is a
// fixed class such as "tickets.show", never a raw path.
func (m *Metrics) RecordZendeskCall(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	if m == nil || m.zendeskCallsTotal == nil || m.zendeskCallDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrEndpoint, endpoint),
		attribute.String(attrStatus, ClassifyStatusCode(statusCode)),
	}

	m.zendeskCallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.zendeskCallDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordThrottle records a 429 from Zendesk; hinted reports whether a
// Retry-After header was present.
func (m *Metrics) RecordThrottle(ctx context.Context, hinted bool) {
	if m == nil || m.throttlesTotal == nil {
		return
	}
	m.throttlesTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool(attrHinted, hinted)))
}

// RecordBackoffWait records how long a caller blocked on the rate budget.
func (m *Metrics) RecordBackoffWait(ctx context.Context, wait time.Duration) {
	if m == nil || m.backoffWait == nil {
		return
	}
	m.backoffWait.Record(ctx, wait.Seconds())
}

// RecordUnavailable records a terminal upstream failure.
func (m *Metrics) RecordUnavailable(ctx context.Context, reason string) {
	if m == nil || m.unavailableTotal == nil {
		return
	}
	m.unavailableTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrReason, reason)))
}

// RecordEnvelope records an assembled response envelope.
func (m *Metrics) RecordEnvelope(entity, mode string, truncated, degraded bool) {
	m.RecordToolEnvelope(context.Background(), "", entity, mode, truncated, degraded)
}

// RecordToolEnvelope is RecordEnvelope with a context and the tool name.
// The tool label is only added when detailed labels are enabled.
func (m *Metrics) RecordToolEnvelope(ctx context.Context, tool, entity, mode string, truncated, degraded bool) {
	if m == nil || m.envelopesTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrEntity, entity),
		attribute.String(attrMode, mode),
		attribute.Bool(attrTruncated, truncated),
		attribute.Bool(attrDegraded, degraded),
	}
	if m.detailedLabels && tool != "" {
		attrs = append(attrs, attribute.String(attrTool, tool))
	}

	m.envelopesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordToolInvocation records an MCP tool call with its outcome.
func (m *Metrics) RecordToolInvocation(ctx context.Context, tool, status string, duration time.Duration) {
	if m == nil || m.toolCallsTotal == nil || m.toolCallDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, tool),
		attribute.String(attrStatus, status),
	}

	m.toolCallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolCallDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordCacheHit records a knowledge-base cache hit.
func (m *Metrics) RecordCacheHit(ctx context.Context, backend string) {
	if m == nil || m.cacheHitsTotal == nil {
		return
	}
	m.cacheHitsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrBackend, backend)))
}

// RecordCacheMiss records a knowledge-base cache miss.
func (m *Metrics) RecordCacheMiss(ctx context.Context, backend string) {
	if m == nil || m.cacheMissesTotal == nil {
		return
	}
	m.cacheMissesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrBackend, backend)))
}
