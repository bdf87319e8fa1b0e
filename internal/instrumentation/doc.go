// Package instrumentation provides OpenTelemetry instrumentation for the
// mcp-zendesk server.
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Zendesk API Metrics:
//   - zendesk_api_calls_total: Counter of API calls by endpoint class and status class
//   - zendesk_api_call_duration_seconds: Histogram of API call durations
//   - zendesk_throttles_total: Counter of 429 responses, by whether Retry-After was sent
//   - zendesk_backoff_wait_seconds: Histogram of time spent waiting on the rate budget
//   - zendesk_unavailable_total: Counter of terminal upstream failures by reason
//
// Response Metrics:
//   - mcp_envelopes_total: Counter of assembled envelopes by entity, mode,
//     truncated and degraded
//   - mcp_tool_invocations_total / mcp_tool_duration_seconds: tool calls by tool and status
//   - kb_cache_hits_total / kb_cache_misses_total: knowledge-base cache by backend
//
// Labels never carry ticket ids, user ids, search queries or raw paths.
// Endpoint labels are fixed classes like "tickets.show"; status labels are
// classes from ClassifyStatusCode.
//
// # Tracing
//
// Spans are created for MCP tool invocations (StartToolSpan) and Zendesk
// requests (StartZendeskSpan), the latter nested under the former. Zendesk
// spans carry the status code and X-Request-Id. A 429 is recorded as a
// "throttled" event rather than an error, since the rate budget retries it.
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: false)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: mcp-zendesk)
//   - METRICS_DETAILED_LABELS: add the tool label to envelope metrics
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	budget := upstream.New(cfg, upstream.WithMetrics(provider.Metrics()))
//	assembler := output.NewAssembler(nil, nil, output.WithMetrics(provider.Metrics()))
package instrumentation
