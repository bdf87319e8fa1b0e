package instrumentation

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// scrape starts a provider backed by its own Prometheus registry, lets record
// write metrics and returns the exposition text.
func scrape(t *testing.T, detailed bool, record func(ctx context.Context, m *Metrics)) string {
	t.Helper()

	reg := prometheus.NewRegistry()
	ctx := context.Background()
	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-metrics-integration",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: MetricsExporterPrometheus,
		TracingExporter: TracingExporterNone,
		DetailedLabels:  detailed,
	}, WithPrometheusRegisterer(reg))
	if err != nil {
		t.Fatalf("Failed to create instrumentation provider: %v", err)
	}
	defer func() { _ = provider.Shutdown(ctx) }()

	record(ctx, provider.Metrics())

	server := httptest.NewServer(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("Failed to fetch metrics: %v", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read metrics body: %v", err)
	}
	return string(body)
}

func recordAllMetrics(ctx context.Context, m *Metrics) {
	m.RecordHTTPRequest(ctx, "POST", "/mcp", 200, 50*time.Millisecond)
	m.RecordZendeskCall(ctx, "tickets.show", 200, 120*time.Millisecond)
	m.RecordZendeskCall(ctx, "search", 429, 80*time.Millisecond)
	m.RecordThrottle(ctx, true)
	m.RecordBackoffWait(ctx, 2*time.Second)
	m.RecordUnavailable(ctx, "throttle_ceiling")
	m.RecordToolEnvelope(ctx, "search_tickets", "ticket", "compact", true, false)
	m.RecordToolInvocation(ctx, "search_tickets", StatusSuccess, 300*time.Millisecond)
	m.RecordCacheHit(ctx, CacheBackendMemory)
	m.RecordCacheMiss(ctx, CacheBackendMemory)
}

// TestAllMetricsExposedViaPrometheus verifies every instrument defined in
// metrics.go is exported once recorded.
func TestAllMetricsExposedViaPrometheus(t *testing.T) {
	output := scrape(t, false, recordAllMetrics)

	expectedMetrics := []string{
		"http_requests_total",
		"http_request_duration_seconds",
		"zendesk_api_calls_total",
		"zendesk_api_call_duration_seconds",
		"zendesk_throttles_total",
		"zendesk_backoff_wait_seconds",
		"zendesk_unavailable_total",
		"mcp_envelopes_total",
		"mcp_tool_invocations_total",
		"mcp_tool_duration_seconds",
		"kb_cache_hits_total",
		"kb_cache_misses_total",
	}

	for _, name := range expectedMetrics {
		if !strings.Contains(output, name) {
			t.Errorf("Missing metric: %s", name)
		}
	}
}

func TestMetricLabelsAreRecorded(t *testing.T) {
	output := scrape(t, false, recordAllMetrics)

	labelTests := []struct {
		description string
		expected    string
	}{
		{"HTTP method label", `method="POST"`},
		{"HTTP path label", `path="/mcp"`},
		{"Zendesk endpoint label", `endpoint="tickets.show"`},
		{"Zendesk status class", `status="2xx"`},
		{"Zendesk throttled class", `status="429"`},
		{"Envelope mode label", `mode="compact"`},
		{"Envelope entity label", `entity="ticket"`},
		{"Cache backend label", `backend="memory"`},
		{"Unavailable reason label", `reason="throttle_ceiling"`},
	}

	for _, tc := range labelTests {
		if !strings.Contains(output, tc.expected) {
			t.Errorf("Missing label %s (%s)", tc.expected, tc.description)
		}
	}

	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(line, "mcp_envelopes_total{") && strings.Contains(line, "tool=") {
			t.Errorf("tool label must not appear on envelopes without detailed labels: %s", line)
		}
	}
}

func TestDetailedLabelsAddTool(t *testing.T) {
	output := scrape(t, true, func(ctx context.Context, m *Metrics) {
		m.RecordToolEnvelope(ctx, "search_tickets", "ticket", "summary", false, false)
	})

	found := false
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(line, "mcp_envelopes_total{") && strings.Contains(line, `tool="search_tickets"`) {
			found = true
		}
	}
	if !found {
		t.Error("expected tool label on envelopes with detailed labels enabled")
	}
}
