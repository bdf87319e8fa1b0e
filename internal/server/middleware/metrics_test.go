package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcp-zendesk/internal/instrumentation"
)

func newMetricsProvider(t *testing.T) (*instrumentation.Provider, *prometheus.Registry) {
	t.Helper()
	registry := prometheus.NewRegistry()
	provider, err := instrumentation.NewProvider(context.Background(), instrumentation.Config{
		Enabled:         true,
		ServiceName:     "mcp-zendesk-test",
		MetricsExporter: instrumentation.MetricsExporterPrometheus,
		TracingExporter: instrumentation.TracingExporterNone,
	}, instrumentation.WithPrometheusRegisterer(registry))
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider, registry
}

// requestLabels returns "method path status" for every http_requests_total
// series.
func requestLabels(t *testing.T, registry *prometheus.Registry) []string {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)

	var series []string
	for _, family := range families {
		if !strings.HasPrefix(family.GetName(), "http_requests_total") {
			continue
		}
		for _, m := range family.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			series = append(series, labels["method"]+" "+labels["path"]+" "+labels["status"])
		}
	}
	return series
}

func TestStatusRecorder(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    int
	}{
		{name: "nothing written", handler: func(http.ResponseWriter, *http.Request) {}, want: http.StatusOK},
		{name: "body only", handler: func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("{}")) }, want: http.StatusOK},
		{name: "explicit status", handler: func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTooManyRequests) }, want: http.StatusTooManyRequests},
		{
			name: "first status wins",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusAccepted)
				w.WriteHeader(http.StatusInternalServerError)
			},
			want: http.StatusAccepted,
		},
		{
			name: "status after body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("event: message\n"))
				w.WriteHeader(http.StatusInternalServerError)
			},
			want: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
			tt.handler(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))
			assert.Equal(t, tt.want, rec.statusCode())
		})
	}
}

func TestStatusRecorderStreaming(t *testing.T) {
	underlying := httptest.NewRecorder()
	rec := &statusRecorder{ResponseWriter: underlying}

	var w http.ResponseWriter = rec
	flusher, ok := w.(http.Flusher)
	require.True(t, ok, "SSE needs a flusher")
	flusher.Flush()

	assert.True(t, underlying.Flushed)
	assert.Same(t, underlying, rec.Unwrap())
}

func TestHTTPMetrics_PassThroughWhenDisabled(t *testing.T) {
	disabled, err := instrumentation.NewProvider(context.Background(), instrumentation.Config{})
	require.NoError(t, err)

	for name, provider := range map[string]*instrumentation.Provider{"nil": nil, "disabled": disabled} {
		t.Run(name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusTeapot)
				_, _ = w.Write([]byte("body"))
			})
			rec := httptest.NewRecorder()

			HTTPMetrics(provider, []string{"/mcp"})(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp", nil))

			assert.Equal(t, http.StatusTeapot, rec.Code)
			assert.Equal(t, "body", rec.Body.String())
		})
	}
}

func TestHTTPMetrics_BoundsLabels(t *testing.T) {
	provider, registry := newMetricsProvider(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/zendesk/mcp" || r.URL.Path == "/zendesk/mcp/" {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		http.NotFound(w, r)
	})
	handler := HTTPMetrics(provider, []string{"/zendesk/mcp", "/healthz"})(next)

	requests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/zendesk/mcp"},
		{http.MethodPost, "/zendesk/mcp/"},
		{http.MethodPost, "/wp-login.php"},
		{http.MethodPost, "/zendesk/mcp/abc123"},
		{"PROPFIND", "/zendesk/mcp"},
	}
	for _, req := range requests {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(req.method, req.path, nil))
	}

	assert.ElementsMatch(t, []string{
		"POST /zendesk/mcp 202",
		"POST other 404",
		"other /zendesk/mcp 202",
	}, requestLabels(t, registry))
}

func TestTrimSlash(t *testing.T) {
	assert.Equal(t, "/", trimSlash("/"))
	assert.Equal(t, "/mcp", trimSlash("/mcp/"))
	assert.Equal(t, "/mcp", trimSlash("/mcp"))
	assert.Equal(t, "", trimSlash(""))
}
