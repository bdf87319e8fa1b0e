package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcp-zendesk/internal/instrumentation"
)

func TestNewMetricsServer(t *testing.T) {
	tests := []struct {
		name        string
		config      MetricsServerConfig
		wantAddr    string
		errContains string
	}{
		{
			name:        "nil instrumentation provider",
			config:      MetricsServerConfig{Addr: ":9090"},
			errContains: "instrumentation provider is required",
		},
		{
			name:     "valid config uses default addr",
			config:   MetricsServerConfig{InstrumentationProvider: createTestProvider(t, prometheus.NewRegistry())},
			wantAddr: DefaultMetricsAddr,
		},
		{
			name:     "valid config with custom addr",
			config:   MetricsServerConfig{Addr: ":9091", InstrumentationProvider: createTestProvider(t, prometheus.NewRegistry())},
			wantAddr: ":9091",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, err := NewMetricsServer(tt.config)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, server.Addr())
		})
	}
}

func TestMetricsServer_ServesRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	provider := createTestProvider(t, registry)
	provider.Metrics().RecordZendeskCall(context.Background(), "tickets.show", http.StatusOK, 20*time.Millisecond)

	server, err := NewMetricsServer(MetricsServerConfig{
		InstrumentationProvider: provider,
		Gatherer:                registry,
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "zendesk_api_calls")
	assert.Contains(t, rec.Body.String(), `endpoint="tickets.show"`)

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestMetricsServer_ShutdownWithoutStart(t *testing.T) {
	server, err := NewMetricsServer(MetricsServerConfig{
		Addr:                    "127.0.0.1:0",
		InstrumentationProvider: createTestProvider(t, prometheus.NewRegistry()),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, server.Shutdown(ctx))
}

// createTestProvider creates an enabled provider whose Prometheus exporter
// registers with reg, so tests do not share the default registry.
func createTestProvider(t *testing.T, reg *prometheus.Registry) *instrumentation.Provider {
	t.Helper()
	provider, err := instrumentation.NewProvider(context.Background(), instrumentation.Config{
		Enabled:         true,
		ServiceName:     "mcp-zendesk-test",
		MetricsExporter: instrumentation.MetricsExporterPrometheus,
		TracingExporter: instrumentation.TracingExporterNone,
	}, instrumentation.WithPrometheusRegisterer(reg))
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider
}
