package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/mcp-zendesk/internal/instrumentation"
	"github.com/giantswarm/mcp-zendesk/internal/logging"
	"github.com/giantswarm/mcp-zendesk/internal/server"
)

// httpConfig maps the serve settings onto the HTTP transport config.
func (c ServeConfig) httpConfig() server.HTTPConfig {
	return server.HTTPConfig{
		ServerType:       c.Transport,
		Endpoint:         c.HTTPEndpoint,
		SSEEndpoint:      c.SSEEndpoint,
		MessageEndpoint:  c.MessageEndpoint,
		DisableStreaming: c.DisableStreaming,
		MaxRequestBytes:  c.Security.MaxRequestBytes,
		AuthToken:        c.Security.AuthToken,
		EnableHSTS:       c.Security.EnableHSTS,
		AllowedOrigins:   c.Security.AllowedOrigins,
	}
}

// runHTTPServer runs the server with the sse or streamable-http transport
// until ctx is cancelled or the listener fails.
func runHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, config ServeConfig, logger *slog.Logger) error {
	httpServer, err := server.NewHTTPServer(mcpSrv, sc, config.httpConfig())
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	if config.Security.AuthToken == "" {
		logger.Warn("MCP endpoints are unauthenticated; set MCP_AUTH_TOKEN or run behind an authenticating proxy")
	} else {
		logger.Debug("MCP endpoints require a bearer token", "token", logging.SanitizeToken(config.Security.AuthToken))
	}

	provider := sc.InstrumentationProvider()
	var metricsServer *server.MetricsServer
	if config.Metrics.Enabled && provider.Enabled() {
		metricsServer, err = startMetricsServer(config.Metrics, provider, logger)
		if err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	endpoint := config.HTTPEndpoint
	if config.Transport == transportSSE {
		endpoint = config.SSEEndpoint
	}
	logger.Info("HTTP server starting",
		"transport", config.Transport,
		"addr", config.HTTPAddr,
		"endpoint", endpoint,
		"health_endpoints", []string{"/healthz", "/readyz", "/healthz/detailed"})

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(config.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()

		// Shutdown metrics server first
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("error shutting down metrics server", logging.Err(err))
			}
		}

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if metricsServer != nil {
			_ = metricsServer.Shutdown(context.Background())
		}
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		logger.Info("HTTP server stopped normally")
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}

// startMetricsServer starts the dedicated metrics server on a separate port.
// This isolates Prometheus metrics from the main application traffic for security.
func startMetricsServer(config MetricsServeConfig, provider *instrumentation.Provider, logger *slog.Logger) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    config.Addr,
		Enabled:                 config.Enabled,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	go func() {
		if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", logging.Err(err))
		}
	}()

	logger.Info("metrics server started", "addr", metricsServer.Addr(), "endpoint", "/metrics")
	return metricsServer, nil
}
