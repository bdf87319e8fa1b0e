package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/mcp-zendesk/internal/server/middleware"
)

const (
	// DefaultReadHeaderTimeout is the default timeout for reading request headers
	DefaultReadHeaderTimeout = 10 * time.Second

	// DefaultWriteTimeout is the default timeout for writing responses (long enough for fan-out tools)
	DefaultWriteTimeout = 120 * time.Second

	// DefaultIdleTimeout is the default idle timeout for keepalive connections
	DefaultIdleTimeout = 120 * time.Second

	// DefaultShutdownTimeout is the default timeout for graceful server shutdown
	DefaultShutdownTimeout = 30 * time.Second

	// DefaultMaxRequestBytes caps MCP request bodies. Tool arguments are small;
	// the largest is a bulk update with 100 ids.
	DefaultMaxRequestBytes = 1 << 20
)

// Transport names served over HTTP.
const (
	TransportStreamableHTTP = "streamable-http"
	TransportSSE            = "sse"
)

// HTTPConfig configures the HTTP transports.
type HTTPConfig struct {
	// ServerType is TransportStreamableHTTP or TransportSSE.
	ServerType string

	// Endpoint is the MCP endpoint of the streamable HTTP transport.
	Endpoint string

	// SSEEndpoint and MessageEndpoint are the SSE transport endpoints.
	SSEEndpoint     string
	MessageEndpoint string

	DisableStreaming bool

	// MaxRequestBytes caps request bodies on MCP endpoints. Zero means
	// DefaultMaxRequestBytes; negative disables the limit.
	MaxRequestBytes int64

	// AuthToken, when set, is required as a bearer token on MCP endpoints.
	// Health endpoints stay open for probes.
	AuthToken string

	// HTTP Security Settings
	EnableHSTS     bool   // Enable HSTS header (for reverse proxy scenarios)
	AllowedOrigins string // Comma-separated list of allowed CORS origins
}

// HTTPServer serves an MCP server over HTTP together with the health
// endpoints, wrapped in security, CORS and request metrics middleware.
type HTTPServer struct {
	mcpServer  *mcpserver.MCPServer
	sc         *ServerContext
	health     *HealthChecker
	config     HTTPConfig
	httpServer *http.Server
}

// NewHTTPServer creates an HTTP server for mcpServer. Origins are validated
// here so that misconfiguration fails before listening.
func NewHTTPServer(mcpServer *mcpserver.MCPServer, sc *ServerContext, config HTTPConfig) (*HTTPServer, error) {
	if config.ServerType != TransportStreamableHTTP && config.ServerType != TransportSSE {
		return nil, fmt.Errorf("unsupported server type: %s", config.ServerType)
	}
	if config.Endpoint == "" {
		config.Endpoint = "/mcp"
	}
	if config.SSEEndpoint == "" {
		config.SSEEndpoint = "/sse"
	}
	if config.MessageEndpoint == "" {
		config.MessageEndpoint = "/message"
	}
	if config.MaxRequestBytes == 0 {
		config.MaxRequestBytes = DefaultMaxRequestBytes
	}

	s := &HTTPServer{
		mcpServer: mcpServer,
		sc:        sc,
		health:    NewHealthChecker(sc),
		config:    config,
	}

	handler, err := s.Handler()
	if err != nil {
		return nil, err
	}
	s.httpServer = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}
	// SSE streams are long-lived; a write timeout would cut them.
	if config.ServerType == TransportStreamableHTTP {
		s.httpServer.WriteTimeout = DefaultWriteTimeout
	}
	return s, nil
}

// HealthChecker returns the checker serving the health endpoints.
func (s *HTTPServer) HealthChecker() *HealthChecker {
	return s.health
}

// Handler builds the full HTTP handler.
func (s *HTTPServer) Handler() (http.Handler, error) {
	allowedOrigins, err := middleware.ValidateAllowedOrigins(s.config.AllowedOrigins)
	if err != nil {
		return nil, fmt.Errorf("invalid ALLOWED_ORIGINS: %w", err)
	}

	mux := http.NewServeMux()
	s.health.RegisterHealthEndpoints(mux)
	s.setupMCPRoutes(mux)

	var handler http.Handler = mux
	handler = middleware.CORS(allowedOrigins)(handler)
	handler = middleware.SecurityHeaders(middleware.SecurityHeadersConfig{EnableHSTS: s.config.EnableHSTS})(handler)
	handler = middleware.HTTPMetrics(s.sc.InstrumentationProvider(), s.routes())(handler)
	return handler, nil
}

// routes lists the paths served, which are the values of the metrics path
// label.
func (s *HTTPServer) routes() []string {
	routes := []string{livenessPath, readinessPath, detailedHealthPath}
	if s.config.ServerType == TransportSSE {
		return append(routes, s.config.SSEEndpoint, s.config.MessageEndpoint)
	}
	return append(routes, s.config.Endpoint)
}

// setupMCPRoutes registers MCP endpoints on the mux
func (s *HTTPServer) setupMCPRoutes(mux *http.ServeMux) {
	protect := func(h http.Handler) http.Handler {
		h = middleware.MaxRequestSize(s.config.MaxRequestBytes)(h)
		if s.config.AuthToken == "" {
			return h
		}
		return middleware.RequireBearerToken(s.config.AuthToken)(h)
	}

	switch s.config.ServerType {
	case TransportSSE:
		sseServer := mcpserver.NewSSEServer(s.mcpServer,
			mcpserver.WithSSEEndpoint(s.config.SSEEndpoint),
			mcpserver.WithMessageEndpoint(s.config.MessageEndpoint),
		)
		mux.Handle(s.config.SSEEndpoint, protect(sseServer.SSEHandler()))
		mux.Handle(s.config.MessageEndpoint, protect(sseServer.MessageHandler()))
	default:
		opts := []mcpserver.StreamableHTTPOption{mcpserver.WithEndpointPath(s.config.Endpoint)}
		if s.config.DisableStreaming {
			opts = append(opts, mcpserver.WithDisableStreaming(true))
		}
		mux.Handle(s.config.Endpoint, protect(mcpserver.NewStreamableHTTPServer(s.mcpServer, opts...)))
	}
}

// Start listens on addr and serves until Shutdown.
func (s *HTTPServer) Start(addr string) error {
	s.httpServer.Addr = addr
	return s.httpServer.ListenAndServe()
}

// Shutdown marks the server not ready and gracefully stops it.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	return s.httpServer.Shutdown(ctx)
}
