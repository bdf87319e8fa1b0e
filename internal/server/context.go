package server

import (
	"context"
	"sync"

	"github.com/giantswarm/mcp-zendesk/internal/categorize"
	"github.com/giantswarm/mcp-zendesk/internal/instrumentation"
	"github.com/giantswarm/mcp-zendesk/internal/kb"
	"github.com/giantswarm/mcp-zendesk/internal/logging"
	"github.com/giantswarm/mcp-zendesk/internal/tools/output"
	"github.com/giantswarm/mcp-zendesk/internal/upstream"
	"github.com/giantswarm/mcp-zendesk/internal/zendesk"
)

// ServerContext encapsulates all dependencies needed by the MCP server
// and provides a clean abstraction for dependency injection and lifecycle management.
type ServerContext struct {
	// Core dependencies
	zendeskClient zendesk.Client
	logger        Logger
	config        *Config

	// Response mediation
	assembler *output.Assembler
	budget    *upstream.Budget

	// Categorizers keyed by method; config.Categorizer picks the default.
	categorizers map[string]categorize.Categorizer

	kbCache *kb.Cache

	instrumentationProvider *instrumentation.Provider

	// Context management
	ctx    context.Context
	cancel context.CancelFunc

	// Lifecycle management
	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new ServerContext with default values.
// Use the provided functional options to customize the context.
func NewServerContext(ctx context.Context, opts ...Option) (*ServerContext, error) {
	serverCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:    serverCtx,
		cancel: cancel,
		config: NewDefaultConfig(),
		logger: logging.DefaultLogger(),
	}

	for _, opt := range opts {
		if err := opt(sc); err != nil {
			cancel()
			return nil, err
		}
	}

	if err := sc.validate(); err != nil {
		cancel()
		return nil, err
	}

	sc.applyDefaults()
	return sc, nil
}

// applyDefaults fills optional dependencies that were not injected.
func (sc *ServerContext) applyDefaults() {
	if sc.assembler == nil {
		var opts []output.AssemblerOption
		if m := sc.instrumentationProvider.Metrics(); m != nil {
			opts = append(opts, output.WithMetrics(m))
		}
		sc.assembler = output.NewAssembler(nil, sc.config.Output, opts...)
	}
	if sc.categorizers == nil {
		sc.categorizers = map[string]categorize.Categorizer{
			categorize.MethodRules: categorize.NewRules(categorize.DefaultCorpus()),
			categorize.MethodBayes: categorize.NewBayes(categorize.DefaultCorpus()),
		}
	}
	if sc.kbCache == nil {
		sc.kbCache = kb.NewCache(nil)
	}
}

// Context returns the server context for cancellation and deadlines.
func (sc *ServerContext) Context() context.Context {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.ctx
}

// ZendeskClient returns the Zendesk API client.
func (sc *ServerContext) ZendeskClient() zendesk.Client {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.zendeskClient
}

// Assembler returns the response assembler shared by all tools.
func (sc *ServerContext) Assembler() *output.Assembler {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.assembler
}

// Budget returns the upstream rate budget, or nil when none was injected.
func (sc *ServerContext) Budget() *upstream.Budget {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.budget
}

// Categorizer returns the categorizer for method. An empty or unknown
// method yields the configured default.
func (sc *ServerContext) Categorizer(method string) categorize.Categorizer {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	if c, ok := sc.categorizers[method]; ok {
		return c
	}
	if c, ok := sc.categorizers[sc.config.Categorizer]; ok {
		return c
	}
	return sc.categorizers[categorize.MethodBayes]
}

// KnowledgeBaseCache returns the Help Center cache.
func (sc *ServerContext) KnowledgeBaseCache() *kb.Cache {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.kbCache
}

// InstrumentationProvider returns the OpenTelemetry provider, which may be nil.
func (sc *ServerContext) InstrumentationProvider() *instrumentation.Provider {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.instrumentationProvider
}

// Logger returns the logger interface.
func (sc *ServerContext) Logger() Logger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.logger
}

// Config returns the server configuration.
func (sc *ServerContext) Config() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config
}

// Shutdown gracefully shuts down the server context.
// This cancels the context and closes the knowledge-base cache.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.logger.Info("Shutting down server context")

	var err error
	if sc.kbCache != nil {
		err = sc.kbCache.Close()
	}

	if sc.cancel != nil {
		sc.cancel()
	}

	sc.shutdown = true

	sc.logger.Info("Server context shutdown complete")
	return err
}

// IsShutdown returns true if the server context has been shutdown.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// validate ensures all required dependencies are set.
func (sc *ServerContext) validate() error {
	if sc.zendeskClient == nil {
		return ErrMissingZendeskClient
	}
	if sc.logger == nil {
		return ErrMissingLogger
	}
	if sc.config == nil {
		return ErrMissingConfig
	}
	return nil
}

// Logger defines the interface for logging operations.
type Logger = logging.Logger

// Config holds the server configuration.
type Config struct {
	// Server settings
	ServerName string `json:"serverName"`
	Version    string `json:"version"`

	// Zendesk identity, used for audit records and health output
	Subdomain  string `json:"subdomain"`
	AgentEmail string `json:"agentEmail"`

	// Non-destructive mode settings
	NonDestructiveMode bool `json:"nonDestructiveMode"`
	DryRun             bool `json:"dryRun"`

	// AllowedOperations lists mutating operations permitted in
	// non-destructive mode (comment, update, categorize, escalate).
	AllowedOperations []string `json:"allowedOperations"`

	// Categorizer is the default categorization method (rules or bayes).
	Categorizer string `json:"categorizer"`

	// Logging settings
	LogLevel string `json:"logLevel"`

	// Output configures response assembly.
	Output *output.Config `json:"output"`
}

// NewDefaultConfig creates a configuration with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		ServerName:         "mcp-zendesk",
		Version:            "0.1.0",
		NonDestructiveMode: true,
		DryRun:             false,
		Categorizer:        categorize.MethodBayes,
		LogLevel:           "info",
		Output:             output.DefaultConfig(),
	}
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	clone := *c

	if c.AllowedOperations != nil {
		clone.AllowedOperations = make([]string, len(c.AllowedOperations))
		copy(clone.AllowedOperations, c.AllowedOperations)
	}
	clone.Output = c.Output.Clone()

	return &clone
}
