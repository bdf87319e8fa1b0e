package server

import (
	"errors"

	"github.com/giantswarm/mcp-zendesk/internal/categorize"
	"github.com/giantswarm/mcp-zendesk/internal/instrumentation"
	"github.com/giantswarm/mcp-zendesk/internal/kb"
	"github.com/giantswarm/mcp-zendesk/internal/tools/output"
	"github.com/giantswarm/mcp-zendesk/internal/upstream"
	"github.com/giantswarm/mcp-zendesk/internal/zendesk"
)

// Option is a functional option for configuring ServerContext.
type Option func(*ServerContext) error

// WithZendeskClient sets the Zendesk client for the ServerContext.
func WithZendeskClient(client zendesk.Client) Option {
	return func(sc *ServerContext) error {
		if client == nil {
			return ErrMissingZendeskClient
		}
		sc.zendeskClient = client
		return nil
	}
}

// WithLogger sets the logger for the ServerContext.
func WithLogger(logger Logger) Option {
	return func(sc *ServerContext) error {
		if logger == nil {
			return ErrMissingLogger
		}
		sc.logger = logger
		return nil
	}
}

// WithConfig sets the configuration for the ServerContext.
func WithConfig(config *Config) Option {
	return func(sc *ServerContext) error {
		if config == nil {
			return ErrMissingConfig
		}
		sc.config = config.Clone()
		if sc.config.Output == nil {
			sc.config.Output = output.DefaultConfig()
		}
		return nil
	}
}

// WithServerName sets the server name in the configuration.
func WithServerName(name string) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.ServerName = name
		return nil
	}
}

// WithNonDestructiveMode enables or disables non-destructive mode.
func WithNonDestructiveMode(enabled bool) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.NonDestructiveMode = enabled
		return nil
	}
}

// WithDryRun enables or disables dry-run mode.
func WithDryRun(enabled bool) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.DryRun = enabled
		return nil
	}
}

// WithAllowedOperations lists the mutating operations permitted in
// non-destructive mode.
func WithAllowedOperations(operations []string) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		if operations != nil {
			sc.config.AllowedOperations = make([]string, len(operations))
			copy(sc.config.AllowedOperations, operations)
		}
		return nil
	}
}

// WithAssembler sets the response assembler. Without it one is built from
// Config.Output and the embedded projection table.
func WithAssembler(assembler *output.Assembler) Option {
	return func(sc *ServerContext) error {
		sc.assembler = assembler
		return nil
	}
}

// WithBudget records the rate budget shared with the Zendesk client so that
// health checks can report its state.
func WithBudget(budget *upstream.Budget) Option {
	return func(sc *ServerContext) error {
		sc.budget = budget
		return nil
	}
}

// WithCategorizers registers the available categorizers by method.
func WithCategorizers(categorizers ...categorize.Categorizer) Option {
	return func(sc *ServerContext) error {
		if len(categorizers) == 0 {
			return ErrMissingCategorizer
		}
		sc.categorizers = make(map[string]categorize.Categorizer, len(categorizers))
		for _, c := range categorizers {
			sc.categorizers[c.Method()] = c
		}
		return nil
	}
}

// WithKnowledgeBaseCache sets the Help Center cache.
func WithKnowledgeBaseCache(cache *kb.Cache) Option {
	return func(sc *ServerContext) error {
		sc.kbCache = cache
		return nil
	}
}

// WithInstrumentationProvider sets the OpenTelemetry instrumentation provider.
// This enables production-grade observability including metrics and tracing.
func WithInstrumentationProvider(provider *instrumentation.Provider) Option {
	return func(sc *ServerContext) error {
		sc.instrumentationProvider = provider
		return nil
	}
}

// Error definitions for ServerContext validation and operations.
var (
	ErrMissingZendeskClient = errors.New("zendesk client is required")
	ErrMissingLogger        = errors.New("logger is required")
	ErrMissingConfig        = errors.New("configuration is required")
	ErrMissingCategorizer   = errors.New("at least one categorizer is required")
	ErrServerShutdown       = errors.New("server context has been shutdown")
)
