package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/mcp-zendesk/internal/categorize"
	"github.com/giantswarm/mcp-zendesk/internal/instrumentation"
	"github.com/giantswarm/mcp-zendesk/internal/kb"
	"github.com/giantswarm/mcp-zendesk/internal/logging"
	"github.com/giantswarm/mcp-zendesk/internal/prompts"
	"github.com/giantswarm/mcp-zendesk/internal/server"
	"github.com/giantswarm/mcp-zendesk/internal/tools/analytics"
	"github.com/giantswarm/mcp-zendesk/internal/tools/automation"
	"github.com/giantswarm/mcp-zendesk/internal/tools/knowledge"
	"github.com/giantswarm/mcp-zendesk/internal/tools/output"
	"github.com/giantswarm/mcp-zendesk/internal/tools/people"
	"github.com/giantswarm/mcp-zendesk/internal/tools/ticket"
	"github.com/giantswarm/mcp-zendesk/internal/upstream"
	"github.com/giantswarm/mcp-zendesk/internal/zendesk"
)

// Transport type constants for the MCP server.
const (
	transportStdio          = "stdio"
	transportSSE            = server.TransportSSE
	transportStreamableHTTP = server.TransportStreamableHTTP
)

// envValueTrue is the string value used to enable boolean environment variables.
const envValueTrue = "true"

// defaultKBKeyPrefix namespaces knowledge-base entries in a shared Redis.
const defaultKBKeyPrefix = "mcp-zendesk:"

// parseDurationEnv parses a duration from an environment variable value.
// Returns the parsed duration and true if successful, or zero and false if parsing fails.
// Logs a warning if the value is present but invalid.
func parseDurationEnv(value, envName string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: invalid duration for %s=%q: %v", envName, value, err)
		return 0, false
	}
	return d, true
}

// parseIntEnv parses an integer from an environment variable value.
// Returns the parsed int and true if successful, or zero and false if parsing fails.
// Logs a warning if the value is present but invalid.
func parseIntEnv(value, envName string) (int, bool) {
	if value == "" {
		return 0, false
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid integer for %s=%q: %v", envName, value, err)
		return 0, false
	}
	return n, true
}

// newServeCmd creates the Cobra command for starting the MCP server.
func newServeCmd() *cobra.Command {
	var (
		nonDestructiveMode bool
		dryRun             bool
		allowedOperations  []string
		debugMode          bool
		logLevel           string

		// Transport options
		transport        string
		httpAddr         string
		sseEndpoint      string
		messageEndpoint  string
		httpEndpoint     string
		disableStreaming bool

		// Zendesk options
		zendeskSubdomain     string
		zendeskTimeout       time.Duration
		zendeskMaxRecords    int
		allowInsecureBaseURL bool

		// Rate budget options
		rateLimitRPM       int
		rateBurst          int
		backoffBase        time.Duration
		backoffMax         time.Duration
		maxThrottleRetries int

		// Response engine options
		defaultLimit   int
		maxLimit       int
		maxLength      int
		maxBodyLength  int
		scanWindow     int
		projectionFile string

		// Categorizer and knowledge base options
		categorizer    string
		categoriesFile string
		redisURL       string
		kbKeyPrefix    string
		kbCacheTTL     time.Duration

		// HTTP front door options
		enableHSTS      bool
		allowedOrigins  string
		maxRequestBytes int64

		// Metrics server options
		enableMetrics bool
		metricsAddr   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP Zendesk server",
		Long: `Start the MCP Zendesk server using the specified transport.

The server speaks the Model Context Protocol and exposes Zendesk Support and
Help Center as tools, prompts and a knowledge-base resource. Every tool
response is bounded: records are projected to a fixed field set, lists are
paginated and the whole envelope fits the requested max_length.

Supported transports:
  - stdio: Standard input/output (default)
  - sse: Server-Sent Events over HTTP
  - streamable-http: Streamable HTTP transport

Credentials are read from the environment:
  ZENDESK_SUBDOMAIN, ZENDESK_EMAIL, ZENDESK_API_KEY
  or ZENDESK_OAUTH_TOKEN for bearer authentication.

Write tools are refused while --non-destructive is set (the default) unless
--dry-run is given or the operation is listed in --allowed-operations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config := ServeConfig{
				Transport:          transport,
				HTTPAddr:           httpAddr,
				SSEEndpoint:        sseEndpoint,
				MessageEndpoint:    messageEndpoint,
				HTTPEndpoint:       httpEndpoint,
				DisableStreaming:   disableStreaming,
				NonDestructiveMode: nonDestructiveMode,
				DryRun:             dryRun,
				AllowedOperations:  allowedOperations,
				DebugMode:          debugMode,
				LogLevel:           logLevel,
				Zendesk: ZendeskServeConfig{
					Subdomain:            zendeskSubdomain,
					Timeout:              zendeskTimeout,
					MaxRecords:           zendeskMaxRecords,
					AllowInsecureBaseURL: allowInsecureBaseURL,
				},
				RateBudget: RateBudgetServeConfig{
					RequestsPerMinute:       rateLimitRPM,
					Burst:                   rateBurst,
					BaseDelay:               backoffBase,
					MaxDelay:                backoffMax,
					MaxConsecutiveThrottles: maxThrottleRetries,
				},
				Output: OutputServeConfig{
					DefaultLimit:   defaultLimit,
					MaxLimit:       maxLimit,
					MaxLength:      maxLength,
					MaxBodyLength:  maxBodyLength,
					ScanWindow:     scanWindow,
					ProjectionFile: projectionFile,
				},
				Categorizer: CategorizerServeConfig{
					Method:         categorizer,
					CategoriesFile: categoriesFile,
				},
				KnowledgeBase: KnowledgeBaseServeConfig{
					RedisURL:  redisURL,
					KeyPrefix: kbKeyPrefix,
					TTL:       kbCacheTTL,
				},
				Security: SecurityServeConfig{
					EnableHSTS:      enableHSTS,
					AllowedOrigins:  allowedOrigins,
					MaxRequestBytes: maxRequestBytes,
				},
				Metrics: MetricsServeConfig{
					Enabled: enableMetrics,
					Addr:    metricsAddr,
				},
			}
			loadServeEnv(&config)
			return runServe(config)
		},
	}

	// Add flags for configuring the server
	cmd.Flags().BoolVar(&nonDestructiveMode, "non-destructive", true, "Enable non-destructive mode (default: true)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Enable dry run mode (default: false)")
	cmd.Flags().StringSliceVar(&allowedOperations, "allowed-operations", nil, "Write operations allowed in non-destructive mode: comment, update, escalate, categorize (can also be set via ALLOWED_OPERATIONS env var)")
	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging (default: false)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (can also be set via LOG_LEVEL env var)")

	// Transport flags
	cmd.Flags().StringVar(&transport, "transport", transportStdio, "Transport type: stdio, sse, or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP server address (for sse and streamable-http transports)")
	cmd.Flags().StringVar(&sseEndpoint, "sse-endpoint", "/sse", "SSE endpoint path (for sse transport)")
	cmd.Flags().StringVar(&messageEndpoint, "message-endpoint", "/message", "Message endpoint path (for sse transport)")
	cmd.Flags().StringVar(&httpEndpoint, "http-endpoint", "/mcp", "HTTP endpoint path (for streamable-http transport)")
	cmd.Flags().BoolVar(&disableStreaming, "disable-streaming", false, "Disable streaming for streamable-http transport")

	// Zendesk flags
	cmd.Flags().StringVar(&zendeskSubdomain, "zendesk-subdomain", "", "Zendesk account subdomain, e.g. acme for acme.zendesk.com (can also be set via ZENDESK_SUBDOMAIN env var)")
	cmd.Flags().DurationVar(&zendeskTimeout, "zendesk-timeout", zendesk.DefaultTimeout, "Timeout for a single Zendesk API request")
	cmd.Flags().IntVar(&zendeskMaxRecords, "zendesk-max-records", zendesk.DefaultMaxRecords, "Maximum records gathered across pages by one collection call")
	cmd.Flags().BoolVar(&allowInsecureBaseURL, "allow-insecure-base-url", false, "Skip HTTPS and private address checks on ZENDESK_BASE_URL (for local mocks only)")

	// Rate budget flags
	defaults := upstream.DefaultConfig()
	cmd.Flags().IntVar(&rateLimitRPM, "rate-limit-rpm", defaults.RequestsPerMinute, "Zendesk requests per minute; 0 disables the token bucket (can also be set via ZENDESK_RATE_LIMIT_RPM env var)")
	cmd.Flags().IntVar(&rateBurst, "rate-burst", defaults.Burst, "Token bucket burst size (can also be set via ZENDESK_RATE_BURST env var)")
	cmd.Flags().DurationVar(&backoffBase, "backoff-base", defaults.BaseDelay, "First backoff delay after a throttle without Retry-After (can also be set via ZENDESK_BACKOFF_BASE env var)")
	cmd.Flags().DurationVar(&backoffMax, "backoff-max", defaults.MaxDelay, "Maximum backoff delay (can also be set via ZENDESK_BACKOFF_MAX env var)")
	cmd.Flags().IntVar(&maxThrottleRetries, "max-throttle-retries", defaults.MaxConsecutiveThrottles, "429 rejections a single call absorbs before failing fast (can also be set via ZENDESK_MAX_THROTTLE_RETRIES env var)")

	// Response engine flags
	cmd.Flags().IntVar(&defaultLimit, "default-limit", output.DefaultLimit, "Records per page when a tool call has no limit")
	cmd.Flags().IntVar(&maxLimit, "max-limit", output.DefaultMaxLimit, fmt.Sprintf("Default per-tool limit ceiling (at most %d)", output.AbsoluteMaxLimit))
	cmd.Flags().IntVar(&maxLength, "max-length", output.DefaultMaxLength, "Default response budget in bytes (can also be set via OUTPUT_MAX_LENGTH env var)")
	cmd.Flags().IntVar(&maxBodyLength, "max-body-length", output.DefaultMaxBodyLength, "Clip long text fields to this many bytes; 0 disables clipping (can also be set via OUTPUT_MAX_BODY_LENGTH env var)")
	cmd.Flags().IntVar(&scanWindow, "truncation-scan-window", output.DefaultScanWindow, "Bytes searched backwards for a record boundary when truncating (can also be set via TRUNCATION_SCAN_WINDOW env var)")
	cmd.Flags().StringVar(&projectionFile, "projection-file", "", "YAML file replacing the built-in projection table (can also be set via PROJECTION_FILE env var)")

	// Categorizer and knowledge base flags
	cmd.Flags().StringVar(&categorizer, "categorizer", categorize.MethodBayes, fmt.Sprintf("Default ticket categorizer: %s or %s (can also be set via CATEGORIZER env var)", categorize.MethodRules, categorize.MethodBayes))
	cmd.Flags().StringVar(&categoriesFile, "categories-file", "", "YAML file replacing the built-in category corpus (can also be set via CATEGORIES_FILE env var)")
	cmd.Flags().StringVar(&redisURL, "redis-url", "", "Redis URL for the shared knowledge-base cache; empty keeps it in memory (can also be set via REDIS_URL env var)")
	cmd.Flags().StringVar(&kbKeyPrefix, "kb-key-prefix", defaultKBKeyPrefix, "Prefix for knowledge-base keys in Redis")
	cmd.Flags().DurationVar(&kbCacheTTL, "kb-cache-ttl", kb.DefaultTTL, "Knowledge-base cache lifetime (can also be set via KB_CACHE_TTL env var)")

	// HTTP front door flags
	cmd.Flags().BoolVar(&enableHSTS, "enable-hsts", false, "Send Strict-Transport-Security headers (can also be set via ENABLE_HSTS env var)")
	cmd.Flags().StringVar(&allowedOrigins, "allowed-origins", "", "Comma-separated CORS origins (can also be set via ALLOWED_ORIGINS env var)")
	cmd.Flags().Int64Var(&maxRequestBytes, "max-request-bytes", server.DefaultMaxRequestBytes, "Maximum MCP request body size in bytes; negative disables the limit")

	// Metrics flags
	cmd.Flags().BoolVar(&enableMetrics, "enable-metrics", true, "Serve Prometheus metrics on a dedicated address when instrumentation is enabled")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address")

	return cmd
}

// newLogger builds the process logger. Logs go to stderr so they never mix
// with the stdio transport.
func newLogger(config ServeConfig) *slog.Logger {
	level := logging.ParseLevel(config.LogLevel)
	if config.DebugMode {
		level = slog.LevelDebug
	}
	return logging.NewLogger(os.Stderr, level)
}

// newCategorizers builds both categorizers over the configured corpus.
func newCategorizers(config CategorizerServeConfig) ([]categorize.Categorizer, error) {
	corpus := categorize.DefaultCorpus()
	if config.CategoriesFile != "" {
		loaded, err := categorize.LoadCorpusFile(config.CategoriesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load categories: %w", err)
		}
		corpus = loaded
	}
	return []categorize.Categorizer{categorize.NewRules(corpus), categorize.NewBayes(corpus)}, nil
}

// newKnowledgeBaseCache builds the Help Center cache, shared through Redis
// when a URL is configured.
func newKnowledgeBaseCache(ctx context.Context, config ServeConfig, logger *slog.Logger, metrics kb.CacheMetricsRecorder) (*kb.Cache, error) {
	var store kb.Store
	if config.KnowledgeBase.RedisURL != "" {
		redisStore, err := kb.NewRedisStoreFromURL(ctx, config.KnowledgeBase.RedisURL, config.KnowledgeBase.KeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to create knowledge-base store: %w", err)
		}
		store = redisStore
	}
	return kb.NewCache(store,
		kb.WithTTL(config.KnowledgeBase.TTL),
		kb.WithKey("kb:"+logging.NormalizeSubdomain(config.Zendesk.Subdomain)),
		kb.WithCacheLogger(logger),
		kb.WithCacheMetrics(metrics),
	), nil
}

// newAssembler builds the response engine, with a projection table from
// file when one is configured.
func newAssembler(config *server.Config, projectionFile string, metrics output.Metrics) (*output.Assembler, error) {
	var table *output.ProjectionTable
	if projectionFile != "" {
		loaded, err := output.LoadProjectionFile(projectionFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load projection table: %w", err)
		}
		table = loaded
	}
	return output.NewAssembler(table, config.Output, output.WithMetrics(metrics)), nil
}

// registerCapabilities registers every tool group, the prompts and the
// knowledge-base resource.
func registerCapabilities(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext) error {
	registrations := []struct {
		name     string
		register func(*mcpserver.MCPServer, *server.ServerContext) error
	}{
		{"ticket", ticket.RegisterTicketTools},
		{"people", people.RegisterPeopleTools},
		{"analytics", analytics.RegisterAnalyticsTools},
		{"automation", automation.RegisterAutomationTools},
		{"knowledge", knowledge.RegisterKnowledgeTools},
	}
	for _, r := range registrations {
		if err := r.register(mcpSrv, sc); err != nil {
			return fmt.Errorf("failed to register %s tools: %w", r.name, err)
		}
	}
	prompts.RegisterPrompts(mcpSrv)
	return nil
}

func runServe(config ServeConfig) error {
	if err := config.validate(); err != nil {
		return err
	}

	logger := newLogger(config)
	slog.SetDefault(logger)
	version := rootCmd.Version

	// Setup graceful shutdown - listen for both SIGINT and SIGTERM
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize OpenTelemetry instrumentation provider
	instrumentationConfig := instrumentation.DefaultConfig()
	instrumentationConfig.ServiceVersion = version
	instrumentationProvider, err := instrumentation.NewProvider(shutdownCtx, instrumentationConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if shutdownErr := instrumentationProvider.Shutdown(context.Background()); shutdownErr != nil {
			logger.Error("instrumentation shutdown failed", logging.Err(shutdownErr))
		}
	}()
	instrumentationProvider.SetAuditLogger(instrumentation.NewAuditLogger(logger))
	metrics := instrumentationProvider.Metrics()

	if instrumentationProvider.Enabled() {
		logger.Info("OpenTelemetry instrumentation enabled",
			"metrics_exporter", instrumentationConfig.MetricsExporter,
			"tracing_exporter", instrumentationConfig.TracingExporter)
	}

	// All Zendesk traffic shares one budget.
	budget := upstream.New(config.budgetConfig(),
		upstream.WithLogger(logger),
		upstream.WithMetrics(metrics),
	)

	zendeskClient, err := zendesk.NewClient(config.zendeskConfig(version),
		zendesk.WithBudget(budget),
		zendesk.WithLogger(logger),
		zendesk.WithMetrics(metrics),
	)
	if err != nil {
		return fmt.Errorf("failed to create Zendesk client: %w", err)
	}

	kbCache, err := newKnowledgeBaseCache(shutdownCtx, config, logger, metrics)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := kbCache.Close(); closeErr != nil {
			logger.Warn("knowledge-base cache close failed", logging.Err(closeErr))
		}
	}()

	categorizers, err := newCategorizers(config.Categorizer)
	if err != nil {
		return err
	}

	serverConfig := config.serverConfig(version)
	assembler, err := newAssembler(serverConfig, config.Output.ProjectionFile, metrics)
	if err != nil {
		return err
	}

	serverContext, err := server.NewServerContext(shutdownCtx,
		server.WithZendeskClient(zendeskClient),
		server.WithLogger(logging.NewSlogAdapter(logger)),
		server.WithConfig(serverConfig),
		server.WithAssembler(assembler),
		server.WithBudget(budget),
		server.WithCategorizers(categorizers...),
		server.WithKnowledgeBaseCache(kbCache),
		server.WithInstrumentationProvider(instrumentationProvider),
	)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Error("server context shutdown failed", logging.Err(err))
		}
	}()

	logger.Info("Zendesk client configured",
		logging.Subdomain(serverConfig.Subdomain),
		"non_destructive", config.NonDestructiveMode,
		"dry_run", config.DryRun,
		"allowed_operations", strings.Join(config.AllowedOperations, ","),
		"kb_cache", kbCache.Backend())

	mcpSrv := mcpserver.NewMCPServer("mcp-zendesk", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithPromptCapabilities(true),
		mcpserver.WithResourceCapabilities(false, true),
		mcpserver.WithRecovery(),
	)

	if err := registerCapabilities(mcpSrv, serverContext); err != nil {
		return err
	}

	switch config.Transport {
	case transportStdio:
		return runStdioServer(shutdownCtx, mcpSrv, logger)
	case transportSSE, transportStreamableHTTP:
		return runHTTPServer(shutdownCtx, mcpSrv, serverContext, config, logger)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, sse, streamable-http)", config.Transport)
	}
}
