package cmd

import (
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/giantswarm/mcp-zendesk/internal/categorize"
	"github.com/giantswarm/mcp-zendesk/internal/server"
	"github.com/giantswarm/mcp-zendesk/internal/tools"
	"github.com/giantswarm/mcp-zendesk/internal/tools/output"
	"github.com/giantswarm/mcp-zendesk/internal/upstream"
	"github.com/giantswarm/mcp-zendesk/internal/zendesk"
)

// ServeConfig holds all configuration for the serve command.
type ServeConfig struct {
	// Transport settings
	Transport string
	HTTPAddr  string

	// Endpoint paths
	SSEEndpoint      string
	MessageEndpoint  string
	HTTPEndpoint     string
	DisableStreaming bool

	// Mutation gating
	NonDestructiveMode bool
	DryRun             bool
	AllowedOperations  []string

	DebugMode bool
	LogLevel  string

	Zendesk       ZendeskServeConfig
	RateBudget    RateBudgetServeConfig
	Output        OutputServeConfig
	Categorizer   CategorizerServeConfig
	KnowledgeBase KnowledgeBaseServeConfig
	Security      SecurityServeConfig
	Metrics       MetricsServeConfig
}

// ZendeskServeConfig holds the Zendesk account and credentials.
type ZendeskServeConfig struct {
	Subdomain  string
	Email      string
	APIToken   string
	OAuthToken string
	BaseURL    string
	Timeout    time.Duration
	MaxRecords int

	// AllowInsecureBaseURL skips the HTTPS and private address checks on
	// BaseURL, for local mocks.
	AllowInsecureBaseURL bool
}

// RateBudgetServeConfig holds the upstream rate budget settings.
type RateBudgetServeConfig struct {
	RequestsPerMinute       int
	Burst                   int
	BaseDelay               time.Duration
	MaxDelay                time.Duration
	MaxConsecutiveThrottles int
}

// OutputServeConfig holds the response engine settings.
type OutputServeConfig struct {
	DefaultLimit   int
	MaxLimit       int
	MaxLength      int
	MaxBodyLength  int
	ScanWindow     int
	ProjectionFile string
}

// CategorizerServeConfig selects the default categorizer and its corpus.
type CategorizerServeConfig struct {
	Method         string
	CategoriesFile string
}

// KnowledgeBaseServeConfig holds the Help Center cache settings.
type KnowledgeBaseServeConfig struct {
	// RedisURL selects the Redis store. Empty means in-memory.
	RedisURL  string
	KeyPrefix string
	TTL       time.Duration
}

// SecurityServeConfig holds the HTTP front door settings.
type SecurityServeConfig struct {
	AuthToken       string
	EnableHSTS      bool
	AllowedOrigins  string
	MaxRequestBytes int64
}

// MetricsServeConfig holds the dedicated metrics server settings.
type MetricsServeConfig struct {
	Enabled bool
	Addr    string
}

// loadEnvIfEmpty loads an environment variable into a string pointer if it's empty.
func loadEnvIfEmpty(target *string, envKey string) {
	if *target == "" {
		*target = os.Getenv(envKey)
	}
}

// loadZendeskEnv fills credentials from the environment. Secrets are only
// read from the environment so they never show up in process listings.
func loadZendeskEnv(config *ZendeskServeConfig) {
	loadEnvIfEmpty(&config.Subdomain, "ZENDESK_SUBDOMAIN")
	loadEnvIfEmpty(&config.Email, "ZENDESK_EMAIL")
	loadEnvIfEmpty(&config.APIToken, "ZENDESK_API_KEY")
	loadEnvIfEmpty(&config.OAuthToken, "ZENDESK_OAUTH_TOKEN")
	loadEnvIfEmpty(&config.BaseURL, "ZENDESK_BASE_URL")
	if d, ok := parseDurationEnv(os.Getenv("ZENDESK_TIMEOUT"), "ZENDESK_TIMEOUT"); ok && config.Timeout == 0 {
		config.Timeout = d
	}
	if n, ok := parseIntEnv(os.Getenv("ZENDESK_MAX_RECORDS"), "ZENDESK_MAX_RECORDS"); ok && config.MaxRecords == 0 {
		config.MaxRecords = n
	}
}

// loadRateBudgetEnv overrides budget settings from the environment.
// Unset or invalid values keep the flag values.
func loadRateBudgetEnv(config *RateBudgetServeConfig) {
	if n, ok := parseIntEnv(os.Getenv("ZENDESK_RATE_LIMIT_RPM"), "ZENDESK_RATE_LIMIT_RPM"); ok {
		config.RequestsPerMinute = n
	}
	if n, ok := parseIntEnv(os.Getenv("ZENDESK_RATE_BURST"), "ZENDESK_RATE_BURST"); ok {
		config.Burst = n
	}
	if d, ok := parseDurationEnv(os.Getenv("ZENDESK_BACKOFF_BASE"), "ZENDESK_BACKOFF_BASE"); ok {
		config.BaseDelay = d
	}
	if d, ok := parseDurationEnv(os.Getenv("ZENDESK_BACKOFF_MAX"), "ZENDESK_BACKOFF_MAX"); ok {
		config.MaxDelay = d
	}
	if n, ok := parseIntEnv(os.Getenv("ZENDESK_MAX_THROTTLE_RETRIES"), "ZENDESK_MAX_THROTTLE_RETRIES"); ok {
		config.MaxConsecutiveThrottles = n
	}
}

// loadOutputEnv overrides engine settings from the environment.
func loadOutputEnv(config *OutputServeConfig) {
	if n, ok := parseIntEnv(os.Getenv("OUTPUT_MAX_LENGTH"), "OUTPUT_MAX_LENGTH"); ok {
		config.MaxLength = n
	}
	if n, ok := parseIntEnv(os.Getenv("OUTPUT_MAX_BODY_LENGTH"), "OUTPUT_MAX_BODY_LENGTH"); ok {
		config.MaxBodyLength = n
	}
	if n, ok := parseIntEnv(os.Getenv("TRUNCATION_SCAN_WINDOW"), "TRUNCATION_SCAN_WINDOW"); ok {
		config.ScanWindow = n
	}
	loadEnvIfEmpty(&config.ProjectionFile, "PROJECTION_FILE")
}

// loadServeEnv applies every environment fallback to config.
func loadServeEnv(config *ServeConfig) {
	loadZendeskEnv(&config.Zendesk)
	loadRateBudgetEnv(&config.RateBudget)
	loadOutputEnv(&config.Output)

	loadEnvIfEmpty(&config.LogLevel, "LOG_LEVEL")
	if method := os.Getenv("CATEGORIZER"); method != "" {
		config.Categorizer.Method = method
	}
	loadEnvIfEmpty(&config.Categorizer.CategoriesFile, "CATEGORIES_FILE")
	loadEnvIfEmpty(&config.KnowledgeBase.RedisURL, "REDIS_URL")
	if d, ok := parseDurationEnv(os.Getenv("KB_CACHE_TTL"), "KB_CACHE_TTL"); ok {
		config.KnowledgeBase.TTL = d
	}

	loadEnvIfEmpty(&config.Security.AuthToken, "MCP_AUTH_TOKEN")
	loadEnvIfEmpty(&config.Security.AllowedOrigins, "ALLOWED_ORIGINS")
	if os.Getenv("ENABLE_HSTS") == envValueTrue {
		config.Security.EnableHSTS = true
	}
	if ops := os.Getenv("ALLOWED_OPERATIONS"); ops != "" && len(config.AllowedOperations) == 0 {
		config.AllowedOperations = splitList(ops)
	}
}

// splitList splits a comma-separated list, dropping empty items.
func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// zendeskConfig converts the serve settings into a client Config.
func (c ServeConfig) zendeskConfig(version string) zendesk.Config {
	return zendesk.Config{
		Subdomain:  c.Zendesk.Subdomain,
		Email:      c.Zendesk.Email,
		APIToken:   c.Zendesk.APIToken,
		OAuthToken: c.Zendesk.OAuthToken,
		BaseURL:    c.Zendesk.BaseURL,
		Timeout:    c.Zendesk.Timeout,
		MaxRecords: c.Zendesk.MaxRecords,
		UserAgent:  "mcp-zendesk/" + version,
	}
}

// budgetConfig converts the serve settings into an upstream.Config. Zero
// values fall back to the package defaults in upstream.New.
func (c ServeConfig) budgetConfig() upstream.Config {
	cfg := upstream.DefaultConfig()
	cfg.RequestsPerMinute = c.RateBudget.RequestsPerMinute
	cfg.Burst = c.RateBudget.Burst
	cfg.BaseDelay = c.RateBudget.BaseDelay
	cfg.MaxDelay = c.RateBudget.MaxDelay
	cfg.MaxConsecutiveThrottles = c.RateBudget.MaxConsecutiveThrottles
	return cfg
}

// serverConfig builds the server.Config shared by all tools.
func (c ServeConfig) serverConfig(version string) *server.Config {
	config := server.NewDefaultConfig()
	config.Version = version
	config.Subdomain = c.Zendesk.Subdomain
	config.AgentEmail = c.Zendesk.Email
	config.NonDestructiveMode = c.NonDestructiveMode
	config.DryRun = c.DryRun
	config.AllowedOperations = c.AllowedOperations
	config.Categorizer = c.Categorizer.Method
	config.LogLevel = c.LogLevel

	out := output.DefaultConfig()
	if c.Output.DefaultLimit > 0 {
		out.DefaultLimit = c.Output.DefaultLimit
	}
	if c.Output.MaxLimit > 0 {
		out.MaxLimit = c.Output.MaxLimit
	}
	if c.Output.MaxLength > 0 {
		out.MaxLength = c.Output.MaxLength
	}
	out.MaxBodyLength = c.Output.MaxBodyLength
	if c.Output.ScanWindow > 0 {
		out.ScanWindow = c.Output.ScanWindow
	}
	config.Output = out.Validate()
	return config
}

// validate checks settings that can be rejected before any connection is made.
func (c ServeConfig) validate() error {
	switch c.Transport {
	case transportStdio, transportSSE, transportStreamableHTTP:
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, sse, streamable-http)", c.Transport)
	}

	switch c.Categorizer.Method {
	case categorize.MethodRules, categorize.MethodBayes:
	default:
		return fmt.Errorf("unsupported categorizer: %s (supported: %s, %s)",
			c.Categorizer.Method, categorize.MethodRules, categorize.MethodBayes)
	}

	for _, op := range c.AllowedOperations {
		if !isKnownOperation(op) {
			return fmt.Errorf("unknown operation in --allowed-operations: %q", op)
		}
	}

	if c.Zendesk.BaseURL != "" && !c.Zendesk.AllowInsecureBaseURL {
		if err := validateSecureURL(c.Zendesk.BaseURL, "ZENDESK_BASE_URL", false); err != nil {
			return err
		}
	}

	if c.Transport == transportStdio && c.Security.AuthToken != "" {
		log.Printf("[WARN] MCP_AUTH_TOKEN has no effect on the stdio transport")
	}
	return nil
}

// knownOperations lists the operation names accepted by --allowed-operations.
var knownOperations = []string{tools.OpComment, tools.OpUpdate, tools.OpEscalate, tools.OpCategorize}

func isKnownOperation(op string) bool {
	return slices.Contains(knownOperations, op)
}

// validateSecureURL validates that a URL uses HTTPS and is not vulnerable to SSRF attacks.
// It checks for:
// - Valid URL format
// - HTTPS scheme (HTTP not allowed)
// - No private/local IP addresses (unless allowPrivate is true)
// - No localhost references
func validateSecureURL(urlStr string, fieldName string, allowPrivate bool) error {
	if urlStr == "" {
		return fmt.Errorf("%s must be a valid URL: empty URL provided", fieldName)
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("%s must be a valid URL: %w", fieldName, err)
	}

	if parsedURL.Scheme != "https" {
		if parsedURL.Scheme == "" {
			return fmt.Errorf("%s must be a valid URL with HTTPS scheme", fieldName)
		}
		return fmt.Errorf("%s must use HTTPS (got: %s)", fieldName, parsedURL.Scheme)
	}

	hostname := parsedURL.Hostname()
	if hostname == "" {
		return fmt.Errorf("%s must have a valid hostname", fieldName)
	}

	if strings.ToLower(hostname) == "localhost" {
		return fmt.Errorf("%s cannot use localhost", fieldName)
	}

	ips, err := net.LookupIP(hostname)
	if err != nil {
		// Transient DNS failures should not block startup.
		log.Printf("[WARN] Could not resolve %s (%s) to validate IP address: %v", fieldName, hostname, err)
		return nil
	}

	if !allowPrivate {
		for _, ip := range ips {
			if isPrivateOrLoopbackIP(ip) {
				return fmt.Errorf("%s resolves to a private or loopback IP address (%s), which could be a security risk", fieldName, ip.String())
			}
		}
	}

	return nil
}

// isPrivateOrLoopbackIP checks if an IP address is private, loopback, or link-local.
func isPrivateOrLoopbackIP(ip net.IP) bool {
	if ip.IsLoopback() {
		return true
	}

	if ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}

	if ip4 := ip.To4(); ip4 != nil {
		// 10.0.0.0/8
		if ip4[0] == 10 {
			return true
		}
		// 172.16.0.0/12
		if ip4[0] == 172 && ip4[1] >= 16 && ip4[1] <= 31 {
			return true
		}
		// 192.168.0.0/16
		if ip4[0] == 192 && ip4[1] == 168 {
			return true
		}
		return false
	}

	// fc00::/7 unique local addresses
	if len(ip) == net.IPv6len && (ip[0] == 0xfc || ip[0] == 0xfd) {
		return true
	}

	return false
}
