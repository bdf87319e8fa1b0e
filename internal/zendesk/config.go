package zendesk

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/giantswarm/mcp-zendesk/internal/logging"
)

const (
	// DefaultTimeout bounds a single HTTP exchange with Zendesk.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRecords caps how many records one collection call gathers
	// across pages. It matches the ceiling of the Zendesk search API.
	DefaultMaxRecords = 1000

	// PageSize is the per_page value sent on list and search calls.
	PageSize = 100

	// MaxShowMany is the largest id list accepted by show_many and update_many.
	MaxShowMany = 100
)

// Config holds the connection settings for a Zendesk account.
type Config struct {
	// Subdomain is the account name, e.g. "acme" for acme.zendesk.com.
	// A trailing ".zendesk.com" or scheme is stripped.
	Subdomain string

	// Email is the agent address used with API token authentication.
	Email string

	// APIToken is the Zendesk API token. Used with Email as basic auth
	// "email/token:key".
	APIToken string

	// OAuthToken is a bearer token. Takes precedence over APIToken.
	OAuthToken string

	// BaseURL overrides https://<subdomain>.zendesk.com/api/v2.
	BaseURL string

	// Timeout bounds a single HTTP exchange.
	Timeout time.Duration

	// MaxRecords caps paginated collection calls.
	MaxRecords int

	// UserAgent is sent on every request.
	UserAgent string
}

// Normalize returns a copy with the subdomain cleaned and zero values
// replaced by defaults.
func (c Config) Normalize() Config {
	c.Subdomain = logging.NormalizeSubdomain(c.Subdomain)
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRecords <= 0 {
		c.MaxRecords = DefaultMaxRecords
	}
	if c.UserAgent == "" {
		c.UserAgent = "mcp-zendesk"
	}
	return c
}

// Validate reports missing or inconsistent settings.
func (c Config) Validate() error {
	c = c.Normalize()
	if c.Subdomain == "" && c.BaseURL == "" {
		return fmt.Errorf("%w: ZENDESK_SUBDOMAIN is not set", ErrMissingCredentials)
	}
	if c.OAuthToken == "" {
		if c.Email == "" || c.APIToken == "" {
			return fmt.Errorf("%w: set ZENDESK_EMAIL and ZENDESK_API_KEY, or ZENDESK_OAUTH_TOKEN", ErrMissingCredentials)
		}
	}
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid ZENDESK_BASE_URL %q: must be an absolute URL", c.BaseURL)
		}
	}
	return nil
}

// Endpoint returns the API root, without a trailing slash.
func (c Config) Endpoint() string {
	c = c.Normalize()
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return fmt.Sprintf("https://%s.zendesk.com/api/v2", c.Subdomain)
}

// AuthMode names the credential type in use, for logs.
func (c Config) AuthMode() string {
	if c.OAuthToken != "" {
		return "oauth"
	}
	return "api_token"
}
