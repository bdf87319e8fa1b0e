package middleware

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// SecurityHeadersConfig configures SecurityHeaders.
type SecurityHeadersConfig struct {
	// EnableHSTS sends Strict-Transport-Security on plain HTTP responses too,
	// for deployments behind a TLS-terminating proxy.
	EnableHSTS bool
}

const hstsValue = "max-age=31536000; includeSubDomains"

// responseHeaders are set on every response. The server only emits JSON and
// event streams carrying customer ticket data, so nothing may be framed,
// rendered as HTML or stored by intermediaries.
var responseHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Referrer-Policy", "no-referrer"},
	{"Cache-Control", "no-store"},
	{"Permissions-Policy", "camera=(), geolocation=(), microphone=(), payment=()"},
}

// SecurityHeaders adds the response security headers.
func SecurityHeaders(config SecurityHeadersConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, kv := range responseHeaders {
				h.Set(kv[0], kv[1])
			}
			if r.TLS != nil || config.EnableHSTS {
				h.Set("Strict-Transport-Security", hstsValue)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORS answers preflight requests and reflects allowed origins, so that
// browser-based MCP inspectors can keep a streamable HTTP session (the
// Mcp-Session-Id header) or resume an SSE stream (Last-Event-ID).
// Origins not in allowedOrigins get no Access-Control-Allow-Origin header.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if origin := r.Header.Get("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h.Set("Access-Control-Allow-Origin", origin)
				}
				h.Add("Vary", "Origin")
			}

			h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Last-Event-ID, Mcp-Session-Id, Mcp-Protocol-Version")
			h.Set("Access-Control-Expose-Headers", "Mcp-Session-Id")
			h.Set("Access-Control-Max-Age", "3600")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ValidateAllowedOrigins parses the comma-separated ALLOWED_ORIGINS value
// into normalized scheme://host[:port] origins. Duplicates are dropped.
func ValidateAllowedOrigins(originsEnv string) ([]string, error) {
	var origins []string
	seen := make(map[string]bool)

	for _, raw := range strings.Split(originsEnv, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		origin, err := normalizeOrigin(raw)
		if err != nil {
			return nil, err
		}
		if !seen[origin] {
			seen[origin] = true
			origins = append(origins, origin)
		}
	}
	return origins, nil
}

func normalizeOrigin(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid origin URL %q: %w", raw, err)
	}

	scheme := strings.ToLower(u.Scheme)
	switch {
	case scheme != "http" && scheme != "https":
		return "", fmt.Errorf("origin %q must use http or https scheme", raw)
	case u.Host == "":
		return "", fmt.Errorf("origin %q must include scheme and host (e.g., https://example.com)", raw)
	case u.User != nil:
		return "", fmt.Errorf("origin %q must not include credentials", raw)
	case u.Path != "" && u.Path != "/", u.RawQuery != "", u.Fragment != "":
		return "", fmt.Errorf("origin %q should not include path, query or fragment", raw)
	}
	return scheme + "://" + strings.ToLower(u.Host), nil
}

// MaxRequestSize limits request bodies to maxBytes. Reading past the limit
// fails and the response becomes 413. A limit <= 0 disables the check.
func MaxRequestSize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if maxBytes <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
