package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"net/url"
	"strconv"
	"strings"
)

// Attribute keys shared by every component.
const (
	KeyTool      = "tool"
	KeySubdomain = "subdomain"
	KeyEndpoint  = "endpoint"
	KeyRequestID = "request_id"
	KeyUserHash  = "user_hash"
	KeyDuration  = "duration"
	KeyStatus    = "status"
	KeyState     = "state"
	KeyError     = "error"
	KeyHost      = "host"
)

// Status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

const redactedIP = "<redacted-ip>"

// Tool returns a slog attribute for the MCP tool name.
func Tool(name string) slog.Attr {
	return slog.String(KeyTool, name)
}

// Subdomain returns a slog attribute for the Zendesk subdomain.
func Subdomain(subdomain string) slog.Attr {
	return slog.String(KeySubdomain, subdomain)
}

// Endpoint returns a slog attribute for a Zendesk endpoint class such as
// "tickets.show". Never pass raw paths: they carry ids.
func Endpoint(class string) slog.Attr {
	return slog.String(KeyEndpoint, class)
}

// RequestID returns a slog attribute for the X-Request-Id of an outbound call.
func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// State returns a slog attribute for a rate budget state.
func State(state string) slog.Attr {
	return slog.String(KeyState, state)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// SanitizedErr is Err with IP addresses redacted. Use it for transport and
// cache errors, which name the address of a proxy configured through
// ZENDESK_BASE_URL or of the Redis server.
func SanitizedErr(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, redactIPs(err.Error()))
}

// Host returns a slog attribute for a host with IP addresses redacted.
func Host(host string) slog.Attr {
	return slog.String(KeyHost, SanitizeHost(host))
}

// AnonymizeEmail hashes an agent address so log lines can be correlated
// without carrying the address.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(strings.ToLower(email)))
	return "user:" + hex.EncodeToString(hash[:8])
}

// UserHash returns a slog attribute with the anonymized agent address.
func UserHash(email string) slog.Attr {
	return slog.String(KeyUserHash, AnonymizeEmail(email))
}

// SanitizeHost redacts IP addresses in a host, host:port or URL and leaves
// names alone:
//
//	"https://192.168.1.100:8443" -> "https://<redacted-ip>:8443"
//	"[2001:db8::1]:8443"         -> "<redacted-ip>:8443"
//	"acme.zendesk.com"           -> "acme.zendesk.com"
func SanitizeHost(host string) string {
	if host == "" {
		return "<empty>"
	}
	return redactWord(host)
}

// SanitizeToken describes a token by its length only.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}

// NormalizeSubdomain strips a scheme and a trailing ".zendesk.com" so that
// "https://acme.zendesk.com" and "acme" both yield "acme".
func NormalizeSubdomain(subdomain string) string {
	s := strings.TrimSpace(strings.ToLower(subdomain))
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	s = strings.TrimSuffix(s, "/")
	return strings.TrimSuffix(s, ".zendesk.com")
}

// redactIPs redacts every space-separated word of s that is an address,
// an address:port or a URL with an address host.
func redactIPs(s string) string {
	words := strings.Split(s, " ")
	for i, w := range words {
		words[i] = redactWord(w)
	}
	return strings.Join(words, " ")
}

func redactWord(w string) string {
	core := strings.TrimRight(w, ":,;)\"")
	suffix := w[len(core):]
	if strings.HasPrefix(core, "\"") {
		return "\"" + redactWord(w[1:])
	}

	if strings.Contains(core, "://") {
		u, err := url.Parse(core)
		if err != nil || u.Host == "" {
			return w
		}
		if host := redactHostPort(u.Host); host != u.Host {
			u.Host = host
			return u.String() + suffix
		}
		return w
	}

	if host := redactHostPort(core); host != core {
		return host + suffix
	}
	return w
}

func redactHostPort(hostport string) string {
	if ap, err := netip.ParseAddrPort(hostport); err == nil {
		return net.JoinHostPort(redactedIP, strconv.Itoa(int(ap.Port())))
	}
	if _, err := netip.ParseAddr(strings.Trim(hostport, "[]")); err == nil {
		return redactedIP
	}
	return hostport
}
